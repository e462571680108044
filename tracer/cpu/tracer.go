package cpu

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/helios-rt/helios/log"
	"github.com/helios-rt/helios/scene"
	"github.com/helios-rt/helios/tracer"
)

// Below this many work items a stage runs single threaded; goroutine fanout
// costs more than it saves.
const minParallelItems = 1024

// A CPU tracer renders frame blocks by executing the stage pipeline with a
// pool of worker goroutines. Each stage is bulk-synchronous: the pool is
// split into contiguous chunks processed concurrently with a barrier before
// the next stage runs.
type Tracer struct {
	logger log.Logger

	sync.Mutex
	wg sync.WaitGroup

	// The tracer id.
	id string

	// Number of concurrent workers used by parallelFor.
	numWorkers int

	// The tracer rendering pipeline.
	pipeline *Pipeline

	// The allocated path/intersection pools.
	buffers *bufferSet

	// Frame dimensions and the shared output buffers assigned at setup.
	frameW, frameH uint32
	accumBuffer    []float32
	frameBuffer    []uint8

	// A buffer for queuing updates. Updates are grouped by type and the
	// latest update always overwrites the previous one.
	updateBuffer map[tracer.UpdateType]interface{}

	// A channel for receiving block requests from the renderer.
	blockReqChan chan tracer.BlockRequest

	// A channel for signaling the worker to exit.
	closeChan chan struct{}

	// Statistics for the last rendered block.
	stats *tracer.Stats

	// The uploaded scene data and active camera.
	sceneData *scene.Scene
	camera    *scene.Camera

	// First bounce cache state. The cache holds intersections for the
	// block rows recorded here and is invalidated by camera updates.
	cacheValid  bool
	cacheBlockY uint32
	cacheBlockH uint32
}

// Create a new CPU tracer with the given worker count. A non-positive
// worker count selects one worker per logical core.
func NewTracer(id string, numWorkers int, pipeline *Pipeline) tracer.Tracer {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	return &Tracer{
		logger:       log.New(fmt.Sprintf("cpu tracer (%s)", id)),
		id:           id,
		numWorkers:   numWorkers,
		pipeline:     pipeline,
		updateBuffer: make(map[tracer.UpdateType]interface{}),
		// One request can be parked while the previous block drains so
		// that back-to-back iterations never drop work.
		blockReqChan: make(chan tracer.BlockRequest, 1),
		stats:        &tracer.Stats{},
	}
}

// Get tracer id.
func (tr *Tracer) Id() string {
	return tr.id
}

// Get the tracer's relative computation speed estimate. CPU tracers report
// their worker count so that the scheduler's initial assignment gives wider
// tracers proportionally taller blocks.
func (tr *Tracer) Speed() uint32 {
	return uint32(tr.numWorkers)
}

// Setup the tracer: allocate the path pools sized to the full frame and
// adopt the shared output buffers.
func (tr *Tracer) Setup(frameW, frameH uint32, accumBuffer []float32, frameBuffer []uint8) error {
	tr.Lock()
	defer tr.Unlock()

	if tr.buffers != nil {
		return ErrAlreadySetup
	}

	numPixels := int(frameW) * int(frameH)
	if len(accumBuffer) != numPixels*3 || len(frameBuffer) != numPixels*4 {
		return ErrInvalidBuffers
	}

	tr.frameW = frameW
	tr.frameH = frameH
	tr.accumBuffer = accumBuffer
	tr.frameBuffer = frameBuffer
	tr.buffers = newBufferSet(numPixels)

	if tr.closeChan == nil {
		tr.startWorker()
	}

	return nil
}

// Shutdown and cleanup tracer.
func (tr *Tracer) Close() {
	tr.Lock()
	defer tr.Unlock()

	if tr.closeChan != nil {
		tr.closeChan <- struct{}{}

		// wait for worker to ack close and shutdown channel
		<-tr.closeChan
		close(tr.closeChan)
		tr.closeChan = nil
	}

	tr.buffers = nil
	tr.sceneData = nil
	tr.camera = nil
}

// Enqueue block request.
func (tr *Tracer) Enqueue(blockReq tracer.BlockRequest) {
	select {
	case tr.blockReqChan <- blockReq:
	default:
		// drop the request if worker is not listening
		tr.logger.Error("request processor did not receive block request")
	}
}

// Append a change to the tracer's update buffer.
func (tr *Tracer) Update(updateType tracer.UpdateType, data interface{}) {
	tr.Lock()
	defer tr.Unlock()

	tr.updateBuffer[updateType] = data
}

// Retrieve last block statistics.
func (tr *Tracer) Stats() *tracer.Stats {
	return tr.stats
}

// Commit queued changes. Scene and camera updates both invalidate the first
// bounce cache.
func (tr *Tracer) commitUpdates() error {
	tr.Lock()
	defer tr.Unlock()

	if len(tr.updateBuffer) == 0 {
		return nil
	}

	for updateType, data := range tr.updateBuffer {
		switch updateType {
		case tracer.UpdateScene:
			sc, ok := data.(*scene.Scene)
			if !ok {
				return fmt.Errorf("cpu tracer: unsupported scene payload %T", data)
			}
			tr.sceneData = sc
			tr.camera = sc.Camera
		case tracer.UpdateCamera:
			cam, ok := data.(*scene.Camera)
			if !ok {
				return fmt.Errorf("cpu tracer: unsupported camera payload %T", data)
			}
			tr.camera = cam
		default:
			return fmt.Errorf("cpu tracer: unsupported update type %d", updateType)
		}

		tr.cacheValid = false
	}

	tr.updateBuffer = make(map[tracer.UpdateType]interface{})
	return nil
}

// Spawn a go-routine to process block render requests.
func (tr *Tracer) startWorker() {
	readyChan := make(chan struct{})
	tr.closeChan = make(chan struct{})

	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		var blockReq tracer.BlockRequest
		var startTime time.Time
		var err error
		close(readyChan)
		for {
			select {
			case blockReq = <-tr.blockReqChan:
				startTime = time.Now()

				// Apply any pending changes
				err = tr.commitUpdates()
				if err != nil {
					blockReq.ErrChan <- err
					continue
				}
				tr.stats.UpdateTime = time.Since(startTime)

				// Render block and reply with our completion status
				err = tr.renderBlock(&blockReq)
				if err != nil {
					blockReq.ErrChan <- err
					continue
				}

				// Update stats
				tr.stats.BlockH = blockReq.BlockH
				tr.stats.RenderTime = time.Since(startTime)

				blockReq.DoneChan <- blockReq.BlockH
			case <-tr.closeChan:
				// Ack close
				tr.closeChan <- struct{}{}
				return
			}
		}
	}()

	// Wait for go-routine to start
	<-readyChan
}

// Render block by executing the attached pipeline stages in order.
func (tr *Tracer) renderBlock(blockReq *tracer.BlockRequest) error {
	if tr.sceneData == nil || tr.camera == nil {
		return ErrNoSceneData
	}

	var err error

	// The accumulated image restarts whenever the iteration counter does.
	if blockReq.Iteration <= 1 && tr.pipeline.Reset != nil {
		if _, err = tr.pipeline.Reset(tr, blockReq); err != nil {
			return err
		}
	}

	if _, err = tr.pipeline.PrimaryRayGenerator(tr, blockReq); err != nil {
		return err
	}
	if _, err = tr.pipeline.Integrator(tr, blockReq); err != nil {
		return err
	}

	for _, stage := range tr.pipeline.PostProcess {
		if _, err = stage(tr, blockReq); err != nil {
			return err
		}
	}

	return nil
}

// Run fn over [0, n) split into contiguous chunks executed concurrently by
// the tracer's workers. The call returns after all chunks complete, forming
// the barrier between pipeline stages.
func (tr *Tracer) parallelFor(n int, fn func(first, last int)) {
	if n <= 0 {
		return
	}
	if tr.numWorkers <= 1 || n < minParallelItems {
		fn(0, n)
		return
	}

	chunk := (n + tr.numWorkers - 1) / tr.numWorkers

	var wg sync.WaitGroup
	for first := 0; first < n; first += chunk {
		last := first + chunk
		if last > n {
			last = n
		}

		wg.Add(1)
		go func(first, last int) {
			defer wg.Done()
			fn(first, last)
		}(first, last)
	}
	wg.Wait()
}
