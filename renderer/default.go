package renderer

import (
	"context"
	"fmt"
	"time"

	"github.com/helios-rt/helios/log"
	"github.com/helios-rt/helios/scene"
	"github.com/helios-rt/helios/tracer"
	"github.com/helios-rt/helios/tracer/cpu"
)

// The default renderer drives a pool of tracers through the frame one
// iteration at a time. Each iteration splits the frame into row blocks via
// the attached scheduler, fans the blocks out to the tracers and waits for
// all of them before returning, making iterations atomic.
type defaultRenderer struct {
	logger log.Logger

	options   Options
	sceneData *scene.Scene
	camera    *scene.Camera

	scheduler tracer.BlockScheduler
	tracers   []tracer.Tracer

	// Shared output buffers. Tracers write disjoint row ranges.
	accumBuffer []float32
	frameBuffer []uint8

	// Last block height assignment.
	blockAssignments []uint32

	// Completion/error channels shared by all block requests.
	doneChan chan uint32
	errChan  chan error

	stats FrameStats
}

// Create a new renderer using the specified block scheduler and tracing
// pipeline. The renderer owns its tracers and shuts them down on Close.
func NewDefault(sc *scene.Scene, scheduler tracer.BlockScheduler, pipeline *cpu.Pipeline, opts Options) (Renderer, error) {
	if sc == nil {
		return nil, ErrSceneNotDefined
	}
	if sc.Camera == nil {
		return nil, ErrCameraNotDefined
	}
	if opts.FrameW == 0 || opts.FrameH == 0 {
		return nil, ErrInvalidFrameDims
	}

	if opts.NumTracers <= 0 {
		opts.NumTracers = 1
	}
	if uint32(opts.NumTracers) > opts.FrameH {
		opts.NumTracers = int(opts.FrameH)
	}

	numPixels := int(opts.FrameW) * int(opts.FrameH)
	r := &defaultRenderer{
		logger:      log.New("renderer"),
		options:     opts,
		sceneData:   sc,
		camera:      sc.Camera,
		scheduler:   scheduler,
		accumBuffer: make([]float32, numPixels*3),
		frameBuffer: make([]uint8, numPixels*4),
		doneChan:    make(chan uint32, opts.NumTracers),
		errChan:     make(chan error, opts.NumTracers),
	}

	for idx := 0; idx < opts.NumTracers; idx++ {
		tr := cpu.NewTracer(fmt.Sprintf("cpu-%d", idx), opts.NumWorkers, pipeline)
		if err := tr.Setup(opts.FrameW, opts.FrameH, r.accumBuffer, r.frameBuffer); err != nil {
			r.Close()
			return nil, err
		}
		tr.Update(tracer.UpdateScene, sc)
		r.tracers = append(r.tracers, tr)
	}

	if len(r.tracers) == 0 {
		return nil, ErrNoTracers
	}

	return r, nil
}

// Render all configured iterations, checking for cancellation between
// iterations. Iterations themselves are atomic.
func (r *defaultRenderer) Render(ctx context.Context) error {
	var iteration uint32
	for iteration = 1; r.options.Iterations == 0 || iteration <= r.options.Iterations; iteration++ {
		select {
		case <-ctx.Done():
			r.logger.Noticef("render interrupted after %d iterations", iteration-1)
			return ErrInterrupted
		default:
		}

		if err := r.RenderIteration(iteration); err != nil {
			return err
		}
	}

	return nil
}

// Render a single iteration by scheduling row blocks over the tracer pool
// and waiting for all of them to complete.
func (r *defaultRenderer) RenderIteration(iteration uint32) error {
	start := time.Now()

	r.blockAssignments = r.scheduler.Schedule(r.tracers, r.options.FrameH)

	var blockY uint32
	pending := 0
	for idx, tr := range r.tracers {
		blockH := r.blockAssignments[idx]
		if blockH == 0 {
			continue
		}

		tr.Enqueue(tracer.BlockRequest{
			FrameW:    r.options.FrameW,
			FrameH:    r.options.FrameH,
			BlockY:    blockY,
			BlockH:    blockH,
			Iteration: iteration,
			DoneChan:  r.doneChan,
			ErrChan:   r.errChan,
		})

		blockY += blockH
		pending++
	}

	// Wait for every block before the iteration is considered done. On
	// error keep draining so that no tracer blocks on its reply channel.
	var firstErr error
	for ; pending > 0; pending-- {
		select {
		case <-r.doneChan:
		case err := <-r.errChan:
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return firstErr
	}

	r.collectStats(iteration, time.Since(start))
	return nil
}

// Gather per-tracer statistics for the completed iteration.
func (r *defaultRenderer) collectStats(iteration uint32, renderTime time.Duration) {
	r.stats.Tracers = r.stats.Tracers[:0]
	for _, tr := range r.tracers {
		stats := tr.Stats()
		r.stats.Tracers = append(r.stats.Tracers, TracerStat{
			Id:           tr.Id(),
			BlockH:       stats.BlockH,
			FramePercent: 100 * float32(stats.BlockH) / float32(r.options.FrameH),
			RenderTime:   stats.RenderTime,
		})
	}
	r.stats.RenderTime = renderTime
	r.stats.Iterations = iteration
}

// Copy out the current linear HDR image.
func (r *defaultRenderer) Image() []float32 {
	out := make([]float32, len(r.accumBuffer))
	copy(out, r.accumBuffer)
	return out
}

// Write the current tone-mapped frame into dst.
func (r *defaultRenderer) Present(dst []uint8) error {
	if len(dst) < len(r.frameBuffer) {
		return ErrBufferTooSmall
	}
	copy(dst, r.frameBuffer)
	return nil
}

// Propagate a camera change to all tracers. The accumulated image becomes
// stale; the caller is expected to restart the iteration counter at 1.
func (r *defaultRenderer) updateCamera(camera *scene.Camera) {
	for _, tr := range r.tracers {
		tr.Update(tracer.UpdateCamera, camera)
	}
}

// Shutdown renderer and all attached tracers.
func (r *defaultRenderer) Close() {
	for _, tr := range r.tracers {
		tr.Close()
	}
	r.tracers = nil
}

// Get render statistics.
func (r *defaultRenderer) Stats() FrameStats {
	return r.stats
}
