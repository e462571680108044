package tracer

import "time"

type UpdateType uint8

const (
	UpdateScene UpdateType = iota
	UpdateCamera
)

// A unit of work that is processed by a tracer. A block covers the full
// frame width and a contiguous row range [BlockY, BlockY+BlockH).
type BlockRequest struct {
	// Frame dimensions.
	FrameW uint32
	FrameH uint32

	// Block start row and height.
	BlockY uint32
	BlockH uint32

	// The 1-based render iteration this block belongs to. The first
	// iteration resets the accumulated image for the block rows.
	Iteration uint32

	// A channel to signal on block completion with the number of completed rows.
	DoneChan chan<- uint32

	// A channel to signal if an error occurs.
	ErrChan chan<- error
}

// Tracer statistics for the last rendered block.
type Stats struct {
	// The rendered block height.
	BlockH uint32

	// The time spent rendering the last block.
	RenderTime time.Duration

	// The time spent applying queued state updates.
	UpdateTime time.Duration
}

// The Tracer interface is implemented by all tracing backends that can
// render frame blocks.
type Tracer interface {
	// Get tracer id.
	Id() string

	// Get the tracer's relative computation speed estimate. The block
	// scheduler uses this value for the initial work assignment.
	Speed() uint32

	// Setup the tracer. The accumulation and frame buffers are shared
	// between all attached tracers; each tracer only writes the rows
	// covered by its block requests.
	Setup(frameW, frameH uint32, accumBuffer []float32, frameBuffer []uint8) error

	// Shutdown and cleanup tracer.
	Close()

	// Enqueue a block request.
	Enqueue(BlockRequest)

	// Queue a state change. Updates are applied before the next block is
	// rendered; the latest update of each type wins.
	Update(UpdateType, interface{})

	// Retrieve last block statistics.
	Stats() *Stats
}
