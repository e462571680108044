package renderer

import "time"

type TracerStat struct {
	// The tracer id.
	Id string

	// The block height and the percentage of total frame area it represents.
	BlockH       uint32
	FramePercent float32

	// Render time for the assigned block.
	RenderTime time.Duration
}

type FrameStats struct {
	// Individual tracer stats.
	Tracers []TracerStat

	// Total render time for the last iteration.
	RenderTime time.Duration

	// Number of completed iterations since the last reset.
	Iterations uint32
}
