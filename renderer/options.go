package renderer

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Number of render iterations. Zero means render until stopped.
	Iterations uint32

	// Number of attached CPU tracers and the worker count per tracer.
	// Non-positive values select one tracer backed by all logical cores.
	NumTracers int
	NumWorkers int
}
