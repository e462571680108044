package renderer

import "context"

// The Renderer interface is implemented by the available render frontends.
type Renderer interface {
	// Render all configured iterations. Cancelling the context stops the
	// render cooperatively at the next iteration boundary, leaving the
	// partially converged image intact.
	Render(ctx context.Context) error

	// Render a single iteration. Iterations are 1-based; iteration 1
	// resets the accumulated image.
	RenderIteration(iteration uint32) error

	// Copy out the current linear HDR image as RGB triplets.
	Image() []float32

	// Write the current tone-mapped frame into an RGBA8 buffer of
	// length 4 * frameW * frameH.
	Present(dst []uint8) error

	// Shutdown renderer and any attached tracer.
	Close()

	// Get render statistics.
	Stats() FrameStats
}
