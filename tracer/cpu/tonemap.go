package cpu

import (
	"time"

	"github.com/helios-rt/helios/tracer"
)

const invGamma float32 = 1.0 / 2.2

// Convert the linear HDR accumulation rows of the block into the 8-bit
// RGBA display buffer. With gamma correction enabled the exposed value is
// first compressed with the simple Reinhard operator and then gamma
// encoded; otherwise it is clamped linearly. The accumulation buffer itself
// is left untouched.
func TonemapFrame(cfg Config) PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()

		firstPixel := int(blockReq.BlockY) * int(blockReq.FrameW)
		numPixels := int(blockReq.BlockH) * int(blockReq.FrameW)

		tr.parallelFor(numPixels, func(first, last int) {
			for i := first; i < last; i++ {
				pixel := firstPixel + i
				for c := 0; c < 3; c++ {
					v := tr.accumBuffer[pixel*3+c] * cfg.Exposure
					if cfg.GammaCorrection {
						v = v / (1 + v)
						v = powf(v, invGamma)
					}
					if v < 0 || !isFinite(v) {
						v = 0
					} else if v > 1 {
						v = 1
					}
					tr.frameBuffer[pixel*4+c] = uint8(v*255 + 0.5)
				}
				tr.frameBuffer[pixel*4+3] = 255
			}
		})

		return time.Since(start), nil
	}
}
