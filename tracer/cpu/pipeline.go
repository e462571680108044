package cpu

import (
	"time"

	"github.com/helios-rt/helios/tracer"
)

// An alias for functions that can be used as part of the rendering pipeline.
type PipelineStage func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error)

// The list of pluggable stages that are used to render a frame block.
type Pipeline struct {
	// Reset the accumulated image for the block. This stage is executed
	// on the first iteration after the camera moved or the sample
	// counter was reset.
	Reset PipelineStage

	// This stage fills the path pool with one primary ray per block
	// pixel.
	PrimaryRayGenerator PipelineStage

	// This stage implements the per-bounce integrator loop and folds the
	// per-path colors into the accumulation buffer.
	Integrator PipelineStage

	// A set of post-processing stages executed after the integrator,
	// typically the tone-mapping pass feeding the display buffer.
	PostProcess []PipelineStage
}

// Assemble the default pipeline for a configuration.
func DefaultPipeline(cfg Config) *Pipeline {
	return &Pipeline{
		Reset:               ClearAccumulator(),
		PrimaryRayGenerator: PerspectiveCamera(cfg),
		Integrator:          MonteCarloIntegrator(cfg),
		PostProcess: []PipelineStage{
			TonemapFrame(cfg),
		},
	}
}

// Clear the accumulation buffer rows covered by the block.
func ClearAccumulator() PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()

		base := int(blockReq.BlockY) * int(blockReq.FrameW) * 3
		count := int(blockReq.BlockH) * int(blockReq.FrameW) * 3
		for i := base; i < base+count; i++ {
			tr.accumBuffer[i] = 0
		}

		return time.Since(start), nil
	}
}

// Generate primary rays for the block using a perspective camera with an
// optional thin lens. Every path starts with full throughput, zero color
// and the configured bounce budget.
func PerspectiveCamera(cfg Config) PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()

		camera := tr.camera
		frameW := blockReq.FrameW
		numPaths := int(blockReq.BlockH) * int(frameW)

		halfW := float32(blockReq.FrameW) * 0.5
		halfH := float32(blockReq.FrameH) * 0.5

		tr.parallelFor(numPaths, func(first, last int) {
			for i := first; i < last; i++ {
				x := uint32(i) % frameW
				y := blockReq.BlockY + uint32(i)/frameW
				pixelIndex := y*frameW + x

				// The generator owns the sample stream one past the
				// deepest bounce so that jitter and lens samples never
				// collide with the per-bounce shading streams.
				smp := newSampler(blockReq.Iteration, pixelIndex, cfg.NumBounces)

				// Anti-alias jitter is incompatible with reusing first
				// bounce hits across iterations.
				var jx, jy float32
				if !cfg.CacheFirstBounce {
					jx = smp.Float()
					jy = smp.Float()
				}

				dir := camera.View.
					Sub(camera.Right.Mul(camera.PixelLength[0] * (float32(x) + jx - halfW))).
					Sub(camera.UpVec.Mul(camera.PixelLength[1] * (float32(y) + jy - halfH))).
					Normalize()
				origin := camera.Position

				if camera.Aperture > 0 {
					focalT := camera.FocalLength * camera.View.Dot(camera.View) / dir.Dot(camera.View)
					focalPoint := origin.Add(dir.Mul(focalT))

					lensU, lensV := concentricSampleDisk(smp.Float(), smp.Float())
					lensPoint := origin.
						Add(camera.Right.Mul(lensU * camera.Aperture)).
						Add(camera.UpVec.Mul(lensV * camera.Aperture))

					origin = lensPoint
					dir = focalPoint.Sub(lensPoint).Normalize()
				}

				tr.buffers.paths[i] = PathSegment{
					Ray:              Ray{Origin: origin, Dir: dir},
					Throughput:       fullThroughput,
					PixelIndex:       pixelIndex,
					RemainingBounces: int32(cfg.NumBounces),
				}
			}
		})

		return time.Since(start), nil
	}
}

// Use a montecarlo pathtracer implementation: per bounce, intersect all
// live paths, optionally sort them by material, shade them, then optionally
// compact the pool; finally fold the per-path colors into the running
// per-pixel mean.
func MonteCarloIntegrator(cfg Config) PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()

		sc := tr.sceneData
		bs := tr.buffers
		blockPaths := int(blockReq.BlockH) * int(blockReq.FrameW)
		numPaths := blockPaths

		cacheUsable := cfg.CacheFirstBounce && tr.cacheValid &&
			tr.cacheBlockY == blockReq.BlockY && tr.cacheBlockH == blockReq.BlockH

		for depth := uint32(0); depth < cfg.NumBounces && numPaths > 0; depth++ {
			// Intersection stage.
			if depth == 0 && blockReq.Iteration > 1 && cacheUsable {
				copy(bs.isects[:numPaths], bs.cache[:numPaths])
			} else {
				tr.parallelFor(numPaths, func(first, last int) {
					for i := first; i < last; i++ {
						seg := &bs.paths[i]
						if !seg.Alive() {
							bs.isects[i] = Intersection{T: -1, MaterialIndex: -1}
							continue
						}
						bs.isects[i] = intersectScene(sc, seg.Ray, cfg.EnableBVH)
					}
				})
			}

			if cfg.CacheFirstBounce && depth == 0 && blockReq.Iteration == 1 {
				copy(bs.cache[:numPaths], bs.isects[:numPaths])
				tr.cacheValid = true
				tr.cacheBlockY = blockReq.BlockY
				tr.cacheBlockH = blockReq.BlockH
			}

			// Improve shading locality by grouping paths per material.
			if cfg.SortByMaterial {
				bs.sortByMaterial(numPaths)
			}

			// Shading stage.
			tr.parallelFor(numPaths, func(first, last int) {
				for i := first; i < last; i++ {
					seg := &bs.paths[i]
					if !seg.Alive() {
						continue
					}
					smp := newSampler(blockReq.Iteration, seg.PixelIndex, depth)
					shadeSegment(seg, &bs.isects[i], sc.Materials, &smp, &cfg, depth)
				}
			})

			// Drop terminated paths from the live range.
			if cfg.StreamCompact {
				numPaths = bs.compact(numPaths)
			}
		}

		// Accumulation stage: every block path folds its color into the
		// progressive per-pixel mean, including paths that were
		// compacted behind the live range.
		invIter := 1 / float32(blockReq.Iteration)
		tr.parallelFor(blockPaths, func(first, last int) {
			for i := first; i < last; i++ {
				seg := &bs.paths[i]
				base := int(seg.PixelIndex) * 3
				for c := 0; c < 3; c++ {
					tr.accumBuffer[base+c] += (seg.Color[c] - tr.accumBuffer[base+c]) * invIter
				}
			}
		})

		return time.Since(start), nil
	}
}
