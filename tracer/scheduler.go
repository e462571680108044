package tracer

import "math"

// The BlockScheduler interface is implemented by all block scheduling algorithms.
type BlockScheduler interface {
	// Split frame into blocks of variable height and assign to the pool
	// of tracers using feedback collected from previous frames.
	//
	// This function returns the block height assignment for each tracer
	// in the input list.
	Schedule(tracers []Tracer, frameH uint32) []uint32
}

// The naive scheduler splits the frame into equal height blocks ignoring
// any feedback from previous frames.
type naiveScheduler struct {
	blockAssignment []uint32
}

// Create a new naive scheduler instance.
func NaiveScheduler() BlockScheduler {
	return &naiveScheduler{}
}

// Split frame into equal blocks, appending any remainder rows to the first
// tracer.
func (sch *naiveScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	if len(sch.blockAssignment) != len(tracers) {
		sch.blockAssignment = make([]uint32, len(tracers))
	}

	rows := frameH / uint32(len(tracers))
	var assigned uint32
	for idx := range tracers {
		sch.blockAssignment[idx] = rows
		assigned += rows
	}
	sch.blockAssignment[0] += frameH - assigned

	return sch.blockAssignment
}

// The perfect scheduler assumes that the volume of tracing work between two
// subsequent frames is approximately the same and uses the per-tracer
// render times of the previous frame to rebalance block heights.
type perfectScheduler struct {
	blockAssignment []uint32
}

// Create a new perfect scheduler instance.
func NewPerfectScheduler() BlockScheduler {
	return &perfectScheduler{}
}

// Split frame into blocks of variable height and assign to the pool of
// tracers using feedback collected from previous frames.
//
// When previous frame information is available the scheduler estimates the
// workload for tracer w and frame i+1 as:
// w_i, f_i+1 = (blockH,w_i / time,w_i) / Σ(blockH_i-1 / time,i-1)
func (sch *perfectScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	var total float64 = 0.0
	var scaler float64

	// If this is the first time we try to schedule or the number of tracers
	// has changed we need to reset the block assignments
	if len(sch.blockAssignment) != len(tracers) {
		sch.blockAssignment = make([]uint32, len(tracers))

		// Get speed estimate for each tracer and distribute rows accordingly
		for _, tr := range tracers {
			total += float64(tr.Speed())
		}
		scaler = float64(frameH) / total

		var scheduledRows uint32
		for idx, tr := range tracers {
			sch.blockAssignment[idx] = uint32(math.Max(1.0, math.Floor(float64(tr.Speed())*scaler)))
			scheduledRows += sch.blockAssignment[idx]
		}
		sch.blockAssignment[0] += frameH - scheduledRows

		return sch.blockAssignment
	}

	// Use last frame statistics. A tracer without timing feedback yet is
	// weighted as if it rendered its block in a single time unit.
	var stats *Stats
	for _, tr := range tracers {
		stats = tr.Stats()
		total += rowRate(stats)
	}

	scaler = float64(frameH) / total
	var scheduledRows uint32 = 0
	for idx, tr := range tracers {
		stats = tr.Stats()
		sch.blockAssignment[idx] = uint32(math.Max(1.0, math.Floor(rowRate(stats)*scaler)))
		scheduledRows += sch.blockAssignment[idx]
	}

	// In case rows don't add up to the frame height append the missing ones
	// to the first tracer
	sch.blockAssignment[0] += frameH - scheduledRows

	return sch.blockAssignment
}

func rowRate(stats *Stats) float64 {
	if stats.RenderTime <= 0 {
		return float64(stats.BlockH)
	}
	return float64(stats.BlockH) / float64(stats.RenderTime.Nanoseconds())
}
