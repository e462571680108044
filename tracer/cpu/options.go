package cpu

// Config collects the rendering parameters and the optional stage toggles
// that pipeline stages are constructed with. The toggles are behavior
// preserving: flipping any of them must not change the converged image.
type Config struct {
	// Maximum number of surface interactions along a path.
	NumBounces uint32

	// Minimum depth before russian roulette path elimination kicks in.
	MinBouncesForRR uint32

	// Exposure scaler applied while tone-mapping.
	Exposure float32

	// Use the per-mesh BVH instead of a linear triangle scan.
	EnableBVH bool

	// Probabilistically terminate low throughput paths.
	RussianRoulette bool

	// Sort paths and intersections by material before shading.
	SortByMaterial bool

	// Stream-compact terminated paths out of the live range.
	StreamCompact bool

	// Reuse the first bounce intersections across iterations. Enabling
	// this disables anti-alias jitter so that cached hits stay valid.
	CacheFirstBounce bool

	// Apply Reinhard tone-mapping and gamma correction when converting
	// to the display buffer.
	GammaCorrection bool
}

// DefaultConfig returns the configuration matching an unadorned render:
// BVH on, roulette on, all pipeline experiments off.
func DefaultConfig() Config {
	return Config{
		NumBounces:      8,
		MinBouncesForRR: 3,
		Exposure:        1.0,
		EnableBVH:       true,
		RussianRoulette: true,
	}
}
