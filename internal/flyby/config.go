package flyby

import (
	"fmt"
	"math"

	"github.com/hodel33/flyby33/internal/geo"
)

// Config carries every tunable the prediction engine uses. Nothing is read
// from package globals, so two engines with different configs can evaluate
// concurrently and tests can pin the scoring policy.
type Config struct {
	// EarthRadiusKm is the single spherical-Earth radius used by every
	// geometry sub-formula, so curvature assumptions never diverge.
	EarthRadiusKm float64 `toml:"earth_radius_km"`

	// FlybyRadiusKm is the high-confidence ring around the observer: at or
	// inside it the proximity factor is 1.0.
	FlybyRadiusKm float64 `toml:"flyby_radius_km"`

	// StabilityDecay is the per-sample exponent for recency weighting of
	// heading deltas: delta i (oldest first) gets weight e^(decay*i).
	StabilityDecay float64 `toml:"stability_decay"`

	// MaxAvgHeadingChangeDeg is the recency-weighted average heading change
	// at (and beyond) which the stability score reaches 0.
	MaxAvgHeadingChangeDeg float64 `toml:"max_avg_heading_change_deg"`

	// NeutralStability is the score returned when the trail holds fewer than
	// two points: insufficient evidence, not an error.
	NeutralStability float64 `toml:"neutral_stability"`

	// Cruise-speed normalization band, km/h. The speed factor ramps from 0
	// at SpeedMinKmh up to 1 at CruiseLowKmh, holds 1 through CruiseHighKmh,
	// and falls back to 0 at SpeedMaxKmh (implausibly fast).
	SpeedMinKmh   float64 `toml:"speed_min_kmh"`
	CruiseLowKmh  float64 `toml:"cruise_low_kmh"`
	CruiseHighKmh float64 `toml:"cruise_high_kmh"`
	SpeedMaxKmh   float64 `toml:"speed_max_kmh"`

	// StationarySpeedKts is the ground speed at or below which an aircraft is
	// treated as stationary: time-to-CPA undefined, probability 0.
	StationarySpeedKts float64 `toml:"stationary_speed_kts"`

	// Combination weights for the proximity (P), heading-stability (H) and
	// speed (S) factors. Must sum to 1. A weighted arithmetic mean is used
	// rather than a plain product, which would over-penalize any single low
	// factor.
	ProximityWeight float64 `toml:"proximity_weight"`
	StabilityWeight float64 `toml:"stability_weight"`
	SpeedWeight     float64 `toml:"speed_weight"`

	// BatchWorkers bounds parallelism in EvaluateBatch; <=1 means serial.
	BatchWorkers int `toml:"batch_workers"`
}

// DefaultConfig returns the tuning the tracker ships with.
func DefaultConfig() Config {
	return Config{
		EarthRadiusKm:          geo.EarthRadiusKm,
		FlybyRadiusKm:          10,
		StabilityDecay:         1.0,
		MaxAvgHeadingChangeDeg: 10,
		NeutralStability:       0.5,
		SpeedMinKmh:            200,
		CruiseLowKmh:           700,
		CruiseHighKmh:          950,
		SpeedMaxKmh:            1300,
		StationarySpeedKts:     1,
		ProximityWeight:        0.60,
		StabilityWeight:        0.25,
		SpeedWeight:            0.15,
		BatchWorkers:           4,
	}
}

// Validate checks the config for values the engine cannot work with.
func (c Config) Validate() error {
	if c.EarthRadiusKm <= 0 {
		return fmt.Errorf("earth radius must be positive, got %v", c.EarthRadiusKm)
	}
	if c.FlybyRadiusKm <= 0 {
		return fmt.Errorf("flyby radius must be positive, got %v", c.FlybyRadiusKm)
	}
	if c.MaxAvgHeadingChangeDeg <= 0 {
		return fmt.Errorf("max avg heading change must be positive, got %v", c.MaxAvgHeadingChangeDeg)
	}
	if c.NeutralStability < 0 || c.NeutralStability > 1 {
		return fmt.Errorf("neutral stability must be in [0,1], got %v", c.NeutralStability)
	}
	if !(c.SpeedMinKmh < c.CruiseLowKmh && c.CruiseLowKmh <= c.CruiseHighKmh && c.CruiseHighKmh < c.SpeedMaxKmh) {
		return fmt.Errorf("cruise band must satisfy min < low <= high < max, got %v/%v/%v/%v",
			c.SpeedMinKmh, c.CruiseLowKmh, c.CruiseHighKmh, c.SpeedMaxKmh)
	}
	weightSum := c.ProximityWeight + c.StabilityWeight + c.SpeedWeight
	if math.Abs(weightSum-1.0) > 1e-9 {
		return fmt.Errorf("P/H/S weights must sum to 1, got %v", weightSum)
	}
	if c.ProximityWeight < 0 || c.StabilityWeight < 0 || c.SpeedWeight < 0 {
		return fmt.Errorf("P/H/S weights must be non-negative")
	}
	return nil
}
