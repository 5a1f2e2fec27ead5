package flyby

// proximityFactor maps a closest-approach distance to [0,1]: 1.0 at or
// inside the flyby ring, decaying linearly to 0 at the monitoring radius and
// staying 0 beyond it. Monotonically non-increasing in distance.
func proximityFactor(cfg Config, distanceKm, radiusKm float64) float64 {
	if distanceKm <= cfg.FlybyRadiusKm {
		return 1.0
	}
	if radiusKm <= cfg.FlybyRadiusKm {
		// Degenerate configuration: monitor radius inside the flyby ring.
		// Everything beyond the ring scores 0.
		return 0
	}
	return clamp01(1.0 - (distanceKm-cfg.FlybyRadiusKm)/(radiusKm-cfg.FlybyRadiusKm))
}

// speedFactor normalizes ground speed (km/h) against the typical cruise band.
// The factor ramps from 0 at SpeedMinKmh to 1 at CruiseLowKmh, holds 1
// through CruiseHighKmh, then falls back to 0 at SpeedMaxKmh: both
// too-slow and implausibly-fast targets are discounted.
func speedFactor(cfg Config, speedKmh float64) float64 {
	switch {
	case speedKmh <= cfg.SpeedMinKmh:
		return 0
	case speedKmh < cfg.CruiseLowKmh:
		return clamp01((speedKmh - cfg.SpeedMinKmh) / (cfg.CruiseLowKmh - cfg.SpeedMinKmh))
	case speedKmh <= cfg.CruiseHighKmh:
		return 1
	case speedKmh < cfg.SpeedMaxKmh:
		return clamp01(1.0 - (speedKmh-cfg.CruiseHighKmh)/(cfg.SpeedMaxKmh-cfg.CruiseHighKmh))
	default:
		return 0
	}
}

// combineScore folds the proximity (P), stability (H) and speed (S) factors
// into a single probability using a weighted arithmetic mean. The weights sum
// to 1 (enforced by Config.Validate); a plain product would let any single
// low factor zero out the whole score.
func combineScore(cfg Config, proximity, stability, speed float64) float64 {
	return clamp01(proximity*cfg.ProximityWeight + stability*cfg.StabilityWeight + speed*cfg.SpeedWeight)
}
