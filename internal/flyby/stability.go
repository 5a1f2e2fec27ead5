package flyby

import (
	"math"

	"github.com/hodel33/flyby33/internal/geo"
)

// headingStability estimates how steadily an aircraft has been holding its
// heading, from its position trail plus its current heading.
//
// The trail legs give a sequence of flown bearings; the current heading is
// appended as the final one. Successive bearing deltas (shortest signed
// angular difference, so a turn through north counts correctly) are averaged
// with exponentially higher weight on recent deltas, and the weighted average
// deviation is mapped to a score in [0,1]: 1 at zero deviation, falling
// linearly to 0 at cfg.MaxAvgHeadingChangeDeg and clamped there.
//
// Fewer than two usable bearings means there is no delta to judge, which is
// insufficient evidence rather than an error: the neutral default is returned.
func headingStability(cfg Config, sphere geo.Sphere, trail Trail, currentHeadingDeg float64) float64 {
	bearings := make([]float64, 0, len(trail))

	for i := 0; i+1 < len(trail); i++ {
		b, err := sphere.InitialBearing(trail[i].Position, trail[i+1].Position)
		if err != nil {
			// Hovering or duplicate sample; this leg carries no heading info
			continue
		}
		bearings = append(bearings, b)
	}
	bearings = append(bearings, geo.NormalizeBearing(currentHeadingDeg))

	if len(bearings) < 2 {
		return cfg.NeutralStability
	}

	var weightedSum, totalWeight float64
	for i := 0; i+1 < len(bearings); i++ {
		delta := math.Abs(geo.AngularDiff(bearings[i+1], bearings[i]))

		// Recent deltas dominate: weight grows exponentially along the trail
		w := math.Exp(cfg.StabilityDecay * float64(i))
		weightedSum += delta * w
		totalWeight += w
	}

	avgChange := weightedSum / totalWeight

	return clamp01(1.0 - avgChange/cfg.MaxAvgHeadingChangeDeg)
}

// clamp01 clamps v to [0,1].
func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
