package flyby

import (
	"errors"
	"fmt"
	"time"

	"github.com/hodel33/flyby33/internal/geo"
)

// Error taxonomy for per-aircraft evaluation failures. Nothing in this
// package is fatal to the process: every failure mode resolves to either a
// defined default value or a per-aircraft failure marker in the batch output.
var (
	// ErrInvalidInput marks malformed input: NaN or out-of-range coordinates,
	// negative speed, non-positive observer radius.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientData marks input that is well-formed but missing the
	// fields needed for a closest-approach solution (heading or speed).
	ErrInsufficientData = errors.New("insufficient data")
)

// AircraftState is a read-only snapshot of one aircraft's kinematic state at
// a single instant, as supplied by the data-acquisition collaborator.
// Optional fields are pointers; nil means the feed did not report the value.
type AircraftState struct {
	ID             string    `json:"id"`
	Position       geo.Point `json:"position"`
	AltitudeM      *float64  `json:"altitude_m,omitempty"`
	GroundSpeedKts *float64  `json:"gs_kts,omitempty"`
	HeadingDeg     *float64  `json:"heading,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// TrailPoint is a single historical position sample of one aircraft.
type TrailPoint struct {
	Position  geo.Point `json:"position"`
	Timestamp time.Time `json:"timestamp"`
}

// Trail is an ordered sequence of historical samples, oldest first. The
// caller owns retention and pruning; a trail of length 0 or 1 is valid input
// meaning "insufficient history".
type Trail []TrailPoint

// Observer is the fixed ground location being monitored plus the radius of
// the monitored region. Immutable within a single engine invocation.
type Observer struct {
	Position geo.Point `json:"position"`
	RadiusKm float64   `json:"radius_km"`
}

// Target pairs one aircraft snapshot with its recent trail for evaluation.
type Target struct {
	State AircraftState
	Trail Trail
}

// Prediction is the flyby prediction for one aircraft at one evaluation.
// Immutable once produced; the caller decides whether to persist or display it.
type Prediction struct {
	ID          string  `json:"id"`
	Probability float64 `json:"probability"` // [0,1]

	ClosestDistanceKm float64 `json:"closest_distance_km"`
	CurrentDistanceKm float64 `json:"current_distance_km"`

	// TimeToCPASeconds is nil when undefined (stationary aircraft, or no
	// solvable approach); negative when the closest point is already past.
	TimeToCPASeconds *float64   `json:"time_to_cpa_s,omitempty"`
	ETA              *time.Time `json:"eta,omitempty"`

	// ApproachBearingDeg is the bearing the observer must look toward to see
	// the aircraft at its closest point, [0,360).
	ApproachBearingDeg float64 `json:"approach_bearing"`
	ApproachCompass    string  `json:"approach_compass"`

	// Contributing sub-scores, surfaced for explainability.
	ProximityFactor float64 `json:"proximity_factor"`
	StabilityFactor float64 `json:"stability_factor"`
	SpeedFactor     float64 `json:"speed_factor"`

	// Edge-case flags.
	Receding     bool `json:"receding,omitempty"`     // CPA behind the aircraft; time-to-CPA negative
	Stationary   bool `json:"stationary,omitempty"`   // ground speed at/near zero
	Degenerate   bool `json:"degenerate,omitempty"`   // bearing undefined (coincident points), safe default used
	Insufficient bool `json:"insufficient,omitempty"` // approach not computable, probability forced to 0

	Timestamp time.Time `json:"timestamp"`
}

// FlybyInfo formats the prediction the way the tracker displays it,
// e.g. "3 km NE (42)".
func (p *Prediction) FlybyInfo() string {
	if p.Degenerate {
		return fmt.Sprintf("%.0f km N/A", p.ClosestDistanceKm)
	}
	return fmt.Sprintf("%.0f km %s (%.0f)", p.ClosestDistanceKm, p.ApproachCompass, p.ApproachBearingDeg)
}

// Result is the per-aircraft batch output marker: either a prediction, or a
// failure, or both (insufficient-data results carry a zero-probability
// prediction alongside the error so they are flagged rather than omitted).
type Result struct {
	ID         string      `json:"id"`
	Prediction *Prediction `json:"prediction,omitempty"`
	Err        error       `json:"-"`
}

// Failed reports whether this aircraft's evaluation failed outright.
func (r Result) Failed() bool {
	return r.Err != nil && r.Prediction == nil
}
