package flyby

import (
	"errors"
	"math"
	"time"

	"github.com/hodel33/flyby33/internal/geo"
)

// approach is the closest-point-of-approach solution for one aircraft
// relative to the observer, under the constant-heading, constant-speed
// assumption. Turning aircraft degrade accuracy; the model is a great-circle
// ray from the current position along the current heading.
type approach struct {
	closestKm   float64       // predicted closest-approach distance
	currentKm   float64       // current aircraft-observer distance
	timeToCPA   time.Duration // negative when CPA is already past
	timeDefined bool          // false when speed is at/near zero
	bearingDeg  float64       // bearing observer -> CPA point, [0,360)
	cpaPoint    geo.Point
	receding    bool // along-track < 0: aircraft already past its closest point
	degenerate  bool // aircraft coincident with observer; bearing defaulted to 0
}

// solveApproach decomposes the observer's position against the aircraft's
// projected path into cross-track and along-track components.
//
// The cross-track distance is the predicted closest-approach distance when
// the observer's projection lies ahead of the aircraft. When it lies behind
// (along-track < 0) the aircraft has already passed its closest point, so the
// current distance is reported as the closest-approach distance and
// time-to-CPA goes negative.
func solveApproach(sphere geo.Sphere, position geo.Point, headingDeg, speedKts float64, observer geo.Point, stationaryKts float64) (approach, error) {
	a := approach{
		currentKm: sphere.Distance(position, observer),
	}

	// Aircraft directly over the observer: every bearing is equally wrong.
	// Map to a safe default rather than failing; the caller cannot retry
	// geometry into existence.
	crossKm, err := sphere.CrossTrackDistance(observer, position, headingDeg)
	if errors.Is(err, geo.ErrDegenerateGeometry) || (err == nil && a.currentKm < 1e-6) {
		a.closestKm = a.currentKm
		a.bearingDeg = 0
		a.degenerate = true
		a.timeDefined = false
		return a, nil
	}
	if err != nil {
		return a, err
	}

	alongKm, err := sphere.AlongTrackDistance(observer, position, headingDeg)
	if err != nil {
		return a, err
	}

	speedKmh := geo.KnotsToKmh(speedKts)

	if alongKm < 0 {
		// Receding: closest point is behind the aircraft relative to its
		// current position, so the best it will ever do is where it is now.
		a.receding = true
		a.closestKm = a.currentKm
	} else {
		a.closestKm = math.Abs(crossKm)
	}

	if speedKts <= stationaryKts {
		a.timeDefined = false
	} else {
		a.timeDefined = true
		a.timeToCPA = time.Duration(alongKm / speedKmh * float64(time.Hour))
	}

	// Where along the path the aircraft will be at closest approach, and the
	// direction the observer must look to see it there.
	a.cpaPoint = sphere.Destination(position, headingDeg, alongKm)
	bearing, err := sphere.InitialBearing(observer, a.cpaPoint)
	if errors.Is(err, geo.ErrDegenerateGeometry) {
		// CPA point coincides with the observer (direct overflight)
		bearing, err = sphere.InitialBearing(observer, position)
		if err != nil {
			a.degenerate = true
			bearing = 0
		}
	} else if err != nil {
		return a, err
	}
	a.bearingDeg = bearing

	return a, nil
}
