package flyby

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/hodel33/flyby33/internal/geo"
	"github.com/hodel33/flyby33/pkg/logger"
)

// Engine turns an aircraft snapshot plus its recent trail into a flyby
// prediction against a fixed observer location. It holds no state between
// invocations: every evaluation is a pure function of its inputs and the
// config captured at construction, so batches can run in parallel without
// locking.
type Engine struct {
	cfg    Config
	sphere geo.Sphere
	logger *logger.Logger
}

// NewEngine creates a prediction engine with the given tuning.
func NewEngine(cfg Config, log *logger.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	return &Engine{
		cfg:    cfg,
		sphere: geo.NewSphere(cfg.EarthRadiusKm),
		logger: log.Named("flyby-engine"),
	}, nil
}

// Config returns the tuning the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}

// Evaluate produces one prediction for one aircraft. Malformed input yields a
// failure Result; missing heading or speed yields a flagged zero-probability
// prediction alongside ErrInsufficientData, so degraded aircraft stay visible
// in the batch output instead of disappearing.
func (e *Engine) Evaluate(observer Observer, target Target) Result {
	state := target.State
	res := Result{ID: state.ID}

	// VALIDATE
	if err := validate(observer, state); err != nil {
		res.Err = err
		return res
	}

	if state.HeadingDeg == nil || state.GroundSpeedKts == nil {
		res.Err = fmt.Errorf("aircraft %s: missing heading or speed: %w", state.ID, ErrInsufficientData)
		res.Prediction = &Prediction{
			ID:                state.ID,
			Probability:       0,
			CurrentDistanceKm: e.sphere.Distance(state.Position, observer.Position),
			ClosestDistanceKm: e.sphere.Distance(state.Position, observer.Position),
			StabilityFactor:   e.cfg.NeutralStability,
			Insufficient:      true,
			Timestamp:         state.Timestamp,
		}
		return res
	}

	heading := geo.NormalizeBearing(*state.HeadingDeg)
	speedKts := *state.GroundSpeedKts

	// GEOMETRY and STABILITY are independent of each other
	app, err := solveApproach(e.sphere, state.Position, heading, speedKts, observer.Position, e.cfg.StationarySpeedKts)
	if err != nil {
		res.Err = fmt.Errorf("aircraft %s: approach solution: %w", state.ID, err)
		return res
	}

	stability := headingStability(e.cfg, e.sphere, target.Trail, heading)

	// SCORE
	speedKmh := geo.KnotsToKmh(speedKts)
	proximity := proximityFactor(e.cfg, app.closestKm, observer.RadiusKm)
	speed := speedFactor(e.cfg, speedKmh)

	probability := combineScore(e.cfg, proximity, stability, speed)

	stationary := speedKts <= e.cfg.StationarySpeedKts
	if stationary {
		// A parked target never flies by
		probability = 0
	}

	pred := &Prediction{
		ID:                 state.ID,
		Probability:        probability,
		ClosestDistanceKm:  app.closestKm,
		CurrentDistanceKm:  app.currentKm,
		ApproachBearingDeg: app.bearingDeg,
		ApproachCompass:    geo.CompassPoint(app.bearingDeg),
		ProximityFactor:    proximity,
		StabilityFactor:    stability,
		SpeedFactor:        speed,
		Receding:           app.receding,
		Stationary:         stationary,
		Degenerate:         app.degenerate,
		Timestamp:          state.Timestamp,
	}

	if app.timeDefined {
		secs := app.timeToCPA.Seconds()
		pred.TimeToCPASeconds = &secs
		if !state.Timestamp.IsZero() {
			eta := state.Timestamp.Add(app.timeToCPA)
			pred.ETA = &eta
		}
	}

	res.Prediction = pred
	return res
}

// EvaluateBatch evaluates every target independently and returns one Result
// per input, in input order. One aircraft's failure never aborts the batch.
// Work is spread across cfg.BatchWorkers goroutines; the only shared data
// (observer, config) is read-only for the duration of the batch.
func (e *Engine) EvaluateBatch(ctx context.Context, observer Observer, targets []Target) []Result {
	results := make([]Result, len(targets))

	workers := e.cfg.BatchWorkers
	if workers < 1 {
		workers = 1
	}
	if workers > len(targets) {
		workers = len(targets)
	}

	if workers <= 1 {
		for i, t := range targets {
			if ctx.Err() != nil {
				results[i] = Result{ID: t.State.ID, Err: ctx.Err()}
				continue
			}
			results[i] = e.Evaluate(observer, t)
		}
		return results
	}

	var wg sync.WaitGroup
	jobs := make(chan int)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					results[i] = Result{ID: targets[i].State.ID, Err: ctx.Err()}
					continue
				}
				results[i] = e.Evaluate(observer, targets[i])
			}
		}()
	}

	for i := range targets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// validate rejects malformed per-aircraft input before any geometry runs.
func validate(observer Observer, state AircraftState) error {
	if observer.RadiusKm <= 0 || math.IsNaN(observer.RadiusKm) {
		return fmt.Errorf("observer radius %v: %w", observer.RadiusKm, ErrInvalidInput)
	}
	if !observer.Position.Valid() {
		return fmt.Errorf("observer position %+v: %w", observer.Position, ErrInvalidInput)
	}
	if !state.Position.Valid() {
		return fmt.Errorf("aircraft %s position %+v: %w", state.ID, state.Position, ErrInvalidInput)
	}
	if state.GroundSpeedKts != nil {
		if gs := *state.GroundSpeedKts; gs < 0 || math.IsNaN(gs) || math.IsInf(gs, 0) {
			return fmt.Errorf("aircraft %s ground speed %v: %w", state.ID, gs, ErrInvalidInput)
		}
	}
	if state.HeadingDeg != nil {
		if hd := *state.HeadingDeg; math.IsNaN(hd) || math.IsInf(hd, 0) {
			return fmt.Errorf("aircraft %s heading %v: %w", state.ID, hd, ErrInvalidInput)
		}
	}
	return nil
}
