package adsb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hodel33/flyby33/internal/config"
	"github.com/hodel33/flyby33/internal/flyby"
	"github.com/hodel33/flyby33/internal/geo"
	"github.com/hodel33/flyby33/pkg/logger"
)

// FeedClient is the upstream feed surface the service needs.
type FeedClient interface {
	Fetch(ctx context.Context) ([]FeedAircraft, error)
	UpdateStation(station geo.Point, radiusKm float64)
}

// Recorder persists refresh-cycle output. Nil disables persistence.
type Recorder interface {
	RecordSighting(ctx context.Context, ac *Aircraft) error
	RecordPrediction(ctx context.Context, pred *flyby.Prediction) error
	Cleanup(ctx context.Context, retention time.Duration) (int64, error)
}

// cleanupInterval is how often the retention window is enforced on the
// recorder. Retention itself comes from the storage config.
const cleanupInterval = time.Hour

// Service runs the tracking loop: fetch a snapshot, filter it, grow trails,
// gate and score each aircraft, then publish the result to the in-memory map
// the API reads from.
type Service struct {
	cfg      *config.Config
	client   FeedClient
	engine   *flyby.Engine
	recorder Recorder
	alerts   *AlertDetector
	logger   *logger.Logger

	mu          sync.RWMutex
	observer    flyby.Observer
	aircraft    map[string]*Aircraft
	lastSync    time.Time
	lastCleanup time.Time

	// test seam; defaults to time.Now
	now func() time.Time
}

// NewService creates the tracking service. recorder may be nil.
func NewService(
	cfg *config.Config,
	observer flyby.Observer,
	client FeedClient,
	engine *flyby.Engine,
	recorder Recorder,
	log *logger.Logger,
) *Service {
	return &Service{
		cfg:      cfg,
		client:   client,
		engine:   engine,
		recorder: recorder,
		alerts:   NewAlertDetector(cfg.Tracking.AlertThreshold, log),
		logger:   log.Named("adsb-svc"),
		observer: observer,
		aircraft: make(map[string]*Aircraft),
		now:      time.Now,
	}
}

// Start runs the refresh loop until ctx is cancelled. With a zero refresh
// interval the loop idles and refreshes only on demand.
func (s *Service) Start(ctx context.Context) error {
	interval := time.Duration(s.cfg.Tracking.AutoRefreshIntervalSecs) * time.Second
	if interval == 0 {
		s.logger.Info("Auto refresh disabled, waiting for manual refreshes")
		<-ctx.Done()
		return ctx.Err()
	}

	s.logger.Info("Starting tracking loop", logger.Duration("interval", interval))

	// First snapshot immediately, then on the tick
	if err := s.Refresh(ctx); err != nil {
		s.logger.Error("Initial refresh failed", logger.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				s.logger.Error("Refresh failed", logger.Error(err))
			}
		}
	}
}

// Refresh fetches one snapshot and rebuilds the tracked-aircraft map.
func (s *Service) Refresh(ctx context.Context) error {
	feed, err := s.client.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetching feed: %w", err)
	}

	now := s.now()
	observer := s.Observer()

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]*Aircraft, len(feed))
	var targets []flyby.Target
	var gated []*Aircraft

	for _, fa := range feed {
		ac, ok := s.admit(fa, observer, now)
		if !ok {
			continue
		}

		// Carry the trail across refreshes, then extend it
		if prev, exists := s.aircraft[ac.State.ID]; exists {
			ac.Trail = prev.Trail
		}
		ac.Trail = append(ac.Trail, flyby.TrailPoint{Position: ac.State.Position, Timestamp: ac.State.Timestamp})
		ac.Trail = pruneTrail(ac.Trail, s.cfg.Tracking.TrailMaxPoints, time.Duration(s.cfg.Tracking.TrailMaxAgeSecs)*time.Second, now)

		s.applyGates(ac, observer)
		next[ac.State.ID] = ac

		if ac.HeadingToward && ac.WillPass && (!ac.LandingFirst || s.cfg.Station.IgnoreAirportProximity) {
			gated = append(gated, ac)
			targets = append(targets, flyby.Target{State: ac.State, Trail: ac.Trail})
		}
	}

	results := s.engine.EvaluateBatch(ctx, observer, targets)
	for i, res := range results {
		if res.Failed() {
			s.logger.Warn("Prediction failed",
				logger.String("hex", res.ID),
				logger.Error(res.Err))
		}
		// Insufficient-data predictions are flagged but still published
		gated[i].Prediction = res.Prediction
	}

	s.aircraft = next
	s.lastSync = now

	s.record(ctx, next)
	s.maybeCleanup(ctx, now)

	s.alerts.Detect(next)

	s.logger.Debug("Snapshot processed",
		logger.Int("feed_count", len(feed)),
		logger.Int("tracked", len(next)),
		logger.Int("scored", len(targets)))

	return nil
}

// admit converts one feed entry into a tracked aircraft, applying the
// snapshot filters: ground vehicles and surface traffic, non-positive
// altitude, taxi-speed targets, and anything outside the monitored circle
// (the feed query is a bounding box, not a circle).
func (s *Service) admit(fa FeedAircraft, observer flyby.Observer, now time.Time) (*Aircraft, bool) {
	if fa.Hex == "" {
		return nil, false
	}
	if fa.AltBaro.OnGround {
		return nil, false
	}
	if !fa.AltBaro.Known || fa.AltBaro.Feet <= 0 {
		return nil, false
	}
	if fa.GSKts != nil && geo.KnotsToKmh(*fa.GSKts) < s.cfg.Tracking.MinSpeedKmh {
		return nil, false
	}

	pos := geo.Point{Lat: fa.Lat, Lon: fa.Lon}
	if !pos.Valid() {
		return nil, false
	}

	sphere := geo.NewSphere(s.engine.Config().EarthRadiusKm)
	dist := sphere.Distance(observer.Position, pos)
	if dist > observer.RadiusKm {
		return nil, false
	}

	altM := geo.FeetToMeters(fa.AltBaro.Feet)
	seen := now.Add(-time.Duration(fa.SeenSecs * float64(time.Second)))

	ac := &Aircraft{
		State: flyby.AircraftState{
			ID:             fa.Hex,
			Position:       pos,
			AltitudeM:      &altM,
			GroundSpeedKts: fa.GSKts,
			HeadingDeg:     fa.TrackDeg,
			Timestamp:      seen,
		},
		Callsign:        cleanCallsign(fa.Flight),
		Registration:    fa.Registration,
		ACType:          fa.ACType,
		DistanceKm:      dist,
		DestinationIATA: fa.DestinationIATA,
		LastSeen:        now,
	}

	if fa.DestinationLat != nil && fa.DestinationLon != nil {
		dest := geo.Point{Lat: *fa.DestinationLat, Lon: *fa.DestinationLon}
		if dest.Valid() {
			ac.Destination = &dest
		}
	}

	return ac, true
}

// applyGates computes the prediction gates for one aircraft.
func (s *Service) applyGates(ac *Aircraft, observer flyby.Observer) {
	if ac.State.HeadingDeg == nil {
		// No heading: let the engine flag it as insufficient data
		ac.HeadingToward = true
		ac.WillPass = true
		return
	}

	sphere := geo.NewSphere(s.engine.Config().EarthRadiusKm)
	heading := geo.NormalizeBearing(*ac.State.HeadingDeg)

	bearing, err := sphere.InitialBearing(ac.State.Position, observer.Position)
	if err != nil {
		// Directly overhead: trivially heading toward us
		ac.HeadingToward = true
		ac.WillPass = true
		return
	}

	ac.HeadingToward = math.Abs(geo.AngularDiff(bearing, heading)) <= 90

	xtk, err := sphere.CrossTrackDistance(observer.Position, ac.State.Position, heading)
	if err == nil {
		ac.WillPass = math.Abs(xtk) <= s.engine.Config().FlybyRadiusKm
	} else {
		ac.WillPass = true
	}

	// An aircraft closer to its destination airport than to the station will
	// land there before it ever reaches us
	if ac.Destination != nil {
		distToDest := sphere.Distance(ac.State.Position, *ac.Destination)
		ac.LandingFirst = distToDest < ac.DistanceKm
	}
}

// record persists the snapshot. Failures are logged, never fatal: the
// in-memory state is already published.
func (s *Service) record(ctx context.Context, aircraft map[string]*Aircraft) {
	if s.recorder == nil {
		return
	}
	for _, ac := range aircraft {
		if err := s.recorder.RecordSighting(ctx, ac); err != nil {
			s.logger.Warn("Failed to record sighting", logger.String("hex", ac.State.ID), logger.Error(err))
			continue
		}
		if ac.Prediction != nil {
			if err := s.recorder.RecordPrediction(ctx, ac.Prediction); err != nil {
				s.logger.Warn("Failed to record prediction", logger.String("hex", ac.State.ID), logger.Error(err))
			}
		}
	}
}

// maybeCleanup enforces the retention window on the recorder, at most once
// per cleanupInterval. A zero retention disables it.
func (s *Service) maybeCleanup(ctx context.Context, now time.Time) {
	if s.recorder == nil || s.cfg.Storage.RetentionDays <= 0 {
		return
	}
	if !s.lastCleanup.IsZero() && now.Sub(s.lastCleanup) < cleanupInterval {
		return
	}
	s.lastCleanup = now

	retention := time.Duration(s.cfg.Storage.RetentionDays) * 24 * time.Hour
	deleted, err := s.recorder.Cleanup(ctx, retention)
	if err != nil {
		s.logger.Warn("Failed to clean up old records", logger.Error(err))
		return
	}
	if deleted > 0 {
		s.logger.Info("Cleaned up old records",
			logger.Int64("deleted", deleted),
			logger.Int("retention_days", s.cfg.Storage.RetentionDays))
	}
}

// Aircraft returns the tracked aircraft, sorted by distance from the station.
func (s *Service) Aircraft() []*Aircraft {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Aircraft, 0, len(s.aircraft))
	for _, ac := range s.aircraft {
		out = append(out, ac)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out
}

// AircraftByID returns one tracked aircraft by transponder hex.
func (s *Service) AircraftByID(hex string) (*Aircraft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ac, ok := s.aircraft[hex]
	return ac, ok
}

// Predictions returns the scored aircraft, highest probability first.
func (s *Service) Predictions() []*Aircraft {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Aircraft, 0, len(s.aircraft))
	for _, ac := range s.aircraft {
		if ac.Prediction != nil {
			out = append(out, ac)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Prediction.Probability > out[j].Prediction.Probability
	})
	return out
}

// Observer returns the current station being monitored.
func (s *Service) Observer() flyby.Observer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.observer
}

// SetObserver repoints the tracker at a new station. Tracked aircraft and
// trails are dropped: they were relative to the old location.
func (s *Service) SetObserver(observer flyby.Observer) error {
	if !observer.Position.Valid() || observer.RadiusKm <= 0 {
		return fmt.Errorf("invalid observer %+v: %w", observer, flyby.ErrInvalidInput)
	}

	s.mu.Lock()
	s.observer = observer
	s.aircraft = make(map[string]*Aircraft)
	s.alerts.Reset()
	s.mu.Unlock()

	s.client.UpdateStation(observer.Position, observer.RadiusKm)

	s.logger.Info("Station updated",
		logger.Float64("latitude", observer.Position.Lat),
		logger.Float64("longitude", observer.Position.Lon),
		logger.Float64("radius_km", observer.RadiusKm))
	return nil
}

// LastSync returns when the last snapshot was processed.
func (s *Service) LastSync() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSync
}

// pruneTrail enforces the retention policy: drop points older than maxAge,
// then keep only the most recent maxPoints. Order stays oldest first.
func pruneTrail(trail flyby.Trail, maxPoints int, maxAge time.Duration, now time.Time) flyby.Trail {
	if maxAge > 0 {
		cutoff := now.Add(-maxAge)
		firstFresh := len(trail)
		for i, tp := range trail {
			if !tp.Timestamp.Before(cutoff) {
				firstFresh = i
				break
			}
		}
		trail = trail[firstFresh:]
	}
	if maxPoints > 0 && len(trail) > maxPoints {
		trail = trail[len(trail)-maxPoints:]
	}
	return trail
}

// cleanCallsign strips the null padding some transponders append.
func cleanCallsign(flight string) string {
	return strings.TrimSpace(strings.ReplaceAll(flight, "\x00", ""))
}
