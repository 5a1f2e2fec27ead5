package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hodel33/flyby33/internal/adsb"
	"github.com/hodel33/flyby33/internal/flyby"
	"github.com/hodel33/flyby33/pkg/logger"
)

// Open opens (or creates) the tracker database at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc.org/sqlite serializes writes itself; one connection avoids
	// SQLITE_BUSY under concurrent refresh and API traffic
	db.SetMaxOpenConns(1)
	return db, nil
}

// FlightStorage persists aircraft sightings and flyby predictions.
type FlightStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewFlightStorage creates a new SQLite flight storage.
func NewFlightStorage(db *sql.DB, log *logger.Logger) (*FlightStorage, error) {
	storage := &FlightStorage{
		db:     db,
		logger: log.Named("sqlite-flights"),
	}

	if err := storage.initDB(); err != nil {
		return nil, fmt.Errorf("failed to initialize flight storage: %w", err)
	}

	return storage, nil
}

// initDB initializes the database tables
func (s *FlightStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS sightings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hex TEXT NOT NULL,
			callsign TEXT,
			registration TEXT,
			ac_type TEXT,
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			altitude_m REAL,
			ground_speed_kts REAL,
			heading_deg REAL,
			distance_km REAL NOT NULL,
			destination_iata TEXT,
			timestamp TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create sightings table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS predictions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hex TEXT NOT NULL,
			probability REAL NOT NULL,
			closest_distance_km REAL NOT NULL,
			current_distance_km REAL NOT NULL,
			time_to_cpa_seconds REAL,
			eta TIMESTAMP,
			approach_bearing_deg REAL NOT NULL,
			approach_compass TEXT NOT NULL,
			proximity_factor REAL NOT NULL,
			stability_factor REAL NOT NULL,
			speed_factor REAL NOT NULL,
			receding INTEGER NOT NULL DEFAULT 0,
			stationary INTEGER NOT NULL DEFAULT 0,
			timestamp TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create predictions table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_sightings_hex ON sightings(hex)`,
		`CREATE INDEX IF NOT EXISTS idx_sightings_timestamp ON sightings(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_hex ON predictions(hex)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_timestamp ON predictions(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_predictions_probability ON predictions(probability)`,
	}

	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// RecordSighting stores one aircraft observation.
func (s *FlightStorage) RecordSighting(ctx context.Context, ac *adsb.Aircraft) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sightings
		(hex, callsign, registration, ac_type, lat, lon, altitude_m, ground_speed_kts, heading_deg, distance_km, destination_iata, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ac.State.ID,
		ac.Callsign,
		ac.Registration,
		ac.ACType,
		ac.State.Position.Lat,
		ac.State.Position.Lon,
		nullableFloat(ac.State.AltitudeM),
		nullableFloat(ac.State.GroundSpeedKts),
		nullableFloat(ac.State.HeadingDeg),
		ac.DistanceKm,
		ac.DestinationIATA,
		ac.State.Timestamp.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sighting: %w", err)
	}
	return nil
}

// RecordPrediction stores one flyby prediction.
func (s *FlightStorage) RecordPrediction(ctx context.Context, pred *flyby.Prediction) error {
	var eta interface{}
	if pred.ETA != nil {
		eta = pred.ETA.UTC().Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO predictions
		(hex, probability, closest_distance_km, current_distance_km, time_to_cpa_seconds, eta, approach_bearing_deg, approach_compass, proximity_factor, stability_factor, speed_factor, receding, stationary, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pred.ID,
		pred.Probability,
		pred.ClosestDistanceKm,
		pred.CurrentDistanceKm,
		nullableFloat(pred.TimeToCPASeconds),
		eta,
		pred.ApproachBearingDeg,
		pred.ApproachCompass,
		pred.ProximityFactor,
		pred.StabilityFactor,
		pred.SpeedFactor,
		pred.Receding,
		pred.Stationary,
		pred.Timestamp.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	return nil
}

// RecentSightings returns the latest sightings for one aircraft, newest first.
func (s *FlightStorage) RecentSightings(ctx context.Context, hex string, limit int) ([]*SightingRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, hex, callsign, registration, ac_type, lat, lon, altitude_m, ground_speed_kts, heading_deg, distance_km, destination_iata, timestamp, created_at
		FROM sightings
		WHERE hex = ?
		ORDER BY timestamp DESC
		LIMIT ?`,
		hex, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sightings: %w", err)
	}
	defer rows.Close()

	return scanSightingRows(rows)
}

// RecentPredictions returns the latest predictions across all aircraft.
func (s *FlightStorage) RecentPredictions(ctx context.Context, limit int) ([]*PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, hex, probability, closest_distance_km, current_distance_km, time_to_cpa_seconds, eta, approach_bearing_deg, approach_compass, proximity_factor, stability_factor, speed_factor, receding, stationary, timestamp, created_at
		FROM predictions
		ORDER BY timestamp DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent predictions: %w", err)
	}
	defer rows.Close()

	return scanPredictionRows(rows)
}

// PredictionsByAircraft returns the latest predictions for one aircraft.
func (s *FlightStorage) PredictionsByAircraft(ctx context.Context, hex string, limit int) ([]*PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, hex, probability, closest_distance_km, current_distance_km, time_to_cpa_seconds, eta, approach_bearing_deg, approach_compass, proximity_factor, stability_factor, speed_factor, receding, stationary, timestamp, created_at
		FROM predictions
		WHERE hex = ?
		ORDER BY timestamp DESC
		LIMIT ?`,
		hex, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions by aircraft: %w", err)
	}
	defer rows.Close()

	return scanPredictionRows(rows)
}

// Cleanup deletes sightings and predictions older than the retention window
// and returns how many rows were removed.
func (s *FlightStorage) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention).Format(time.RFC3339)

	var total int64
	for _, table := range []string{"sightings", "predictions"} {
		res, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE timestamp < ?`, table), cutoff)
		if err != nil {
			return total, fmt.Errorf("failed to clean up %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("failed to count deleted rows: %w", err)
		}
		total += n
	}

	return total, nil
}

// scanSightingRows scans database rows into SightingRecord structs
func scanSightingRows(rows *sql.Rows) ([]*SightingRecord, error) {
	var records []*SightingRecord
	for rows.Next() {
		var record SightingRecord
		var timestamp, createdAt string
		var callsign, registration, acType, destIATA sql.NullString
		var altM, gsKts, hdg sql.NullFloat64

		if err := rows.Scan(
			&record.ID,
			&record.Hex,
			&callsign,
			&registration,
			&acType,
			&record.Lat,
			&record.Lon,
			&altM,
			&gsKts,
			&hdg,
			&record.DistanceKm,
			&destIATA,
			&timestamp,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sighting: %w", err)
		}

		var err error
		record.Timestamp, err = time.Parse(time.RFC3339, timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		record.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		record.Callsign = callsign.String
		record.Registration = registration.String
		record.ACType = acType.String
		record.DestinationIATA = destIATA.String
		if altM.Valid {
			record.AltitudeM = &altM.Float64
		}
		if gsKts.Valid {
			record.GroundSpeedKts = &gsKts.Float64
		}
		if hdg.Valid {
			record.HeadingDeg = &hdg.Float64
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}

// scanPredictionRows scans database rows into PredictionRecord structs
func scanPredictionRows(rows *sql.Rows) ([]*PredictionRecord, error) {
	var records []*PredictionRecord
	for rows.Next() {
		var record PredictionRecord
		var timestamp, createdAt string
		var eta sql.NullString
		var ttc sql.NullFloat64

		if err := rows.Scan(
			&record.ID,
			&record.Hex,
			&record.Probability,
			&record.ClosestDistanceKm,
			&record.CurrentDistanceKm,
			&ttc,
			&eta,
			&record.ApproachBearingDeg,
			&record.ApproachCompass,
			&record.ProximityFactor,
			&record.StabilityFactor,
			&record.SpeedFactor,
			&record.Receding,
			&record.Stationary,
			&timestamp,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}

		var err error
		record.Timestamp, err = time.Parse(time.RFC3339, timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		record.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}

		if ttc.Valid {
			record.TimeToCPASeconds = &ttc.Float64
		}
		if eta.Valid && eta.String != "" {
			t, err := time.Parse(time.RFC3339, eta.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse eta: %w", err)
			}
			record.ETA = &t
		}

		records = append(records, &record)
	}

	return records, rows.Err()
}

// nullableFloat maps an optional float to its SQL representation.
func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
