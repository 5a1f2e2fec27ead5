package sqlite

import "time"

// SightingRecord is one aircraft observation as persisted per refresh cycle.
type SightingRecord struct {
	ID              int64     `json:"id"`
	Hex             string    `json:"hex"`
	Callsign        string    `json:"callsign,omitempty"`
	Registration    string    `json:"registration,omitempty"`
	ACType          string    `json:"ac_type,omitempty"`
	Lat             float64   `json:"lat"`
	Lon             float64   `json:"lon"`
	AltitudeM       *float64  `json:"altitude_m,omitempty"`
	GroundSpeedKts  *float64  `json:"ground_speed_kts,omitempty"`
	HeadingDeg      *float64  `json:"heading_deg,omitempty"`
	DistanceKm      float64   `json:"distance_km"`
	DestinationIATA string    `json:"destination_iata,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	CreatedAt       time.Time `json:"created_at"`
}

// PredictionRecord is one flyby prediction as persisted.
type PredictionRecord struct {
	ID                 int64      `json:"id"`
	Hex                string     `json:"hex"`
	Probability        float64    `json:"probability"`
	ClosestDistanceKm  float64    `json:"closest_distance_km"`
	CurrentDistanceKm  float64    `json:"current_distance_km"`
	TimeToCPASeconds   *float64   `json:"time_to_cpa_seconds,omitempty"`
	ETA                *time.Time `json:"eta,omitempty"`
	ApproachBearingDeg float64    `json:"approach_bearing_deg"`
	ApproachCompass    string     `json:"approach_compass"`
	ProximityFactor    float64    `json:"proximity_factor"`
	StabilityFactor    float64    `json:"stability_factor"`
	SpeedFactor        float64    `json:"speed_factor"`
	Receding           bool       `json:"receding"`
	Stationary         bool       `json:"stationary"`
	Timestamp          time.Time  `json:"timestamp"`
	CreatedAt          time.Time  `json:"created_at"`
}
