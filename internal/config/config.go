package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/hodel33/flyby33/internal/flyby"
	"github.com/hodel33/flyby33/internal/geo"
)

// Config is the full application configuration, loaded from a TOML file.
type Config struct {
	Station    StationConfig  `toml:"station"`
	Tracking   TrackingConfig `toml:"tracking"`
	ADSB       ADSBConfig     `toml:"adsb"`
	Prediction flyby.Config   `toml:"prediction"`
	Storage    StorageConfig  `toml:"storage"`
	Server     ServerConfig   `toml:"server"`
	Logging    LoggingConfig  `toml:"logging"`
}

// StationConfig describes the fixed observer location being monitored.
type StationConfig struct {
	// LocationCoords is a "lat, lon" pair, e.g. "59.3293, 18.0686"
	LocationCoords string `toml:"location_coords"`

	// RadiusKm is the monitored region radius; 50, 100, 150 or 200 km
	RadiusKm float64 `toml:"radius_km"`

	// IgnoreAirportProximity keeps flyby predictions for aircraft that are
	// closer to their destination airport than to the station (normally
	// those are about to land and never reach us)
	IgnoreAirportProximity bool `toml:"ignore_airport_proximity"`
}

// TrackingConfig controls the refresh loop and trail retention.
type TrackingConfig struct {
	// AutoRefreshIntervalSecs between snapshot fetches; 0 (manual only),
	// 15, 30 or 60
	AutoRefreshIntervalSecs int `toml:"auto_refresh_interval_secs"`

	// TrailMaxPoints caps how many historical positions are kept per aircraft
	TrailMaxPoints int `toml:"trail_max_points"`

	// TrailMaxAgeSecs prunes trail points older than this
	TrailMaxAgeSecs int `toml:"trail_max_age_secs"`

	// MinSpeedKmh filters out ground vehicles and taxiing aircraft
	MinSpeedKmh float64 `toml:"min_speed_kmh"`

	// AlertThreshold is the flyby probability at which an alert fires
	AlertThreshold float64 `toml:"alert_threshold"`
}

// ADSBConfig describes the upstream position feed.
type ADSBConfig struct {
	// SourceURL is a printf template taking lat, lon, radius (NM)
	SourceURL          string  `toml:"source_url"`
	RequestTimeoutSecs int     `toml:"request_timeout_secs"`
	RequestsPerSecond  float64 `toml:"requests_per_second"`
}

// StorageConfig describes the sqlite database.
type StorageConfig struct {
	Path string `toml:"path"`

	// RetentionDays prunes sightings and predictions older than this;
	// 0 keeps everything
	RetentionDays int `toml:"retention_days"`
}

// ServerConfig describes the HTTP API server.
type ServerConfig struct {
	Host               string   `toml:"host"`
	Port               int      `toml:"port"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
}

// LoggingConfig describes log output.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// Default returns the configuration the tracker ships with.
func Default() *Config {
	return &Config{
		Station: StationConfig{
			LocationCoords: "59.3293, 18.0686",
			RadiusKm:       200,
		},
		Tracking: TrackingConfig{
			AutoRefreshIntervalSecs: 30,
			TrailMaxPoints:          6,
			TrailMaxAgeSecs:         600,
			MinSpeedKmh:             20,
			AlertThreshold:          0.8,
		},
		ADSB: ADSBConfig{
			SourceURL:          "https://api.airplanes.live/v2/point/%.4f/%.4f/%.0f",
			RequestTimeoutSecs: 10,
			RequestsPerSecond:  1,
		},
		Prediction: flyby.DefaultConfig(),
		Storage: StorageConfig{
			Path:          "flyby33.db",
			RetentionDays: 30,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8033,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the TOML config at path, layered over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s not found: %w", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// allowed value sets, matching the tracker's long-standing config contract
var (
	allowedRadiiKm   = []float64{50, 100, 150, 200}
	allowedIntervals = []int{0, 15, 30, 60}
)

// Validate checks the configuration for values the application cannot run with.
func (c *Config) Validate() error {
	if _, err := c.StationLocation(); err != nil {
		return err
	}

	if !containsFloat(allowedRadiiKm, c.Station.RadiusKm) {
		return fmt.Errorf("station radius must be 50, 100, 150 or 200 km, got %v", c.Station.RadiusKm)
	}
	if !containsInt(allowedIntervals, c.Tracking.AutoRefreshIntervalSecs) {
		return fmt.Errorf("auto refresh interval must be 0, 15, 30 or 60 seconds, got %d", c.Tracking.AutoRefreshIntervalSecs)
	}
	if c.Tracking.TrailMaxPoints < 0 {
		return fmt.Errorf("trail max points must be non-negative, got %d", c.Tracking.TrailMaxPoints)
	}
	if c.Tracking.AlertThreshold < 0 || c.Tracking.AlertThreshold > 1 {
		return fmt.Errorf("alert threshold must be in [0,1], got %v", c.Tracking.AlertThreshold)
	}
	if c.ADSB.SourceURL == "" {
		return fmt.Errorf("adsb source URL must not be empty")
	}
	if c.ADSB.RequestTimeoutSecs <= 0 {
		return fmt.Errorf("adsb request timeout must be positive, got %d", c.ADSB.RequestTimeoutSecs)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be in (0,65535], got %d", c.Server.Port)
	}
	if c.Storage.RetentionDays < 0 {
		return fmt.Errorf("storage retention days must be non-negative, got %d", c.Storage.RetentionDays)
	}

	if err := c.Prediction.Validate(); err != nil {
		return fmt.Errorf("prediction config: %w", err)
	}

	return nil
}

// StationLocation parses the configured "lat, lon" pair.
func (c *Config) StationLocation() (geo.Point, error) {
	lat, lon, err := ParseCoordinates(c.Station.LocationCoords)
	if err != nil {
		return geo.Point{}, fmt.Errorf("invalid station location: %w", err)
	}
	p := geo.Point{Lat: lat, Lon: lon}
	if !p.Valid() {
		return geo.Point{}, fmt.Errorf("station location %+v out of range", p)
	}
	return p, nil
}

// Observer builds the flyby observer from the station settings.
func (c *Config) Observer() (flyby.Observer, error) {
	loc, err := c.StationLocation()
	if err != nil {
		return flyby.Observer{}, err
	}
	return flyby.Observer{Position: loc, RadiusKm: c.Station.RadiusKm}, nil
}

// ParseCoordinates parses a string in the format "lat, lon" to float64 values.
func ParseCoordinates(coordStr string) (float64, float64, error) {
	parts := strings.Split(coordStr, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid coordinate format, expected 'lat, lon'")
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude: %w", err)
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude: %w", err)
	}

	return lat, lon, nil
}

func containsFloat(values []float64, v float64) bool {
	for _, allowed := range values {
		if v == allowed {
			return true
		}
	}
	return false
}

func containsInt(values []int, v int) bool {
	for _, allowed := range values {
		if v == allowed {
			return true
		}
	}
	return false
}
