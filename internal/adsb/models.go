package adsb

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/hodel33/flyby33/internal/flyby"
	"github.com/hodel33/flyby33/internal/geo"
)

// feedResponse is the envelope returned by an airplanes.live-style point query.
type feedResponse struct {
	Now      float64        `json:"now"`
	Messages int            `json:"msg"`
	Aircraft []FeedAircraft `json:"ac"`
}

// FeedAircraft is one aircraft as reported by the upstream feed. Route fields
// are optional enrichment; most feeds only carry the transponder data.
type FeedAircraft struct {
	Hex          string   `json:"hex"`
	Flight       string   `json:"flight"`
	Registration string   `json:"r"`
	ACType       string   `json:"t"`
	Lat          float64  `json:"lat"`
	Lon          float64  `json:"lon"`
	AltBaro      Altitude `json:"alt_baro"`
	GSKts        *float64 `json:"gs"`
	TrackDeg     *float64 `json:"track"`
	SeenSecs     float64  `json:"seen"`

	// Route enrichment, when the feed provides it
	OriginIATA      string   `json:"orig_iata,omitempty"`
	DestinationIATA string   `json:"dest_iata,omitempty"`
	DestinationLat  *float64 `json:"dest_lat,omitempty"`
	DestinationLon  *float64 `json:"dest_lon,omitempty"`
}

// Altitude is a barometric altitude in feet. The feed reports the string
// "ground" for aircraft on the surface, so it needs a custom decoder.
type Altitude struct {
	Feet     float64
	OnGround bool
	Known    bool
}

func (a *Altitude) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Altitude{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "ground" {
			*a = Altitude{OnGround: true, Known: true}
			return nil
		}
		// Some sources quote numeric altitudes
		ft, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*a = Altitude{}
			return nil
		}
		*a = Altitude{Feet: ft, Known: true}
		return nil
	}
	var ft float64
	if err := json.Unmarshal(data, &ft); err != nil {
		return err
	}
	*a = Altitude{Feet: ft, Known: true}
	return nil
}

func (a Altitude) MarshalJSON() ([]byte, error) {
	if !a.Known {
		return []byte("null"), nil
	}
	if a.OnGround {
		return json.Marshal("ground")
	}
	return json.Marshal(a.Feet)
}

// Aircraft is one tracked aircraft: the latest feed state plus everything the
// tracker derives from it.
type Aircraft struct {
	State        flyby.AircraftState `json:"state"`
	Callsign     string              `json:"callsign,omitempty"`
	Registration string              `json:"registration,omitempty"`
	ACType       string              `json:"ac_type,omitempty"`
	DistanceKm   float64             `json:"distance_km"`

	// Destination airport, when the feed's route enrichment provides it
	DestinationIATA string     `json:"destination_iata,omitempty"`
	Destination     *geo.Point `json:"destination,omitempty"`

	Trail flyby.Trail `json:"trail,omitempty"`

	// Prediction gates: only aircraft pointed at the station whose great-circle
	// path clips the flyby ring get scored, and an aircraft that will land at
	// its destination airport first is skipped unless configured otherwise.
	HeadingToward bool `json:"heading_toward"`
	WillPass      bool `json:"will_pass"`
	LandingFirst  bool `json:"landing_first"`

	Prediction *flyby.Prediction `json:"prediction,omitempty"`

	LastSeen time.Time `json:"last_seen"`
}
