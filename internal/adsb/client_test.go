package adsb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hodel33/flyby33/internal/geo"
	"github.com/hodel33/flyby33/pkg/logger"
)

func clientTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("creating logger: %v", err)
	}
	return log
}

func TestClientFetch(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"now": 1756100000,
			"msg": 1234,
			"ac": [
				{"hex": "4ca7b5", "flight": "RYR81LM ", "r": "EI-DWF", "t": "B738",
				 "lat": 59.41, "lon": 17.92, "alt_baro": 37000, "gs": 447.2, "track": 186.5, "seen": 0.3},
				{"hex": "4ac9e1", "lat": 59.65, "lon": 17.93, "alt_baro": "ground", "gs": 4.1, "seen": 1.0}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/v2/point/%.4f/%.4f/%.0f",
		geo.Point{Lat: 59.3293, Lon: 18.0686}, 100, 5*time.Second, 0, clientTestLogger(t))

	aircraft, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if len(aircraft) != 2 {
		t.Fatalf("Fetch() returned %d aircraft, want 2", len(aircraft))
	}

	first := aircraft[0]
	if first.Hex != "4ca7b5" || first.Registration != "EI-DWF" {
		t.Errorf("first aircraft = %+v, want hex 4ca7b5 reg EI-DWF", first)
	}
	if first.AltBaro.OnGround || first.AltBaro.Feet != 37000 {
		t.Errorf("first altitude = %+v, want 37000 ft airborne", first.AltBaro)
	}
	if first.GSKts == nil || *first.GSKts != 447.2 {
		t.Errorf("first ground speed = %v, want 447.2", first.GSKts)
	}

	if !aircraft[1].AltBaro.OnGround {
		t.Errorf("second aircraft altitude = %+v, want on ground", aircraft[1].AltBaro)
	}

	// 100 km is ~54 NM, formatted into the query path
	if gotPath != "/v2/point/59.3293/18.0686/54" {
		t.Errorf("request path = %q, want radius converted to NM", gotPath)
	}
}

func TestClientUpdateStationRepointsQuery(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"ac": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/v2/point/%.4f/%.4f/%.0f",
		geo.Point{Lat: 59.3293, Lon: 18.0686}, 50, 5*time.Second, 0, clientTestLogger(t))

	// Move the station and widen the circle from 50 to 200 km (~108 NM);
	// the next fetch must query the new circle, not the construction-time one
	client.UpdateStation(geo.Point{Lat: 43.6777, Lon: -79.6248}, 200)

	if _, err := client.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotPath != "/v2/point/43.6777/-79.6248/108" {
		t.Errorf("request path = %q, want the updated station and radius", gotPath)
	}
}

func TestClientFetchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/v2/point/%.4f/%.4f/%.0f",
		geo.Point{Lat: 0, Lon: 0}, 100, 5*time.Second, 0, clientTestLogger(t))

	if _, err := client.Fetch(context.Background()); err == nil {
		t.Fatal("Fetch() on 502, want error")
	}
}

func TestClientFetchMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ac": [`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/v2/point/%.4f/%.4f/%.0f",
		geo.Point{Lat: 0, Lon: 0}, 100, 5*time.Second, 0, clientTestLogger(t))

	if _, err := client.Fetch(context.Background()); err == nil {
		t.Fatal("Fetch() on malformed JSON, want error")
	}
}

func TestAltitudeDecoding(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Altitude
	}{
		{"number", `37000`, Altitude{Feet: 37000, Known: true}},
		{"ground string", `"ground"`, Altitude{OnGround: true, Known: true}},
		{"quoted number", `"1200"`, Altitude{Feet: 1200, Known: true}},
		{"null", `null`, Altitude{}},
		{"unparseable string", `"n/a"`, Altitude{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Altitude
			if err := json.Unmarshal([]byte(tt.in), &got); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Unmarshal(%s) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}
