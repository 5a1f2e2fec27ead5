package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hodel33/flyby33/internal/adsb"
	"github.com/hodel33/flyby33/internal/config"
	"github.com/hodel33/flyby33/internal/geo"
	"github.com/hodel33/flyby33/internal/storage/sqlite"
	"github.com/hodel33/flyby33/pkg/logger"
)

// Handler serves the HTTP API from the tracking service's state.
type Handler struct {
	service *adsb.Service
	history *sqlite.FlightStorage
	config  *config.Config
	logger  *logger.Logger
	started time.Time
}

// NewHandler creates a new API handler. history may be nil.
func NewHandler(service *adsb.Service, history *sqlite.FlightStorage, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		history: history,
		config:  cfg,
		logger:  log.Named("api-handler"),
		started: time.Now(),
	}
}

// GetAllAircraft returns every tracked aircraft, nearest first.
func (h *Handler) GetAllAircraft(w http.ResponseWriter, r *http.Request) {
	aircraft := h.service.Aircraft()
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(aircraft),
		"aircraft":  aircraft,
		"last_sync": h.service.LastSync(),
	})
}

// GetAircraftByHex returns one tracked aircraft by transponder hex.
func (h *Handler) GetAircraftByHex(w http.ResponseWriter, r *http.Request) {
	hex := chi.URLParam(r, "id")
	ac, ok := h.service.AircraftByID(hex)
	if !ok {
		h.respondError(w, http.StatusNotFound, "aircraft not found")
		return
	}
	h.respondJSON(w, http.StatusOK, ac)
}

// GetPredictions returns the scored aircraft, highest probability first.
// An optional min_probability query parameter filters the list.
func (h *Handler) GetPredictions(w http.ResponseWriter, r *http.Request) {
	minProb := 0.0
	if raw := r.URL.Query().Get("min_probability"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			h.respondError(w, http.StatusBadRequest, "min_probability must be a number in [0,1]")
			return
		}
		minProb = parsed
	}

	scored := h.service.Predictions()
	out := make([]*adsb.Aircraft, 0, len(scored))
	for _, ac := range scored {
		if ac.Prediction.Probability >= minProb {
			out = append(out, ac)
		}
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":       len(out),
		"predictions": out,
		"last_sync":   h.service.LastSync(),
	})
}

// queryLimit parses the optional limit query parameter, defaulting to 50.
// On a bad value it writes the error response and reports false.
func (h *Handler) queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			h.respondError(w, http.StatusBadRequest, "limit must be an integer in [1,1000]")
			return 0, false
		}
		limit = parsed
	}
	return limit, true
}

// GetPredictionHistory returns persisted predictions for one aircraft.
func (h *Handler) GetPredictionHistory(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.respondError(w, http.StatusNotFound, "persistence disabled")
		return
	}

	hex := chi.URLParam(r, "id")
	limit, ok := h.queryLimit(w, r)
	if !ok {
		return
	}

	records, err := h.history.PredictionsByAircraft(r.Context(), hex, limit)
	if err != nil {
		h.logger.Error("Failed to query prediction history", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to query prediction history")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"hex":         hex,
		"count":       len(records),
		"predictions": records,
	})
}

// GetRecentPredictions returns the latest persisted predictions across all
// aircraft, newest first.
func (h *Handler) GetRecentPredictions(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.respondError(w, http.StatusNotFound, "persistence disabled")
		return
	}

	limit, ok := h.queryLimit(w, r)
	if !ok {
		return
	}

	records, err := h.history.RecentPredictions(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to query recent predictions", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to query recent predictions")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":       len(records),
		"predictions": records,
	})
}

// GetAircraftSightings returns persisted sightings for one aircraft.
func (h *Handler) GetAircraftSightings(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.respondError(w, http.StatusNotFound, "persistence disabled")
		return
	}

	hex := chi.URLParam(r, "id")
	limit, ok := h.queryLimit(w, r)
	if !ok {
		return
	}

	records, err := h.history.RecentSightings(r.Context(), hex, limit)
	if err != nil {
		h.logger.Error("Failed to query sightings", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to query sightings")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"hex":       hex,
		"count":     len(records),
		"sightings": records,
	})
}

// PostRefresh triggers one snapshot refresh, for manual-refresh setups.
func (h *Handler) PostRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Refresh(r.Context()); err != nil {
		h.logger.Error("Manual refresh failed", logger.Error(err))
		h.respondError(w, http.StatusBadGateway, "refresh failed")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "refreshed",
		"last_sync": h.service.LastSync(),
	})
}

// stationRequest is the POST /station payload.
type stationRequest struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	RadiusKm  *float64 `json:"radius_km,omitempty"`
}

// GetStation returns the station currently being monitored.
func (h *Handler) GetStation(w http.ResponseWriter, r *http.Request) {
	obs := h.service.Observer()
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"latitude":  obs.Position.Lat,
		"longitude": obs.Position.Lon,
		"radius_km": obs.RadiusKm,
	})
}

// SetStation overrides the station location at runtime.
func (h *Handler) SetStation(w http.ResponseWriter, r *http.Request) {
	var req stationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	obs := h.service.Observer()
	obs.Position = geo.Point{Lat: req.Latitude, Lon: req.Longitude}
	if req.RadiusKm != nil {
		obs.RadiusKm = *req.RadiusKm
	}

	if err := h.service.SetObserver(obs); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid station location")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"latitude":  obs.Position.Lat,
		"longitude": obs.Position.Lon,
		"radius_km": obs.RadiusKm,
	})
}

// GetHealth returns liveness plus tracking-loop status.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"uptime_s":  int(time.Since(h.started).Seconds()),
		"tracked":   len(h.service.Aircraft()),
		"last_sync": h.service.LastSync(),
	})
}

// GetConfig returns the running configuration's tuning surface.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"station":    h.config.Station,
		"tracking":   h.config.Tracking,
		"prediction": h.config.Prediction,
	})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", logger.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
