package adsb

import (
	"math"

	"github.com/hodel33/flyby33/pkg/logger"
)

// AlertType classifies a flyby alert.
type AlertType string

const (
	// AlertDetected fires when an aircraft's probability first reaches the
	// threshold, or an already-tracked aircraft crosses up through it.
	AlertDetected AlertType = "detected"
	// AlertUpdated fires when an alerting aircraft's probability moves
	// meaningfully while staying above the threshold.
	AlertUpdated AlertType = "updated"
	// AlertCleared fires when the probability falls back below the threshold.
	AlertCleared AlertType = "cleared"
	// AlertLost fires when an alerting aircraft drops out of the snapshot.
	AlertLost AlertType = "lost"
)

// FlybyAlert is one transition in an aircraft's flyby status between
// consecutive refresh cycles.
type FlybyAlert struct {
	Type        AlertType `json:"type"`
	Hex         string    `json:"hex"`
	Callsign    string    `json:"callsign,omitempty"`
	Probability float64   `json:"probability"`
	Previous    float64   `json:"previous"`
}

// minProbabilityDelta is the smallest probability move worth an "updated"
// alert; smaller wobbles are noise from trail churn.
const minProbabilityDelta = 0.05

// AlertDetector compares prediction batches between polling cycles and emits
// alerts when aircraft cross the probability threshold.
type AlertDetector struct {
	threshold float64
	previous  map[string]float64
	logger    *logger.Logger
}

// NewAlertDetector creates a detector firing at the given probability.
func NewAlertDetector(threshold float64, log *logger.Logger) *AlertDetector {
	return &AlertDetector{
		threshold: threshold,
		previous:  make(map[string]float64),
		logger:    log.Named("flyby-alert"),
	}
}

// Detect compares the current snapshot with the previous one, logs every
// transition and returns them. Aircraft without a prediction are treated as
// probability 0.
func (ad *AlertDetector) Detect(current map[string]*Aircraft) []FlybyAlert {
	alerts := []FlybyAlert{}
	nowProbs := make(map[string]float64, len(current))

	for hex, ac := range current {
		prob := 0.0
		if ac.Prediction != nil {
			prob = ac.Prediction.Probability
		}
		nowProbs[hex] = prob

		prev, tracked := ad.previous[hex]
		above := prob >= ad.threshold
		wasAbove := tracked && prev >= ad.threshold

		var alertType AlertType
		switch {
		case above && !wasAbove:
			alertType = AlertDetected
		case above && wasAbove && math.Abs(prob-prev) >= minProbabilityDelta:
			alertType = AlertUpdated
		case !above && wasAbove:
			alertType = AlertCleared
		default:
			continue
		}

		alert := FlybyAlert{
			Type: alertType, Hex: hex, Callsign: ac.Callsign,
			Probability: prob, Previous: prev,
		}
		ad.log(alert, ac)
		alerts = append(alerts, alert)
	}

	// Aircraft that vanished while alerting
	for hex, prev := range ad.previous {
		if _, exists := nowProbs[hex]; !exists && prev >= ad.threshold {
			alert := FlybyAlert{Type: AlertLost, Hex: hex, Previous: prev}
			ad.log(alert, nil)
			alerts = append(alerts, alert)
		}
	}

	ad.previous = nowProbs
	return alerts
}

// log emits one transition, with the human-readable flyby summary when the
// aircraft is still scored.
func (ad *AlertDetector) log(alert FlybyAlert, ac *Aircraft) {
	fields := []logger.Field{
		logger.String("type", string(alert.Type)),
		logger.String("hex", alert.Hex),
		logger.String("callsign", alert.Callsign),
		logger.Float64("probability", alert.Probability),
	}
	if ac != nil && ac.Prediction != nil {
		fields = append(fields, logger.String("flyby", ac.Prediction.FlybyInfo()))
	}
	ad.logger.Info("Flyby alert", fields...)
}

// Reset forgets all tracked state, e.g. after the station moves.
func (ad *AlertDetector) Reset() {
	ad.previous = make(map[string]float64)
}
