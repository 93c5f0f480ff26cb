package prediction

import (
	"fmt"

	"github.com/clinicpulse/clinicpulse/internal/domain/features"
	"github.com/clinicpulse/clinicpulse/internal/domain/record"
)

// Risk level tiers. Thresholds are a pure display mapping over the model
// probability; the model itself is the single source of truth.
const (
	RiskHigh   = "High"
	RiskMedium = "Medium"
	RiskLow    = "Low"
)

// RiskLevel discretizes a no-show probability: >= 0.6 High, >= 0.3 Medium,
// else Low.
func RiskLevel(p float64) string {
	switch {
	case p >= 0.6:
		return RiskHigh
	case p >= 0.3:
		return RiskMedium
	default:
		return RiskLow
	}
}

// RiskPrediction is one scored appointment. Recomputed from the model on
// every request, never persisted as source of truth.
type RiskPrediction struct {
	PatientID         string  `json:"patient_id"`
	AppointmentID     string  `json:"appointment_id"`
	NoShowProbability float64 `json:"no_show_probability"`
	RiskLevel         string  `json:"risk_level"`
	PreviousNoShows   int     `json:"previous_no_shows"`
}

// Predictor scores feature vectors with a Model.
type Predictor struct {
	model Model
}

func NewPredictor(model Model) *Predictor {
	return &Predictor{model: model}
}

// PredictAll maps feature vectors to risk predictions one-to-one, preserving
// order. The first model failure aborts the whole call: callers get a
// complete result or none.
func (p *Predictor) PredictAll(vectors []features.FeatureVector) ([]RiskPrediction, error) {
	preds := make([]RiskPrediction, 0, len(vectors))
	for i := range vectors {
		v := &vectors[i]
		prob, err := p.model.Predict(v)
		if err != nil {
			return nil, fmt.Errorf("predict appointment %s: %w", v.AppointmentID, err)
		}
		if prob < 0 || prob > 1 {
			return nil, fmt.Errorf("predict appointment %s: probability %f out of [0,1]", v.AppointmentID, prob)
		}
		preds = append(preds, RiskPrediction{
			PatientID:         v.PatientID,
			AppointmentID:     v.AppointmentID,
			NoShowProbability: prob,
			RiskLevel:         RiskLevel(prob),
			PreviousNoShows:   previousNoShows(v),
		})
	}
	return preds, nil
}

// PredictRecords derives features from raw records and scores them.
func (p *Predictor) PredictRecords(records []record.AppointmentRecord) ([]RiskPrediction, error) {
	vectors, err := features.Derive(records)
	if err != nil {
		return nil, err
	}
	return p.PredictAll(vectors)
}

func previousNoShows(v *features.FeatureVector) int {
	// Round instead of truncating: the rate is an exact fraction
	// noShows/seen, so rate*seen reconstructs the count.
	return int(v.PastNoShowRate*float64(v.TotalAppointments) + 0.5)
}
