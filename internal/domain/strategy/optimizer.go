// Package strategy selects an overbooking percentage by sweeping the
// simulation engine over a candidate range and scoring each outcome. The
// engine is the single source of truth here; no closed-form shortcuts.
package strategy

import (
	"fmt"

	"github.com/clinicpulse/clinicpulse/internal/domain/simulation"
)

// Weights is the scoring configuration for a sweep. Wait time counts
// against a candidate, utilization and satisfaction count for it. All
// three must be positive.
type Weights struct {
	WaitTime     float64 `json:"wait_time_weight"`
	Utilization  float64 `json:"utilization_weight"`
	Satisfaction float64 `json:"satisfaction_weight"`
}

// DefaultWeights favors patient experience slightly over throughput.
var DefaultWeights = Weights{WaitTime: 0.4, Utilization: 0.3, Satisfaction: 0.3}

// Validate rejects weights the score function cannot interpret.
func (w Weights) Validate() error {
	if w.WaitTime <= 0 {
		return fmt.Errorf("%w: wait_time_weight must be > 0, got %g", simulation.ErrInvalidParameters, w.WaitTime)
	}
	if w.Utilization <= 0 {
		return fmt.Errorf("%w: utilization_weight must be > 0, got %g", simulation.ErrInvalidParameters, w.Utilization)
	}
	if w.Satisfaction <= 0 {
		return fmt.Errorf("%w: satisfaction_weight must be > 0, got %g", simulation.ErrInvalidParameters, w.Satisfaction)
	}
	return nil
}

func (w Weights) score(r *simulation.Result) float64 {
	return w.Satisfaction*r.PatientSatisfaction +
		w.Utilization*r.DoctorUtilizationPct -
		w.WaitTime*r.AverageWaitMin
}

// Candidate is one evaluated overbooking percentage with its full
// simulation outcome, kept so callers can audit the selection.
type Candidate struct {
	OverbookingPct int                `json:"overbooking_percentage"`
	Score          float64            `json:"score"`
	Result         *simulation.Result `json:"result"`
}

// Recommendation is the sweep outcome: the winning percentage plus the
// complete comparison table.
type Recommendation struct {
	BestOverbookingPct int                `json:"recommended_overbooking"`
	Best               *simulation.Result `json:"best_result"`
	Candidates         []Candidate        `json:"candidates"`
}

// Sweep evaluates overbooking percentages 0..maxPct in increments of step,
// running every candidate against the same seed so overbooking is the only
// varying input. Ties go to the lower percentage. A failing candidate
// aborts the sweep; a partial comparison table would be misleading.
func Sweep(base simulation.Parameters, maxPct, step int, w Weights, perPatientProbs []float64) (*Recommendation, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if maxPct < 0 || maxPct > 100 {
		return nil, fmt.Errorf("%w: sweep max must be in [0,100], got %d", simulation.ErrInvalidParameters, maxPct)
	}
	if step < 1 {
		return nil, fmt.Errorf("%w: sweep step must be >= 1, got %d", simulation.ErrInvalidParameters, step)
	}

	rec := &Recommendation{BestOverbookingPct: -1}
	bestScore := 0.0
	for pct := 0; pct <= maxPct; pct += step {
		params := base
		params.OverbookingPct = float64(pct)
		res, err := simulation.Run(params, perPatientProbs)
		if err != nil {
			return nil, fmt.Errorf("sweep candidate %d%%: %w", pct, err)
		}
		cand := Candidate{OverbookingPct: pct, Score: w.score(res), Result: res}
		rec.Candidates = append(rec.Candidates, cand)
		// Strictly-greater comparison: an exact tie keeps the earlier,
		// lower percentage.
		if rec.Best == nil || cand.Score > bestScore {
			rec.Best = res
			rec.BestOverbookingPct = pct
			bestScore = cand.Score
		}
	}
	return rec, nil
}
