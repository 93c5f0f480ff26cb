package strategy

import (
	"fmt"

	"github.com/clinicpulse/clinicpulse/internal/domain/simulation"
)

// Preset is a named overbooking posture shown on the dashboard comparison.
type Preset struct {
	Name           string
	OverbookingPct int
}

// Presets in comparison order. "Optimal" is a historical label from the
// dashboard, not a claim; the sweep is what actually optimizes.
var Presets = []Preset{
	{Name: "Conservative", OverbookingPct: 5},
	{Name: "Current", OverbookingPct: 10},
	{Name: "Aggressive", OverbookingPct: 15},
	{Name: "Optimal", OverbookingPct: 12},
}

// PresetComparison is one preset's simulated outcome in dashboard shape.
type PresetComparison struct {
	Strategy     string  `json:"strategy"`
	WaitTime     float64 `json:"wait_time"`
	Utilization  float64 `json:"utilization"`
	Satisfaction float64 `json:"satisfaction"`
}

// ComparePresets simulates each named preset against the same baseline and
// seed. Results come from real engine runs, one per preset.
func ComparePresets(base simulation.Parameters, perPatientProbs []float64) ([]PresetComparison, error) {
	out := make([]PresetComparison, 0, len(Presets))
	for _, preset := range Presets {
		params := base
		params.OverbookingPct = float64(preset.OverbookingPct)
		res, err := simulation.Run(params, perPatientProbs)
		if err != nil {
			return nil, fmt.Errorf("preset %q: %w", preset.Name, err)
		}
		out = append(out, PresetComparison{
			Strategy:     fmt.Sprintf("%s (%d%%)", preset.Name, preset.OverbookingPct),
			WaitTime:     res.AverageWaitMin,
			Utilization:  res.DoctorUtilizationPct,
			Satisfaction: res.PatientSatisfaction,
		})
	}
	return out, nil
}
