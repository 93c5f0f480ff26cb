// Package insights reduces appointment records, risk predictions, and
// simulation outcomes into the dashboard's summary shapes. Every function
// here is a pure reducer over its inputs; nothing is cached between calls.
package insights

import (
	"time"

	"github.com/clinicpulse/clinicpulse/internal/domain/prediction"
	"github.com/clinicpulse/clinicpulse/internal/domain/record"
	"github.com/clinicpulse/clinicpulse/internal/domain/simulation"
)

// dayLabels in dashboard order, Monday first.
var dayLabels = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Metrics is the dashboard headline block. Simulation-derived fields are
// zero when no simulation result is supplied.
type Metrics struct {
	TotalPatients        int     `json:"total_patients"`
	HighRiskPatients     int     `json:"high_risk_patients"`
	NoShowRatePct        float64 `json:"no_show_rate"`
	AverageWaitMin       float64 `json:"average_wait_time"`
	DoctorUtilizationPct float64 `json:"doctor_utilization"`
	PatientSatisfaction  float64 `json:"patient_satisfaction"`
	OptimalOverbooking   int     `json:"optimal_overbooking"`
}

// ComputeMetrics summarizes a dataset, its predictions, and an optional
// simulation outcome. Any argument may be empty or nil; missing inputs
// zero their fields rather than erroring.
func ComputeMetrics(records []record.AppointmentRecord, preds []prediction.RiskPrediction, sim *simulation.Result) Metrics {
	m := Metrics{TotalPatients: len(records)}
	for _, p := range preds {
		if p.RiskLevel == prediction.RiskHigh {
			m.HighRiskPatients++
		}
	}
	if len(records) > 0 {
		noShows := 0
		for _, r := range records {
			if r.Outcome == record.OutcomeNoShow {
				noShows++
			}
		}
		m.NoShowRatePct = float64(noShows) / float64(len(records)) * 100
	}
	if sim != nil {
		m.AverageWaitMin = sim.AverageWaitMin
		m.DoctorUtilizationPct = sim.DoctorUtilizationPct
		m.PatientSatisfaction = sim.PatientSatisfaction
		m.OptimalOverbooking = sim.RecommendedOverbookingPct
	}
	return m
}

// DayPerformance is one weekday bucket of the weekly chart.
type DayPerformance struct {
	Day          string  `json:"day"`
	Appointments int     `json:"appointments"`
	NoShows      int     `json:"no_shows"`
	WaitTimeMin  float64 `json:"wait_time"`
}

// WeeklyPerformance buckets records by appointment weekday, Monday through
// Sunday. Wait time is a load heuristic, not a simulation: a 15-minute
// floor that grows half a minute per record past twenty overall, plus a
// smaller per-day surcharge. Days without appointments report zero wait.
func WeeklyPerformance(records []record.AppointmentRecord) []DayPerformance {
	out := make([]DayPerformance, 7)
	for i, label := range dayLabels {
		out[i].Day = label
	}
	for _, r := range records {
		i := weekdayIndex(r.AppointmentDate.Weekday())
		out[i].Appointments++
		if r.Outcome == record.OutcomeNoShow {
			out[i].NoShows++
		}
	}

	baseWait := 15.0
	if overflow := len(records) - 20; overflow > 0 {
		baseWait += float64(overflow) * 0.5
	}
	for i := range out {
		if out[i].Appointments == 0 {
			continue
		}
		wait := baseWait
		if overflow := out[i].Appointments - 20; overflow > 0 {
			wait += float64(overflow) * 0.3
		}
		if wait < 10 {
			wait = 10
		}
		out[i].WaitTimeMin = wait
	}
	return out
}

func weekdayIndex(w time.Weekday) int { return (int(w) + 6) % 7 }

// DayAppointments names the busiest weekday.
type DayAppointments struct {
	Day          string `json:"day"`
	Appointments int    `json:"appointments"`
}

// DayRate names a weekday by its no-show rate.
type DayRate struct {
	Day     string  `json:"day"`
	RatePct float64 `json:"rate"`
}

// DayCount names a weekday by its no-show count.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// Insights is the dashboard's quick-glance block. HasData false means the
// dataset was empty; that is a value, not an error, and the remaining
// fields are zero.
type Insights struct {
	HasData        bool            `json:"has_data"`
	PeakDay        DayAppointments `json:"peak_day"`
	LowestNoShows  DayRate         `json:"lowest_no_shows"`
	HighestNoShows DayCount        `json:"highest_no_shows"`
}

// ComputeInsights derives the peak-appointments day, the lowest no-show-rate
// day, and the highest no-show-count day from the weekly buckets. Ties keep
// the earliest weekday. Only days with at least one appointment compete.
func ComputeInsights(records []record.AppointmentRecord) Insights {
	if len(records) == 0 {
		return Insights{}
	}
	week := WeeklyPerformance(records)

	ins := Insights{HasData: true}
	lowestRate := -1.0
	for _, d := range week {
		if d.Appointments == 0 {
			continue
		}
		if d.Appointments > ins.PeakDay.Appointments {
			ins.PeakDay = DayAppointments{Day: d.Day, Appointments: d.Appointments}
		}
		rate := float64(d.NoShows) / float64(d.Appointments) * 100
		if lowestRate < 0 || rate < lowestRate {
			lowestRate = rate
			ins.LowestNoShows = DayRate{Day: d.Day, RatePct: rate}
		}
		if d.NoShows > ins.HighestNoShows.Count || ins.HighestNoShows.Day == "" {
			ins.HighestNoShows = DayCount{Day: d.Day, Count: d.NoShows}
		}
	}
	return ins
}
