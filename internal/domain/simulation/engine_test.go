package simulation

import (
	"errors"
	"reflect"
	"testing"
)

func baseParams() Parameters {
	return Parameters{
		Doctors:              2,
		SlotsPerDay:          20,
		OverbookingPct:       0,
		AvgAppointmentMin:    30,
		ClinicHours:          8,
		PopulationNoShowRate: 0,
		Seed:                 42,
	}
}

func TestRunValidatesParameters(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Parameters)
	}{
		{"zero doctors", func(p *Parameters) { p.Doctors = 0 }},
		{"negative doctors", func(p *Parameters) { p.Doctors = -3 }},
		{"zero slots", func(p *Parameters) { p.SlotsPerDay = 0 }},
		{"negative overbooking", func(p *Parameters) { p.OverbookingPct = -1 }},
		{"overbooking above 100", func(p *Parameters) { p.OverbookingPct = 101 }},
		{"zero appointment length", func(p *Parameters) { p.AvgAppointmentMin = 0 }},
		{"zero clinic hours", func(p *Parameters) { p.ClinicHours = 0 }},
		{"no-show rate above 1", func(p *Parameters) { p.PopulationNoShowRate = 1.5 }},
		{"negative overflow tolerance", func(p *Parameters) { p.OverflowWaitToleranceMin = -10 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := baseParams()
			tc.mutate(&p)
			if _, err := Run(p, nil); !errors.Is(err, ErrInvalidParameters) {
				t.Fatalf("expected ErrInvalidParameters, got %v", err)
			}
		})
	}
}

func TestRunDeterministicForSeed(t *testing.T) {
	p := baseParams()
	p.PopulationNoShowRate = 0.25
	p.OverbookingPct = 20

	first, err := Run(p, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	second, err := Run(p, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("same seed produced different results:\n%+v\n%+v", first, second)
	}

	p.Seed = 43
	other, err := Run(p, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if reflect.DeepEqual(first, other) {
		t.Fatalf("different seeds produced identical results: %+v", first)
	}
}

func TestRunFullAttendanceScenario(t *testing.T) {
	// 20 patients, 30-minute visits, two doctors over an 8-hour day:
	// 600 busy minutes out of 960 available.
	res, err := Run(baseParams(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.ScheduledPatients != 20 || res.ServedPatients != 20 || res.NoShows != 0 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if res.NoShowRatePct != 0 {
		t.Fatalf("no_show_rate = %g, want 0", res.NoShowRatePct)
	}
	if res.DoctorUtilizationPct != 62.5 {
		t.Fatalf("doctor_utilization = %g, want 62.5", res.DoctorUtilizationPct)
	}
	if res.AverageWaitMin != 0 {
		t.Fatalf("average_wait = %g, want 0", res.AverageWaitMin)
	}
	if res.PatientSatisfaction != 100 {
		t.Fatalf("satisfaction = %g, want 100", res.PatientSatisfaction)
	}
	if res.OverflowPatients != 0 {
		t.Fatalf("overflow = %d, want 0", res.OverflowPatients)
	}
	if res.RecommendedOverbookingPct != 5 {
		t.Fatalf("recommended overbooking = %d, want 5", res.RecommendedOverbookingPct)
	}
}

func TestRunUniversalNoShow(t *testing.T) {
	p := baseParams()
	res, err := Run(p, []float64{1.0})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.ServedPatients != 0 || res.NoShows != 20 {
		t.Fatalf("unexpected counts: %+v", res)
	}
	if res.NoShowRatePct != 100 {
		t.Fatalf("no_show_rate = %g, want 100", res.NoShowRatePct)
	}
	if res.DoctorUtilizationPct != 0 {
		t.Fatalf("doctor_utilization = %g, want 0", res.DoctorUtilizationPct)
	}
}

func TestRunMoreDoctorsNeverIncreaseWait(t *testing.T) {
	p := baseParams()
	p.SlotsPerDay = 40
	p.AvgAppointmentMin = 45
	p.OverbookingPct = 50
	p.PopulationNoShowRate = 0.2

	prev := -1.0
	for doctors := 1; doctors <= 6; doctors++ {
		p.Doctors = doctors
		res, err := Run(p, nil)
		if err != nil {
			t.Fatalf("run with %d doctors: %v", doctors, err)
		}
		if prev >= 0 && res.AverageWaitMin > prev {
			t.Fatalf("average wait rose from %g to %g when doctors went to %d", prev, res.AverageWaitMin, doctors)
		}
		prev = res.AverageWaitMin
	}
}

func TestRunMoreOverbookingNeverDecreasesOverflow(t *testing.T) {
	p := baseParams()
	p.Doctors = 1
	p.SlotsPerDay = 16
	p.AvgAppointmentMin = 40
	p.PopulationNoShowRate = 0.1

	prev := -1
	for _, pct := range []float64{0, 10, 20, 30, 50} {
		p.OverbookingPct = pct
		res, err := Run(p, nil)
		if err != nil {
			t.Fatalf("run at %g%% overbooking: %v", pct, err)
		}
		if prev >= 0 && res.OverflowPatients < prev {
			t.Fatalf("overflow dropped from %d to %d at %g%% overbooking", prev, res.OverflowPatients, pct)
		}
		prev = res.OverflowPatients
	}
}

func TestRunUtilizationCappedAtHundred(t *testing.T) {
	p := baseParams()
	p.Doctors = 1
	p.AvgAppointmentMin = 60 // 20 hours of work in an 8-hour day

	res, err := Run(p, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.DoctorUtilizationPct != 100 {
		t.Fatalf("doctor_utilization = %g, want 100", res.DoctorUtilizationPct)
	}
	if res.TotalBusyMin != 1200 {
		t.Fatalf("total busy minutes = %g, want 1200", res.TotalBusyMin)
	}
	if res.RecommendedOverbookingPct != 5 {
		t.Fatalf("recommended overbooking = %d, want 5", res.RecommendedOverbookingPct)
	}
	if res.PatientSatisfaction >= 100 {
		t.Fatalf("satisfaction = %g under heavy overload, want < 100", res.PatientSatisfaction)
	}
}

func TestScheduledPatientsWithOverbooking(t *testing.T) {
	p := baseParams()
	p.OverbookingPct = 25
	if got := p.ScheduledPatients(); got != 25 {
		t.Fatalf("ScheduledPatients() = %d, want 25", got)
	}
	p.OverbookingPct = 12
	if got := p.ScheduledPatients(); got != 22 {
		t.Fatalf("ScheduledPatients() = %d, want 22", got)
	}
}

func TestRunPerPatientProbabilitiesCycle(t *testing.T) {
	p := baseParams()
	p.Seed = 7
	// Alternating certain-attend / certain-miss: exactly half the schedule
	// no-shows regardless of the seed.
	res, err := Run(p, []float64{0, 1})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.NoShows != 10 || res.ServedPatients != 10 {
		t.Fatalf("unexpected counts with alternating probabilities: %+v", res)
	}
}
