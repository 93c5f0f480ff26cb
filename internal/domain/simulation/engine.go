// Package simulation models one clinic operating day as a discrete-event
// system: slot-gridded arrivals, stochastic no-shows, and doctors as a
// limited-capacity resource pool. Each run owns its event queue, clock, and
// pool, so independent runs can execute concurrently.
package simulation

import (
	"container/heap"
	"errors"
	"fmt"
	"math/rand"
)

// ErrInvalidParameters signals simulation configuration outside its domain.
// It is returned before any simulated time advances.
var ErrInvalidParameters = errors.New("invalid simulation parameters")

// Satisfaction degrades linearly with average wait: 100 at zero wait, 0 at
// 2x this tolerance, negative beyond. Negative values are a deliberate
// overload signal and are never clamped.
const satisfactionWaitToleranceMin = 30.0

// DefaultOverflowWaitToleranceMin is the wait beyond which a served patient
// counts as overflow when the caller does not configure a tolerance.
const DefaultOverflowWaitToleranceMin = 60.0

// Parameters configures one simulated clinic day.
type Parameters struct {
	Doctors                  int     `json:"doctors"`
	SlotsPerDay              int     `json:"slots_per_day"`
	OverbookingPct           float64 `json:"overbooking_percentage"`
	AvgAppointmentMin        float64 `json:"average_appointment_minutes"`
	ClinicHours              float64 `json:"clinic_hours"`
	PopulationNoShowRate     float64 `json:"population_no_show_rate"`
	OverflowWaitToleranceMin float64 `json:"overflow_wait_tolerance_minutes"`
	Seed                     int64   `json:"seed"`
}

// Validate rejects out-of-domain configuration before any state is built.
func (p Parameters) Validate() error {
	if p.Doctors < 1 {
		return fmt.Errorf("%w: doctors must be >= 1, got %d", ErrInvalidParameters, p.Doctors)
	}
	if p.SlotsPerDay < 1 {
		return fmt.Errorf("%w: slots_per_day must be >= 1, got %d", ErrInvalidParameters, p.SlotsPerDay)
	}
	if p.OverbookingPct < 0 || p.OverbookingPct > 100 {
		return fmt.Errorf("%w: overbooking_percentage must be in [0,100], got %g", ErrInvalidParameters, p.OverbookingPct)
	}
	if p.AvgAppointmentMin <= 0 {
		return fmt.Errorf("%w: average_appointment_minutes must be > 0, got %g", ErrInvalidParameters, p.AvgAppointmentMin)
	}
	if p.ClinicHours <= 0 {
		return fmt.Errorf("%w: clinic_hours must be > 0, got %g", ErrInvalidParameters, p.ClinicHours)
	}
	if p.PopulationNoShowRate < 0 || p.PopulationNoShowRate > 1 {
		return fmt.Errorf("%w: population_no_show_rate must be in [0,1], got %g", ErrInvalidParameters, p.PopulationNoShowRate)
	}
	if p.OverflowWaitToleranceMin < 0 {
		return fmt.Errorf("%w: overflow_wait_tolerance_minutes must be >= 0, got %g", ErrInvalidParameters, p.OverflowWaitToleranceMin)
	}
	return nil
}

func (p Parameters) overflowTolerance() float64 {
	if p.OverflowWaitToleranceMin > 0 {
		return p.OverflowWaitToleranceMin
	}
	return DefaultOverflowWaitToleranceMin
}

// ScheduledPatients is the number of patients booked into the day:
// floor(slots * (1 + overbooking/100)).
func (p Parameters) ScheduledPatients() int {
	return int(float64(p.SlotsPerDay) * (1 + p.OverbookingPct/100))
}

// Result summarizes one completed simulation run. Produced fresh per run and
// never mutated after creation.
type Result struct {
	// AverageWaitMin is the mean of (service start - arrival) over patients
	// actually served. No-shows contribute no wait.
	AverageWaitMin float64 `json:"average_wait_time"`
	// DoctorUtilizationPct is busy-minutes over available doctor-minutes,
	// capped at 100: busy-minutes beyond capacity never inflate it, so
	// overload shows up in satisfaction and overflow, not here.
	DoctorUtilizationPct float64 `json:"doctor_utilization"`
	// PatientSatisfaction is 100 at zero wait and decreases monotonically
	// with average wait. It goes negative under severe overload; that is a
	// signal, not a bug.
	PatientSatisfaction       float64 `json:"patient_satisfaction"`
	NoShowRatePct             float64 `json:"no_show_rate"`
	OverflowPatients          int     `json:"overflow_patients"`
	RecommendedOverbookingPct int     `json:"recommended_overbooking"`

	ScheduledPatients int     `json:"scheduled_patients"`
	ServedPatients    int     `json:"served_patients"`
	NoShows           int     `json:"no_shows"`
	TotalBusyMin      float64 `json:"total_busy_minutes"`
}

// -- Event queue --

type eventKind int

const (
	eventArrival eventKind = iota
	eventCompletion
)

type event struct {
	at      float64 // minutes since clinic opening
	seq     int     // insertion sequence, breaks time ties deterministically
	kind    eventKind
	patient *patient
}

type eventQueue struct {
	events  []*event
	nextSeq int
}

func (q *eventQueue) Len() int { return len(q.events) }

func (q *eventQueue) Less(i, j int) bool {
	if q.events[i].at != q.events[j].at {
		return q.events[i].at < q.events[j].at
	}
	return q.events[i].seq < q.events[j].seq
}

func (q *eventQueue) Swap(i, j int) { q.events[i], q.events[j] = q.events[j], q.events[i] }

func (q *eventQueue) Push(x any) { q.events = append(q.events, x.(*event)) }

func (q *eventQueue) Pop() any {
	old := q.events
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	q.events = old[:n-1]
	return e
}

func (q *eventQueue) schedule(at float64, kind eventKind, p *patient) {
	heap.Push(q, &event{at: at, seq: q.nextSeq, kind: kind, patient: p})
	q.nextSeq++
}

type patient struct {
	slot       int // slot index on the grid
	arrivalMin float64
	noShow     bool
}

// -- Doctor pool --

// doctorPool is a counting semaphore of size Doctors with a FIFO queue of
// patients waiting for a unit. Acquire/release is exclusive; a release
// always follows an acquire because service completion is the only consumer
// of a held unit.
type doctorPool struct {
	free    int
	waiting []*patient
}

func (d *doctorPool) tryAcquire() bool {
	if d.free == 0 {
		return false
	}
	d.free--
	return true
}

func (d *doctorPool) release() { d.free++ }

func (d *doctorPool) enqueue(p *patient) { d.waiting = append(d.waiting, p) }

func (d *doctorPool) dequeue() *patient {
	if len(d.waiting) == 0 {
		return nil
	}
	p := d.waiting[0]
	d.waiting = d.waiting[1:]
	return p
}

// Run simulates one clinic day. When perPatientProbs is non-empty its
// entries are the no-show probabilities of the scheduled patients in slot
// order (cycled when shorter than the schedule); otherwise the flat
// population rate applies. The random source is derived from Parameters.Seed
// so identical inputs reproduce identical results.
func Run(params Parameters, perPatientProbs []float64) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return run(params, perPatientProbs, rand.New(rand.NewSource(params.Seed))), nil
}

// RunWithRand is Run with an injected random source, for callers that manage
// their own stream.
func RunWithRand(params Parameters, perPatientProbs []float64, rng *rand.Rand) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return run(params, perPatientProbs, rng), nil
}

func run(params Parameters, probs []float64, rng *rand.Rand) *Result {
	dayMin := params.ClinicHours * 60
	slotWidth := dayMin / float64(params.SlotsPerDay)
	scheduled := params.ScheduledPatients()

	// Base patients fill the slot grid; overbooked extras are layered back
	// onto the grid from slot zero, never extending the day. No-show draws
	// consume the rng in this exact order, so raising the overbooking
	// percentage appends extra patients without disturbing the base
	// population's outcomes.
	patients := make([]*patient, scheduled)
	for i := 0; i < scheduled; i++ {
		slot := i % params.SlotsPerDay
		patients[i] = &patient{slot: slot, arrivalMin: float64(slot) * slotWidth}
	}
	noShows := 0
	for i, p := range patients {
		prob := params.PopulationNoShowRate
		if len(probs) > 0 {
			prob = probs[i%len(probs)]
		}
		if rng.Float64() < prob {
			p.noShow = true
			noShows++
		}
	}

	queue := &eventQueue{}
	pool := &doctorPool{free: params.Doctors}
	for _, p := range patients {
		queue.schedule(p.arrivalMin, eventArrival, p)
	}

	var (
		served    int
		totalWait float64
		busyMin   float64
		overflow  int
	)
	tolerance := params.overflowTolerance()

	startService := func(p *patient, now float64) {
		wait := now - p.arrivalMin
		totalWait += wait
		served++
		if wait > tolerance {
			overflow++
		}
		queue.schedule(now+params.AvgAppointmentMin, eventCompletion, p)
	}

	for queue.Len() > 0 {
		e := heap.Pop(queue).(*event)
		switch e.kind {
		case eventArrival:
			if e.patient.noShow {
				continue
			}
			if pool.tryAcquire() {
				startService(e.patient, e.at)
			} else {
				pool.enqueue(e.patient)
			}
		case eventCompletion:
			busyMin += params.AvgAppointmentMin
			pool.release()
			if next := pool.dequeue(); next != nil {
				if !pool.tryAcquire() {
					// The unit released above is always available here.
					panic("simulation: doctor pool exhausted after release")
				}
				startService(next, e.at)
			}
		}
	}

	capacityMin := float64(params.Doctors) * dayMin
	utilBusy := busyMin
	if utilBusy > capacityMin {
		utilBusy = capacityMin
	}

	res := &Result{
		ScheduledPatients: scheduled,
		ServedPatients:    served,
		NoShows:           noShows,
		TotalBusyMin:      busyMin,
	}
	if served > 0 {
		res.AverageWaitMin = totalWait / float64(served)
	}
	res.DoctorUtilizationPct = utilBusy / capacityMin * 100
	res.PatientSatisfaction = 100 - (res.AverageWaitMin/satisfactionWaitToleranceMin)*50
	if scheduled > 0 {
		res.NoShowRatePct = float64(noShows) / float64(scheduled) * 100
	}
	res.OverflowPatients = overflow
	res.RecommendedOverbookingPct = recommendOverbooking(res.DoctorUtilizationPct, params.OverbookingPct)
	return res
}

// recommendOverbooking is the single-run heuristic: nudge overbooking up
// when doctors are idle, down when they are saturated. The strategy
// optimizer's sweep is the authoritative recommendation.
func recommendOverbooking(utilizationPct, currentPct float64) int {
	switch {
	case utilizationPct < 75:
		rec := currentPct + 5
		if rec > 15 {
			rec = 15
		}
		return int(rec)
	case utilizationPct > 90:
		rec := currentPct - 5
		if rec < 5 {
			rec = 5
		}
		return int(rec)
	default:
		return int(currentPct)
	}
}
