// Package features turns raw appointment records into the engineered
// feature vectors consumed by the risk predictor and by simulation
// calibration. Behavioral aggregates for an appointment are computed from
// that patient's strictly earlier appointments only; the derivation order
// is the guarantee against train-time information leakage.
package features

import (
	"fmt"
	"sort"
	"time"

	"github.com/clinicpulse/clinicpulse/internal/domain/record"
)

// NoPriorAppointment is the DaysSinceLast sentinel for a patient's first
// appointment, distinct from any real gap (real gaps are >= 0).
const NoPriorAppointment = -1

// FeatureVector is the per-appointment model input. Derived fresh per
// derivation call and never mutated afterwards.
type FeatureVector struct {
	PatientID     string `json:"patient_id"`
	AppointmentID string `json:"appointment_id"`

	Age           int    `json:"age"`
	Gender        string `json:"gender"`
	Neighbourhood string `json:"neighbourhood"`
	Scholarship   bool   `json:"scholarship"`
	Hypertension  bool   `json:"hypertension"`
	Diabetes      bool   `json:"diabetes"`
	Alcoholism    bool   `json:"alcoholism"`
	SMSReceived   bool   `json:"sms_received"`
	Handicap      int    `json:"handicap"`

	WaitDays           int `json:"wait_days"`
	AppointmentWeekday int `json:"appointment_weekday"` // Monday=0 .. Sunday=6
	AppointmentMonth   int `json:"appointment_month"`
	ScheduledHour      int `json:"scheduled_hour"`

	// Behavioral aggregates over strictly earlier appointments.
	PastNoShowRate    float64 `json:"past_no_show_rate"`
	TotalAppointments int     `json:"total_appointments"`
	MissedBefore      bool    `json:"missed_before"`
	DaysSinceLast     int     `json:"days_since_last_appointment"`

	// Ground truth when the source row carried one.
	Outcome record.Outcome `json:"outcome"`
}

// Values flattens the vector into named numeric features for a linear model.
// Categorical fields become one-hot keys ("gender=M", "neighbourhood=X");
// absent keys are implicitly zero.
func (v *FeatureVector) Values() map[string]float64 {
	m := map[string]float64{
		"age":                 float64(v.Age),
		"scholarship":         boolFeature(v.Scholarship),
		"hypertension":        boolFeature(v.Hypertension),
		"diabetes":            boolFeature(v.Diabetes),
		"alcoholism":          boolFeature(v.Alcoholism),
		"sms_received":        boolFeature(v.SMSReceived),
		"handicap":            float64(v.Handicap),
		"wait_days":           float64(v.WaitDays),
		"appointment_weekday": float64(v.AppointmentWeekday),
		"appointment_month":   float64(v.AppointmentMonth),
		"scheduled_hour":      float64(v.ScheduledHour),
		"past_no_show_rate":   v.PastNoShowRate,
		"total_appointments":  float64(v.TotalAppointments),
		"missed_before":       boolFeature(v.MissedBefore),
		"days_since_last":     float64(v.DaysSinceLast),
	}
	m["gender="+v.Gender] = 1
	if v.Neighbourhood != "" {
		m["neighbourhood="+v.Neighbourhood] = 1
	}
	return m
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// patientHistory is the running per-patient state during a derivation walk.
// It lives only for the duration of one Derive call.
type patientHistory struct {
	seen        int
	noShows     int
	lastAppt    int64 // unix day of most recent prior appointment
	hasLastAppt bool
}

// Derive produces one FeatureVector per input record, in input order. The
// full set is validated up front; any invalid record fails the whole call
// with a record.ValidationError and no vectors are returned.
//
// Rows with an unknown outcome contribute no history: only confirmed
// attended/no-show results feed the behavioral aggregates of later
// appointments.
func Derive(records []record.AppointmentRecord) ([]FeatureVector, error) {
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	if len(records) == 0 {
		return []FeatureVector{}, nil
	}

	// Walk records in ascending scheduled-time order per patient. Ties break
	// on appointment date, then appointment ID, so derivation is stable for
	// any input permutation.
	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra, rb := &records[order[a]], &records[order[b]]
		if ra.PatientID != rb.PatientID {
			return ra.PatientID < rb.PatientID
		}
		if !ra.ScheduledAt.Equal(rb.ScheduledAt) {
			return ra.ScheduledAt.Before(rb.ScheduledAt)
		}
		if !ra.AppointmentDate.Equal(rb.AppointmentDate) {
			return ra.AppointmentDate.Before(rb.AppointmentDate)
		}
		return ra.AppointmentID < rb.AppointmentID
	})

	history := make(map[string]*patientHistory)
	vectors := make([]FeatureVector, len(records))

	for _, i := range order {
		r := &records[i]
		h := history[r.PatientID]
		if h == nil {
			h = &patientHistory{}
			history[r.PatientID] = h
		}

		// Aggregates first, from history accumulated so far; only then does
		// the current outcome enter the history. Reversing these two steps
		// would leak the row's own outcome into its features.
		v := FeatureVector{
			PatientID:          r.PatientID,
			AppointmentID:      r.AppointmentID,
			Age:                r.Age,
			Gender:             r.Gender,
			Neighbourhood:      r.Neighbourhood,
			Scholarship:        r.Scholarship,
			Hypertension:       r.Hypertension,
			Diabetes:           r.Diabetes,
			Alcoholism:         r.Alcoholism,
			SMSReceived:        r.SMSReceived,
			Handicap:           r.Handicap,
			WaitDays:           waitDays(r),
			AppointmentWeekday: weekdayMondayZero(r.AppointmentDate.Weekday()),
			AppointmentMonth:   int(r.AppointmentDate.Month()),
			ScheduledHour:      r.ScheduledAt.Hour(),
			TotalAppointments:  h.seen,
			MissedBefore:       h.noShows > 0,
			DaysSinceLast:      NoPriorAppointment,
			Outcome:            r.Outcome,
		}
		if h.seen > 0 {
			v.PastNoShowRate = float64(h.noShows) / float64(h.seen)
		}
		if h.hasLastAppt {
			v.DaysSinceLast = int(unixDay(r) - h.lastAppt)
		}
		vectors[i] = v

		if r.Outcome != record.OutcomeUnknown {
			h.seen++
			if r.Outcome == record.OutcomeNoShow {
				h.noShows++
			}
			h.lastAppt = unixDay(r)
			h.hasLastAppt = true
		}
	}

	return vectors, nil
}

func waitDays(r *record.AppointmentRecord) int {
	const day = 24 * 60 * 60
	sched := r.ScheduledAt.Unix() / day
	appt := r.AppointmentDate.Unix() / day
	return int(appt - sched)
}

func unixDay(r *record.AppointmentRecord) int64 {
	return r.AppointmentDate.Unix() / (24 * 60 * 60)
}

// weekdayMondayZero remaps time.Weekday (Sunday=0) to the Monday=0 indexing
// the model was trained with.
func weekdayMondayZero(w time.Weekday) int {
	return (int(w) + 6) % 7
}
