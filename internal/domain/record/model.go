package record

import (
	"fmt"
	"time"
)

// Outcome is the ground-truth attendance result of an appointment. It is
// only present on historical rows; prediction-time rows carry OutcomeUnknown.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeAttended
	OutcomeNoShow
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAttended:
		return "attended"
	case OutcomeNoShow:
		return "no-show"
	default:
		return "unknown"
	}
}

// AppointmentRecord is one row of raw input: the identity, demographics, and
// scheduling facts of a single booked appointment. Immutable once ingested.
type AppointmentRecord struct {
	PatientID       string    `json:"patient_id"`
	AppointmentID   string    `json:"appointment_id"`
	Gender          string    `json:"gender"` // "F" or "M"
	ScheduledAt     time.Time `json:"scheduled_at"`
	AppointmentDate time.Time `json:"appointment_date"`
	Age             int       `json:"age"`
	Neighbourhood   string    `json:"neighbourhood"`
	Scholarship     bool      `json:"scholarship"`
	Hypertension    bool      `json:"hypertension"`
	Diabetes        bool      `json:"diabetes"`
	Alcoholism      bool      `json:"alcoholism"`
	SMSReceived     bool      `json:"sms_received"`
	Handicap        int       `json:"handicap"` // 0-4
	Outcome         Outcome   `json:"outcome"`
}

// NoShow reports whether the record is a confirmed no-show.
func (r *AppointmentRecord) NoShow() bool { return r.Outcome == OutcomeNoShow }

// ValidationError describes a malformed or out-of-range input value. Rows
// that fail validation are rejected before any derived state is built.
type ValidationError struct {
	Row    int // 1-based data row number, 0 when not row-scoped
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: invalid %s: %s", e.Row, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the in-range invariants a record must satisfy before it is
// allowed into feature derivation.
func (r *AppointmentRecord) Validate() error {
	if r.PatientID == "" {
		return &ValidationError{Field: "PatientId", Reason: "must not be empty"}
	}
	if r.Age < 0 {
		return &ValidationError{Field: "Age", Reason: fmt.Sprintf("must be >= 0, got %d", r.Age)}
	}
	if r.Handicap < 0 || r.Handicap > 4 {
		return &ValidationError{Field: "Handcap", Reason: fmt.Sprintf("must be in 0..4, got %d", r.Handicap)}
	}
	if r.ScheduledAt.IsZero() {
		return &ValidationError{Field: "ScheduledDay", Reason: "missing or malformed timestamp"}
	}
	if r.AppointmentDate.IsZero() {
		return &ValidationError{Field: "AppointmentDay", Reason: "missing or malformed date"}
	}
	return nil
}
