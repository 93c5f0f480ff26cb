package features

import (
	"reflect"
	"testing"
	"time"

	"github.com/clinicpulse/clinicpulse/internal/domain/record"
)

func mustDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func appt(patient, id, scheduled, date string, outcome record.Outcome) record.AppointmentRecord {
	sched, err := time.Parse(time.RFC3339, scheduled)
	if err != nil {
		panic(err)
	}
	return record.AppointmentRecord{
		PatientID:       patient,
		AppointmentID:   id,
		Gender:          "F",
		ScheduledAt:     sched,
		AppointmentDate: mustDate(date),
		Age:             40,
		Neighbourhood:   "CENTRO",
		Outcome:         outcome,
	}
}

func TestDeriveFirstAppointmentDefaults(t *testing.T) {
	vectors, err := Derive([]record.AppointmentRecord{
		appt("p1", "a1", "2016-04-01T09:30:00Z", "2016-04-05", record.OutcomeAttended),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v := vectors[0]
	if v.PastNoShowRate != 0 {
		t.Fatalf("expected zero past no-show rate, got %f", v.PastNoShowRate)
	}
	if v.TotalAppointments != 0 {
		t.Fatalf("expected zero prior appointments, got %d", v.TotalAppointments)
	}
	if v.MissedBefore {
		t.Fatalf("expected missed_before false")
	}
	if v.DaysSinceLast != NoPriorAppointment {
		t.Fatalf("expected sentinel %d, got %d", NoPriorAppointment, v.DaysSinceLast)
	}
	if v.WaitDays != 4 {
		t.Fatalf("expected 4 wait days, got %d", v.WaitDays)
	}
	if v.ScheduledHour != 9 {
		t.Fatalf("expected scheduled hour 9, got %d", v.ScheduledHour)
	}
}

func TestDeriveBehavioralAggregates(t *testing.T) {
	records := []record.AppointmentRecord{
		appt("p1", "a1", "2016-04-01T09:00:00Z", "2016-04-02", record.OutcomeNoShow),
		appt("p1", "a2", "2016-04-10T09:00:00Z", "2016-04-12", record.OutcomeAttended),
		appt("p1", "a3", "2016-04-20T09:00:00Z", "2016-04-22", record.OutcomeNoShow),
	}
	vectors, err := Derive(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := vectors[1]
	if second.PastNoShowRate != 1.0 {
		t.Fatalf("expected rate 1.0 after one no-show, got %f", second.PastNoShowRate)
	}
	if second.TotalAppointments != 1 {
		t.Fatalf("expected 1 prior appointment, got %d", second.TotalAppointments)
	}
	if !second.MissedBefore {
		t.Fatalf("expected missed_before true")
	}
	if second.DaysSinceLast != 10 {
		t.Fatalf("expected 10 days since last, got %d", second.DaysSinceLast)
	}

	third := vectors[2]
	if third.PastNoShowRate != 0.5 {
		t.Fatalf("expected rate 0.5, got %f", third.PastNoShowRate)
	}
	if third.TotalAppointments != 2 {
		t.Fatalf("expected 2 prior appointments, got %d", third.TotalAppointments)
	}
	if third.DaysSinceLast != 10 {
		t.Fatalf("expected 10 days since last, got %d", third.DaysSinceLast)
	}
}

// Aggregates at appointment N depend only on appointments strictly earlier
// than N: mutating a later appointment's outcome must leave N unchanged.
func TestDeriveNoLookAheadLeakage(t *testing.T) {
	base := []record.AppointmentRecord{
		appt("p1", "a1", "2016-04-01T09:00:00Z", "2016-04-02", record.OutcomeAttended),
		appt("p1", "a2", "2016-04-10T09:00:00Z", "2016-04-11", record.OutcomeAttended),
		appt("p1", "a3", "2016-04-20T09:00:00Z", "2016-04-21", record.OutcomeAttended),
	}
	flipped := make([]record.AppointmentRecord, len(base))
	copy(flipped, base)
	flipped[2].Outcome = record.OutcomeNoShow

	baseVectors, err := Derive(base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	flippedVectors, err := Derive(flipped)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if baseVectors[i].PastNoShowRate != flippedVectors[i].PastNoShowRate ||
			baseVectors[i].TotalAppointments != flippedVectors[i].TotalAppointments ||
			baseVectors[i].MissedBefore != flippedVectors[i].MissedBefore {
			t.Fatalf("aggregates at %d changed when a later outcome changed", i)
		}
	}
}

// Shuffling the input must not change any vector; each vector stays attached
// to its input position.
func TestDeriveOrderIndependence(t *testing.T) {
	records := []record.AppointmentRecord{
		appt("p1", "a1", "2016-04-01T09:00:00Z", "2016-04-02", record.OutcomeNoShow),
		appt("p2", "b1", "2016-04-02T10:00:00Z", "2016-04-03", record.OutcomeAttended),
		appt("p1", "a2", "2016-04-10T09:00:00Z", "2016-04-12", record.OutcomeAttended),
		appt("p2", "b2", "2016-04-12T10:00:00Z", "2016-04-14", record.OutcomeNoShow),
	}
	shuffled := []record.AppointmentRecord{records[3], records[0], records[2], records[1]}

	direct, err := Derive(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reordered, err := Derive(shuffled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	byID := func(vs []FeatureVector) map[string]FeatureVector {
		m := make(map[string]FeatureVector, len(vs))
		for _, v := range vs {
			m[v.AppointmentID] = v
		}
		return m
	}
	if !reflect.DeepEqual(byID(direct), byID(reordered)) {
		t.Fatalf("derivation is input-order dependent")
	}
}

func TestDeriveUnknownOutcomeDoesNotEnterHistory(t *testing.T) {
	records := []record.AppointmentRecord{
		appt("p1", "a1", "2016-04-01T09:00:00Z", "2016-04-02", record.OutcomeUnknown),
		appt("p1", "a2", "2016-04-10T09:00:00Z", "2016-04-12", record.OutcomeAttended),
	}
	vectors, err := Derive(records)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vectors[1].TotalAppointments != 0 {
		t.Fatalf("unknown outcome leaked into history: %+v", vectors[1])
	}
	if vectors[1].DaysSinceLast != NoPriorAppointment {
		t.Fatalf("unknown outcome set last-appointment date: %+v", vectors[1])
	}
}

func TestDeriveRejectsInvalidRecord(t *testing.T) {
	bad := appt("p1", "a1", "2016-04-01T09:00:00Z", "2016-04-02", record.OutcomeAttended)
	bad.Age = -3
	if _, err := Derive([]record.AppointmentRecord{bad}); err == nil {
		t.Fatalf("expected error for negative age")
	}
}

func TestDeriveEmptyInput(t *testing.T) {
	vectors, err := Derive(nil)
	if err != nil {
		t.Fatalf("empty input must not error: %v", err)
	}
	if len(vectors) != 0 {
		t.Fatalf("expected empty result, got %d", len(vectors))
	}
}

func TestValuesOneHotEncoding(t *testing.T) {
	v := FeatureVector{Gender: "M", Neighbourhood: "CENTRO", Age: 30}
	m := v.Values()
	if m["gender=M"] != 1 {
		t.Fatalf("expected gender one-hot, got %v", m)
	}
	if m["neighbourhood=CENTRO"] != 1 {
		t.Fatalf("expected neighbourhood one-hot, got %v", m)
	}
	if _, ok := m["gender=F"]; ok {
		t.Fatalf("unexpected gender=F key")
	}
}
