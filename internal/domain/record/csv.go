package record

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Column names follow the public no-show appointments dataset, including its
// historical misspellings ("Hipertension", "Handcap").
var requiredColumns = []string{
	"PatientId", "AppointmentID", "Gender", "ScheduledDay", "AppointmentDay",
	"Age", "Neighbourhood", "Scholarship", "Hipertension", "Diabetes",
	"Alcoholism", "Handcap", "SMS_received",
}

const noShowColumn = "No-show"

// timestampLayouts are tried in order when parsing ScheduledDay and
// AppointmentDay values.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ReadCSV parses appointment records from CSV input. The header must contain
// every required column; the No-show column is optional (absent on
// prediction-time uploads). A non-positive limit reads all rows.
func ReadCSV(r io.Reader, limit int) ([]AppointmentRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &ValidationError{Field: "header", Reason: "CSV file is empty"}
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Field: "header", Reason: "missing required columns: " + strings.Join(missing, ", ")}
	}
	_, hasOutcome := idx[noShowColumn]

	var records []AppointmentRecord
	row := 0
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row %d: %w", row+1, err)
		}
		row++

		rec, err := parseRow(fields, idx, hasOutcome, row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)

		if limit > 0 && len(records) >= limit {
			break
		}
	}
	return records, nil
}

func parseRow(fields []string, idx map[string]int, hasOutcome bool, row int) (AppointmentRecord, error) {
	get := func(col string) string {
		i := idx[col]
		if i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	age, err := strconv.Atoi(get("Age"))
	if err != nil {
		return AppointmentRecord{}, &ValidationError{Row: row, Field: "Age", Reason: "not an integer: " + get("Age")}
	}
	handicap, err := strconv.Atoi(get("Handcap"))
	if err != nil {
		return AppointmentRecord{}, &ValidationError{Row: row, Field: "Handcap", Reason: "not an integer: " + get("Handcap")}
	}
	scheduled, err := parseTimestamp(get("ScheduledDay"))
	if err != nil {
		return AppointmentRecord{}, &ValidationError{Row: row, Field: "ScheduledDay", Reason: "malformed timestamp: " + get("ScheduledDay")}
	}
	appointment, err := parseTimestamp(get("AppointmentDay"))
	if err != nil {
		return AppointmentRecord{}, &ValidationError{Row: row, Field: "AppointmentDay", Reason: "malformed date: " + get("AppointmentDay")}
	}

	rec := AppointmentRecord{
		PatientID:       get("PatientId"),
		AppointmentID:   get("AppointmentID"),
		Gender:          strings.ToUpper(get("Gender")),
		ScheduledAt:     scheduled,
		AppointmentDate: appointment,
		Age:             age,
		Neighbourhood:   get("Neighbourhood"),
		Scholarship:     parseFlag(get("Scholarship")),
		Hypertension:    parseFlag(get("Hipertension")),
		Diabetes:        parseFlag(get("Diabetes")),
		Alcoholism:      parseFlag(get("Alcoholism")),
		SMSReceived:     parseFlag(get("SMS_received")),
		Handicap:        handicap,
	}
	if hasOutcome {
		switch strings.ToLower(get(noShowColumn)) {
		case "yes", "1", "true":
			rec.Outcome = OutcomeNoShow
		case "no", "0", "false":
			rec.Outcome = OutcomeAttended
		default:
			rec.Outcome = OutcomeUnknown
		}
	}

	if err := rec.Validate(); err != nil {
		if ve, ok := err.(*ValidationError); ok {
			ve.Row = row
		}
		return AppointmentRecord{}, err
	}
	return rec, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseFlag(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}
