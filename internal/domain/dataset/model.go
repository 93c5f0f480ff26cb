// Package dataset stores uploaded appointment data for the lifetime of a
// server instance. A dataset is immutable once saved; re-uploading creates
// a new one, and the newest upload is what the dashboard reads.
package dataset

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicpulse/clinicpulse/internal/domain/record"
)

// ErrNoDataset is returned when no upload exists yet. Handlers translate it
// to a "please upload first" response.
var ErrNoDataset = errors.New("no dataset uploaded")

// Dataset is one uploaded batch of appointment records.
type Dataset struct {
	ID         uuid.UUID                  `json:"id"`
	UploadedAt time.Time                  `json:"uploaded_at"`
	Records    []record.AppointmentRecord `json:"records"`
}
