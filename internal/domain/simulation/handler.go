package simulation

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/clinicpulse/clinicpulse/internal/domain/dataset"
	"github.com/clinicpulse/clinicpulse/internal/domain/prediction"
)

// RecordSource supplies the uploaded data when a run calibrates itself on
// per-patient model probabilities instead of the flat population rate.
type RecordSource interface {
	Latest(ctx context.Context) (*dataset.Dataset, error)
}

type Handler struct {
	source    RecordSource
	predictor *prediction.Predictor
}

func NewHandler(source RecordSource, predictor *prediction.Predictor) *Handler {
	return &Handler{source: source, predictor: predictor}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/simulation/run", h.Run)
}

// RunRequest is the simulation endpoint's body. Pointer fields distinguish
// absent parameters from legitimate zero values, so the missing-parameter
// response can name exactly what was left out.
type RunRequest struct {
	Date                     string   `json:"date"`
	Doctors                  *int     `json:"doctors"`
	SlotsPerDay              *int     `json:"slots_per_day"`
	OverbookingPct           *float64 `json:"overbooking_percentage"`
	AvgAppointmentMin        *float64 `json:"average_appointment_minutes"`
	ClinicHours              *float64 `json:"clinic_hours"`
	PopulationNoShowRate     float64  `json:"population_no_show_rate"`
	OverflowWaitToleranceMin float64  `json:"overflow_wait_tolerance_minutes"`
	Seed                     int64    `json:"seed"`

	// UsePredictions draws each patient's no-show chance from the model's
	// score over the latest uploaded dataset rather than the flat
	// population rate.
	UsePredictions bool `json:"use_predictions"`
}

func (r *RunRequest) missing() []string {
	var out []string
	if r.Date == "" {
		out = append(out, "date")
	}
	if r.Doctors == nil {
		out = append(out, "doctors")
	}
	if r.SlotsPerDay == nil {
		out = append(out, "slots_per_day")
	}
	if r.OverbookingPct == nil {
		out = append(out, "overbooking_percentage")
	}
	if r.AvgAppointmentMin == nil {
		out = append(out, "average_appointment_minutes")
	}
	if r.ClinicHours == nil {
		out = append(out, "clinic_hours")
	}
	return out
}

func (r *RunRequest) parameters() Parameters {
	return Parameters{
		Doctors:                  *r.Doctors,
		SlotsPerDay:              *r.SlotsPerDay,
		OverbookingPct:           *r.OverbookingPct,
		AvgAppointmentMin:        *r.AvgAppointmentMin,
		ClinicHours:              *r.ClinicHours,
		PopulationNoShowRate:     r.PopulationNoShowRate,
		OverflowWaitToleranceMin: r.OverflowWaitToleranceMin,
		Seed:                     r.Seed,
	}
}

func (h *Handler) Run(c echo.Context) error {
	var req RunRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if missing := req.missing(); len(missing) > 0 {
		return echo.NewHTTPError(http.StatusBadRequest,
			"Missing required parameters: "+strings.Join(missing, ", "))
	}

	var probs []float64
	if req.UsePredictions {
		var err error
		probs, err = DatasetProbabilities(c.Request().Context(), h.source, h.predictor)
		if err != nil {
			if errors.Is(err, dataset.ErrNoDataset) {
				return echo.NewHTTPError(http.StatusBadRequest,
					"use_predictions requires an uploaded dataset")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	res, err := Run(req.parameters(), probs)
	if err != nil {
		if errors.Is(err, ErrInvalidParameters) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

// DatasetProbabilities scores the latest uploaded dataset and returns one
// no-show probability per record, in record order. Errors pass through
// unwrapped so callers can map dataset.ErrNoDataset and
// prediction.ErrModelUnavailable to their own responses.
func DatasetProbabilities(ctx context.Context, source RecordSource, predictor *prediction.Predictor) ([]float64, error) {
	d, err := source.Latest(ctx)
	if err != nil {
		return nil, err
	}
	preds, err := predictor.PredictRecords(d.Records)
	if err != nil {
		return nil, err
	}
	probs := make([]float64, len(preds))
	for i := range preds {
		probs[i] = preds[i].NoShowProbability
	}
	return probs, nil
}
