package prediction

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicpulse/clinicpulse/internal/domain/dataset"
	"github.com/clinicpulse/clinicpulse/internal/domain/record"
)

// RecordSource supplies the records to score when a request carries none.
// dataset.Service satisfies it.
type RecordSource interface {
	Latest(ctx context.Context) (*dataset.Dataset, error)
}

type Handler struct {
	predictor *Predictor
	source    RecordSource
}

func NewHandler(predictor *Predictor, source RecordSource) *Handler {
	return &Handler{predictor: predictor, source: source}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/predictions", h.Predict)
}

// PatientPrediction is one scored row in the dashboard's shape: the raw
// record joined with its risk fields.
type PatientPrediction struct {
	record.AppointmentRecord
	NoShowProbability float64 `json:"no_show_probability"`
	RiskLevel         string  `json:"risk_level"`
	PreviousNoShows   int     `json:"previous_no_shows"`
}

// Predict scores either the records posted in the request body (a JSON
// array) or, when the body is empty, the latest uploaded dataset.
func (h *Handler) Predict(c echo.Context) error {
	var records []record.AppointmentRecord
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&records); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}
	if len(records) == 0 {
		d, err := h.source.Latest(c.Request().Context())
		if err != nil {
			if errors.Is(err, dataset.ErrNoDataset) {
				return echo.NewHTTPError(http.StatusBadRequest, "No patient data provided. Please upload a CSV file first.")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		records = d.Records
	}

	preds, err := h.predictor.PredictRecords(records)
	if err != nil {
		var verr *record.ValidationError
		switch {
		case errors.As(err, &verr):
			return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
		case errors.Is(err, ErrModelUnavailable):
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	out := make([]PatientPrediction, len(preds))
	for i, p := range preds {
		out[i] = PatientPrediction{
			AppointmentRecord: records[i],
			NoShowProbability: p.NoShowProbability,
			RiskLevel:         p.RiskLevel,
			PreviousNoShows:   p.PreviousNoShows,
		}
	}
	return c.JSON(http.StatusOK, out)
}
