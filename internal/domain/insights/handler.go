package insights

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicpulse/clinicpulse/internal/domain/dataset"
	"github.com/clinicpulse/clinicpulse/internal/domain/prediction"
	"github.com/clinicpulse/clinicpulse/internal/domain/record"
	"github.com/clinicpulse/clinicpulse/internal/domain/simulation"
)

// RecordSource supplies the uploaded data the dashboard reduces over.
type RecordSource interface {
	Latest(ctx context.Context) (*dataset.Dataset, error)
}

type Handler struct {
	source    RecordSource
	predictor *prediction.Predictor
	defaults  simulation.Parameters
}

// NewHandler wires the dashboard surface. The predictor contributes the
// high-risk count; the baseline parameters drive the simulated metrics.
func NewHandler(source RecordSource, predictor *prediction.Predictor, defaults simulation.Parameters) *Handler {
	return &Handler{source: source, predictor: predictor, defaults: defaults}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard/metrics", h.Metrics)
	api.GET("/dashboard/weekly-performance", h.WeeklyPerformance)
	api.GET("/dashboard/insights", h.Insights)
}

// Metrics reports the headline block. Without data every field is zero.
// With data, wait/utilization/satisfaction come from a real simulation of
// the baseline clinic at the dataset's observed no-show rate.
func (h *Handler) Metrics(c echo.Context) error {
	d, err := h.source.Latest(c.Request().Context())
	if err != nil {
		if errors.Is(err, dataset.ErrNoDataset) {
			return c.JSON(http.StatusOK, Metrics{})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// The model is optional for this view: without it the dashboard still
	// shows counts and rates, just a zero high-risk figure.
	preds, err := h.predictor.PredictRecords(d.Records)
	if err != nil {
		preds = nil
	}

	params := h.defaults
	params.PopulationNoShowRate = observedNoShowRate(d.Records)
	sim, err := simulation.Run(params, nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, ComputeMetrics(d.Records, preds, sim))
}

func (h *Handler) WeeklyPerformance(c echo.Context) error {
	d, err := h.source.Latest(c.Request().Context())
	if err != nil {
		if errors.Is(err, dataset.ErrNoDataset) {
			return c.JSON(http.StatusOK, WeeklyPerformance(nil))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, WeeklyPerformance(d.Records))
}

func (h *Handler) Insights(c echo.Context) error {
	d, err := h.source.Latest(c.Request().Context())
	if err != nil {
		if errors.Is(err, dataset.ErrNoDataset) {
			return c.JSON(http.StatusOK, Insights{})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ComputeInsights(d.Records))
}

func observedNoShowRate(records []record.AppointmentRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	noShows := 0
	for i := range records {
		if records[i].Outcome == record.OutcomeNoShow {
			noShows++
		}
	}
	return float64(noShows) / float64(len(records))
}
