package strategy

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

// RecordSource supplies uploaded data so the preset comparison can
// calibrate its no-show rate on what the clinic actually observed.
type RecordSource interface {
	Latest(ctx context.Context) (*dataset.Dataset, error)
}

// SweepDefaults bound the optimize search for requests that do not set
// their own limits. These come from deployment configuration.
type SweepDefaults struct {
	MaxOverbookingPct int
	StepPct           int
	Weights           Weights
}

// DefaultSweep is the fallback when a deployment configures nothing.
var DefaultSweep = SweepDefaults{MaxOverbookingPct: 30, StepPct: 5, Weights: DefaultWeights}

type Handler struct {
	defaults  simulation.Parameters
	sweep     SweepDefaults
	source    RecordSource
	predictor *prediction.Predictor
}

// NewHandler builds the strategy surface around a baseline clinic
// configuration and configured sweep bounds; the optimize endpoint lets
// requests override both. Zero sweep fields fall back to DefaultSweep.
func NewHandler(defaults simulation.Parameters, sweep SweepDefaults, source RecordSource, predictor *prediction.Predictor) *Handler {
	if sweep.MaxOverbookingPct == 0 {
		sweep.MaxOverbookingPct = DefaultSweep.MaxOverbookingPct
	}
	if sweep.StepPct == 0 {
		sweep.StepPct = DefaultSweep.StepPct
	}
	if sweep.Weights == (Weights{}) {
		sweep.Weights = DefaultSweep.Weights
	}
	return &Handler{defaults: defaults, sweep: sweep, source: source, predictor: predictor}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/optimize", h.Optimize)
	api.GET("/dashboard/overbooking-strategies", h.OverbookingStrategies)
}

// OptimizeRequest configures a sweep. Zero values fall back to the
// handler's baseline and its configured sweep defaults.
type OptimizeRequest struct {
	Doctors              int     `json:"doctors"`
	SlotsPerDay          int     `json:"slots_per_day"`
	AvgAppointmentMin    float64 `json:"average_appointment_minutes"`
	ClinicHours          float64 `json:"clinic_hours"`
	PopulationNoShowRate float64 `json:"population_no_show_rate"`
	Seed                 int64   `json:"seed"`

	MaxOverbookingPct int      `json:"max_overbooking_percentage"`
	StepPct           int      `json:"step_percentage"`
	Weights           *Weights `json:"weights"`

	// UsePredictions scores every candidate against per-patient model
	// probabilities from the latest uploaded dataset instead of the flat
	// population rate.
	UsePredictions bool `json:"use_predictions"`
}

func (h *Handler) Optimize(c echo.Context) error {
	var req OptimizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	base := h.defaults
	if req.Doctors > 0 {
		base.Doctors = req.Doctors
	}
	if req.SlotsPerDay > 0 {
		base.SlotsPerDay = req.SlotsPerDay
	}
	if req.AvgAppointmentMin > 0 {
		base.AvgAppointmentMin = req.AvgAppointmentMin
	}
	if req.ClinicHours > 0 {
		base.ClinicHours = req.ClinicHours
	}
	if req.PopulationNoShowRate > 0 {
		base.PopulationNoShowRate = req.PopulationNoShowRate
	}
	if req.Seed != 0 {
		base.Seed = req.Seed
	}

	maxPct, step := req.MaxOverbookingPct, req.StepPct
	if maxPct == 0 {
		maxPct = h.sweep.MaxOverbookingPct
	}
	if step == 0 {
		step = h.sweep.StepPct
	}
	weights := h.sweep.Weights
	if req.Weights != nil {
		weights = *req.Weights
	}

	var probs []float64
	if req.UsePredictions {
		var err error
		probs, err = simulation.DatasetProbabilities(c.Request().Context(), h.source, h.predictor)
		if err != nil {
			if errors.Is(err, dataset.ErrNoDataset) {
				return echo.NewHTTPError(http.StatusBadRequest,
					"use_predictions requires an uploaded dataset")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	rec, err := Sweep(base, maxPct, step, weights, probs)
	if err != nil {
		if errors.Is(err, simulation.ErrInvalidParameters) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

// OverbookingStrategies compares the named presets against the baseline,
// calibrated to the uploaded data's observed no-show rate. With no data it
// returns an empty list; there is nothing to calibrate against.
func (h *Handler) OverbookingStrategies(c echo.Context) error {
	d, err := h.source.Latest(c.Request().Context())
	if err != nil {
		if errors.Is(err, dataset.ErrNoDataset) {
			return c.JSON(http.StatusOK, []PresetComparison{})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	base := h.defaults
	base.PopulationNoShowRate = observedNoShowRate(d.Records)
	out, err := ComparePresets(base, nil)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, out)
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
