// Package prediction wraps the pretrained no-show classifier behind a small
// deterministic interface. The model artifact is an opaque, swappable
// capability: anything that maps a feature vector to a probability in [0,1]
// without raising on well-formed input satisfies it.
package prediction

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/clinicpulse/clinicpulse/internal/domain/features"
)

// ErrModelUnavailable signals that the model artifact could not be loaded or
// is incompatible. It is distinct from any prediction-domain error: callers
// seeing it know predictions (not simulation) are degraded.
var ErrModelUnavailable = errors.New("prediction model unavailable")

// Model scores a single feature vector. Implementations must be
// deterministic for a fixed artifact version and must never fail on a
// well-formed vector.
type Model interface {
	Predict(v *features.FeatureVector) (float64, error)
	Version() string
}

// artifact is the on-disk JSON model format: a logistic regression exported
// from the training pipeline with optional feature standardization.
type artifact struct {
	Version   string             `json:"version"`
	Intercept float64            `json:"intercept"`
	Weights   map[string]float64 `json:"weights"`
	Means     map[string]float64 `json:"means,omitempty"`
	Stds      map[string]float64 `json:"stds,omitempty"`
}

// coefficient is one frozen model weight. Weights are summed in a fixed
// order so the same vector always produces the same float64, bit for bit;
// iterating the artifact map directly would make the sum order, and with it
// the low bits of the score, vary between calls.
type coefficient struct {
	name   string
	weight float64
}

// LogisticModel is a Model backed by a JSON coefficient artifact. Loading is
// lazy: the artifact is read on first use so a server can start without a
// trained model and report ErrModelUnavailable only when predictions are
// requested.
type LogisticModel struct {
	path string

	once    sync.Once
	art     *artifact
	coeffs  []coefficient
	loadErr error
}

// NewLogisticModel creates a model that will load its artifact from path on
// first use.
func NewLogisticModel(path string) *LogisticModel {
	return &LogisticModel{path: path}
}

func (m *LogisticModel) load() {
	data, err := os.ReadFile(m.path)
	if err != nil {
		m.loadErr = fmt.Errorf("%w: read artifact %s: %v", ErrModelUnavailable, m.path, err)
		return
	}
	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		m.loadErr = fmt.Errorf("%w: decode artifact %s: %v", ErrModelUnavailable, m.path, err)
		return
	}
	if len(art.Weights) == 0 {
		m.loadErr = fmt.Errorf("%w: artifact %s has no weights (retrain and re-export the model)", ErrModelUnavailable, m.path)
		return
	}
	m.art = &art
	m.coeffs = make([]coefficient, 0, len(art.Weights))
	for name, w := range art.Weights {
		m.coeffs = append(m.coeffs, coefficient{name: name, weight: w})
	}
	sort.Slice(m.coeffs, func(i, j int) bool { return m.coeffs[i].name < m.coeffs[j].name })
}

// Version returns the artifact version, or "" when the artifact is not
// loadable.
func (m *LogisticModel) Version() string {
	m.once.Do(m.load)
	if m.art == nil {
		return ""
	}
	return m.art.Version
}

// Predict returns the no-show probability for one feature vector.
func (m *LogisticModel) Predict(v *features.FeatureVector) (float64, error) {
	m.once.Do(m.load)
	if m.loadErr != nil {
		return 0, m.loadErr
	}

	z := m.art.Intercept
	values := v.Values()
	for _, c := range m.coeffs {
		x := values[c.name]
		if std, ok := m.art.Stds[c.name]; ok && std != 0 {
			x = (x - m.art.Means[c.name]) / std
		}
		z += c.weight * x
	}
	return sigmoid(z), nil
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
