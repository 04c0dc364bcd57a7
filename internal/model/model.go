// Package model fits the small predictive models behind the
// "predict from slider inputs" widgets.
package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"jobmarket-engine/internal/frame"
)

// Model kinds accepted by Fit.
const (
	KindLinear           = "linear"
	KindForestRegressor  = "forest_regressor"
	KindForestClassifier = "forest_classifier"
)

var (
	ErrEmptyTraining = errors.New("training set is empty")
	ErrFeatureWidth  = errors.New("feature vector has the wrong width")
	ErrNonFinite     = errors.New("feature value is not finite")
	ErrUnknownKind   = errors.New("unknown model kind")
	// ErrSingular means the training rows cannot determine a linear fit.
	ErrSingular = errors.New("training data is singular")
)

// Dataset is a dense training table.
// Y holds the regression target; Labels the classification target.
type Dataset struct {
	Features []string
	X        [][]float64
	Y        []float64
	Labels   []string
}

func (d Dataset) Len() int { return len(d.X) }

// FromView extracts features and target from a view. Rows with a missing
// feature or target are skipped. When classify is true the target is read
// as a dimension, otherwise as a measure.
func FromView(view frame.View, features []string, target string, classify bool) Dataset {
	d := Dataset{Features: append([]string(nil), features...)}
	for i := 0; i < view.Len(); i++ {
		x := make([]float64, len(features))
		ok := true
		for j, f := range features {
			x[j] = view.Measure(i, f)
			if math.IsNaN(x[j]) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		if classify {
			lbl := view.Dimension(i, target)
			if lbl == "" {
				continue
			}
			d.Labels = append(d.Labels, lbl)
		} else {
			y := view.Measure(i, target)
			if math.IsNaN(y) {
				continue
			}
			d.Y = append(d.Y, y)
		}
		d.X = append(d.X, x)
	}
	return d
}

// Prediction is the output of one Predict call: a scalar for regressors,
// a label for classifiers.
type Prediction struct {
	Kind  string  `json:"kind"`
	Value float64 `json:"value,omitempty"`
	Label string  `json:"label,omitempty"`
}

// Text formats the prediction for display.
func (p Prediction) Text() string {
	if p.Label != "" {
		return p.Label
	}
	return strconv.FormatFloat(p.Value, 'f', 2, 64)
}

// Predictor is a fitted model.
type Predictor interface {
	Kind() string
	Features() []string
	Predict(x []float64) (Prediction, error)
}

// Params tunes forest models; linear regression ignores it.
type Params struct {
	Trees       int
	MaxDepth    int
	MinLeaf     int
	MaxFeatures int
	Seed        uint64
}

func (p Params) withDefaults(nFeatures int) Params {
	if p.Trees <= 0 {
		p.Trees = 50
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = 8
	}
	if p.MinLeaf <= 0 {
		p.MinLeaf = 2
	}
	if p.MaxFeatures <= 0 || p.MaxFeatures > nFeatures {
		p.MaxFeatures = nFeatures
	}
	return p
}

// Fit trains a model of the given kind.
func Fit(kind string, d Dataset, p Params) (Predictor, error) {
	switch kind {
	case KindLinear:
		return FitLinear(d)
	case KindForestRegressor:
		return FitForestRegressor(d, p)
	case KindForestClassifier:
		return FitForestClassifier(d, p)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

func checkInput(features []string, x []float64) error {
	if len(x) != len(features) {
		return fmt.Errorf("%w: got %d, want %d (%v)", ErrFeatureWidth, len(x), len(features), features)
	}
	for i, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s", ErrNonFinite, features[i])
		}
	}
	return nil
}

func checkTraining(d Dataset, targets int) error {
	if d.Len() == 0 {
		return ErrEmptyTraining
	}
	if targets != d.Len() {
		return fmt.Errorf("target has %d rows, features %d", targets, d.Len())
	}
	for i, x := range d.X {
		if len(x) != len(d.Features) {
			return fmt.Errorf("%w: row %d", ErrFeatureWidth, i)
		}
	}
	return nil
}
