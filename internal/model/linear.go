package model

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Linear is an ordinary least squares fit with intercept.
type Linear struct {
	features  []string
	Intercept float64
	Coef      []float64
}

// FitLinear solves min ||Xb - y|| with a leading intercept column.
func FitLinear(d Dataset) (*Linear, error) {
	if err := checkTraining(d, len(d.Y)); err != nil {
		return nil, err
	}
	n, p := d.Len(), len(d.Features)

	data := make([]float64, 0, n*(p+1))
	for _, x := range d.X {
		data = append(data, 1)
		data = append(data, x...)
	}
	X := mat.NewDense(n, p+1, data)
	y := mat.NewDense(n, 1, append([]float64(nil), d.Y...))

	var beta mat.Dense
	if err := beta.Solve(X, y); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return nil, fmt.Errorf("%w: condition number %.4g; a feature may be constant in the training rows", ErrSingular, float64(cond))
		}
		return nil, fmt.Errorf("least squares: %w", err)
	}

	out := &Linear{features: append([]string(nil), d.Features...), Intercept: beta.At(0, 0), Coef: make([]float64, p)}
	for j := 0; j < p; j++ {
		out.Coef[j] = beta.At(j+1, 0)
	}
	return out, nil
}

func (l *Linear) Kind() string       { return KindLinear }
func (l *Linear) Features() []string { return l.features }

func (l *Linear) Predict(x []float64) (Prediction, error) {
	if err := checkInput(l.features, x); err != nil {
		return Prediction{}, err
	}
	v := l.Intercept
	for j, c := range l.Coef {
		v += c * x[j]
	}
	return Prediction{Kind: KindLinear, Value: v}, nil
}
