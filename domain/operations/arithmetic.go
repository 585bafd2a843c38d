package operations

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"mathops/domain/core/valueobjects"
)

// Names of the built-in operations. They double as API path segments.
const (
	Addition       = "addition"
	Subtraction    = "subtraction"
	Multiplication = "multiplication"
	Division       = "division"
	SquareRoot     = "sqrt"
	RandomString   = "random-str"
)

// ValuesParams is the parameter shape shared by the numeric operations.
type ValuesParams struct {
	Values []float64 `json:"values"`
}

func decodeValues(raw json.RawMessage) ([]float64, error) {
	var p ValuesParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, newDomainError(fmt.Sprintf("invalid values: %v", err))
	}
	if len(p.Values) == 0 {
		return nil, ErrEmptyValues
	}
	return p.Values, nil
}

// Fold applies step left to right, seeded with the first value.
func Fold(values []float64, step func(acc, v float64) (float64, error)) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyValues
	}
	acc := values[0]
	for _, v := range values[1:] {
		next, err := step(acc, v)
		if err != nil {
			return 0, err
		}
		acc = next
	}
	if math.IsInf(acc, 0) || math.IsNaN(acc) {
		return 0, ErrResultOutOfRange
	}
	return acc, nil
}

func Add(values []float64) (float64, error) {
	return Fold(values, func(acc, v float64) (float64, error) { return acc + v, nil })
}

func Subtract(values []float64) (float64, error) {
	return Fold(values, func(acc, v float64) (float64, error) { return acc - v, nil })
}

func Multiply(values []float64) (float64, error) {
	return Fold(values, func(acc, v float64) (float64, error) { return acc * v, nil })
}

// Divide rejects a zero divisor anywhere after the first value.
func Divide(values []float64) (float64, error) {
	return Fold(values, func(acc, v float64) (float64, error) {
		if v == 0 {
			return 0, ErrDivisionByZero
		}
		return acc / v, nil
	})
}

// Sqrt uses only the first value.
func Sqrt(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmptyValues
	}
	if values[0] < 0 {
		return 0, ErrNegativeSqrt
	}
	return math.Sqrt(values[0]), nil
}

func numeric(fn func([]float64) (float64, error)) Func {
	return func(_ context.Context, raw json.RawMessage) (valueobjects.Result, error) {
		values, err := decodeValues(raw)
		if err != nil {
			return valueobjects.Result{}, err
		}
		n, err := fn(values)
		if err != nil {
			return valueobjects.Result{}, err
		}
		return valueobjects.NumberResult(n), nil
	}
}
