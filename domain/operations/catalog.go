package operations

import (
	"context"
	"encoding/json"
	"fmt"

	"mathops/domain/core/valueobjects"
)

// Func computes an operation result from its raw JSON parameters.
type Func func(ctx context.Context, params json.RawMessage) (valueobjects.Result, error)

// Definition is what Lookup hands back to the executor.
type Definition struct {
	Name string
	Cost valueobjects.Credits
	Fn   Func
}

// CostProvider resolves the configured price of an operation. It returns
// ErrUnknownOperation when no cost is configured for name.
type CostProvider interface {
	Cost(ctx context.Context, name string) (valueobjects.Credits, error)
}

// Catalog maps operation names to their functions and prices. The function
// set is fixed at construction; prices come from deployment configuration.
type Catalog struct {
	funcs map[string]Func
	costs CostProvider
}

// NewCatalog registers the built-in operations. gen backs random-str.
func NewCatalog(costs CostProvider, gen StringGenerator) *Catalog {
	c := &Catalog{
		funcs: map[string]Func{
			Addition:       numeric(Add),
			Subtraction:    numeric(Subtract),
			Multiplication: numeric(Multiply),
			Division:       numeric(Divide),
			SquareRoot:     numeric(Sqrt),
		},
		costs: costs,
	}
	if gen != nil {
		c.funcs[RandomString] = randomStrings(gen)
	}
	return c
}

// Lookup returns the definition for name, or ErrUnknownOperation.
func (c *Catalog) Lookup(ctx context.Context, name string) (Definition, error) {
	fn, ok := c.funcs[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	cost, err := c.costs.Cost(ctx, name)
	if err != nil {
		return Definition{}, err
	}
	if cost.IsNegative() {
		return Definition{}, fmt.Errorf("operation %s has a negative cost", name)
	}
	return Definition{Name: name, Cost: cost, Fn: fn}, nil
}

// StaticCosts is a fixed price table.
type StaticCosts map[string]valueobjects.Credits

func (s StaticCosts) Cost(_ context.Context, name string) (valueobjects.Credits, error) {
	cost, ok := s[name]
	if !ok {
		return valueobjects.Credits{}, fmt.Errorf("%w: no cost configured for %s", ErrUnknownOperation, name)
	}
	return cost, nil
}
