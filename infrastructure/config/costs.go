package config

import (
	"fmt"
	"os"

	"mathops/domain/core/valueobjects"
	"mathops/domain/operations"

	"gopkg.in/yaml.v3"
)

// DefaultCosts prices every built-in operation when no costs file is given.
func DefaultCosts() operations.StaticCosts {
	one := valueobjects.NewCredits(1)
	return operations.StaticCosts{
		operations.Addition:       one,
		operations.Subtraction:    one,
		operations.Multiplication: one,
		operations.Division:       one,
		operations.SquareRoot:     one,
		operations.RandomString:   valueobjects.NewCredits(2),
	}
}

type costsFile struct {
	Costs map[string]interface{} `yaml:"costs"`
}

// LoadCosts reads a YAML price table:
//
//	costs:
//	  addition: 1
//	  random-str: 2.5
func LoadCosts(path string) (operations.StaticCosts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read costs file: %w", err)
	}
	return ParseCosts(data)
}

// ParseCosts decodes a YAML price table. Negative prices are rejected.
func ParseCosts(data []byte) (operations.StaticCosts, error) {
	var f costsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse costs file: %w", err)
	}
	if len(f.Costs) == 0 {
		return nil, fmt.Errorf("costs file defines no operations")
	}

	costs := make(operations.StaticCosts, len(f.Costs))
	for name, raw := range f.Costs {
		cost, err := valueobjects.ParseCredits(fmt.Sprint(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid cost for %s: %w", name, err)
		}
		if cost.IsNegative() {
			return nil, fmt.Errorf("cost for %s cannot be negative", name)
		}
		costs[name] = cost
	}
	return costs, nil
}

// ResolveCosts returns the file's prices, or the defaults when path is empty.
func (c *Config) ResolveCosts() (operations.StaticCosts, error) {
	if c.OperationCostsFile == "" {
		return DefaultCosts(), nil
	}
	return LoadCosts(c.OperationCostsFile)
}
