package orchestrator

import (
	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/solver"
)

// Default configuration values.
const (
	DefaultSimpleThreshold  = 0.3
	DefaultComplexThreshold = 0.6
	DefaultMaxAttempts      = 3
)

// Config holds the primary-selection thresholds and the attempt budget.
type Config struct {
	// SimpleThreshold: complexity below it selects the heuristic.
	SimpleThreshold float64 `json:"simple_threshold" toml:"simple_threshold" yaml:"simple_threshold"`
	// ComplexThreshold: complexity at or above it selects the hybrid.
	ComplexThreshold float64 `json:"complex_threshold" toml:"complex_threshold" yaml:"complex_threshold"`
	// MaxAttempts bounds the non-terminal attempts per run. The terminal
	// fallback is always attempted.
	MaxAttempts int `json:"max_attempts" toml:"max_attempts" yaml:"max_attempts"`
	// Disabled back-ends are treated as unavailable.
	Disabled []solver.Kind `json:"disabled,omitempty" toml:"disabled" yaml:"disabled,omitempty"`
}

// DefaultConfig returns thresholds 0.3 and 0.6 and a budget of 3.
func DefaultConfig() Config {
	return Config{
		SimpleThreshold:  DefaultSimpleThreshold,
		ComplexThreshold: DefaultComplexThreshold,
		MaxAttempts:      DefaultMaxAttempts,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.SimpleThreshold == 0 {
		c.SimpleThreshold = d.SimpleThreshold
	}
	if c.ComplexThreshold == 0 {
		c.ComplexThreshold = d.ComplexThreshold
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	return c
}

// Validate checks that 0 < simple < complex <= 1, that the budget is
// positive and that disabled kinds exist.
func (c Config) Validate() error {
	if c.SimpleThreshold <= 0 || c.SimpleThreshold >= c.ComplexThreshold || c.ComplexThreshold > 1 {
		return errors.New(errors.ErrCodeInvalidConfig,
			"thresholds must satisfy 0 < simple < complex <= 1 (got %.2f, %.2f)",
			c.SimpleThreshold, c.ComplexThreshold)
	}
	if c.MaxAttempts < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "max_attempts must be at least 1 (got %d)", c.MaxAttempts)
	}
	for _, k := range c.Disabled {
		if !k.Valid() {
			return errors.New(errors.ErrCodeInvalidConfig, "unknown solver back-end %q", k)
		}
	}
	return nil
}
