package simconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StrategyConfig parameterizes a single Strategy run, loaded from a YAML
// file. Fields not present in the file take their documented default.
type StrategyConfig struct {
	// Strategy names the registered Strategy to run: COORDINATED, LRU,
	// HYBRID, MFU, or SDF.
	Strategy string `yaml:"strategy"`

	// ReplacementInterval is the simulated-time period between VM
	// replacement passes. Default 10.
	ReplacementInterval float64 `yaml:"replacement_interval"`

	// Debug enables per-event trace logging at Debug level.
	Debug bool `yaml:"debug"`

	// P is LRU's probabilistic eviction rate, used when a non-resident
	// service's deadline isn't tight enough to force eviction
	// deterministically. Default 0.5. Ignored by every other strategy.
	P float64 `yaml:"p"`

	// NReplacements bounds the number of VM reassignments a single
	// replacement pass performs for HYBRID, MFU, and SDF. Default 1.
	// Ignored by COORDINATED and LRU.
	NReplacements int `yaml:"n_replacements"`
}

const (
	defaultReplacementInterval = 10.0
	defaultP                   = 0.5
	defaultNReplacements       = 1
)

// Default returns a StrategyConfig with every field set to its documented
// default, running the named strategy.
func Default(strategy string) StrategyConfig {
	return StrategyConfig{
		Strategy:            strategy,
		ReplacementInterval: defaultReplacementInterval,
		P:                   defaultP,
		NReplacements:       defaultNReplacements,
	}
}

// Load reads and parses a StrategyConfig from a YAML file, filling in
// defaults for any field the file omits.
func Load(path string) (StrategyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StrategyConfig{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse parses a StrategyConfig from raw YAML bytes, filling in defaults
// for any field the document omits.
func Parse(data []byte) (StrategyConfig, error) {
	cfg := StrategyConfig{
		ReplacementInterval: defaultReplacementInterval,
		P:                   defaultP,
		NReplacements:       defaultNReplacements,
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return StrategyConfig{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Strategy == "" {
		return StrategyConfig{}, fmt.Errorf("config missing required field: strategy")
	}
	return cfg, nil
}
