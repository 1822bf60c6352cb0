// Package config holds the tunable constants spec.md §6 requires for
// bitwise-compatible reimplementation, as a YAML-tagged struct with a
// Default constructor and a file loader. It follows the same
// "YAML-tagged struct + Default()" settings-file shape used across the
// rest of the retrieval pack's services.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/trailmark/roadtrack"
)

// ObservationCovariancePrior mirrors covariance.ScaledInverseGamma without
// importing the covariance package, avoiding a cycle between config and
// the domain packages it configures.
type ObservationCovariancePrior struct {
	Shape float64 `yaml:"shape"`
	Scale float64 `yaml:"scale"`
}

// Config bundles every numeric constant spec.md §6 names.
type Config struct {
	EdgeLengthErrorTolerance float64                    `yaml:"edge_length_error_tolerance"`
	ZeroTolerance            float64                    `yaml:"zero_tolerance"`
	SvdFloor                 float64                    `yaml:"svd_floor"`
	RoadMeasurementError     [2]float64                 `yaml:"road_measurement_error"`
	InitialObservationPrior  ObservationCovariancePrior `yaml:"initial_observation_covariance_prior"`
	DomainRadiusMultiplier   float64                    `yaml:"domain_radius_multiplier"`
}

// Default returns the exact spec.md §6 constants.
func Default() *Config {
	return &Config{
		EdgeLengthErrorTolerance: 1.0,
		ZeroTolerance:            1e-6,
		SvdFloor:                 1e-7,
		RoadMeasurementError:     [2]float64{50.0, 0.0},
		InitialObservationPrior:  ObservationCovariancePrior{Shape: 2, Scale: 1},
		DomainRadiusMultiplier:   1.98,
	}
}

// Load reads a YAML file at path, starting from Default() and overriding
// only the fields present in the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, roadtrack.Contractf("config.Load", fmt.Errorf("reading %s: %w", path, err))
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, roadtrack.Contractf("config.Load", fmt.Errorf("parsing %s: %w", path, err))
	}
	return cfg, nil
}
