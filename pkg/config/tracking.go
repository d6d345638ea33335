// Package config loads the tracking configuration: which onboarding cases are
// under workflow control and how the dashboard reconciles them.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/priyatiwari-ai/emp-onboarding-application-version/pkg/workflow"
)

// TrackingConfig is the structure of the tracking YAML file.
type TrackingConfig struct {
	Entities    []workflow.Entity `yaml:"entities"     validate:"required,min=1,dive"`
	Debounce    time.Duration     `yaml:"debounce"     validate:"gte=0"`
	RenderLimit int               `yaml:"render_limit" validate:"gte=0,lte=500"`
}

// Default reproduces the two tracked candidates of the onboarding demo.
func Default() TrackingConfig {
	return TrackingConfig{
		Entities:    workflow.DefaultEntities(),
		Debounce:    100 * time.Millisecond,
		RenderLimit: 20,
	}
}

// LoadTracking reads and validates a tracking configuration file.
func LoadTracking(path string) (TrackingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TrackingConfig{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return ParseTracking(data)
}

// ParseTracking decodes and validates a tracking configuration document.
// Omitted settings take their default values.
func ParseTracking(data []byte) (TrackingConfig, error) {
	cfg := Default()
	cfg.Entities = nil

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return TrackingConfig{}, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return TrackingConfig{}, err
	}

	return cfg, nil
}

// LoadTrackingOrDefault loads path when set and falls back to Default.
func LoadTrackingOrDefault(path string) (TrackingConfig, error) {
	if path == "" {
		return Default(), nil
	}

	return LoadTracking(path)
}

// Validate checks struct constraints, that every workflow is known and that
// entity keys are unique.
func Validate(cfg TrackingConfig) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid tracking config: %w", err)
	}

	var errs []error

	seen := make(map[string]bool, len(cfg.Entities))

	for _, e := range cfg.Entities {
		if seen[e.Key] {
			errs = append(errs, fmt.Errorf("duplicate entity key %q", e.Key))
		}

		seen[e.Key] = true

		if _, err := e.Definition(); err != nil {
			errs = append(errs, fmt.Errorf("entity %q: %w", e.Key, err))
		}
	}

	return errors.Join(errs...)
}
