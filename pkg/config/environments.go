// Package config loads the environments and stage policies stagehand
// promotes between.
package config

import (
	"fmt"
	"os"

	"github.com/dukex/stagehand/pkg/models"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// File is the structure of the environments.yaml file.
type File struct {
	Environments []models.Environment              `yaml:"environments" validate:"required,min=1,dive"`
	Policies     map[string]models.PromotionPolicy `yaml:"policies"`
}

// Load reads and validates an environments file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := validator.New().Struct(&file); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &file, nil
}

// Environment returns the environment with the given id.
func (f *File) Environment(id string) (*models.Environment, error) {
	for i := range f.Environments {
		if f.Environments[i].ID == id {
			return &f.Environments[i], nil
		}
	}

	return nil, fmt.Errorf("environment %s is not configured", id)
}

// Policy returns the stage policy for a target environment. A missing
// policy falls back to the safe default: nothing may be overwritten.
func (f *File) Policy(targetEnvironmentID string) models.PromotionPolicy {
	if policy, exists := f.Policies[targetEnvironmentID]; exists {
		return policy
	}

	return models.PromotionPolicy{}
}
