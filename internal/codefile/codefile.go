// Package codefile loads and saves the code tables consumed by the
// registry: usage counts, documented definitions and user overrides.
package codefile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/opensource-finance/harrier/internal/domain"
)

// LoadUsage reads the usage table from a JSON file. The slice order is
// preserved because it breaks frequency-rank ties downstream.
func LoadUsage(path string) ([]domain.CodeUsage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read usage table: %w", err)
	}

	var usage []domain.CodeUsage
	if err := json.Unmarshal(data, &usage); err != nil {
		return nil, fmt.Errorf("failed to parse usage table: %w", err)
	}
	return usage, nil
}

// LoadDefinitions reads the code definitions table from a JSON file.
func LoadDefinitions(path string) ([]domain.CodeDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions table: %w", err)
	}

	var defs []domain.CodeDefinition
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse definitions table: %w", err)
	}
	return defs, nil
}

// LoadOverrides reads user overrides from a JSON file keyed by code.
func LoadOverrides(path string) (map[string]domain.CodeOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides: %w", err)
	}

	overrides := make(map[string]domain.CodeOverride)
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse overrides: %w", err)
	}
	return overrides, nil
}

// SaveOverrides writes user overrides to a JSON file. The write goes
// through a temp file and rename so a crash cannot truncate the table.
func SaveOverrides(path string, overrides map[string]domain.CodeOverride) error {
	data, err := json.MarshalIndent(overrides, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode overrides: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write overrides: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace overrides: %w", err)
	}
	return nil
}
