// Package catalog serves the static model reference data shown on the
// models summary page. The data ships with the binary; the live model
// status comes from the inference service instead.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrModelNotFound = errors.New("model not found")

//go:embed models.json
var modelsJSON []byte

type ModelInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Task         string   `json:"task"`
	Architecture string   `json:"architecture"`
	Description  string   `json:"description"`
	Accuracy     float64  `json:"accuracy"`
	Parameters   string   `json:"parameters"`
	InputSize    string   `json:"inputSize"`
	Classes      []string `json:"classes,omitempty"`
}

type Catalog struct {
	models []ModelInfo
	byID   map[string]ModelInfo
}

func Load() (*Catalog, error) {
	var payload struct {
		Models []ModelInfo `json:"models"`
	}
	if err := json.Unmarshal(modelsJSON, &payload); err != nil {
		return nil, fmt.Errorf("parse embedded catalog: %w", err)
	}

	byID := make(map[string]ModelInfo, len(payload.Models))
	for _, m := range payload.Models {
		byID[m.ID] = m
	}

	return &Catalog{
		models: payload.Models,
		byID:   byID,
	}, nil
}

func (c *Catalog) All() []ModelInfo {
	out := make([]ModelInfo, len(c.models))
	copy(out, c.models)
	return out
}

func (c *Catalog) Get(id string) (ModelInfo, error) {
	m, ok := c.byID[id]
	if !ok {
		return ModelInfo{}, ErrModelNotFound
	}
	return m, nil
}
