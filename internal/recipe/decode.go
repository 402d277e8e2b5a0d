package recipe

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/the-recipe-must-flow/internal/common"
	"github.com/Veraticus/the-recipe-must-flow/internal/model"
)

// DecodeJSON decodes a recipe from JSON, keeping unknown fields for the validator.
func DecodeJSON(data []byte) (*model.Recipe, error) {
	var r model.Recipe
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode recipe: %w", err)
	}
	return &r, nil
}

// DecodeYAML decodes a recipe from YAML using the same field names as JSON.
func DecodeYAML(data []byte) (*model.Recipe, error) {
	converted, err := common.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode recipe: %w", err)
	}
	return DecodeJSON(converted)
}

// DecodeFile decodes a recipe file, choosing the format by extension.
func DecodeFile(path string) (*model.Recipe, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is supplied by the user on the command line
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(data)
	default:
		return DecodeJSON(data)
	}
}
