package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/liamcoop/aquasens/features"
	"github.com/liamcoop/aquasens/scoring"
)

// DefaultTree is the built-in tree used when no TREE_FILE is configured.
func DefaultTree() Tree {
	return Tree{
		Root: "moisture",
		Nodes: []Node{
			{ID: "moisture", Feature: features.WireSoilMoisture, Threshold: 25, LE: "rainfall", GT: "moisture_mid"},
			{ID: "rainfall", Feature: features.WireRainfall, Threshold: 50, LE: "temperature", GT: "medium"},
			{ID: "temperature", Feature: features.WireTemperature, Threshold: 30, LE: "mulching", GT: "high"},
			{ID: "mulching", Feature: features.WireMulchingUsed, Threshold: 0.5, LE: "high", GT: "medium"},
			{ID: "moisture_mid", Feature: features.WireSoilMoisture, Threshold: 45, LE: "sunlight", GT: "low"},
			{ID: "sunlight", Feature: features.WireSunlightHours, Threshold: 8, LE: "rice", GT: "medium"},
			{ID: "rice", Feature: features.WireCropType + "_Rice", Threshold: 0.5, LE: "low", GT: "medium"},
			{ID: "high", Level: scoring.LevelHigh},
			{ID: "medium", Level: scoring.LevelMedium},
			{ID: "low", Level: scoring.LevelLow},
		},
	}
}

// LoadTree reads a JSON tree from path and validates it.
func LoadTree(path string) (Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tree{}, fmt.Errorf("read tree: %w", err)
	}

	var t Tree
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return Tree{}, fmt.Errorf("decode tree %s: %w", path, err)
	}
	if err := ValidateTree(t); err != nil {
		return Tree{}, fmt.Errorf("tree %s: %w", path, err)
	}
	return t, nil
}
