package rules

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/liamcoop/aquasens/features"
	"github.com/liamcoop/aquasens/scoring"
)

func sample() features.FeatureSet {
	return features.FeatureSet{
		SoilType:           "Loamy",
		SoilPH:             6.5,
		SoilMoisture:       18,
		OrganicCarbon:      0.8,
		Temperature:        35,
		Humidity:           40,
		Rainfall:           2,
		SunlightHours:      9,
		WindSpeed:          12,
		MulchingUsed:       false,
		PreviousIrrigation: 10,
		CropType:           "Wheat",
		CropGrowthStage:    "Flowering",
		Season:             "Rabi",
		Region:             "North",
	}
}

func newDefaultEngine(t *testing.T, maxSteps int) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultTree(), maxSteps)
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}
	return engine
}

func TestEngine_DefaultTreePaths(t *testing.T) {
	engine := newDefaultEngine(t, 0)

	tests := []struct {
		name   string
		mutate func(*features.FeatureSet)
		level  scoring.Level
		path   []scoring.TraceEntry
	}{
		{
			name:   "dry and hot",
			mutate: func(*features.FeatureSet) {},
			level:  scoring.LevelHigh,
			path: []scoring.TraceEntry{
				{Feature: "Soil_Moisture", Value: 18, Condition: "<= 25.00"},
				{Feature: "Rainfall_mm", Value: 2, Condition: "<= 50.00"},
				{Feature: "Temperature_C", Value: 35, Condition: "> 30.00"},
			},
		},
		{
			name:   "dry and cool with mulch",
			mutate: func(fs *features.FeatureSet) { fs.Temperature = 22; fs.MulchingUsed = true },
			level:  scoring.LevelMedium,
			path: []scoring.TraceEntry{
				{Feature: "Soil_Moisture", Value: 18, Condition: "<= 25.00"},
				{Feature: "Rainfall_mm", Value: 2, Condition: "<= 50.00"},
				{Feature: "Temperature_C", Value: 22, Condition: "<= 30.00"},
				{Feature: "Mulching_Used", Value: 1, Condition: "> 0.50"},
			},
		},
		{
			name:   "wet soil",
			mutate: func(fs *features.FeatureSet) { fs.SoilMoisture = 60 },
			level:  scoring.LevelLow,
			path: []scoring.TraceEntry{
				{Feature: "Soil_Moisture", Value: 60, Condition: "> 25.00"},
				{Feature: "Soil_Moisture", Value: 60, Condition: "> 45.00"},
			},
		},
		{
			name: "moderate moisture rice paddy",
			mutate: func(fs *features.FeatureSet) {
				fs.SoilMoisture = 35
				fs.SunlightHours = 6
				fs.CropType = "Rice"
			},
			level: scoring.LevelMedium,
			path: []scoring.TraceEntry{
				{Feature: "Soil_Moisture", Value: 35, Condition: "> 25.00"},
				{Feature: "Soil_Moisture", Value: 35, Condition: "<= 45.00"},
				{Feature: "Sunlight_Hours", Value: 6, Condition: "<= 8.00"},
				{Feature: "Crop_Type_Rice", Value: 1, Condition: "> 0.50"},
			},
		},
		{
			name:   "rounds observed values",
			mutate: func(fs *features.FeatureSet) { fs.SoilMoisture = 18.456; fs.Rainfall = 75.004 },
			level:  scoring.LevelMedium,
			path: []scoring.TraceEntry{
				{Feature: "Soil_Moisture", Value: 18.46, Condition: "<= 25.00"},
				{Feature: "Rainfall_mm", Value: 75, Condition: "> 50.00"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := sample()
			tt.mutate(&fs)

			got, err := engine.Score(context.Background(), fs)
			if err != nil {
				t.Fatalf("Score() failed: %v", err)
			}
			if got.Level != tt.level {
				t.Errorf("Level = %s, want %s", got.Level, tt.level)
			}
			if !reflect.DeepEqual(got.DecisionPath, tt.path) {
				t.Errorf("DecisionPath = %+v, want %+v", got.DecisionPath, tt.path)
			}
			if got.Recommendation.Action != RecommendationFor(tt.level).Action {
				t.Errorf("Recommendation.Action = %q", got.Recommendation.Action)
			}
		})
	}
}

func TestEngine_TraceIsCapped(t *testing.T) {
	engine := newDefaultEngine(t, 2)

	fs := sample()
	fs.Temperature = 22

	got, err := engine.Score(context.Background(), fs)
	if err != nil {
		t.Fatalf("Score() failed: %v", err)
	}
	if len(got.DecisionPath) != 2 {
		t.Fatalf("len(DecisionPath) = %d, want 2", len(got.DecisionPath))
	}
	// the walk continues past the cap
	if got.Level != scoring.LevelHigh {
		t.Errorf("Level = %s, want High", got.Level)
	}
}

func TestEngine_SingleLeafTree(t *testing.T) {
	engine, err := NewEngine(Tree{Root: "only", Nodes: []Node{{ID: "only", Level: scoring.LevelLow}}}, 5)
	if err != nil {
		t.Fatalf("NewEngine() failed: %v", err)
	}

	got, err := engine.Score(context.Background(), sample())
	if err != nil {
		t.Fatalf("Score() failed: %v", err)
	}
	if got.DecisionPath == nil || len(got.DecisionPath) != 0 {
		t.Errorf("DecisionPath = %#v, want empty non-nil", got.DecisionPath)
	}
}

func TestEngine_ScoreCanceled(t *testing.T) {
	engine := newDefaultEngine(t, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.Score(ctx, sample()); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestEngine_RejectsInvalidTree(t *testing.T) {
	_, err := NewEngine(Tree{}, 5)
	if err == nil || !strings.Contains(err.Error(), "invalid tree") {
		t.Errorf("NewEngine(empty) error = %v", err)
	}
}

func TestEngine_ConcurrentScoring(t *testing.T) {
	engine := newDefaultEngine(t, 0)

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fs := sample()
			fs.SoilMoisture = float64(i)
			if _, err := engine.Score(context.Background(), fs); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Score() failed: %v", err)
	}
}

func TestSplitExpression(t *testing.T) {
	tests := []struct {
		node Node
		want string
	}{
		{Node{Feature: "Soil_pH", Threshold: 7}, "Soil_pH <= 7.0"},
		{Node{Feature: "Soil_pH", Threshold: 6.25}, "Soil_pH <= 6.25"},
		{Node{Feature: "Temperature_C", Threshold: -1.5}, "Temperature_C <= -1.5"},
	}
	for _, tt := range tests {
		if got := SplitExpression(tt.node); got != tt.want {
			t.Errorf("SplitExpression(%+v) = %q, want %q", tt.node, got, tt.want)
		}
	}
}

func TestFacts(t *testing.T) {
	facts := Facts(sample())

	if len(facts) != len(FactNames()) {
		t.Fatalf("len(Facts) = %d, len(FactNames) = %d", len(facts), len(FactNames()))
	}
	for _, name := range FactNames() {
		if _, ok := facts[name].(float64); !ok {
			t.Errorf("fact %s is %T, want float64", name, facts[name])
		}
	}

	if facts["Mulching_Used"] != 0.0 {
		t.Errorf("Mulching_Used = %v, want 0", facts["Mulching_Used"])
	}
	if facts["Soil_Type_Loamy"] != 1.0 || facts["Soil_Type_Clay"] != 0.0 {
		t.Errorf("Soil_Type one-hot wrong: %v %v", facts["Soil_Type_Loamy"], facts["Soil_Type_Clay"])
	}
	if facts["Crop_Growth_Stage_Flowering"] != 1.0 {
		t.Errorf("Crop_Growth_Stage_Flowering = %v, want 1", facts["Crop_Growth_Stage_Flowering"])
	}
}

func TestRecommendationFor(t *testing.T) {
	high := RecommendationFor(scoring.LevelHigh)
	if high.Action != "Immediate irrigation required" || len(high.Advice) != 3 {
		t.Errorf("High recommendation = %+v", high)
	}

	high.Advice[0] = "changed"
	if RecommendationFor(scoring.LevelHigh).Advice[0] == "changed" {
		t.Error("RecommendationFor returned shared advice slice")
	}

	if got := RecommendationFor("Extreme"); got.Action != "No irrigation required" {
		t.Errorf("unknown level action = %q, want Low action", got.Action)
	}
}

func TestLoadTree(t *testing.T) {
	dir := t.TempDir()

	data, err := json.Marshal(DefaultTree())
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	good := filepath.Join(dir, "tree.json")
	if err := os.WriteFile(good, data, 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	got, err := LoadTree(good)
	if err != nil {
		t.Fatalf("LoadTree() failed: %v", err)
	}
	if !reflect.DeepEqual(got, DefaultTree()) {
		t.Errorf("LoadTree() = %+v, want default tree", got)
	}

	unknown := filepath.Join(dir, "unknown.json")
	_ = os.WriteFile(unknown, []byte(`{"root":"a","nodes":[{"id":"a","level":"Low","weight":1}]}`), 0o600)
	if _, err := LoadTree(unknown); err == nil {
		t.Error("expected error for unknown field")
	}

	invalid := filepath.Join(dir, "invalid.json")
	_ = os.WriteFile(invalid, []byte(`{"root":"a","nodes":[{"id":"a","level":"Severe"}]}`), 0o600)
	if _, err := LoadTree(invalid); err == nil || !strings.Contains(err.Error(), "invalid level") {
		t.Errorf("LoadTree(invalid) error = %v", err)
	}

	if _, err := LoadTree(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRound2(t *testing.T) {
	if got := round2(math.Pi); got != 3.14 {
		t.Errorf("round2(pi) = %v", got)
	}
	if got := round2(-7.125); got != -7.13 {
		t.Errorf("round2(-7.125) = %v", got)
	}
}
