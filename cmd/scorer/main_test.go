package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/aquasens/features"
	"github.com/liamcoop/aquasens/internal/config"
	"github.com/liamcoop/aquasens/internal/observability"
	"github.com/liamcoop/aquasens/rules"
	"github.com/liamcoop/aquasens/scoring"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	engine, err := rules.NewEngine(rules.DefaultTree(), rules.DefaultMaxTraceSteps)
	require.NoError(t, err)
	return NewServer(engine)
}

func dryField() features.FeatureSet {
	return features.FeatureSet{
		SoilType:           "Sandy",
		SoilPH:             6.8,
		SoilMoisture:       18,
		OrganicCarbon:      0.6,
		Temperature:        34,
		Humidity:           30,
		Rainfall:           2,
		SunlightHours:      10,
		WindSpeed:          8,
		MulchingUsed:       false,
		PreviousIrrigation: 5,
		CropType:           "Maize",
		CropGrowthStage:    "Vegetative",
		Season:             "Kharif",
		Region:             "West",
	}
}

func postPredict(t *testing.T, h http.Handler, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPredict(t *testing.T) {
	s := newTestServer(t)

	body, err := json.Marshal(features.ToWire(dryField()))
	require.NoError(t, err)

	rec := postPredict(t, s, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Prediction   string `json:"prediction"`
		DecisionPath []struct {
			Feature   string  `json:"feature"`
			Value     float64 `json:"value"`
			Condition string  `json:"condition"`
		} `json:"decision_path"`
		Recommendation struct {
			Action string   `json:"action"`
			Advice []string `json:"advice"`
		} `json:"recommendation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "High", resp.Prediction)
	require.Len(t, resp.DecisionPath, 3)
	assert.Equal(t, "Soil_Moisture", resp.DecisionPath[0].Feature)
	assert.Equal(t, "<= 25.00", resp.DecisionPath[0].Condition)
	assert.Equal(t, "Immediate irrigation required", resp.Recommendation.Action)
	assert.Len(t, resp.Recommendation.Advice, 3)
}

func TestPredict_BadRequests(t *testing.T) {
	s := newTestServer(t)

	partial := features.ToWire(dryField())
	partial.Region = nil
	partialBody, _ := json.Marshal(partial)

	badEnum := features.ToWire(dryField())
	volcanic := "Volcanic"
	badEnum.SoilType = &volcanic
	badEnumBody, _ := json.Marshal(badEnum)

	tests := []struct {
		name    string
		body    []byte
		wantErr string
	}{
		{"not json", []byte("{"), "invalid request body"},
		{"missing field", partialBody, "all features are required"},
		{"invalid value", badEnumBody, "invalid features"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postPredict(t, s, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantErr, resp["error"])
		})
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

// The scoring client must accept what this service produces.
func TestPredict_ScoringClientRoundTrip(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t))
	defer srv.Close()

	client := scoring.NewClient(scoring.Config{BaseURL: srv.URL, Timeout: 2 * time.Second},
		observability.NewMetricsForTesting(), nil)

	fs := dryField()
	fs.SoilMoisture = 60

	result, err := client.Score(context.Background(), fs)
	require.NoError(t, err)
	assert.Equal(t, scoring.LevelLow, result.Level)
	assert.Equal(t, []scoring.TraceEntry{
		{Feature: "Soil_Moisture", Value: 60, Condition: "> 25.00"},
		{Feature: "Soil_Moisture", Value: 60, Condition: "> 45.00"},
	}, result.DecisionPath)
	assert.Equal(t, "No irrigation required", result.Recommendation.Action)
}

func TestLoadEngine(t *testing.T) {
	cfg := &config.ScorerConfig{MaxTraceSteps: 1}
	engine, err := loadEngine(cfg)
	require.NoError(t, err)

	result, err := engine.Score(context.Background(), dryField())
	require.NoError(t, err)
	assert.Len(t, result.DecisionPath, 1)

	path := filepath.Join(t.TempDir(), "tree.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"root":"x","nodes":[{"id":"x","level":"Medium"}]}`), 0o600))
	cfg.TreeFile = path
	engine, err = loadEngine(cfg)
	require.NoError(t, err)

	result, err = engine.Score(context.Background(), dryField())
	require.NoError(t, err)
	assert.Equal(t, scoring.LevelMedium, result.Level)

	cfg.TreeFile = filepath.Join(t.TempDir(), "missing.json")
	_, err = loadEngine(cfg)
	assert.Error(t, err)
}
