package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"TRACE", LevelTrace, false},
		{"debug", LevelDebug, false},
		{"", LevelInfo, false},
		{"Info", LevelInfo, false},
		{"WARN", LevelWarning, false},
		{"warning", LevelWarning, false},
		{"ERROR", LevelError, false},
		{"FATAL", LevelFatal, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestConfigure_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Configure(Options{Level: "DEBUG", Output: &buf}); err != nil {
		t.Fatalf("Configure() failed: %v", err)
	}
	defer SetLevel(LevelInfo)

	Debug("scoring request", "prediction_id", "abc")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "scoring request" {
		t.Errorf("msg = %v, want 'scoring request'", entry["msg"])
	}
	if entry["prediction_id"] != "abc" {
		t.Errorf("prediction_id = %v, want abc", entry["prediction_id"])
	}
	if GetLevel() != LevelDebug {
		t.Errorf("GetLevel() = %v, want DEBUG", GetLevel())
	}
}

func TestConfigure_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	err := Configure(Options{Level: "chatty", Output: &buf})
	if err == nil {
		t.Error("expected error for unknown level")
	}
	if GetLevel() != LevelInfo {
		t.Errorf("GetLevel() = %v, want INFO", GetLevel())
	}

	Debug("hidden")
	Info("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Error("debug message logged at INFO level")
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Error("info message missing")
	}
}

func TestWarnAndError_CountWhileSampling(t *testing.T) {
	var buf bytes.Buffer
	if err := Configure(Options{Level: "INFO", ErrorSampleRate: 1_000_000, Output: &buf}); err != nil {
		t.Fatalf("Configure() failed: %v", err)
	}
	defer errorSampleRate.Store(1)

	warnings := TotalWarnings.Load()
	errors := TotalErrors.Load()

	for i := 0; i < 10; i++ {
		Warn("breaker open")
		Error("store down")
	}

	if got := TotalWarnings.Load() - warnings; got != 10 {
		t.Errorf("TotalWarnings delta = %d, want 10", got)
	}
	if got := TotalErrors.Load() - errors; got != 10 {
		t.Errorf("TotalErrors delta = %d, want 10", got)
	}
	if lines := strings.Count(buf.String(), "\n"); lines > 2 {
		t.Errorf("expected sampled output, got %d lines", lines)
	}
}

func TestHTTPCounters(t *testing.T) {
	before := Snapshot()

	WarnHttp4xx(400)
	WarnHttp4xx(401)
	WarnHttp4xx(404)
	WarnHttp4xx(409)
	ErrorHttp5xx()
	WarnSlowRequest()

	after := Snapshot()
	checks := []struct {
		name string
		got  int64
		want int64
	}{
		{"http4xx", after.HTTP4xx - before.HTTP4xx, 4},
		{"http400", after.HTTP400 - before.HTTP400, 1},
		{"http401", after.HTTP401 - before.HTTP401, 1},
		{"http404", after.HTTP404 - before.HTTP404, 1},
		{"http5xx", after.HTTP5xx - before.HTTP5xx, 1},
		{"slow", after.SlowRequests - before.SlowRequests, 1},
		{"warnings", after.Warnings - before.Warnings, 5},
		{"errors", after.Errors - before.Errors, 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s delta = %d, want %d", c.name, c.got, c.want)
		}
	}
}
