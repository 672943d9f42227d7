package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogger_EmitsStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("idea_generation").WithOutput(&buf).WithRun("run-123")

	logger.Info("starting generation run", map[string]any{"model": "gpt-4o"})

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, line)
	}

	if entry["message"] != "starting generation run" {
		t.Errorf("message = %v, want starting generation run", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want info", entry["level"])
	}
	if entry["feature"] != "idea_generation" {
		t.Errorf("feature = %v, want idea_generation", entry["feature"])
	}
	if entry["run_id"] != "run-123" {
		t.Errorf("run_id = %v, want run-123", entry["run_id"])
	}

	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["model"] != "gpt-4o" {
		t.Errorf("fields = %v, want model gpt-4o", entry["fields"])
	}
}

func TestNop_Discards(t *testing.T) {
	// Must not panic with no sink configured.
	Nop().Error("ignored", nil)
	Nop().Sugar().Infof("ignored %d", 1)
}
