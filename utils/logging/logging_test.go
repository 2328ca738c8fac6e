package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "warn", false)
	if err != nil {
		t.Fatal(err)
	}

	logger.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info events to be dropped, got %q", buf.String())
	}

	logger.Warn().Str("path", "model.mdl").Msg("model not found")
	var event map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatal(err)
	}
	if event["level"] != "warn" || event["path"] != "model.mdl" ||
		event["message"] != "model not found" {
		t.Errorf("unexpected event %v", event)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "loud", false); err == nil {
		t.Error("expected an error for an unknown level")
	}
}
