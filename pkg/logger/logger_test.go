package logx

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewRespectsLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf)
	logger.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug line written at info level: %s", buf.String())
	}

	logger.Info().Str("component", "test").Msg("shown")
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if line["message"] != "shown" || line["component"] != "test" || line["level"] != "info" {
		t.Fatalf("unexpected line: %v", line)
	}
	if _, ok := line["caller"]; !ok {
		t.Fatalf("caller missing: %v", line)
	}
}

func TestNewDebug(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&buf, Config{Debug: true})
	logger.Debug().Msg("visible")
	if buf.Len() == 0 {
		t.Fatal("debug line not written with Debug enabled")
	}
}
