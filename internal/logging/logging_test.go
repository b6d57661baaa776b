package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	l := log.New()
	if err := setup(l, &buf, true, "json"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if l.GetLevel() != log.DebugLevel {
		t.Errorf("level = %v, want debug", l.GetLevel())
	}
	l.WithField("job", "abc").Debug("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %q", buf.String())
	}
	if entry["msg"] != "hello" || entry["job"] != "abc" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestSetupTextQuiet(t *testing.T) {
	var buf bytes.Buffer
	l := log.New()
	if err := setup(l, &buf, false, ""); err != nil {
		t.Fatalf("setup: %v", err)
	}
	l.Debug("hidden")
	l.Info("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestSetupUnknownFormat(t *testing.T) {
	if err := setup(log.New(), &bytes.Buffer{}, false, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
