package compositor

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSelectionHandlersOnlyLog(t *testing.T) {
	var buf bytes.Buffer
	s := New(Options{Logger: slog.New(slog.NewTextHandler(&buf, nil))})

	s.NewSelection("clipboard")
	s.SendSelection("primary", "text/plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("log output = %q, want two records", buf.String())
	}
	for i, want := range []string{"new_selection called", "send_selection called"} {
		if !strings.Contains(lines[i], want) || !strings.Contains(lines[i], "level=ERROR") {
			t.Errorf("record %d = %q, want an error containing %q", i, lines[i], want)
		}
	}
}
