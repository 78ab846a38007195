package logger

import (
	"bytes"
	"log"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"0":       LogLevelNone,
		"4":       LogLevelDebug,
		"error":   LogLevelError,
		"WARN":    LogLevelWarning,
		"warning": LogLevelWarning,
		" info ":  LogLevelInfo,
		"":        LogLevelInfo,
		"debug":   LogLevelDebug,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %d, %v; want %d", in, got, err, want)
		}
	}

	for _, in := range []string{"5", "-1", "verbose"} {
		if _, err := ParseLevel(in); err == nil {
			t.Errorf("ParseLevel(%q) accepted", in)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(log.New(&buf, "", 0), LogLevelWarning).WithTag("latch")

	l.Debugf("hidden %d", 1)
	l.Infof("hidden %d", 2)
	l.Warnf("shown %d", 3)
	l.Errorf("shown %d", 4)

	want := "[latch] WARN: shown 3\n[latch] ERROR: shown 4\n"
	if buf.String() != want {
		t.Errorf("Unexpected output:\n%q\nwant\n%q", buf.String(), want)
	}
}
