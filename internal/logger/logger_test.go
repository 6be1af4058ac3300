package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"warn":  zerolog.WarnLevel,
		"":      zerolog.InfoLevel,
		"loud":  zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNewReadsLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	if got := New().GetLevel(); got != zerolog.WarnLevel {
		t.Errorf("expected warn level from LOG_LEVEL, got %s", got)
	}
}
