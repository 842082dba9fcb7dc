package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLogger_Levels(t *testing.T) {
	cases := []struct {
		env, level string
		want       zerolog.Level
	}{
		{"prod", "", zerolog.InfoLevel},
		{"dev", "", zerolog.DebugLevel},
		{"prod", "warn", zerolog.WarnLevel},
		{"dev", "error", zerolog.ErrorLevel},
		{"prod", "loud", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		l := newLogger(&bytes.Buffer{}, tc.env, tc.level)
		if got := l.GetLevel(); got != tc.want {
			t.Fatalf("env=%s level=%q: got %v want %v", tc.env, tc.level, got, tc.want)
		}
	}
}

func TestNewLogger_JSONCarriesService(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "prod", "")
	l.Info().Str("run_id", "r-1").Msg("batch curation starting")
	line := buf.String()
	if !strings.Contains(line, `"svc":"curator"`) || !strings.Contains(line, `"run_id":"r-1"`) {
		t.Fatalf("log line %s", line)
	}
}
