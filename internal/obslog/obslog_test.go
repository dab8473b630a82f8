package obslog

import (
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v; want %v", in, got, want)
		}
	}
}

func TestInitFromEnvWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "server.log")
	t.Setenv("LOG_TO_CONSOLE", "false")
	t.Setenv("LOG_TO_FILE", "true")
	t.Setenv("LOG_FILE", path)
	t.Setenv("LOG_FORMAT", "json")
	if err := InitFromEnv("debug"); err != nil {
		t.Fatalf("InitFromEnv: %v", err)
	}
	if !L().Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("level override was not applied")
	}
	L().Info("probe")
	Sync()
}
