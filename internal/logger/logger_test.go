package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectEnv(t *testing.T) {
	tests := map[string]Env{
		"":           EnvDev,
		"staging":    EnvStage,
		"production": EnvProd,
		"PROD":       EnvProd,
		"whatever":   EnvDev,
	}
	for raw, want := range tests {
		t.Setenv("APP_ENV", raw)
		assert.Equal(t, want, DetectEnv(), "APP_ENV=%q", raw)
	}
}

func TestInitStdTextOutput(t *testing.T) {
	var buf bytes.Buffer
	l := Init(Config{Service: "demo", Env: EnvDev, Backend: BackendStd, Output: &buf})

	l.Info("hello world")

	out := buf.String()
	assert.Contains(t, out, "hello world")
	assert.Contains(t, out, "service=demo")
	assert.Contains(t, out, "env=dev")
	assert.False(t, strings.HasPrefix(out, "{"), "expected text output, got %s", out)
}

func TestInitZapJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := Init(Config{Service: "demo", Version: "1.2.3", Env: EnvProd, Output: &buf})

	l.Info("booted", slog.String("k", "v"))

	var m map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m), buf.String())
	assert.Equal(t, "booted", m["msg"])
	assert.Equal(t, "INFO", m["level"])
	assert.Equal(t, "demo", m["service"])
	assert.Equal(t, "1.2.3", m["version"])
	assert.Equal(t, "v", m["k"])
}

func TestInitDebugLowersLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Init(Config{Env: EnvDev, Debug: true, Output: &buf})

	l.Debug("trace me")

	assert.Contains(t, buf.String(), "trace me")
}
