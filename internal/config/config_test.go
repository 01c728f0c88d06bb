package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/phobos/internal/capture"
	"github.com/banshee-data/phobos/internal/monitoring"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	cfg := &Config{}

	assert.Equal(t, "simulation", cfg.GetFormat())
	assert.Equal(t, 1, cfg.GetWorkers())
	assert.Equal(t, "/dev/ttyACM0", cfg.GetSerialPort())
	assert.Equal(t, "phobos.db", cfg.GetDBPath())
	assert.Equal(t, 50, cfg.GetStartIndex())
	assert.Equal(t, 10, cfg.GetStride())
	w, h := cfg.GetPlotSize()
	assert.Equal(t, 14.0, w)
	assert.Equal(t, 6.0, h)
	assert.Equal(t, 10000.0, cfg.GetTickRate())
	assert.Equal(t, 3*time.Second, cfg.GetSimDuration())
	_, ok := cfg.GetSimSpeed()
	assert.False(t, ok)
	_, ok = cfg.GetSimDt()
	assert.False(t, ok)
	assert.Equal(t, capture.PortOptions{}, cfg.PortOptions())
	assert.Equal(t, monitoring.LogConfig{}, cfg.LogOptions())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_JSON(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "phobos.json", `{
  "decode": {"format": "pose", "workers": 4},
  "serial": {"port": "/dev/ttyUSB1", "baud_rate": 9600, "parity": "even", "read_timeout": "50ms"},
  "log": {"level": "debug", "format": "json"},
  "plot": {"start_index": 0, "stride": 1},
  "simulate": {"duration": "1.5s", "speed": 4.5}
}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pose", cfg.GetFormat())
	assert.Equal(t, 4, cfg.GetWorkers())
	assert.Equal(t, "/dev/ttyUSB1", cfg.GetSerialPort())
	assert.Equal(t, capture.PortOptions{BaudRate: 9600, Parity: "even", ReadTimeout: 50 * time.Millisecond}, cfg.PortOptions())
	assert.Equal(t, monitoring.LogConfig{Level: "debug", Format: "json"}, cfg.LogOptions())
	assert.Equal(t, 0, cfg.GetStartIndex())
	assert.Equal(t, 1, cfg.GetStride())
	assert.Equal(t, 1500*time.Millisecond, cfg.GetSimDuration())
	v, ok := cfg.GetSimSpeed()
	assert.True(t, ok)
	assert.Equal(t, 4.5, v)
}

func TestLoad_TOML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "phobos.toml", `
[decode]
format = "simulation"
workers = 2

[db]
path = "/var/lib/phobos/runs.db"

[plot]
width_in = 10.0
height_in = 4.0
tick_hz = 1000.0

[simulate]
dt = 0.005
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.GetWorkers())
	assert.Equal(t, "/var/lib/phobos/runs.db", cfg.GetDBPath())
	w, h := cfg.GetPlotSize()
	assert.Equal(t, 10.0, w)
	assert.Equal(t, 4.0, h)
	assert.Equal(t, 1000.0, cfg.GetTickRate())
	dt, ok := cfg.GetSimDt()
	assert.True(t, ok)
	assert.Equal(t, 0.005, dt)
	// fields not in the file keep their defaults
	assert.Equal(t, 10, cfg.GetStride())
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"bad extension", "phobos.yaml", "decode: {}", "must have .json or .toml extension"},
		{"unknown json key", "a.json", `{"decode": {"fromat": "pose"}}`, "config load failed"},
		{"unknown toml key", "a.toml", "[decode]\nfromat = \"pose\"\n", "config load failed"},
		{"malformed json", "a.json", `{"decode":`, "config load failed"},
		{"unknown format", "a.json", `{"decode": {"format": "csv"}}`, "decode.format must be one of"},
		{"negative workers", "a.json", `{"decode": {"workers": -1}}`, "decode.workers"},
		{"bad parity", "a.json", `{"serial": {"parity": "mark"}}`, "unsupported parity"},
		{"bad timeout", "a.json", `{"serial": {"read_timeout": "soon"}}`, "serial.read_timeout"},
		{"bad level", "a.json", `{"log": {"level": "loud"}}`, "log.level"},
		{"bad log format", "a.json", `{"log": {"format": "xml"}}`, "log.format"},
		{"zero tick rate", "a.json", `{"plot": {"tick_hz": 0}}`, "plot.tick_hz"},
		{"zero stride", "a.json", `{"plot": {"stride": 0}}`, "plot.stride"},
		{"negative duration", "a.json", `{"simulate": {"duration": "-1s"}}`, "simulate.duration"},
		{"zero dt", "a.toml", "[simulate]\ndt = 0.0\n", "simulate.dt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, tt.file, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	t.Parallel()
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to stat config file")
}

func TestLoad_TooLarge(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "big.json", `{"decode":{}}`+strings.Repeat(" ", maxFileSize))
	_, err := Load(path)
	assert.ErrorContains(t, err, "config file too large")
}

func TestLoadOrDefault(t *testing.T) {
	t.Parallel()

	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)

	_, err = LoadOrDefault("nope.json")
	assert.Error(t, err)
}
