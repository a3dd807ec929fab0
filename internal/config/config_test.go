package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig drops a YAML file into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "service.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validYAML = `
endpoint: ws://localhost:7447/bus
symbol: ES
candle_periods: [60, 300]
topics:
  candle: es_candles
execution:
  mode: sim
  start_price: 5000
`

func Test_Load_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))

	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:7447/bus", cfg.Endpoint)
	assert.Equal(t, "ES", cfg.Symbol)
	assert.Equal(t, []uint32{60, 300}, cfg.CandlePeriods)
	assert.Equal(t, "es_candles", cfg.Topics["candle"])
	assert.Equal(t, "sim", cfg.Execution.Mode)
	assert.Equal(t, 100, cfg.PollIntervalMS, "Poll interval defaults to 100 ms")
	assert.Equal(t, 100*time.Millisecond, cfg.PollInterval())
}

func Test_Load_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		description string
	}{
		{
			name: "Missing symbol",
			yaml: `
endpoint: ws://localhost:7447/bus
candle_periods: [60]
`,
			description: "Symbol is required",
		},
		{
			name: "Missing endpoint",
			yaml: `
symbol: ES
candle_periods: [60]
`,
			description: "Endpoint is required",
		},
		{
			name: "No candle periods",
			yaml: `
endpoint: ws://localhost:7447/bus
symbol: ES
candle_periods: []
`,
			description: "At least one period is required",
		},
		{
			name: "Duplicate candle periods",
			yaml: `
endpoint: ws://localhost:7447/bus
symbol: ES
candle_periods: [60, 60]
`,
			description: "Periods must be distinct",
		},
		{
			name: "Zero-length period",
			yaml: `
endpoint: ws://localhost:7447/bus
symbol: ES
candle_periods: [0]
`,
			description: "Periods must be positive",
		},
		{
			name: "Unknown execution mode",
			yaml: `
endpoint: ws://localhost:7447/bus
symbol: ES
candle_periods: [60]
execution:
  mode: live
`,
			description: "Only the simulator mode is recognized",
		},
		{
			name:        "Malformed YAML",
			yaml:        "symbol: [unterminated",
			description: "Parse failures surface as errors",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))

			assert.Error(t, err, tt.description)
		})
	}
}

func Test_Load_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.Error(t, err)
}

func Test_Load_EnvOverrides(t *testing.T) {
	t.Setenv("NINJA_BRIDGE_SYMBOL", "NQ")
	t.Setenv("NINJA_BRIDGE_POLL_INTERVAL_MS", "250")

	cfg, err := Load(writeConfig(t, validYAML))

	require.NoError(t, err)
	assert.Equal(t, "NQ", cfg.Symbol, "Environment overrides the YAML value")
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval())
}
