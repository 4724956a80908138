package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"snapsync/pkg/interp"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, interp.DefaultSettings(), cfg.InterpSettings())
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadFileOverridesOnlyGivenFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapsync.yaml")
	data := []byte(`
snapshot:
  buffer_limit: 64
  dynamic_adjustment: false
network:
  proto: kcp
  send_rate: 20
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 64, cfg.Snapshot.BufferLimit)
	require.False(t, cfg.Snapshot.DynamicAdjustment)
	require.Equal(t, "kcp", cfg.Network.Proto)
	require.Equal(t, 20.0, cfg.Network.SendRate)

	// 未出现的字段保留默认值
	require.Equal(t, 2.0, cfg.Snapshot.BufferTimeMultiplier)
	require.Equal(t, 0.02, cfg.Snapshot.CatchupSpeed)
	require.Equal(t, 32, cfg.Input.HistoryLimit)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := Parse([]byte("snapshot: [1, 2"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"negative threshold not negative", func(c *Config) { c.Snapshot.CatchupNegativeThreshold = 0 }},
		{"positive threshold not positive", func(c *Config) { c.Snapshot.CatchupPositiveThreshold = -1 }},
		{"catchup speed above 1", func(c *Config) { c.Snapshot.CatchupSpeed = 1.5 }},
		{"slowdown speed negative", func(c *Config) { c.Snapshot.SlowdownSpeed = -0.1 }},
		{"buffer limit zero", func(c *Config) { c.Snapshot.BufferLimit = 0 }},
		{"multiplier zero", func(c *Config) { c.Snapshot.BufferTimeMultiplier = 0 }},
		{"drift ema zero", func(c *Config) { c.Snapshot.DriftEmaDuration = 0 }},
		{"state history too small", func(c *Config) { c.Prediction.StateHistoryLimit = 1 }},
		{"input history above 255", func(c *Config) { c.Input.HistoryLimit = 256 }},
		{"input history zero", func(c *Config) { c.Input.HistoryLimit = 0 }},
		{"unknown proto", func(c *Config) { c.Network.Proto = "udp" }},
		{"send rate zero", func(c *Config) { c.Network.SendRate = 0 }},
		{"tick rate negative", func(c *Config) { c.Network.TickRate = -1 }},
		{"input rate zero", func(c *Config) { c.Network.MaxInputsPerSecond = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestParseValidates(t *testing.T) {
	_, err := Parse([]byte("input:\n  history_limit: 300\n"))
	require.ErrorIs(t, err, ErrInvalidConfig)
}
