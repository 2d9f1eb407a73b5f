package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nix-port/rtcbridge/pkg/config"
	"github.com/nix-port/rtcbridge/pkg/mediastream"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
log: debug
webrtc:
  simulcast: true
  ipAddresses:
    - 192.0.2.10
  iceServers:
    - urls: ["stun:stun.example.org:3478"]
bridge:
  video: true
  trackStallTimeout: 5s
  constraints:
    mandatory:
      - name: OfferToReceiveAudio
        value: "true"
telemetry:
  jaegerUrl: http://localhost:14268/api/traces
metrics:
  address: ":9090"
`

func TestLoadConfigFromString(t *testing.T) {
	cfg, err := config.LoadConfigFromString(sample)
	require.NoError(t, err)

	assert.Equal(t, logrus.DebugLevel, cfg.Level())
	assert.True(t, cfg.WebRTC.EnableSimulcast)
	assert.Equal(t, []string{"192.0.2.10"}, cfg.WebRTC.PublicIPs)
	require.Len(t, cfg.WebRTC.ICEServers, 1)
	assert.Equal(t, 5*time.Second, cfg.Bridge.TrackStallTimeout)
	assert.Equal(t, []mediastream.Kind{mediastream.KindAudio, mediastream.KindVideo}, cfg.Bridge.Kinds())
	assert.Equal(t, []mediastream.Constraint{{Name: "OfferToReceiveAudio", Value: "true"}}, cfg.Bridge.Constraints.Mandatory)
	assert.True(t, cfg.Telemetry.Enabled())
	assert.Equal(t, ":9090", cfg.Metrics.Address)
}

func TestDefaults(t *testing.T) {
	cfg, err := config.LoadConfigFromString("{}")
	require.NoError(t, err)

	assert.Equal(t, logrus.InfoLevel, cfg.Level())
	assert.Equal(t, []mediastream.Kind{mediastream.KindAudio}, cfg.Bridge.Kinds())
	assert.False(t, cfg.Telemetry.Enabled())
	assert.Zero(t, cfg.Bridge.TrackStallTimeout)
}

func TestInvalidConfig(t *testing.T) {
	for name, yaml := range map[string]string{
		"log level":     "log: chatty",
		"stall timeout": "bridge:\n  trackStallTimeout: -1s",
		"ice server":    "webrtc:\n  iceServers:\n    - username: user",
	} {
		_, err := config.LoadConfigFromString(yaml)
		assert.ErrorIs(t, err, config.ErrInvalidConfig, name)
	}

	_, err := config.LoadConfigFromString("log: [")
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: warn"), 0o600))

	t.Setenv("CONFIG", "")
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, cfg.Level())

	t.Setenv("CONFIG", "log: error")
	cfg, err = config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, logrus.ErrorLevel, cfg.Level())

	_, err = config.LoadConfigFromPath(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
