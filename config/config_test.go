package config_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tolelom/latticenode/config"
)

func TestDefaultConfigValidates(t *testing.T) {
	assert.NoError(t, config.DefaultConfig().Validate())
}

func TestValidateRejectsEmptyNodeID(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.NodeID = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsZeroMaxInFlight(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxInFlight = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsPartialTLS(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TLS = &config.TLSConfig{CACert: "ca.pem"}
	assert.Error(t, cfg.Validate())
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := config.DefaultConfig()
	cfg.NodeID = "bootstrap-1"
	cfg.BootstrapPeers = []string{"10.0.0.1:7075", "10.0.0.2:7075"}

	require.NoError(t, config.Save(cfg, path))

	got, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.NodeID, got.NodeID)
	assert.Equal(t, cfg.BootstrapPeers, got.BootstrapPeers)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
