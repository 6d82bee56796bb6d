package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidateRejectsBadMapDimBounds(t *testing.T) {
	cfg := Default()
	cfg.SOM.MaxMapDim = 2
	cfg.SOM.MinMapDim = 3
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsMisweightedRelevance(t *testing.T) {
	cfg := Default()
	cfg.Relevance.DomainWeight = 0.9
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.Storage.Backend = "redis"
	assert.Error(t, cfg.Validate())
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vsomcore.yaml")
	content := []byte("adaptive:\n  max_passes: 5\n  target_results: 9\nstorage:\n  backend: badger\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Adaptive.MaxPasses)
	assert.Equal(t, 9, cfg.Adaptive.TargetResults)
	assert.Equal(t, "badger", cfg.Storage.Backend)
	// Untouched sections keep their defaults.
	assert.Equal(t, Default().Relevance, cfg.Relevance)
}

func TestLoadConfigOrDefaultFallsBackOnMissingFile(t *testing.T) {
	cfg := LoadConfigOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromEnvOrFileEnvTakesPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vsomcore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("adaptive:\n  max_passes: 5\n"), 0o644))

	t.Setenv("VSOMCORE_ADAPTIVE_MAX_PASSES", "7")
	t.Setenv("VSOMCORE_ENHANCEMENT_TIMEOUT", "3s")

	cfg := LoadFromEnvOrFile(path)
	assert.Equal(t, 7, cfg.Adaptive.MaxPasses)
	assert.Equal(t, 3*time.Second, cfg.Enhancement.Timeout)
}
