package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileStillRequiresModel(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err) // llm.model is required and has no default

	_ = cfg
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  model: gpt-test\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-test", cfg.LLM.Model)
	assert.Equal(t, 380, cfg.Chunk.TargetTokens)
	assert.Equal(t, 45, cfg.Chunk.OverlapTokens)
	assert.Equal(t, 3600, cfg.Cache.TTLSeconds)
	assert.Equal(t, 2, cfg.Pipeline.MaxRewrites)
	assert.Equal(t, float32(0.7), cfg.Pipeline.ConfidenceThreshold)
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  model: gpt-test\n"), 0644))

	t.Setenv("DOCUQUERY_LLM_MODEL", "gpt-override")
	t.Setenv("DOCUQUERY_STORAGE_ROOT", "/tmp/docuquery-data")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-override", cfg.LLM.Model)
	assert.Equal(t, "/tmp/docuquery-data", cfg.StorageRoot)
}

func TestValidateRejectsInvertedThresholds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"llm:\n  model: gpt-test\npipeline:\n  confidence_threshold: 0.3\n  unsure_threshold: 0.5\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
}
