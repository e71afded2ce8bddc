package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bloomkit/internal/config"
)

func TestLoad_DefaultsWithNoFile(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "classic", cfg.Filter.Variant)
	assert.InDelta(t, 0.01, cfg.Filter.FPP, 1e-9)
	assert.Equal(t, uint64(10000), cfg.Filter.Capacity)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "probfilter.yaml")

	content := "filter:\n  variant: cuckoo\n  fpp: 0.001\n  capacity: 50000\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "cuckoo", cfg.Filter.Variant)
	assert.InDelta(t, 0.001, cfg.Filter.FPP, 1e-9)
	assert.Equal(t, uint64(50000), cfg.Filter.Capacity)
}

func TestLoad_RejectsUnknownVariant(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "probfilter.yaml")

	require.NoError(t, os.WriteFile(path, []byte("filter:\n  variant: nonsense\n"), 0o600))

	_, err := config.Load(path)
	require.ErrorIs(t, err, config.ErrInvalidVariant)
}

func TestLoad_RejectsOffHeapWithoutPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "probfilter.yaml")

	require.NoError(t, os.WriteFile(path, []byte("filter:\n  off_heap: true\n"), 0o600))

	_, err := config.Load(path)
	require.ErrorIs(t, err, config.ErrFilePathRequired)
}
