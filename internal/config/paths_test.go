package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaths(t *testing.T) {
	base := t.TempDir()
	abs := filepath.Join(t.TempDir(), "out")

	paths := NewPaths(PathsConfig{ReportsDir: abs}, base)

	assert.Equal(t, filepath.Join(base, "data"), paths.DataDir)
	assert.Equal(t, filepath.Join(base, "data", "Procesados"), paths.ProcessedDir)
	assert.Equal(t, abs, paths.ReportsDir)
	assert.Equal(t, filepath.Join(abs, SummaryTableFile), paths.GetReportPath(SummaryTableFile))
	assert.Equal(t, filepath.Join(base, "data", "Procesados", "Experimento1"), paths.GetExperimentDir("Experimento1"))

	require.NoError(t, paths.EnsureDirectories())
	assert.DirExists(t, paths.ProcessedDir)
	assert.DirExists(t, paths.ReportsDir)
	assert.True(t, FileExists(paths.LogsDir))
	assert.False(t, FileExists(filepath.Join(base, "missing")))
}

func TestGetPaths(t *testing.T) {
	paths, err := GetPaths(Default().Paths)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(paths.BaseDir))
	assert.Equal(t, filepath.Join(paths.BaseDir, "data", "reports"), paths.ReportsDir)
}
