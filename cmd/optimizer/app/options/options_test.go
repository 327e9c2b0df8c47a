package options

import (
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFlags(t *testing.T) {
	fs := pflag.NewFlagSet("optimizer", pflag.ContinueOnError)
	s := NewServerOption()
	s.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{"--root=/data", "-p", "profiling.csv", "--max-generations=20"}))
	require.NoError(t, s.CheckOptionOrDie())

	assert.Nil(t, s.SeedOverride())
	assert.Equal(t, filepath.Join("/data", defaultGraphPath), s.Path(s.GraphPath))
	assert.Equal(t, "", s.Path(s.ParamsPath))
	assert.Equal(t, "/abs/report.json", s.Path("/abs/report.json"))
	assert.Equal(t, 20, s.MaxGenerations)

	require.NoError(t, fs.Parse([]string{"--seed=0"}))
	require.NotNil(t, s.SeedOverride())
	assert.Equal(t, int64(0), *s.SeedOverride())
}

func TestCheckOptionOrDie(t *testing.T) {
	s := NewServerOption()
	assert.Error(t, s.CheckOptionOrDie(), "profiling is required")

	s.ProfilingPath = "profiling.csv"
	s.MaxGenerations = -1
	assert.Error(t, s.CheckOptionOrDie())
}
