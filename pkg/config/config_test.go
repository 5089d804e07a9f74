package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesReferenceDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 3, cfg.ReplicaNumber)
	assert.Equal(t, float64(80*1024*1024), cfg.DefaultDiskSpeed)
	assert.Equal(t, float64(100*1024*1024)/8, cfg.DefaultBandwidth)
	assert.True(t, cfg.EnableHeartbeats)
	assert.True(t, cfg.EnableBlockReport)
	assert.True(t, cfg.EnableDatanodeCache)
}

func TestYAMLRoundTripPreservesOverridesAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")

	cfg := Default()
	cfg.NumberOfDatanodes = 40
	cfg.DefaultDiskSpeed = 2 * 1024 * 1024
	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := FromYAML(path)
	require.NoError(t, err)
	assert.Equal(t, 40, loaded.NumberOfDatanodes)
	assert.Equal(t, float64(2*1024*1024), loaded.DefaultDiskSpeed)
	assert.Equal(t, 3, loaded.ReplicaNumber, "fields absent from the override should keep Default()'s value")
}

func TestFromYAMLPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("number_of_datanodes: 5\n"), 0o644))

	cfg, err := FromYAML(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.NumberOfDatanodes)
	assert.Equal(t, Default().DefaultDiskSpeed, cfg.DefaultDiskSpeed)
}

func TestFromPresetMatchesSpecScenarios(t *testing.T) {
	cases := []struct {
		preset        Preset
		datanodes     int
		checkOverride func(t *testing.T, cfg Config)
	}{
		{PresetDefaultWrite, 11, nil},
		{PresetLargeCluster, 40, nil},
		{PresetThrottledDisks, 11, func(t *testing.T, cfg Config) {
			assert.Equal(t, float64(2*1024*1024), cfg.DefaultDiskSpeed)
		}},
		{PresetRegenerateThrottled, 40, func(t *testing.T, cfg Config) {
			assert.Equal(t, float64(1024*1024), cfg.BalanceBandwidth)
		}},
		{PresetHeartbeatOverhead, 40, func(t *testing.T, cfg Config) {
			assert.False(t, cfg.EnableHeartbeats)
			assert.False(t, cfg.EnableBlockReport)
		}},
		{PresetSingleNodeBreakRepair, 1, nil},
	}

	for _, tc := range cases {
		cfg, err := FromPreset(tc.preset)
		require.NoError(t, err)
		assert.Equalf(t, tc.datanodes, cfg.NumberOfDatanodes, "preset %s", tc.preset)
		if tc.checkOverride != nil {
			tc.checkOverride(t, cfg)
		}
	}
}

func TestFromPresetUnknownReturnsError(t *testing.T) {
	_, err := FromPreset(Preset("not-a-real-preset"))
	var unknown *UnknownPresetError
	require.ErrorAs(t, err, &unknown)
}
