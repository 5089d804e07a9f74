package cluster

import (
	"testing"

	"github.com/cuemby/hdfsim/pkg/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenario1SingleFileOnElevenDatanodes reproduces spec.md §8
// scenario 1: put_files(1, 100 MiB) on 11 datanodes with default
// settings completes without error and results in exactly one entry
// in NameNode metadata of length 3 (default replica count).
func TestScenario1SingleFileOnElevenDatanodes(t *testing.T) {
	cfg, err := config.FromPreset(config.PresetDefaultWrite)
	require.NoError(t, err)
	c := NewCluster(cfg, zerolog.Nop())

	_, err = c.PutFiles(1, 100*1024*1024)
	require.NoError(t, err)

	got, ok := c.NameNode().File("file-1")
	require.True(t, ok)
	assert.Len(t, got, 3)
}

// TestScenario2LargerClusterTakesLonger reproduces spec.md §8
// scenario 2: put_files(30, 64 MiB) on 40 datanodes completes; the
// reported finish time is strictly greater than scenario 1's.
func TestScenario2LargerClusterTakesLonger(t *testing.T) {
	base, err := config.FromPreset(config.PresetDefaultWrite)
	require.NoError(t, err)
	baseCluster := NewCluster(base, zerolog.Nop())
	baseFinish, err := baseCluster.PutFiles(1, 100*1024*1024)
	require.NoError(t, err)

	large, err := config.FromPreset(config.PresetLargeCluster)
	require.NoError(t, err)
	largeCluster := NewCluster(large, zerolog.Nop())
	largeFinish, err := largeCluster.PutFiles(30, 64*1024*1024)
	require.NoError(t, err)

	assert.Greater(t, largeFinish, baseFinish)
}

// TestScenario3ThrottledDisksAmplifyFinishTime reproduces spec.md §8
// scenario 3: with 11 datanodes whose disks are all throttled to 2
// MiB/s, put_files(30, 64 MiB) takes strictly longer than with
// default 80 MiB/s disks.
func TestScenario3ThrottledDisksAmplifyFinishTime(t *testing.T) {
	fast, err := config.FromPreset(config.PresetDefaultWrite)
	require.NoError(t, err)
	fastFinish, err := NewCluster(fast, zerolog.Nop()).PutFiles(30, 64*1024*1024)
	require.NoError(t, err)

	throttled, err := config.FromPreset(config.PresetThrottledDisks)
	require.NoError(t, err)
	throttledFinish, err := NewCluster(throttled, zerolog.Nop()).PutFiles(30, 64*1024*1024)
	require.NoError(t, err)

	assert.Greater(t, throttledFinish, fastFinish, "throttled disks should amplify finish time (limp-mode)")
}

// TestScenario4RegenerateThrottledTransferTiming reproduces spec.md §8
// scenario 4: regenerate_blocks(90) at balance bandwidth 1 MiB/s on 40
// datanodes completes without error, no earlier than one block's
// transfer time at the balance bandwidth.
func TestScenario4RegenerateThrottledTransferTiming(t *testing.T) {
	cfg, err := config.FromPreset(config.PresetRegenerateThrottled)
	require.NoError(t, err)
	c := NewCluster(cfg, zerolog.Nop())

	finish, err := c.RegenerateBlocks(90)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, finish, cfg.BlockSize/cfg.BalanceBandwidth)
}

// TestScenario5HeartbeatOverheadNeverSpeedsUpRegeneration reproduces
// spec.md §8 scenario 5: with heartbeats and block reports disabled,
// regenerate_blocks(30) finishes no later than the same run with them
// enabled.
func TestScenario5HeartbeatOverheadNeverSpeedsUpRegeneration(t *testing.T) {
	quiet, err := config.FromPreset(config.PresetHeartbeatOverhead)
	require.NoError(t, err)
	quietCluster := NewCluster(quiet, zerolog.Nop())
	quietCluster.StartServices()
	quietFinish, err := quietCluster.RegenerateBlocks(30)
	require.NoError(t, err)

	noisy := quiet
	noisy.EnableHeartbeats = true
	noisy.EnableBlockReport = true
	noisyCluster := NewCluster(noisy, zerolog.Nop())
	noisyCluster.StartServices()
	noisyFinish, err := noisyCluster.RegenerateBlocks(30)
	require.NoError(t, err)

	assert.LessOrEqual(t, quietFinish, noisyFinish, "heartbeat/report traffic must never speed up regeneration")
}

func TestStartServicesWithNoDatanodesIsConfigurationErrorNotFatal(t *testing.T) {
	cfg := config.Default()
	cfg.NumberOfDatanodes = 0
	c := NewCluster(cfg, zerolog.Nop())

	assert.NotPanics(t, func() { c.StartServices() })
}

func TestRegenerateBlocksRequiresAtLeastTwoDatanodes(t *testing.T) {
	cfg := config.Default()
	cfg.NumberOfDatanodes = 1
	c := NewCluster(cfg, zerolog.Nop())

	_, err := c.RegenerateBlocks(1)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

// TestRegenerateBlocksDeterministicUnderFixedSeed reproduces spec.md
// §5's determinism requirement directly against the arbiter back-off
// draw and the pair-selection draw RegenerateBlocks exercises: two
// clusters built from the identical (seeded) config must reach the
// identical virtual finish time.
func TestRegenerateBlocksDeterministicUnderFixedSeed(t *testing.T) {
	cfg, err := config.FromPreset(config.PresetRegenerateThrottled)
	require.NoError(t, err)
	cfg.Seed = 42

	first := NewCluster(cfg, zerolog.Nop())
	firstFinish, err := first.RegenerateBlocks(90)
	require.NoError(t, err)

	second := NewCluster(cfg, zerolog.Nop())
	secondFinish, err := second.RegenerateBlocks(90)
	require.NoError(t, err)

	assert.Equal(t, firstFinish, secondFinish, "identical seed and config must reproduce the identical finish time")
}

// TestClusterUsesConfiguredSeedNotGlobalSource guards against a
// no-op Seed field: the seed must actually reach the random draws
// PutFiles' pipeline exercises (arbiter/ping back-off) rather than
// being silently ignored in favor of an auto-seeded global source.
func TestClusterUsesConfiguredSeedNotGlobalSource(t *testing.T) {
	cfg, err := config.FromPreset(config.PresetThrottledDisks)
	require.NoError(t, err)
	cfg.Seed = 7

	a := NewCluster(cfg, zerolog.Nop())
	aFinish, err := a.PutFiles(30, 64*1024*1024)
	require.NoError(t, err)

	b := NewCluster(cfg, zerolog.Nop())
	bFinish, err := b.PutFiles(30, 64*1024*1024)
	require.NoError(t, err)

	assert.Equal(t, aFinish, bFinish, "same seed must reproduce the same finish time across independent Cluster instances")
}
