package config

// Preset names a scenario config.FromPreset can build, corresponding
// to spec.md §8's six concrete end-to-end scenarios. Both cmd/hdfsim
// scenario <name> and pkg/cluster's test suite build from these, so
// the CLI and the tests can never drift apart on what a named
// scenario means.
type Preset string

const (
	// PresetDefaultWrite is spec.md §8 scenario 1: put_files(1, 100
	// MiB) on 11 datanodes with default settings.
	PresetDefaultWrite Preset = "default-write"

	// PresetLargeCluster is scenario 2: put_files(30, 64 MiB) on 40
	// datanodes.
	PresetLargeCluster Preset = "large-cluster"

	// PresetThrottledDisks is scenario 3: the same write as
	// PresetLargeCluster's file size, on 11 datanodes whose disks are
	// all throttled to 2 MiB/s.
	PresetThrottledDisks Preset = "throttled-disks"

	// PresetRegenerateThrottled is scenario 4: regenerate_blocks(90)
	// at 1 MiB/s balance bandwidth on 40 datanodes.
	PresetRegenerateThrottled Preset = "regenerate-throttled"

	// PresetHeartbeatOverhead is scenario 5: regenerate_blocks(30)
	// with heartbeats and block reports disabled, for comparison
	// against the same run with them enabled.
	PresetHeartbeatOverhead Preset = "heartbeat-overhead"

	// PresetSingleNodeBreakRepair is scenario 6: a single datanode
	// taking eleven 1001 MiB direct writes at staggered start times,
	// its disk breaking at t=50 and repairing at t=80.
	PresetSingleNodeBreakRepair Preset = "single-node-break-repair"
)

// FromPreset returns the Config a named scenario builds from. The
// caller still drives the scenario's specific operation (PutFiles,
// RegenerateBlocks, or pkg/node's direct BreakDisk/RepairDisk for
// PresetSingleNodeBreakRepair, which operates below the Cluster
// façade) — FromPreset only fixes the shared configuration knobs.
func FromPreset(p Preset) (Config, error) {
	cfg := Default()
	switch p {
	case PresetDefaultWrite:
		cfg.NumberOfDatanodes = 11
	case PresetLargeCluster:
		cfg.NumberOfDatanodes = 40
	case PresetThrottledDisks:
		cfg.NumberOfDatanodes = 11
		cfg.DefaultDiskSpeed = 2 * 1024 * 1024
	case PresetRegenerateThrottled:
		cfg.NumberOfDatanodes = 40
		cfg.BalanceBandwidth = 1024 * 1024
	case PresetHeartbeatOverhead:
		cfg.NumberOfDatanodes = 40
		cfg.EnableHeartbeats = false
		cfg.EnableBlockReport = false
	case PresetSingleNodeBreakRepair:
		cfg.NumberOfDatanodes = 1
		cfg.DefaultDiskSpeed = 80 * 1024 * 1024
	default:
		return Config{}, &UnknownPresetError{Preset: p}
	}
	return cfg, nil
}

// UnknownPresetError names a Preset value FromPreset doesn't
// recognize.
type UnknownPresetError struct {
	Preset Preset
}

func (e *UnknownPresetError) Error() string {
	return "config: unknown preset " + string(e.Preset)
}
