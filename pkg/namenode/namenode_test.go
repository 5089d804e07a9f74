package namenode

import (
	"math/rand"
	"testing"

	"github.com/cuemby/hdfsim/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDatanodes(n int) []types.NodeID {
	ids := make([]types.NodeID, n)
	for i := range ids {
		ids[i] = types.NodeID("datanode" + string(rune('0'+i)))
	}
	return ids
}

func TestRegisterFileAndLookup(t *testing.T) {
	nn := New(testDatanodes(3), rand.New(rand.NewSource(1)))

	_, ok := nn.File("missing.txt")
	assert.False(t, ok)

	written := []types.NodeID{"client", "datanode0", "datanode2"}
	nn.RegisterFile("hello.txt", written)

	got, ok := nn.File("hello.txt")
	require.True(t, ok)
	assert.Equal(t, written, got)
}

func TestFindDatanodesForNewFileReturnsDistinctIDs(t *testing.T) {
	nn := New(testDatanodes(5), rand.New(rand.NewSource(42)))

	picked := nn.FindDatanodesForNewFile("f.txt", 1024, 3)
	require.Len(t, picked, 3)

	seen := make(map[types.NodeID]bool)
	for _, id := range picked {
		assert.False(t, seen[id], "FindDatanodesForNewFile must not repeat a datanode")
		seen[id] = true
	}
}

func TestFindDatanodesForNewFileClampsToAvailableCount(t *testing.T) {
	nn := New(testDatanodes(2), rand.New(rand.NewSource(1)))

	picked := nn.FindDatanodesForNewFile("f.txt", 1024, 5)
	assert.Len(t, picked, 2, "replica count above the datanode pool size should clamp, not panic")
}

func TestRegisterFileDoesNotAliasCallerSlice(t *testing.T) {
	nn := New(testDatanodes(3), rand.New(rand.NewSource(1)))

	datanodes := []types.NodeID{"datanode0", "datanode1"}
	nn.RegisterFile("f.txt", datanodes)
	datanodes[0] = "tampered"

	got, ok := nn.File("f.txt")
	require.True(t, ok)
	assert.Equal(t, types.NodeID("datanode0"), got[0], "RegisterFile must copy, not alias, the caller's slice")
}
