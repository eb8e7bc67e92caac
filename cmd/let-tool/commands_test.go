package main

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agglayer/exit-tree-go/pkg/hasher"
	"github.com/agglayer/exit-tree-go/pkg/testutil"
)

// runTool runs the CLI against a leveldb store in dataPath and decodes the
// JSON it prints into out.
func runTool(t *testing.T, dataPath string, out interface{}, args ...string) error {
	t.Helper()

	var stdout bytes.Buffer
	app := newApp()
	app.Writer = &stdout

	argv := append([]string{"let-tool", "--persistence-type", "leveldb", "--data-path", dataPath}, args...)
	if err := app.Run(argv); err != nil {
		return err
	}
	if out != nil {
		require.NoError(t, json.Unmarshal(stdout.Bytes(), out), stdout.String())
	}
	return nil
}

func TestCLI_AppendProveVerify(t *testing.T) {
	dataPath := t.TempDir()
	leaves := testutil.SequentialLeaves(3)

	var last appendResult
	for i, leaf := range leaves {
		require.NoError(t, runTool(t, dataPath, &last, "add-leaf", "--network", "7", "--leaf", leaf.Hex()))
		assert.Equal(t, uint32(i), last.Index)
	}

	var root rootResult
	require.NoError(t, runTool(t, dataPath, &root, "root", "--network", "7"))
	assert.Equal(t, last.Root, root.Root)
	assert.Equal(t, uint64(3), root.LeafCount)

	var proof proofResult
	require.NoError(t, runTool(t, dataPath, &proof, "proof", "--network", "7", "--index", "1"))
	require.Len(t, proof.Siblings, 32)

	siblings := make([]string, len(proof.Siblings))
	for i, s := range proof.Siblings {
		siblings[i] = s.Hex()
	}
	verifyArgs := func(leaf common.Hash, index int) []string {
		return []string{"verify",
			"--leaf", leaf.Hex(),
			"--index", strconv.Itoa(index),
			"--root", proof.Root.Hex(),
			"--siblings", strings.Join(siblings, ","),
		}
	}

	var verified verifyResult
	require.NoError(t, runTool(t, dataPath, &verified, verifyArgs(leaves[1], 1)...))
	assert.True(t, verified.Valid)

	err := runTool(t, dataPath, nil, verifyArgs(leaves[1], 2)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not verify")
}

func TestCLI_FrontierAndNetworks(t *testing.T) {
	dataPath := t.TempDir()

	for _, network := range []string{"3", "1"} {
		require.NoError(t, runTool(t, dataPath, nil, "add-leaf", "--network", network,
			"--leaf", "0x0000000000000000000000000000000000000000000000000000000000000001"))
	}

	var networks networksResult
	require.NoError(t, runTool(t, dataPath, &networks, "networks"))
	assert.Equal(t, []uint32{1, 3}, networks.Networks)

	var root rootResult
	require.NoError(t, runTool(t, dataPath, &root, "root", "--network", "3"))

	var frontier frontierResult
	require.NoError(t, runTool(t, dataPath, &frontier, "frontier", "--network", "3"))
	assert.Equal(t, root.Root, frontier.Root)
	assert.Equal(t, uint64(1), frontier.LeafCount)
	assert.Len(t, frontier.Branch, 33)
}

func TestCLI_AddExit(t *testing.T) {
	dataPath := t.TempDir()

	var result appendResult
	require.NoError(t, runTool(t, dataPath, &result, "add-exit",
		"--network", "0",
		"--dest-network", "1",
		"--dest-address", "0x00000000000000000000000000000000000000aa",
		"--amount", "1000000000000000000",
		"--metadata", "0x1234",
	))
	assert.Equal(t, uint32(0), result.Index)
	assert.NotEqual(t, common.Hash{}, result.Leaf)

	err := runTool(t, dataPath, nil, "add-exit",
		"--network", "0",
		"--dest-network", "1",
		"--dest-address", "not-an-address",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dest-address")
}

func TestCLI_InvalidInput(t *testing.T) {
	dataPath := t.TempDir()

	hashes := func(n int) string {
		out := make([]string, n)
		for i, h := range testutil.SequentialLeaves(n) {
			out[i] = h.Hex()
		}
		return strings.Join(out, ",")
	}
	verifyWith := func(siblings string, extra ...string) []string {
		args := append([]string{}, extra...)
		return append(args, "verify",
			"--leaf", common.Hash{}.Hex(),
			"--index", "0",
			"--root", common.Hash{}.Hex(),
			"--siblings", siblings,
		)
	}

	testCases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"Short leaf", []string{"add-leaf", "--network", "1", "--leaf", "0x01"}, "expected 32 bytes"},
		{"Non-hex leaf", []string{"add-leaf", "--network", "1", "--leaf", "zz"}, "invalid --leaf"},
		{"Network overflow", []string{"root", "--network", "4294967296"}, "32 bits"},
		{"Proof beyond tree", []string{"proof", "--network", "1", "--index", "0"}, "out of range"},
		{"Bad leaf type", []string{"add-exit", "--network", "1", "--dest-network", "2",
			"--dest-address", "0x00000000000000000000000000000000000000aa", "--leaf-type", "swap"}, "unsupported leaf type"},
		{"Too few siblings", verifyWith(hashes(31)), "expected 32 hashes"},
		{"Too many siblings", verifyWith(hashes(33)), "expected 32 hashes"},
		{"Siblings for another depth", verifyWith(hashes(32), "--tree-depth", "8"), "expected 8 hashes"},
		{"Verify with bad depth", verifyWith(hashes(32), "--tree-depth", "0"), "tree-depth"},
		{"Delete without confirmation", []string{"delete-network", "--network", "1"}, "--yes"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := runTool(t, dataPath, nil, tc.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestCLI_RejectsBadDepth(t *testing.T) {
	err := runTool(t, t.TempDir(), nil, "--tree-depth", "40", "root", "--network", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "treeDepth")
}

func TestCLI_VerifyRejectsInternalNode(t *testing.T) {
	dataPath := t.TempDir()
	for _, leaf := range testutil.SequentialLeaves(4) {
		require.NoError(t, runTool(t, dataPath, nil, "add-leaf", "--network", "2", "--leaf", leaf.Hex()))
	}

	var proof proofResult
	require.NoError(t, runTool(t, dataPath, &proof, "proof", "--network", "2", "--index", "0"))

	// The parent of leaves 0 and 1 with the upper 31 siblings hashes to the
	// real root, but it is not a leaf.
	leaves := testutil.SequentialLeaves(2)
	var h hasher.Keccak256
	internal := h.Merge(leaves[0], leaves[1])

	upper := make([]string, 0, len(proof.Siblings)-1)
	for _, s := range proof.Siblings[1:] {
		upper = append(upper, s.Hex())
	}

	err := runTool(t, dataPath, nil, "verify",
		"--leaf", internal.Hex(),
		"--index", "0",
		"--root", proof.Root.Hex(),
		"--siblings", strings.Join(upper, ","),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 32 hashes")
}

func TestCLI_HealthAndDeleteNetwork(t *testing.T) {
	dataPath := t.TempDir()

	var health healthResult
	require.NoError(t, runTool(t, dataPath, &health, "health"))
	assert.True(t, health.Healthy)
	assert.Equal(t, "leveldb", health.PersistenceType)

	for _, network := range []string{"4", "5"} {
		require.NoError(t, runTool(t, dataPath, nil, "add-leaf", "--network", network,
			"--leaf", "0x0000000000000000000000000000000000000000000000000000000000000001"))
	}

	var deleted deleteResult
	require.NoError(t, runTool(t, dataPath, &deleted, "delete-network", "--network", "4", "--yes"))
	assert.Equal(t, uint32(4), deleted.NetworkID)
	assert.True(t, deleted.Deleted)

	var networks networksResult
	require.NoError(t, runTool(t, dataPath, &networks, "networks"))
	assert.Equal(t, []uint32{5}, networks.Networks)

	var root rootResult
	require.NoError(t, runTool(t, dataPath, &root, "root", "--network", "4"))
	assert.Zero(t, root.LeafCount)
}
