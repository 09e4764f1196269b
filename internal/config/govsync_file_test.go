package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFile = `
[networks.local]
rpc_url = "${GOVSYNC_TEST_RPC}"
governor = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
chain_id = 31337
block_time = "1s"
test_control = true
batch_reads = false

[networks.sepolia]
rpc_url = "https://rpc.sepolia.example"
governor = "0x0000000000000000000000000000000000000abc"
chain_id = 11155111
from_block = 5000000
vote_decimals = 6
log_range = 2000

[sync]
height_debounce = "250ms"
reconcile_concurrency = 4

[harness]
from = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
`

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadGovsyncFile(t *testing.T) {
	t.Run("parses tables and expands env", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv("GOVSYNC_TEST_RPC", "http://127.0.0.1:8545")
		path := writeConfig(t, dir, sampleFile)

		file, err := LoadGovsyncFile(path)
		require.NoError(t, err)

		require.Len(t, file.Networks, 2)
		local := file.Networks["local"]
		assert.Equal(t, "http://127.0.0.1:8545", local.RPCURL)
		assert.Equal(t, time.Second, local.BlockTime)
		assert.True(t, local.TestControl)
		require.NotNil(t, local.BatchReads)
		assert.False(t, *local.BatchReads)

		assert.Equal(t, 250*time.Millisecond, file.Sync.HeightDebounce)
		assert.Equal(t, 4, file.Sync.ReconcileConcurrency)
		assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", file.Harness.From)
	})

	t.Run("loads .env next to the file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GOVSYNC_DOTENV_RPC=http://from-dotenv:8545\n"), 0644))
		path := writeConfig(t, dir, `
[networks.local]
rpc_url = "${GOVSYNC_DOTENV_RPC}"
governor = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
`)
		t.Cleanup(func() { os.Unsetenv("GOVSYNC_DOTENV_RPC") })

		file, err := LoadGovsyncFile(path)
		require.NoError(t, err)
		assert.Equal(t, "http://from-dotenv:8545", file.Networks["local"].RPCURL)
	})

	t.Run("missing file is empty", func(t *testing.T) {
		file, err := LoadGovsyncFile(filepath.Join(t.TempDir(), FileName))
		require.NoError(t, err)
		assert.Empty(t, file.Networks)
	})

	t.Run("invalid toml", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "[networks.local\nrpc_url=")
		_, err := LoadGovsyncFile(path)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse govsync.toml")
	})
}

func TestResolveNetwork(t *testing.T) {
	t.Setenv("GOVSYNC_TEST_RPC", "http://127.0.0.1:8545")
	file, err := LoadGovsyncFile(writeConfig(t, t.TempDir(), sampleFile))
	require.NoError(t, err)

	t.Run("defaults", func(t *testing.T) {
		network, err := file.ResolveNetwork("local")
		require.NoError(t, err)
		assert.Equal(t, "local", network.Name)
		assert.Equal(t, common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"), network.Governor)
		assert.False(t, network.BatchReads)
		assert.Equal(t, DefaultLogRange, network.LogRange)
	})

	t.Run("explicit values", func(t *testing.T) {
		network, err := file.ResolveNetwork("sepolia")
		require.NoError(t, err)
		assert.True(t, network.BatchReads)
		assert.Equal(t, uint64(5000000), network.FromBlock)
		assert.Equal(t, int32(6), network.VoteDecimals)
		assert.Equal(t, uint64(2000), network.LogRange)
		assert.False(t, network.TestControl)
	})

	t.Run("unknown network", func(t *testing.T) {
		_, err := file.ResolveNetwork("mainnet")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "available: [local sepolia]")
	})

	t.Run("empty name with several networks", func(t *testing.T) {
		network, err := file.ResolveNetwork("")
		require.NoError(t, err)
		assert.Nil(t, network)
	})

	t.Run("empty name with one network", func(t *testing.T) {
		single := &GovsyncFile{Networks: map[string]NetworkSection{
			"only": {RPCURL: "http://x", Governor: "0x0000000000000000000000000000000000000001"},
		}}
		network, err := single.ResolveNetwork("")
		require.NoError(t, err)
		require.NotNil(t, network)
		assert.Equal(t, "only", network.Name)
	})

	t.Run("invalid governor", func(t *testing.T) {
		bad := &GovsyncFile{Networks: map[string]NetworkSection{
			"bad": {RPCURL: "http://x", Governor: "nope"},
		}}
		_, err := bad.ResolveNetwork("bad")
		assert.Error(t, err)
	})
}
