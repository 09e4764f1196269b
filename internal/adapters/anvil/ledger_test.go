package anvil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	Jsonrpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  []interface{}   `json:"params"`
	ID      json.RawMessage `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	Result  interface{}     `json:"result"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// newMockRPCServer creates a test HTTP server that responds to JSON-RPC requests
func newMockRPCServer(t *testing.T, handler func(req rpcRequest) rpcResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode RPC request: %v", err)
			return
		}
		resp := handler(req)
		resp.Jsonrpc = "2.0"
		resp.ID = req.ID
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("failed to encode RPC response: %v", err)
		}
	}))
}

// ledgerForServer creates a Ledger pointing at the test server
func ledgerForServer(t *testing.T, server *httptest.Server) *Ledger {
	t.Helper()
	rc, err := rpc.DialContext(context.Background(), server.URL)
	require.NoError(t, err)
	t.Cleanup(rc.Close)
	return NewLedgerFromRPC(rc)
}

func TestLedger_ChainID(t *testing.T) {
	server := newMockRPCServer(t, func(req rpcRequest) rpcResponse {
		assert.Equal(t, "eth_chainId", req.Method)
		return rpcResponse{Result: "0x7a69"}
	})
	defer server.Close()

	id, err := ledgerForServer(t, server).ChainID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(31337), id)
}

func TestLedger_Mine(t *testing.T) {
	var calls int
	server := newMockRPCServer(t, func(req rpcRequest) rpcResponse {
		calls++
		assert.Equal(t, "anvil_mine", req.Method)
		require.Len(t, req.Params, 1)
		assert.Equal(t, "0x6", req.Params[0])
		return rpcResponse{Result: nil}
	})
	defer server.Close()

	l := ledgerForServer(t, server)
	require.NoError(t, l.Mine(context.Background(), 6))
	require.NoError(t, l.Mine(context.Background(), 0))
	assert.Equal(t, 1, calls, "mining zero blocks should not hit the node")
}

func TestLedger_IncreaseTime(t *testing.T) {
	server := newMockRPCServer(t, func(req rpcRequest) rpcResponse {
		assert.Equal(t, "evm_increaseTime", req.Method)
		require.Len(t, req.Params, 1)
		assert.Equal(t, "0xe10", req.Params[0])
		return rpcResponse{Result: 3600}
	})
	defer server.Close()

	require.NoError(t, ledgerForServer(t, server).IncreaseTime(context.Background(), 3600))
}

func TestLedger_Snapshot(t *testing.T) {
	server := newMockRPCServer(t, func(req rpcRequest) rpcResponse {
		assert.Equal(t, "evm_snapshot", req.Method)
		return rpcResponse{Result: "0x1"}
	})
	defer server.Close()

	id, err := ledgerForServer(t, server).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0x1", id)
}

func TestLedger_Snapshot_Error(t *testing.T) {
	server := newMockRPCServer(t, func(req rpcRequest) rpcResponse {
		return rpcResponse{Error: &rpcError{Code: -32000, Message: "snapshot failed"}}
	})
	defer server.Close()

	_, err := ledgerForServer(t, server).Snapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot failed")
}

func TestLedger_Revert(t *testing.T) {
	server := newMockRPCServer(t, func(req rpcRequest) rpcResponse {
		assert.Equal(t, "evm_revert", req.Method)
		require.Len(t, req.Params, 1)
		return rpcResponse{Result: req.Params[0] == "0x1"}
	})
	defer server.Close()

	l := ledgerForServer(t, server)
	ok, err := l.Revert(context.Background(), "0x1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Revert(context.Background(), "0xbad")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedger_SendTransaction(t *testing.T) {
	from := common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	to := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	txHash := "0x9fc76417374aa880d4449a1f7f31ec597f00b1f6f3dd2d66f4c9c6c445836d8b"

	server := newMockRPCServer(t, func(req rpcRequest) rpcResponse {
		assert.Equal(t, "eth_sendTransaction", req.Method)
		require.Len(t, req.Params, 1)
		tx, ok := req.Params[0].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266", tx["from"])
		assert.Equal(t, "0x5fbdb2315678afecb367f032d93f642f64180aa3", tx["to"])
		assert.Equal(t, "0x160cbed7", tx["data"])
		return rpcResponse{Result: txHash}
	})
	defer server.Close()

	hash, err := ledgerForServer(t, server).SendTransaction(context.Background(), from, to, []byte{0x16, 0x0c, 0xbe, 0xd7})
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash(txHash), hash)
}

func TestLedger_SendTransaction_Reverted(t *testing.T) {
	server := newMockRPCServer(t, func(req rpcRequest) rpcResponse {
		return rpcResponse{Error: &rpcError{Code: 3, Message: "execution reverted: Governor: proposal not successful"}}
	})
	defer server.Close()

	_, err := ledgerForServer(t, server).SendTransaction(context.Background(), common.Address{1}, common.Address{2}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proposal not successful")
}
