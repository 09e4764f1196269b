package blockchain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainProbe(t *testing.T) {
	server := newMockRPCServer(t, func(req rpcRequest) rpcResponse {
		if req.Method == "eth_chainId" {
			return rpcResponse{Result: "0x7a69"}
		}
		return rpcResponse{Error: &rpcError{Code: -32601, Message: "method not found"}}
	})
	defer server.Close()

	id, err := NewChainProbe().ProbeChainID(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, uint64(31337), id)
}

func TestChainProbeBadURL(t *testing.T) {
	_, err := NewChainProbe().ProbeChainID(context.Background(), "ftp://nowhere")
	assert.Error(t, err)
}

func TestVerifyChainID(t *testing.T) {
	server := newMockRPCServer(t, func(req rpcRequest) rpcResponse {
		return rpcResponse{Result: "0x1"}
	})
	defer server.Close()
	client := clientForServer(t, server)

	id, err := client.VerifyChainID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	_, err = client.VerifyChainID(context.Background(), 31337)
	assert.ErrorContains(t, err, "chain ID mismatch")
}
