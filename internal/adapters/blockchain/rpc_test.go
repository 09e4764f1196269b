package blockchain

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	Jsonrpc string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      json.RawMessage   `json:"id"`
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

// newMockRPCServer answers single and batched JSON-RPC requests with handler
func newMockRPCServer(t *testing.T, handler func(req rpcRequest) rpcResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("failed to read RPC request: %v", err)
			return
		}
		answer := func(req rpcRequest) rpcResponse {
			resp := handler(req)
			resp.Jsonrpc = "2.0"
			resp.ID = req.ID
			return resp
		}

		w.Header().Set("Content-Type", "application/json")
		if bytes.HasPrefix(bytes.TrimSpace(body), []byte("[")) {
			var reqs []rpcRequest
			if err := json.Unmarshal(body, &reqs); err != nil {
				t.Errorf("failed to decode RPC batch: %v", err)
				return
			}
			resps := make([]rpcResponse, len(reqs))
			for i, req := range reqs {
				resps[i] = answer(req)
			}
			_ = json.NewEncoder(w).Encode(resps)
			return
		}

		var req rpcRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("failed to decode RPC request: %v", err)
			return
		}
		_ = json.NewEncoder(w).Encode(answer(req))
	}))
}

func clientForServer(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := Dial(context.Background(), server.URL)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}
