package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"tokencast/models"

	"github.com/avast/retry-go/v4"
	"github.com/mr-tron/base58"
)

// Client is a JSON-RPC 2.0 client for the blockchain endpoint. The platform
// consumes two methods: wallet balance lookups for the whitelist flow and
// token supply for market-cap observations.
type Client struct {
	endpoint   string
	httpClient *http.Client
	requestID  atomic.Uint64
}

// NewClient creates a blockchain RPC client.
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ValidAddress reports whether addr is a plausible base58-encoded 32-byte key.
func ValidAddress(addr string) bool {
	decoded, err := base58.Decode(addr)
	if err != nil {
		return false
	}
	return len(decoded) == 32
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// GetBalance returns the wallet's balance in base units.
func (c *Client) GetBalance(ctx context.Context, wallet string) (uint64, error) {
	if !ValidAddress(wallet) {
		return 0, fmt.Errorf("%w: invalid wallet address %q", models.ErrValidation, wallet)
	}

	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []any{wallet}, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// GetTokenSupply returns the token's circulating supply in UI units.
func (c *Client) GetTokenSupply(ctx context.Context, mint string) (float64, error) {
	if !ValidAddress(mint) {
		return 0, fmt.Errorf("%w: invalid token address %q", models.ErrValidation, mint)
	}

	var result struct {
		Value struct {
			UIAmount float64 `json:"uiAmount"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getTokenSupply", []any{mint}, &result); err != nil {
		return 0, err
	}
	return result.Value.UIAmount, nil
}

// call performs a JSON-RPC call with bounded retry on transport errors.
func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	return retry.Do(
		func() error {
			return c.doCall(ctx, body, result)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			// RPC-level errors are definitive; only transport failures retry.
			var rpcErr *rpcError
			return !errors.As(err, &rpcErr)
		}),
	)
}

func (c *Client) doCall(ctx context.Context, body []byte, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: rpc request: %v", models.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: rpc returned %s: %s", models.ErrUpstream, resp.Status, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("%w: decode rpc response: %v", models.ErrUpstream, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%w: %w", models.ErrUpstream, rpcResp.Error)
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("%w: unmarshal rpc result: %v", models.ErrUpstream, err)
		}
	}
	return nil
}
