// Package solana is a thin JSON-RPC client for the Solana payment rail.
// It covers only what the bet ledger needs: balance reads and transaction
// signature verification.
package solana

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/solspore/gaming/internal/domain"
)

// lamportsPerSol converts the RPC's native unit to whole tokens.
const lamportsPerSol = 1_000_000_000

// Client talks JSON-RPC 2.0 to a Solana node.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a Client against the given RPC endpoint, e.g.
// "https://api.devnet.solana.com".
func NewClient(endpoint string) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("solana: marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("solana: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("solana: %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("solana: read %s response: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("solana: %s: unexpected status %d: %s", method, resp.StatusCode, body)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("solana: decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("solana: %s: rpc error %d: %s", method, rpcResp.Error.Code, rpcResp.Error.Message)
	}

	if err := json.Unmarshal(rpcResp.Result, result); err != nil {
		return fmt.Errorf("solana: decode %s result: %w", method, err)
	}
	return nil
}

// GetBalance returns the wallet's spendable balance in whole tokens.
func (c *Client) GetBalance(ctx context.Context, walletAddress string) (float64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", []any{walletAddress}, &result); err != nil {
		return 0, err
	}
	return float64(result.Value) / lamportsPerSol, nil
}

// VerifyPayment confirms that txRef is a finalized transaction signature.
// A signature the node has never seen, or one that failed or has not yet
// been finalized, maps to domain.ErrPaymentUnverified.
func (c *Client) VerifyPayment(ctx context.Context, txRef string) error {
	var result struct {
		Value []*struct {
			ConfirmationStatus string          `json:"confirmationStatus"`
			Err                json.RawMessage `json:"err"`
		} `json:"value"`
	}
	params := []any{
		[]string{txRef},
		map[string]any{"searchTransactionHistory": true},
	}
	if err := c.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return err
	}

	if len(result.Value) == 0 || result.Value[0] == nil {
		return fmt.Errorf("solana: signature %s unknown: %w", txRef, domain.ErrPaymentUnverified)
	}

	status := result.Value[0]
	if len(status.Err) > 0 && string(status.Err) != "null" {
		return fmt.Errorf("solana: transaction %s failed on chain: %w", txRef, domain.ErrPaymentUnverified)
	}
	if status.ConfirmationStatus != "finalized" && status.ConfirmationStatus != "confirmed" {
		return fmt.Errorf("solana: transaction %s not finalized: %w", txRef, domain.ErrPaymentUnverified)
	}
	return nil
}

// Compile-time interface check.
var _ domain.PaymentRail = (*Client)(nil)
