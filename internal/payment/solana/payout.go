package solana

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/solspore/gaming/internal/domain"
)

// SimulatedTrigger is a payout trigger that records the intent without
// moving funds. Real disbursement happens out of band; settlement only
// needs a reference to attach to the bet record.
type SimulatedTrigger struct {
	logger *slog.Logger
}

// NewSimulatedTrigger creates a SimulatedTrigger.
func NewSimulatedTrigger(logger *slog.Logger) *SimulatedTrigger {
	return &SimulatedTrigger{logger: logger}
}

// TriggerPayout logs the payout intent and returns a simulated
// transaction reference.
func (st *SimulatedTrigger) TriggerPayout(ctx context.Context, contractRef, walletAddress string, amount float64) (string, error) {
	nonce := make([]byte, 4)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("solana: payout nonce: %w", err)
	}
	ref := fmt.Sprintf("sim_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(nonce))

	st.logger.InfoContext(ctx, "simulated payout triggered",
		slog.String("contract_ref", contractRef),
		slog.String("wallet", walletAddress),
		slog.Float64("amount", amount),
		slog.String("tx_ref", ref),
	)
	return ref, nil
}

// Compile-time interface check.
var _ domain.PayoutTrigger = (*SimulatedTrigger)(nil)
