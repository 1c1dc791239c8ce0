package domain

import (
	"context"
	"io"
)

// PaymentRail is the narrow interface onto the blockchain used to move
// funds. The server never signs wallet transactions; bettors fund their
// stake client-side and the ledger only verifies the resulting reference.
type PaymentRail interface {
	// GetBalance returns the spendable balance of a wallet in whole tokens.
	GetBalance(ctx context.Context, walletAddress string) (float64, error)
	// VerifyPayment confirms that the given transaction reference has been
	// finalized on the rail. Returns ErrPaymentUnverified when it has not.
	VerifyPayment(ctx context.Context, txRef string) error
}

// PayoutTrigger fires the payout mechanism for a winning bet's contract
// reference and returns a transaction reference. Implementations may be
// stubs; settlement treats failures here as soft and never blocks the
// financial record on them.
type PayoutTrigger interface {
	TriggerPayout(ctx context.Context, contractRef string, walletAddress string, amount float64) (string, error)
}

// BlobWriter uploads opaque objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
