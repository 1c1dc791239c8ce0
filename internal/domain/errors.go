package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrLockHeld      = errors.New("lock already held")

	// ErrMissingFields indicates a request omitted a required field.
	ErrMissingFields = errors.New("missing required fields")

	// Bet-placement precondition failures, in the order they are checked.
	ErrMarketNotFound = errors.New("market not found")
	ErrMarketClosed   = errors.New("market close time has passed")
	ErrInvalidOutcome = errors.New("outcome must be yes or no")
	ErrInvalidStake   = errors.New("stake must be a positive amount")

	// ErrPaymentUnverified indicates the payment-rail transaction reference
	// could not be confirmed.
	ErrPaymentUnverified = errors.New("payment not verified")

	// ErrBetPersistence indicates the bet record could not be written after
	// the market stake was already mutated. The caller's payment may be
	// committed on the rail: funds received, ledger inconsistent.
	ErrBetPersistence = errors.New("bet could not be recorded")
)

// MarketUnavailableError is returned when a bet targets a market that is
// not open. It carries the current status for the caller to display.
type MarketUnavailableError struct {
	Status MarketStatus
}

func (e *MarketUnavailableError) Error() string {
	return fmt.Sprintf("market is not open for betting (status: %s)", e.Status)
}

// IsMarketUnavailable reports whether err is a MarketUnavailableError and
// returns it if so.
func IsMarketUnavailable(err error) (*MarketUnavailableError, bool) {
	var mu *MarketUnavailableError
	if errors.As(err, &mu) {
		return mu, true
	}
	return nil, false
}
