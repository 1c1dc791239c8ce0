package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/solspore/gaming/internal/domain"
	"github.com/solspore/gaming/internal/server/middleware"
	"github.com/solspore/gaming/internal/service"
)

// BettingService defines the methods that the bet handler requires from the
// service layer.
type BettingService interface {
	PlaceBet(ctx context.Context, req service.PlaceBetRequest) (domain.Bet, domain.Market, error)
	ListUserBets(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Bet, error)
	ListWalletBets(ctx context.Context, wallet string, opts domain.ListOpts) ([]domain.Bet, error)
}

// BetHandler serves bet placement and bet history endpoints.
type BetHandler struct {
	betting BettingService
	logger  *slog.Logger
}

// NewBetHandler creates a BetHandler with the given service and logger.
func NewBetHandler(betting BettingService, logger *slog.Logger) *BetHandler {
	return &BetHandler{betting: betting, logger: logger}
}

// placeBetRequest is the wire shape for bet placement.
type placeBetRequest struct {
	WalletAddress string   `json:"walletAddress"`
	Outcome       string   `json:"outcome"`
	Stake         float64  `json:"stake"`
	Odds          *float64 `json:"odds"`
	PaymentRef    string   `json:"paymentRef"`
	ContractRef   *string  `json:"contractRef"`
}

// placeBetResponse returns the recorded bet and the market's fresh odds.
type placeBetResponse struct {
	Bet    domain.Bet    `json:"bet"`
	Market domain.Market `json:"market"`
}

// PlaceBet accepts a wager on a market.
// POST /api/markets/{id}/bets
func (h *BetHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")

	var req placeBetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	bet, market, err := h.betting.PlaceBet(r.Context(), service.PlaceBetRequest{
		MarketID:      marketID,
		WalletAddress: req.WalletAddress,
		Outcome:       domain.Outcome(req.Outcome),
		Stake:         req.Stake,
		Odds:          req.Odds,
		PaymentRef:    req.PaymentRef,
		ContractRef:   req.ContractRef,
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, placeBetResponse{Bet: bet, Market: market})
}

// ListBets returns bets for a wallet address, or for the authenticated
// caller when no wallet is given.
// GET /api/bets?wallet=...
func (h *BetHandler) ListBets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	if wallet := r.URL.Query().Get("wallet"); wallet != "" {
		bets, err := h.betting.ListWalletBets(r.Context(), wallet, opts)
		if err != nil {
			writeDomainError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bets": bets})
		return
	}

	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "wallet query or session required")
		return
	}

	bets, err := h.betting.ListUserBets(r.Context(), identity.UserID, opts)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bets": bets})
}
