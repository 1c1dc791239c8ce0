package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/solspore/gaming/internal/domain"
	"github.com/solspore/gaming/internal/service"
)

// MarketService defines the methods that the market handler requires from
// the service layer.
type MarketService interface {
	GetMarket(ctx context.Context, id string) (domain.Market, error)
	ListMarkets(ctx context.Context, status domain.MarketStatus, opts domain.ListOpts) ([]domain.Market, error)
	CreateMarket(ctx context.Context, req service.CreateMarketRequest) (domain.Market, error)
	DeleteMarket(ctx context.Context, id string) error
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{markets: markets, logger: logger}
}

// listMarketsResponse wraps the list endpoint output with pagination echo.
type listMarketsResponse struct {
	Markets []domain.Market `json:"markets"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListMarkets returns markets, optionally filtered by status.
// GET /api/markets?status=open&limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	status := domain.MarketStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.MarketStatusOpen, domain.MarketStatusClosed, domain.MarketStatusSettled:
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown market status filter")
		return
	}

	markets, err := h.markets.ListMarkets(r.Context(), status, opts)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: markets,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing market id")
		return
	}

	market, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, market)
}

// createMarketRequest is the wire shape for market creation.
type createMarketRequest struct {
	Question  string `json:"question"`
	TeamA     string `json:"teamA"`
	TeamB     string `json:"teamB"`
	CloseTime string `json:"closeTime"`
}

// CreateMarket creates a market under a tournament. Admin only.
// POST /api/tournaments/{id}/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	tournamentID := pathParam(r, "id")

	var req createMarketRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	closeTime, err := parseTime(req.CloseTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "closeTime must be RFC 3339")
		return
	}

	market, err := h.markets.CreateMarket(r.Context(), service.CreateMarketRequest{
		TournamentID: tournamentID,
		Question:     req.Question,
		TeamA:        req.TeamA,
		TeamB:        req.TeamB,
		CloseTime:    closeTime,
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, market)
}

// DeleteMarket removes a market. Admin only.
// DELETE /api/tournaments/{id}/markets/{mid}
func (h *MarketHandler) DeleteMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "mid")
	if err := h.markets.DeleteMarket(r.Context(), id); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}
