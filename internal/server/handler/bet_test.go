package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solspore/gaming/internal/domain"
	"github.com/solspore/gaming/internal/service"
)

type stubBetting struct {
	placeErr error
	placed   *service.PlaceBetRequest
	bet      domain.Bet
	market   domain.Market

	listErr error
	bets    []domain.Bet
}

func (s *stubBetting) PlaceBet(_ context.Context, req service.PlaceBetRequest) (domain.Bet, domain.Market, error) {
	s.placed = &req
	if s.placeErr != nil {
		return domain.Bet{}, domain.Market{}, s.placeErr
	}
	return s.bet, s.market, nil
}

func (s *stubBetting) ListUserBets(context.Context, string, domain.ListOpts) ([]domain.Bet, error) {
	return s.bets, s.listErr
}

func (s *stubBetting) ListWalletBets(context.Context, string, domain.ListOpts) ([]domain.Bet, error) {
	return s.bets, s.listErr
}

func betRouter(betting *stubBetting) *http.ServeMux {
	h := NewBetHandler(betting, slog.New(slog.DiscardHandler))
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/markets/{id}/bets", h.PlaceBet)
	mux.HandleFunc("GET /api/bets", h.ListBets)
	return mux
}

func TestPlaceBetCreated(t *testing.T) {
	betting := &stubBetting{
		bet:    domain.Bet{ID: "b1", MarketID: "m1", Outcome: domain.OutcomeYes, Stake: 200, Odds: 1.90},
		market: domain.Market{ID: "m1", YesOdds: 1.58, NoOdds: 2.38},
	}
	mux := betRouter(betting)

	body := `{"walletAddress":"wallet-abc","outcome":"yes","stake":200,"odds":1.90,"paymentRef":"sig123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/markets/m1/bets", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	require.NotNil(t, betting.placed)
	assert.Equal(t, "m1", betting.placed.MarketID)
	assert.Equal(t, "wallet-abc", betting.placed.WalletAddress)
	assert.Equal(t, domain.OutcomeYes, betting.placed.Outcome)
	assert.Equal(t, "sig123", betting.placed.PaymentRef)
	require.NotNil(t, betting.placed.Odds)
	assert.Equal(t, 1.90, *betting.placed.Odds)

	var resp placeBetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "b1", resp.Bet.ID)
	assert.Equal(t, 1.58, resp.Market.YesOdds)
}

func TestPlaceBetErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"market not found", domain.ErrMarketNotFound, http.StatusNotFound, "market_not_found"},
		{"market closed", domain.ErrMarketClosed, http.StatusConflict, "market_closed"},
		{"market unavailable", &domain.MarketUnavailableError{Status: domain.MarketStatusSettled}, http.StatusConflict, "market_unavailable"},
		{"invalid outcome", domain.ErrInvalidOutcome, http.StatusBadRequest, "invalid_outcome"},
		{"invalid stake", domain.ErrInvalidStake, http.StatusBadRequest, "invalid_stake"},
		{"missing fields", domain.ErrMissingFields, http.StatusBadRequest, "invalid_request"},
		{"payment unverified", domain.ErrPaymentUnverified, http.StatusPaymentRequired, "payment_unverified"},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{"persistence failure", domain.ErrBetPersistence, http.StatusInternalServerError, "internal"},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := betRouter(&stubBetting{placeErr: tt.err})

			body := `{"walletAddress":"w","outcome":"yes","stake":10,"paymentRef":"p"}`
			req := httptest.NewRequest(http.MethodPost, "/api/markets/m1/bets", strings.NewReader(body))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantKind, resp.Error)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestPlaceBetMalformedBody(t *testing.T) {
	betting := &stubBetting{}
	mux := betRouter(betting)

	req := httptest.NewRequest(http.MethodPost, "/api/markets/m1/bets", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, betting.placed)
}

func TestListBetsByWallet(t *testing.T) {
	betting := &stubBetting{bets: []domain.Bet{{ID: "b1"}, {ID: "b2"}}}
	mux := betRouter(betting)

	req := httptest.NewRequest(http.MethodGet, "/api/bets?wallet=wallet-abc", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Bets []domain.Bet `json:"bets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Bets, 2)
}

func TestListBetsAnonymousWithoutWallet(t *testing.T) {
	mux := betRouter(&stubBetting{})

	req := httptest.NewRequest(http.MethodGet, "/api/bets", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
