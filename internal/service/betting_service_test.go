package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solspore/gaming/internal/domain"
)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type stubMarketStore struct {
	domain.MarketStore

	markets map[string]domain.Market
}

func (s *stubMarketStore) GetByID(_ context.Context, id string) (domain.Market, error) {
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

type stubBetStore struct {
	domain.BetStore

	mu        sync.Mutex
	created   []domain.Bet
	createErr error
	market    domain.Market
}

func (s *stubBetStore) CreateWithStake(_ context.Context, b domain.Bet, delta domain.StakeDelta) (domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return domain.Market{}, s.createErr
	}
	s.created = append(s.created, b)

	m := s.market
	if delta.Outcome == domain.OutcomeYes {
		m.YesStake += delta.Amount
	} else {
		m.NoStake += delta.Amount
	}
	m.YesOdds = delta.YesOdds
	m.NoOdds = delta.NoOdds
	s.market = m
	return m, nil
}

type stubUserStore struct {
	domain.UserStore

	mu        sync.Mutex
	byWallet  map[string]domain.User
	createErr error
	// raceUser appears in byWallet only after a failed create, simulating a
	// concurrent writer winning the insert.
	raceUser *domain.User
	creates  int
}

func (s *stubUserStore) GetByWallet(_ context.Context, wallet string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byWallet[wallet]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *stubUserStore) Create(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.createErr != nil {
		if s.raceUser != nil && s.raceUser.WalletAddress != nil {
			s.byWallet[*s.raceUser.WalletAddress] = *s.raceUser
		}
		return s.createErr
	}
	if u.WalletAddress != nil {
		s.byWallet[*u.WalletAddress] = u
	}
	return nil
}

type stubCache struct {
	mu   sync.Mutex
	sets []domain.Market
}

func (c *stubCache) Get(context.Context, string) (domain.Market, bool, error) {
	return domain.Market{}, false, nil
}

func (c *stubCache) Set(_ context.Context, m domain.Market) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets = append(c.sets, m)
	return nil
}

func (c *stubCache) Invalidate(context.Context, string) error { return nil }

type stubLimiter struct {
	allowed bool
}

func (l *stubLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return l.allowed, nil
}

type stubServiceBus struct {
	mu       sync.Mutex
	channels []string
}

func (b *stubServiceBus) Publish(_ context.Context, channel string, _ []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.channels = append(b.channels, channel)
	return nil
}

func (b *stubServiceBus) Subscribe(context.Context, string) (<-chan domain.Signal, error) {
	return nil, errors.New("not implemented")
}

type stubRail struct {
	verifyErr error
	verified  int
}

func (r *stubRail) GetBalance(context.Context, string) (float64, error) { return 0, nil }

func (r *stubRail) VerifyPayment(context.Context, string) error {
	r.verified++
	return r.verifyErr
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type bettingFixture struct {
	svc     *BettingService
	markets *stubMarketStore
	bets    *stubBetStore
	users   *stubUserStore
	cache   *stubCache
	bus     *stubServiceBus
	rail    *stubRail
}

func newBettingFixture(market domain.Market, verify bool) *bettingFixture {
	markets := &stubMarketStore{markets: map[string]domain.Market{market.ID: market}}
	bets := &stubBetStore{market: market}
	users := &stubUserStore{byWallet: map[string]domain.User{}}
	cache := &stubCache{}
	bus := &stubServiceBus{}
	rail := &stubRail{}

	svc := NewBettingService(
		markets, bets, users, cache,
		&stubLimiter{allowed: true}, bus, rail,
		BettingConfig{Margin: 0.05, VerifyPayments: verify, RateLimit: 10, RateWindow: time.Minute},
		slog.New(slog.DiscardHandler),
	)
	return &bettingFixture{svc: svc, markets: markets, bets: bets, users: users, cache: cache, bus: bus, rail: rail}
}

func openTestMarket() domain.Market {
	return domain.Market{
		ID:           "m1",
		TournamentID: "t1",
		Question:     "Will Team A win the grand final?",
		TeamA:        "Team A",
		TeamB:        "Team B",
		CloseTime:    time.Now().Add(time.Hour),
		YesOdds:      1.90,
		NoOdds:       1.90,
		YesStake:     100,
		NoStake:      100,
		Status:       domain.MarketStatusOpen,
	}
}

func validRequest() PlaceBetRequest {
	return PlaceBetRequest{
		MarketID:      "m1",
		WalletAddress: "So1anaWa11etAddr",
		Outcome:       domain.OutcomeYes,
		Stake:         50,
		PaymentRef:    "5igNaTure",
	}
}

// ---------------------------------------------------------------------------
// tests
// ---------------------------------------------------------------------------

func TestPlaceBetHappyPath(t *testing.T) {
	fx := newBettingFixture(openTestMarket(), false)

	bet, market, err := fx.svc.PlaceBet(context.Background(), validRequest())
	require.NoError(t, err)

	// The bet is priced at the yes odds recomputed with its stake included.
	assert.InDelta(t, 1.58, bet.Odds, 1e-9)
	assert.Equal(t, domain.BetStatusActive, bet.Status)
	assert.Equal(t, "t1", bet.TournamentID)

	// 150 yes vs 100 no after the stake lands.
	assert.Equal(t, 150.0, market.YesStake)
	assert.Equal(t, 100.0, market.NoStake)
	assert.InDelta(t, 1.58, market.YesOdds, 1e-9)
	assert.InDelta(t, 2.38, market.NoOdds, 1e-9)

	require.Len(t, fx.bets.created, 1)
	require.Len(t, fx.cache.sets, 1)
	require.Len(t, fx.bus.channels, 1)
	assert.Equal(t, "ch:odds:m1", fx.bus.channels[0])

	// A guest user was created for the unknown wallet.
	assert.Equal(t, 1, fx.users.creates)
	u, err := fx.users.GetByWallet(context.Background(), "So1anaWa11etAddr")
	require.NoError(t, err)
	assert.Equal(t, bet.UserID, u.ID)
}

func TestPlaceBetPinnedOdds(t *testing.T) {
	fx := newBettingFixture(openTestMarket(), false)

	quoted := 1.90
	req := validRequest()
	req.Odds = &quoted

	bet, market, err := fx.svc.PlaceBet(context.Background(), req)
	require.NoError(t, err)

	// The caller pinned the quote it was shown; the market still recomputes.
	assert.Equal(t, 1.90, bet.Odds)
	assert.InDelta(t, 1.58, market.YesOdds, 1e-9)

	// A non-positive pin is ignored in favour of the recomputed price.
	fx = newBettingFixture(openTestMarket(), false)
	bad := -2.0
	req = validRequest()
	req.Odds = &bad

	bet, _, err = fx.svc.PlaceBet(context.Background(), req)
	require.NoError(t, err)
	assert.InDelta(t, 1.58, bet.Odds, 1e-9)
}

func TestPlaceBetNoSidePricedFromRecompute(t *testing.T) {
	fx := newBettingFixture(openTestMarket(), false)

	req := validRequest()
	req.Outcome = domain.OutcomeNo

	bet, market, err := fx.svc.PlaceBet(context.Background(), req)
	require.NoError(t, err)

	// 100 yes vs 150 no: the no side recomputes to 250/150 * 0.95.
	assert.InDelta(t, 1.58, bet.Odds, 1e-9)
	assert.InDelta(t, 2.38, market.YesOdds, 1e-9)
	assert.InDelta(t, 1.58, market.NoOdds, 1e-9)
}

func TestPlaceBetPreconditionOrder(t *testing.T) {
	closedStatus := openTestMarket()
	closedStatus.Status = domain.MarketStatusClosed

	pastClose := openTestMarket()
	pastClose.CloseTime = time.Now().Add(-time.Minute)

	tests := []struct {
		name    string
		market  domain.Market
		mutate  func(*PlaceBetRequest)
		check   func(t *testing.T, err error)
	}{
		{
			name:   "unknown market wins over bad stake",
			market: openTestMarket(),
			mutate: func(r *PlaceBetRequest) { r.MarketID = "nope"; r.Stake = -1 },
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, domain.ErrMarketNotFound))
			},
		},
		{
			name:   "close time wins over bad outcome",
			market: pastClose,
			mutate: func(r *PlaceBetRequest) { r.Outcome = "maybe" },
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, domain.ErrMarketClosed))
			},
		},
		{
			name:   "status wins over bad outcome",
			market: closedStatus,
			mutate: func(r *PlaceBetRequest) { r.Outcome = "maybe" },
			check: func(t *testing.T, err error) {
				mu, ok := domain.IsMarketUnavailable(err)
				require.True(t, ok)
				assert.Equal(t, domain.MarketStatusClosed, mu.Status)
			},
		},
		{
			name:   "outcome wins over bad stake",
			market: openTestMarket(),
			mutate: func(r *PlaceBetRequest) { r.Outcome = "maybe"; r.Stake = 0 },
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, domain.ErrInvalidOutcome))
			},
		},
		{
			name:   "zero stake rejected",
			market: openTestMarket(),
			mutate: func(r *PlaceBetRequest) { r.Stake = 0 },
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, domain.ErrInvalidStake))
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fx := newBettingFixture(tc.market, false)
			req := validRequest()
			tc.mutate(&req)

			_, _, err := fx.svc.PlaceBet(context.Background(), req)
			require.Error(t, err)
			tc.check(t, err)
			assert.Empty(t, fx.bets.created)
		})
	}
}

func TestPlaceBetMissingFields(t *testing.T) {
	fx := newBettingFixture(openTestMarket(), false)

	req := validRequest()
	req.WalletAddress = "  "
	_, _, err := fx.svc.PlaceBet(context.Background(), req)
	assert.True(t, errors.Is(err, domain.ErrMissingFields))

	req = validRequest()
	req.PaymentRef = ""
	_, _, err = fx.svc.PlaceBet(context.Background(), req)
	assert.True(t, errors.Is(err, domain.ErrMissingFields))
}

func TestPlaceBetRateLimited(t *testing.T) {
	fx := newBettingFixture(openTestMarket(), false)
	fx.svc.limiter = &stubLimiter{allowed: false}

	_, _, err := fx.svc.PlaceBet(context.Background(), validRequest())
	assert.True(t, errors.Is(err, domain.ErrRateLimited))
	assert.Empty(t, fx.bets.created)
}

func TestPlaceBetPaymentVerification(t *testing.T) {
	fx := newBettingFixture(openTestMarket(), true)
	fx.rail.verifyErr = domain.ErrPaymentUnverified

	_, _, err := fx.svc.PlaceBet(context.Background(), validRequest())
	assert.True(t, errors.Is(err, domain.ErrPaymentUnverified))
	assert.Equal(t, 1, fx.rail.verified)
	assert.Empty(t, fx.bets.created)

	// Verification disabled: the rail is never consulted.
	fx = newBettingFixture(openTestMarket(), false)
	fx.rail.verifyErr = domain.ErrPaymentUnverified
	_, _, err = fx.svc.PlaceBet(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Zero(t, fx.rail.verified)
}

func TestPlaceBetGuestCreationRace(t *testing.T) {
	fx := newBettingFixture(openTestMarket(), false)

	// Another process creates the user between the read and the write: the
	// first lookup misses, the insert collides, the re-read succeeds.
	wallet := "So1anaWa11etAddr"
	racer := domain.User{ID: "existing", Role: domain.RoleUser, WalletAddress: &wallet}
	fx.users.createErr = domain.ErrAlreadyExists
	fx.users.raceUser = &racer

	bet, _, err := fx.svc.PlaceBet(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, fx.users.creates)
	assert.Equal(t, "existing", bet.UserID)
}

func TestPlaceBetPersistenceFailure(t *testing.T) {
	fx := newBettingFixture(openTestMarket(), false)
	fx.bets.createErr = errors.New("db unavailable")

	_, _, err := fx.svc.PlaceBet(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBetPersistence))
	assert.Empty(t, fx.cache.sets)
	assert.Empty(t, fx.bus.channels)
}

func TestListWalletBetsUnknownWallet(t *testing.T) {
	fx := newBettingFixture(openTestMarket(), false)

	bets, err := fx.svc.ListWalletBets(context.Background(), "unknown", domain.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, bets)
}
