package settlement

import (
	"context"
	"errors"
	"log/slog"
	"strings"
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

type fakeMarketStore struct {
	domain.MarketStore

	mu          sync.Mutex
	markets     map[string]domain.Market
	transitions map[string][]domain.MarketStatus
	statusErr   map[string]error
	settleErr   map[string]error
}

func newFakeMarketStore(markets ...domain.Market) *fakeMarketStore {
	s := &fakeMarketStore{
		markets:     make(map[string]domain.Market),
		transitions: make(map[string][]domain.MarketStatus),
		statusErr:   make(map[string]error),
		settleErr:   make(map[string]error),
	}
	for _, m := range markets {
		s.markets[m.ID] = m
	}
	return s
}

func (s *fakeMarketStore) GetByID(_ context.Context, id string) (domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *fakeMarketStore) ListExpired(_ context.Context, now time.Time) ([]domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Market
	for _, m := range s.markets {
		if m.Status == domain.MarketStatusOpen && m.CloseTime.Before(now) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *fakeMarketStore) UpdateStatus(_ context.Context, id string, status domain.MarketStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.statusErr[id]; err != nil {
		return err
	}
	m, ok := s.markets[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.Status = status
	s.markets[id] = m
	s.transitions[id] = append(s.transitions[id], status)
	return nil
}

func (s *fakeMarketStore) Settle(_ context.Context, id string, result domain.Outcome, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.settleErr[id]; err != nil {
		return err
	}
	m, ok := s.markets[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.Status = domain.MarketStatusSettled
	m.Result = &result
	m.SettlementRef = &ref
	s.markets[id] = m
	s.transitions[id] = append(s.transitions[id], domain.MarketStatusSettled)
	return nil
}

type fakeBetStore struct {
	domain.BetStore

	mu        sync.Mutex
	bets      map[string]domain.Bet
	settleErr map[string]error
}

func newFakeBetStore(bets ...domain.Bet) *fakeBetStore {
	s := &fakeBetStore{
		bets:      make(map[string]domain.Bet),
		settleErr: make(map[string]error),
	}
	for _, b := range bets {
		s.bets[b.ID] = b
	}
	return s
}

func (s *fakeBetStore) ListActiveByMarket(_ context.Context, marketID string) ([]domain.Bet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Bet
	for _, b := range s.bets {
		if b.MarketID == marketID && b.Status == domain.BetStatusActive {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *fakeBetStore) SettleBet(_ context.Context, id string, result domain.BetResult, payout float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.settleErr[id]; err != nil {
		return err
	}
	b, ok := s.bets[id]
	if !ok {
		return domain.ErrNotFound
	}
	if b.Status == domain.BetStatusSettled {
		return nil
	}
	b.Status = domain.BetStatusSettled
	b.Result = &result
	b.Payout = &payout
	s.bets[id] = b
	return nil
}

type fakeUserStore struct {
	domain.UserStore

	users map[string]domain.User
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

type fakeLockManager struct {
	held     bool
	acquired int
	released int
}

func (l *fakeLockManager) Acquire(_ context.Context, _ string, _ time.Duration) (func(), error) {
	if l.held {
		return nil, domain.ErrLockHeld
	}
	l.acquired++
	return func() { l.released++ }, nil
}

type fakeBus struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (b *fakeBus) Publish(_ context.Context, _ string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payloads = append(b.payloads, payload)
	return nil
}

func (b *fakeBus) Subscribe(context.Context, string) (<-chan domain.Signal, error) {
	return nil, errors.New("not implemented")
}

type fakePayouts struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *fakePayouts) TriggerPayout(context.Context, string, string, float64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return "sim_ref", nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testConfig() Config {
	return Config{RetryAttempts: 2, RetryDelay: time.Millisecond, LockTTL: time.Minute}
}

func openMarket(id string, yesStake, noStake float64) domain.Market {
	return domain.Market{
		ID:        id,
		Status:    domain.MarketStatusOpen,
		CloseTime: time.Now().Add(-time.Hour),
		YesStake:  yesStake,
		NoStake:   noStake,
	}
}

func activeBet(id, marketID string, outcome domain.Outcome, stake, betOdds float64) domain.Bet {
	return domain.Bet{
		ID:       id,
		UserID:   "u1",
		MarketID: marketID,
		Outcome:  outcome,
		Stake:    stake,
		Odds:     betOdds,
		Status:   domain.BetStatusActive,
	}
}

func newTestSettler(markets *fakeMarketStore, bets *fakeBetStore, locks *fakeLockManager, bus *fakeBus, payouts *fakePayouts) *Settler {
	return NewSettler(
		markets, bets,
		&fakeUserStore{users: map[string]domain.User{}},
		locks, bus, payouts, nil, StakeLeaderPolicy{}, testConfig(), testLogger(),
	)
}

// ---------------------------------------------------------------------------
// tests
// ---------------------------------------------------------------------------

func TestSweepNoExpiredMarkets(t *testing.T) {
	markets := newFakeMarketStore()
	locks := &fakeLockManager{}
	s := newTestSettler(markets, newFakeBetStore(), locks, &fakeBus{}, &fakePayouts{})

	summary, err := s.SettleExpiredMarkets(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
	assert.Equal(t, 1, locks.acquired)
	assert.Equal(t, 1, locks.released)
}

func TestSweepLockHeld(t *testing.T) {
	locks := &fakeLockManager{held: true}
	s := newTestSettler(newFakeMarketStore(), newFakeBetStore(), locks, &fakeBus{}, &fakePayouts{})

	_, err := s.SettleExpiredMarkets(context.Background(), time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrLockHeld))
}

func TestSweepSettlesMarketAndBets(t *testing.T) {
	markets := newFakeMarketStore(openMarket("m1", 300, 100))
	bets := newFakeBetStore(
		activeBet("b1", "m1", domain.OutcomeYes, 200, 1.27),
		activeBet("b2", "m1", domain.OutcomeYes, 100, 1.30),
		activeBet("b3", "m1", domain.OutcomeNo, 100, 3.80),
	)
	bus := &fakeBus{}
	s := newTestSettler(markets, bets, &fakeLockManager{}, bus, &fakePayouts{})

	summary, err := s.SettleExpiredMarkets(context.Background(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.MarketsProcessed)
	assert.Equal(t, 1, summary.MarketsSucceeded)
	assert.Zero(t, summary.MarketsFailed)
	assert.Equal(t, 3, summary.BetsSettled)
	assert.Zero(t, summary.BetsFailed)

	// Yes held the larger stake, so yes wins.
	m, err := markets.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusSettled, m.Status)
	require.NotNil(t, m.Result)
	assert.Equal(t, domain.OutcomeYes, *m.Result)
	require.NotNil(t, m.SettlementRef)
	assert.True(t, strings.HasPrefix(*m.SettlementRef, "settlement_"))
	assert.True(t, strings.HasSuffix(*m.SettlementRef, "_3_of_3"))

	b1 := bets.bets["b1"]
	require.NotNil(t, b1.Result)
	assert.Equal(t, domain.BetResultWin, *b1.Result)
	require.NotNil(t, b1.Payout)
	assert.InDelta(t, 254.0, *b1.Payout, 1e-9)

	b3 := bets.bets["b3"]
	require.NotNil(t, b3.Result)
	assert.Equal(t, domain.BetResultLoss, *b3.Result)
	require.NotNil(t, b3.Payout)
	assert.Zero(t, *b3.Payout)

	assert.NotEmpty(t, bus.payloads)
}

func TestSweepClosesMarketBeforeSettling(t *testing.T) {
	markets := newFakeMarketStore(openMarket("m1", 100, 50))
	bets := newFakeBetStore(activeBet("b1", "m1", domain.OutcomeYes, 100, 1.27))
	s := newTestSettler(markets, bets, &fakeLockManager{}, &fakeBus{}, &fakePayouts{})

	summary, err := s.SettleExpiredMarkets(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.MarketsSucceeded)

	// The closed transition must be persisted before the market settles, so
	// a crash mid-settlement never leaves an expired market accepting bets.
	require.Len(t, markets.transitions["m1"], 2)
	assert.Equal(t, domain.MarketStatusClosed, markets.transitions["m1"][0])
	assert.Equal(t, domain.MarketStatusSettled, markets.transitions["m1"][1])
}

func TestSweepCloseFailureIsolatesMarket(t *testing.T) {
	markets := newFakeMarketStore(
		openMarket("m1", 100, 50),
		openMarket("m2", 10, 90),
	)
	markets.statusErr["m1"] = errors.New("db unavailable")
	bets := newFakeBetStore(activeBet("b1", "m1", domain.OutcomeYes, 100, 1.27))

	s := newTestSettler(markets, bets, &fakeLockManager{}, &fakeBus{}, &fakePayouts{})

	summary, err := s.SettleExpiredMarkets(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.MarketsFailed)
	assert.Equal(t, 1, summary.MarketsSucceeded)

	// The failed market is untouched past the close attempt; its bets stay active.
	m1, err := markets.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusOpen, m1.Status)
	assert.Equal(t, domain.BetStatusActive, bets.bets["b1"].Status)
}

func TestSweepZeroBetsSyntheticRef(t *testing.T) {
	markets := newFakeMarketStore(openMarket("m1", 0, 0))
	s := newTestSettler(markets, newFakeBetStore(), &fakeLockManager{}, &fakeBus{}, &fakePayouts{})

	summary, err := s.SettleExpiredMarkets(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.MarketsSucceeded)
	assert.Zero(t, summary.BetsSettled)

	m, err := markets.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	require.NotNil(t, m.SettlementRef)
	assert.True(t, strings.HasPrefix(*m.SettlementRef, "settlement_no_bets_"))
}

func TestSweepIsolatesFailedBet(t *testing.T) {
	markets := newFakeMarketStore(openMarket("m1", 100, 50))
	bets := newFakeBetStore(
		activeBet("b1", "m1", domain.OutcomeYes, 100, 1.27),
		activeBet("b2", "m1", domain.OutcomeNo, 50, 3.80),
	)
	bets.settleErr["b2"] = errors.New("db unavailable")

	s := newTestSettler(markets, bets, &fakeLockManager{}, &fakeBus{}, &fakePayouts{})

	summary, err := s.SettleExpiredMarkets(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.BetsSettled)
	assert.Equal(t, 1, summary.BetsFailed)
	assert.Equal(t, 1, summary.MarketsSucceeded)

	// The market settles regardless, recording the shortfall in the ref.
	m, err := markets.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusSettled, m.Status)
	require.NotNil(t, m.SettlementRef)
	assert.True(t, strings.HasSuffix(*m.SettlementRef, "_1_of_2"))
}

func TestSweepIsolatesFailedMarket(t *testing.T) {
	markets := newFakeMarketStore(
		openMarket("m1", 100, 50),
		openMarket("m2", 10, 90),
	)
	markets.settleErr["m1"] = errors.New("db unavailable")
	bets := newFakeBetStore(
		activeBet("b1", "m1", domain.OutcomeYes, 100, 1.27),
		activeBet("b2", "m2", domain.OutcomeNo, 90, 1.10),
	)

	s := newTestSettler(markets, bets, &fakeLockManager{}, &fakeBus{}, &fakePayouts{})

	summary, err := s.SettleExpiredMarkets(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.MarketsProcessed)
	assert.Equal(t, 1, summary.MarketsSucceeded)
	assert.Equal(t, 1, summary.MarketsFailed)

	m2, err := markets.GetByID(context.Background(), "m2")
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStatusSettled, m2.Status)
}

func TestSettleMarketIdempotent(t *testing.T) {
	result := domain.OutcomeYes
	ref := "settlement_123_1_of_1"
	markets := newFakeMarketStore(domain.Market{
		ID:            "m1",
		Status:        domain.MarketStatusSettled,
		Result:        &result,
		SettlementRef: &ref,
	})
	s := newTestSettler(markets, newFakeBetStore(), &fakeLockManager{}, &fakeBus{}, &fakePayouts{})

	got, err := s.SettleMarket(context.Background(), "m1", domain.OutcomeNo)
	require.NoError(t, err)
	assert.Equal(t, ref, got)

	// The stored result is untouched.
	m, err := markets.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeYes, *m.Result)
}

func TestPayoutTriggerFailureIsSoft(t *testing.T) {
	contractRef := "contract_1"
	bet := activeBet("b1", "m1", domain.OutcomeYes, 100, 1.27)
	bet.ContractRef = &contractRef

	markets := newFakeMarketStore(openMarket("m1", 100, 0))
	bets := newFakeBetStore(bet)
	payouts := &fakePayouts{err: errors.New("rpc down")}

	s := newTestSettler(markets, bets, &fakeLockManager{}, &fakeBus{}, payouts)

	summary, err := s.SettleExpiredMarkets(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.BetsSettled)
	assert.Zero(t, summary.BetsFailed)
	assert.Equal(t, 1, payouts.calls)

	b := bets.bets["b1"]
	assert.Equal(t, domain.BetStatusSettled, b.Status)
	assert.Equal(t, domain.BetResultWin, *b.Result)
}

func TestStakeLeaderPolicyTieGoesToYes(t *testing.T) {
	p := StakeLeaderPolicy{}
	assert.Equal(t, domain.OutcomeYes, p.Decide(domain.Market{YesStake: 50, NoStake: 50}, nil))
	assert.Equal(t, domain.OutcomeYes, p.Decide(domain.Market{YesStake: 51, NoStake: 50}, nil))
	assert.Equal(t, domain.OutcomeNo, p.Decide(domain.Market{YesStake: 49, NoStake: 50}, nil))
}
