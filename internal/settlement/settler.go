package settlement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/solspore/gaming/internal/domain"
)

const (
	// sweepLockKey serializes sweeps across processes.
	sweepLockKey = "settlement:sweep"

	// settlementChannel carries sweep events to live subscribers.
	settlementChannel = "ch:settlement"

	// marketConcurrency and betConcurrency bound the fan-out per sweep.
	marketConcurrency = 4
	betConcurrency    = 8
)

// Summary is the aggregate outcome of one settlement sweep.
type Summary struct {
	MarketsProcessed int `json:"marketsProcessed"`
	MarketsSucceeded int `json:"marketsSucceeded"`
	MarketsFailed    int `json:"marketsFailed"`
	BetsSettled      int `json:"betsSettled"`
	BetsFailed       int `json:"betsFailed"`
}

// MarketReport records how a single market fared inside a sweep.
type MarketReport struct {
	MarketID      string         `json:"marketId"`
	Outcome       domain.Outcome `json:"outcome"`
	SettlementRef string         `json:"settlementRef,omitempty"`
	BetsSettled   int            `json:"betsSettled"`
	BetsFailed    int            `json:"betsFailed"`
	Error         string         `json:"error,omitempty"`
}

// Config bounds the retry behaviour of a sweep.
type Config struct {
	RetryAttempts int
	RetryDelay    time.Duration
	LockTTL       time.Duration
}

// Settler closes expired markets and finalizes their bets. It is safe to
// run concurrently in multiple processes; the sweep lock ensures only one
// sweep makes progress at a time and every persistence write is idempotent.
type Settler struct {
	markets  domain.MarketStore
	bets     domain.BetStore
	users    domain.UserStore
	locks    domain.LockManager
	bus      domain.SignalBus
	payouts  domain.PayoutTrigger
	reporter *Reporter
	outcome  OutcomePolicy
	cfg      Config
	logger   *slog.Logger
}

// NewSettler creates a Settler. The reporter may be nil when report
// archiving is disabled.
func NewSettler(
	markets domain.MarketStore,
	bets domain.BetStore,
	users domain.UserStore,
	locks domain.LockManager,
	bus domain.SignalBus,
	payouts domain.PayoutTrigger,
	reporter *Reporter,
	outcome OutcomePolicy,
	cfg Config,
	logger *slog.Logger,
) *Settler {
	if outcome == nil {
		outcome = StakeLeaderPolicy{}
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	return &Settler{
		markets:  markets,
		bets:     bets,
		users:    users,
		locks:    locks,
		bus:      bus,
		payouts:  payouts,
		reporter: reporter,
		outcome:  outcome,
		cfg:      cfg,
		logger:   logger,
	}
}

// SettleExpiredMarkets runs one sweep: it finds open markets whose close
// time has passed, settles each one, and returns the aggregate summary.
//
// Failures inside a single market never abort the sweep; the only errors
// that cross this boundary are a held sweep lock and a failed initial
// query.
func (s *Settler) SettleExpiredMarkets(ctx context.Context, now time.Time) (Summary, error) {
	unlock, err := s.locks.Acquire(ctx, sweepLockKey, s.cfg.LockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return Summary{}, fmt.Errorf("settlement: sweep already running: %w", err)
		}
		return Summary{}, fmt.Errorf("settlement: acquire sweep lock: %w", err)
	}
	defer unlock()

	var expired []domain.Market
	err = Do(ctx, s.cfg.RetryAttempts, s.cfg.RetryDelay, "list expired markets", func(ctx context.Context) error {
		var err error
		expired, err = s.markets.ListExpired(ctx, now)
		return err
	})
	if err != nil {
		return Summary{}, err
	}

	if len(expired) == 0 {
		s.logger.InfoContext(ctx, "settlement sweep found no expired markets")
		return Summary{}, nil
	}

	s.logger.InfoContext(ctx, "settlement sweep starting",
		slog.Int("markets", len(expired)))

	var (
		mu      sync.Mutex
		summary Summary
		reports = make([]MarketReport, 0, len(expired))
	)
	summary.MarketsProcessed = len(expired)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(marketConcurrency)

	for _, market := range expired {
		market := market
		g.Go(func() error {
			report := s.settleOne(gctx, market)

			mu.Lock()
			defer mu.Unlock()
			reports = append(reports, report)
			summary.BetsSettled += report.BetsSettled
			summary.BetsFailed += report.BetsFailed
			if report.Error == "" {
				summary.MarketsSucceeded++
			} else {
				summary.MarketsFailed++
			}
			// Market failures are isolated; never propagate into the group.
			return nil
		})
	}
	_ = g.Wait()

	s.publishSweepEvent(ctx, summary, reports)
	if s.reporter != nil {
		if err := s.reporter.Archive(ctx, now, summary, reports); err != nil {
			s.logger.WarnContext(ctx, "settlement report archive failed",
				slog.String("error", err.Error()))
		}
	}

	s.logger.InfoContext(ctx, "settlement sweep finished",
		slog.Int("markets_processed", summary.MarketsProcessed),
		slog.Int("markets_succeeded", summary.MarketsSucceeded),
		slog.Int("markets_failed", summary.MarketsFailed),
		slog.Int("bets_settled", summary.BetsSettled),
		slog.Int("bets_failed", summary.BetsFailed),
	)
	return summary, nil
}

// settleOne takes one expired market through the full lifecycle: persist
// the closed transition, resolve the outcome, then settle. The closed write
// lands first so a crash mid-settlement never leaves the market accepting
// bets.
func (s *Settler) settleOne(ctx context.Context, market domain.Market) MarketReport {
	report := MarketReport{MarketID: market.ID}

	err := Do(ctx, s.cfg.RetryAttempts, s.cfg.RetryDelay, "close market "+market.ID, func(ctx context.Context) error {
		return s.markets.UpdateStatus(ctx, market.ID, domain.MarketStatusClosed)
	})
	if err != nil {
		report.Error = err.Error()
		s.logger.ErrorContext(ctx, "market close failed",
			slog.String("market_id", market.ID),
			slog.String("error", err.Error()))
		return report
	}
	market.Status = domain.MarketStatusClosed

	bets, err := s.listActiveBets(ctx, market.ID)
	if err != nil {
		report.Error = err.Error()
		s.logger.ErrorContext(ctx, "market settlement failed",
			slog.String("market_id", market.ID),
			slog.String("error", err.Error()))
		return report
	}

	outcome := s.outcome.Decide(market, bets)
	report.Outcome = outcome

	ref, settled, failed, err := s.settleMarketBets(ctx, market, outcome, bets)
	report.SettlementRef = ref
	report.BetsSettled = settled
	report.BetsFailed = failed
	if err != nil {
		report.Error = err.Error()
		s.logger.ErrorContext(ctx, "market settlement failed",
			slog.String("market_id", market.ID),
			slog.String("error", err.Error()))
		return report
	}

	s.logger.InfoContext(ctx, "market settled",
		slog.String("market_id", market.ID),
		slog.String("outcome", string(outcome)),
		slog.String("settlement_ref", ref),
		slog.Int("bets_settled", settled),
		slog.Int("bets_failed", failed),
	)
	return report
}

// SettleMarket settles a single market with the given outcome and returns
// its settlement reference. Settling an already-settled market is a no-op
// that returns the existing reference.
func (s *Settler) SettleMarket(ctx context.Context, marketID string, outcome domain.Outcome) (string, error) {
	market, err := s.markets.GetByID(ctx, marketID)
	if err != nil {
		return "", err
	}
	if market.Status == domain.MarketStatusSettled {
		if market.SettlementRef != nil {
			return *market.SettlementRef, nil
		}
		return "", nil
	}

	bets, err := s.listActiveBets(ctx, marketID)
	if err != nil {
		return "", err
	}

	ref, _, _, err := s.settleMarketBets(ctx, market, outcome, bets)
	return ref, err
}

// settleMarketBets finalizes every active bet and then the market itself.
// Individual bet failures reduce the ok-count embedded in the settlement
// reference but never block the market from settling.
func (s *Settler) settleMarketBets(ctx context.Context, market domain.Market, outcome domain.Outcome, bets []domain.Bet) (ref string, settled, failed int, err error) {
	if market.Status == domain.MarketStatusSettled {
		if market.SettlementRef != nil {
			return *market.SettlementRef, 0, 0, nil
		}
		return "", 0, 0, nil
	}

	if len(bets) == 0 {
		ref = fmt.Sprintf("settlement_no_bets_%d", time.Now().UnixMilli())
		err = Do(ctx, s.cfg.RetryAttempts, s.cfg.RetryDelay, "settle market "+market.ID, func(ctx context.Context) error {
			return s.markets.Settle(ctx, market.ID, outcome, ref)
		})
		if err != nil {
			return "", 0, 0, err
		}
		return ref, 0, 0, nil
	}

	var ok int64
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(betConcurrency)
	for _, bet := range bets {
		bet := bet
		g.Go(func() error {
			if s.settleBet(gctx, bet, outcome) {
				mu.Lock()
				ok++
				mu.Unlock()
			}
			// Bet failures are isolated; the reference records the shortfall.
			return nil
		})
	}
	_ = g.Wait()

	settled = int(ok)
	failed = len(bets) - settled

	ref = fmt.Sprintf("settlement_%d_%d_of_%d", time.Now().UnixMilli(), settled, len(bets))
	err = Do(ctx, s.cfg.RetryAttempts, s.cfg.RetryDelay, "settle market "+market.ID, func(ctx context.Context) error {
		return s.markets.Settle(ctx, market.ID, outcome, ref)
	})
	if err != nil {
		return "", settled, failed, err
	}
	return ref, settled, failed, nil
}

// settleBet finalizes one bet and reports success. The payout trigger is
// best-effort; only a failed persistence write counts as a failure.
func (s *Settler) settleBet(ctx context.Context, bet domain.Bet, outcome domain.Outcome) bool {
	result := domain.BetResultLoss
	payout := 0.0
	if bet.Outcome == outcome {
		result = domain.BetResultWin
		payout = round2(bet.Stake * bet.Odds)
	}

	if result == domain.BetResultWin && bet.ContractRef != nil {
		s.triggerPayout(ctx, bet, payout)
	}

	err := Do(ctx, s.cfg.RetryAttempts, s.cfg.RetryDelay, "settle bet "+bet.ID, func(ctx context.Context) error {
		return s.bets.SettleBet(ctx, bet.ID, result, payout)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "bet settlement failed",
			slog.String("bet_id", bet.ID),
			slog.String("market_id", bet.MarketID),
			slog.String("error", err.Error()))
		return false
	}
	return true
}

// triggerPayout fires the payout mechanism for a winning bet. Failures are
// logged and swallowed; disbursement is reconciled out of band against the
// settled ledger.
func (s *Settler) triggerPayout(ctx context.Context, bet domain.Bet, payout float64) {
	wallet := ""
	user, err := s.users.GetByID(ctx, bet.UserID)
	if err == nil && user.WalletAddress != nil {
		wallet = *user.WalletAddress
	}

	if _, err := s.payouts.TriggerPayout(ctx, *bet.ContractRef, wallet, payout); err != nil {
		s.logger.WarnContext(ctx, "payout trigger failed",
			slog.String("bet_id", bet.ID),
			slog.String("contract_ref", *bet.ContractRef),
			slog.String("error", err.Error()))
	}
}

func (s *Settler) listActiveBets(ctx context.Context, marketID string) ([]domain.Bet, error) {
	var bets []domain.Bet
	err := Do(ctx, s.cfg.RetryAttempts, s.cfg.RetryDelay, "list bets for market "+marketID, func(ctx context.Context) error {
		var err error
		bets, err = s.bets.ListActiveByMarket(ctx, marketID)
		return err
	})
	return bets, err
}

// publishSweepEvent pushes the sweep outcome onto the settlement channel
// for live subscribers. Best-effort.
func (s *Settler) publishSweepEvent(ctx context.Context, summary Summary, reports []MarketReport) {
	payload, err := json.Marshal(struct {
		Type    string         `json:"type"`
		Summary Summary        `json:"summary"`
		Markets []MarketReport `json:"markets"`
	}{
		Type:    "settlement",
		Summary: summary,
		Markets: reports,
	})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, settlementChannel, payload); err != nil {
		s.logger.WarnContext(ctx, "settlement event publish failed",
			slog.String("error", err.Error()))
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
