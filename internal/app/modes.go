package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/solspore/gaming/internal/auth"
	"github.com/solspore/gaming/internal/domain"
	"github.com/solspore/gaming/internal/server"
	"github.com/solspore/gaming/internal/server/handler"
	"github.com/solspore/gaming/internal/server/ws"
	"github.com/solspore/gaming/internal/service"
	"github.com/solspore/gaming/internal/settlement"
)

// ServerMode runs the HTTP + WebSocket API without the settlement ticker.
// A separate settle-mode process is expected to sweep expired markets.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startAPIServer(ctx, g, deps, a.buildSettler(deps))
	return g.Wait()
}

// SettleMode runs only the settlement sweep ticker. When the configured
// interval is zero it performs a single sweep and exits.
func (a *App) SettleMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting settle mode")

	settler := a.buildSettler(deps)
	interval := a.cfg.Settlement.Interval.Duration
	if interval <= 0 {
		_, err := a.runSweep(ctx, settler)
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startSettlementTicker(ctx, g, settler, interval)
	return g.Wait()
}

// FullMode runs the API server and the settlement ticker in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	settler := a.buildSettler(deps)
	a.startAPIServer(ctx, g, deps, settler)

	if interval := a.cfg.Settlement.Interval.Duration; interval > 0 {
		a.startSettlementTicker(ctx, g, settler, interval)
	} else {
		a.logger.InfoContext(ctx, "settlement ticker disabled (interval is zero)")
	}

	return g.Wait()
}

// buildSettler assembles the settlement batch processor from wired
// dependencies. Report archiving is active only when blob storage is wired.
func (a *App) buildSettler(deps *Dependencies) *settlement.Settler {
	var reporter *settlement.Reporter
	if deps.BlobWriter != nil {
		reporter = settlement.NewReporter(deps.BlobWriter)
	}

	return settlement.NewSettler(
		deps.MarketStore,
		deps.BetStore,
		deps.UserStore,
		deps.LockManager,
		deps.SignalBus,
		deps.PayoutTrigger,
		reporter,
		settlement.StakeLeaderPolicy{},
		settlement.Config{
			RetryAttempts: a.cfg.Settlement.RetryAttempts,
			RetryDelay:    a.cfg.Settlement.RetryDelay.Duration,
			LockTTL:       a.cfg.Settlement.LockTTL.Duration,
		},
		a.logger,
	)
}

// startSettlementTicker adds a sweep loop goroutine to the errgroup. The
// first sweep runs immediately; subsequent sweeps follow the interval.
func (a *App) startSettlementTicker(ctx context.Context, g *errgroup.Group, settler *settlement.Settler, interval time.Duration) {
	g.Go(func() error {
		a.logger.InfoContext(ctx, "settlement ticker started",
			slog.Duration("interval", interval))

		if _, err := a.runSweep(ctx, settler); err != nil {
			return err
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if _, err := a.runSweep(ctx, settler); err != nil {
					return err
				}
			}
		}
	})
}

// runSweep executes one settlement sweep. A held lock means another process
// is sweeping and is not an error; anything else fatal to the sweep is
// logged and swallowed so the ticker keeps running.
func (a *App) runSweep(ctx context.Context, settler *settlement.Settler) (settlement.Summary, error) {
	summary, err := settler.SettleExpiredMarkets(ctx, time.Now())
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			a.logger.InfoContext(ctx, "settlement sweep skipped, lock held elsewhere")
			return settlement.Summary{}, nil
		}
		if ctx.Err() != nil {
			return settlement.Summary{}, ctx.Err()
		}
		a.logger.ErrorContext(ctx, "settlement sweep failed",
			slog.String("error", err.Error()))
		return settlement.Summary{}, nil
	}

	if summary.MarketsProcessed > 0 {
		a.logger.InfoContext(ctx, "settlement sweep complete",
			slog.Int("markets_processed", summary.MarketsProcessed),
			slog.Int("markets_succeeded", summary.MarketsSucceeded),
			slog.Int("markets_failed", summary.MarketsFailed),
			slog.Int("bets_settled", summary.BetsSettled),
			slog.Int("bets_failed", summary.BetsFailed),
		)
	}
	return summary, nil
}

// startAPIServer builds the service layer, handlers, and WebSocket hub, and
// adds the HTTP server goroutines to the errgroup.
func (a *App) startAPIServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, settler *settlement.Settler) {
	tokens := auth.NewTokenIssuer(a.cfg.Auth.SessionSecret, a.cfg.Auth.SessionTTL.Duration)

	bettingSvc := service.NewBettingService(
		deps.MarketStore,
		deps.BetStore,
		deps.UserStore,
		deps.MarketCache,
		deps.RateLimiter,
		deps.SignalBus,
		deps.PaymentRail,
		service.BettingConfig{
			Margin:         a.cfg.Odds.Margin,
			VerifyPayments: a.cfg.Solana.VerifyPayments,
			RateLimit:      a.cfg.Server.BetRateLimit,
			RateWindow:     a.cfg.Server.BetRateWindow.Duration,
		},
		a.logger,
	)
	marketSvc := service.NewMarketService(deps.MarketStore, deps.TournamentStore, deps.MarketCache, a.logger)
	tournamentSvc := service.NewTournamentService(deps.TournamentStore, deps.MarketStore, a.logger)
	userSvc := service.NewUserService(deps.UserStore, deps.TournamentStore, deps.MarketStore, deps.BetStore, tokens, a.logger)

	hub := ws.NewHub(deps.SignalBus, a.logger)
	g.Go(func() error {
		err := hub.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(deps.Postgres, deps.Redis, a.logger),
		Markets:     handler.NewMarketHandler(marketSvc, a.logger),
		Bets:        handler.NewBetHandler(bettingSvc, a.logger),
		Tournaments: handler.NewTournamentHandler(tournamentSvc, a.logger),
		Auth:        handler.NewAuthHandler(userSvc, a.logger),
		Admin:       handler.NewAdminHandler(userSvc, a.logger),
		Leaderboard: handler.NewLeaderboardHandler(userSvc, a.logger),
		Settlement:  handler.NewSettlementHandler(settler, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, handlers, tokens, hub, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
