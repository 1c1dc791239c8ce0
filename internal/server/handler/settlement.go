package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/solspore/gaming/internal/domain"
	"github.com/solspore/gaming/internal/settlement"
)

// Sweeper runs a settlement sweep on demand.
type Sweeper interface {
	SettleExpiredMarkets(ctx context.Context, now time.Time) (settlement.Summary, error)
}

// SettlementHandler exposes the manual settlement trigger. Route
// registration wraps it in the admin-role middleware.
type SettlementHandler struct {
	sweeper Sweeper
	logger  *slog.Logger
}

// NewSettlementHandler creates a SettlementHandler.
func NewSettlementHandler(sweeper Sweeper, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{sweeper: sweeper, logger: logger}
}

// TriggerSweep runs one sweep synchronously and returns its summary.
// POST /api/admin/settlement/sweep
func (h *SettlementHandler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	summary, err := h.sweeper.SettleExpiredMarkets(r.Context(), time.Now())
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			writeError(w, http.StatusConflict, "conflict", "a settlement sweep is already running")
			return
		}
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
