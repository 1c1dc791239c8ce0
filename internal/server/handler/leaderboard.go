package handler

import (
	"log/slog"
	"net/http"
	"strconv"
)

// LeaderboardHandler serves the public net-winnings leaderboard.
type LeaderboardHandler struct {
	users  UserService
	logger *slog.Logger
}

// NewLeaderboardHandler creates a LeaderboardHandler.
func NewLeaderboardHandler(users UserService, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{users: users, logger: logger}
}

// Leaderboard returns the top users by net winnings over settled bets.
// GET /api/leaderboard?limit=20
func (h *LeaderboardHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	entries, err := h.users.Leaderboard(r.Context(), limit)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}
