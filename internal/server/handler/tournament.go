package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/solspore/gaming/internal/domain"
	"github.com/solspore/gaming/internal/service"
)

// TournamentService defines the methods that the tournament handler
// requires from the service layer.
type TournamentService interface {
	CreateTournament(ctx context.Context, in service.TournamentInput) (domain.Tournament, error)
	GetTournament(ctx context.Context, id string) (domain.Tournament, error)
	ListTournaments(ctx context.Context, typ domain.TournamentType, opts domain.ListOpts) ([]domain.Tournament, error)
	UpdateTournament(ctx context.Context, id string, in service.TournamentInput) (domain.Tournament, error)
	DeleteTournament(ctx context.Context, id string) error
}

// TournamentHandler serves tournament CRUD endpoints.
type TournamentHandler struct {
	tournaments TournamentService
	logger      *slog.Logger
}

// NewTournamentHandler creates a TournamentHandler.
func NewTournamentHandler(tournaments TournamentService, logger *slog.Logger) *TournamentHandler {
	return &TournamentHandler{tournaments: tournaments, logger: logger}
}

// tournamentRequest is the wire shape for create and update.
type tournamentRequest struct {
	Name        string `json:"name"`
	Image       string `json:"image"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Game        string `json:"game"`
	Type        string `json:"type"`
}

func (req tournamentRequest) toInput(w http.ResponseWriter) (service.TournamentInput, bool) {
	start, err := parseTime(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "startDate must be RFC 3339")
		return service.TournamentInput{}, false
	}
	end, err := parseTime(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "endDate must be RFC 3339")
		return service.TournamentInput{}, false
	}
	return service.TournamentInput{
		Name:        req.Name,
		Image:       req.Image,
		Description: req.Description,
		StartDate:   start,
		EndDate:     end,
		Game:        req.Game,
		Type:        domain.TournamentType(req.Type),
	}, true
}

// ListTournaments returns tournaments, optionally filtered by type.
// GET /api/tournaments?type=official
func (h *TournamentHandler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	typ := domain.TournamentType(r.URL.Query().Get("type"))
	switch typ {
	case "", domain.TournamentTypeOfficial, domain.TournamentTypeCustom:
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "unknown tournament type filter")
		return
	}

	tournaments, err := h.tournaments.ListTournaments(r.Context(), typ, opts)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tournaments": tournaments})
}

// GetTournament returns one tournament with its markets.
// GET /api/tournaments/{id}
func (h *TournamentHandler) GetTournament(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	t, err := h.tournaments.GetTournament(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CreateTournament creates a tournament. Admin only.
// POST /api/tournaments
func (h *TournamentHandler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	var req tournamentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, ok := req.toInput(w)
	if !ok {
		return
	}

	t, err := h.tournaments.CreateTournament(r.Context(), in)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// UpdateTournament overwrites a tournament's fields. Admin only.
// PUT /api/tournaments/{id}
func (h *TournamentHandler) UpdateTournament(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	var req tournamentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, ok := req.toInput(w)
	if !ok {
		return
	}

	t, err := h.tournaments.UpdateTournament(r.Context(), id, in)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTournament removes a tournament and its markets. Admin only.
// DELETE /api/tournaments/{id}
func (h *TournamentHandler) DeleteTournament(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if err := h.tournaments.DeleteTournament(r.Context(), id); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}
