package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/solspore/gaming/internal/domain"
)

// TournamentInput carries the admin inputs for creating or updating a
// tournament.
type TournamentInput struct {
	Name        string
	Image       string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Game        string
	Type        domain.TournamentType
}

// TournamentService serves tournament reads and admin lifecycle writes.
type TournamentService struct {
	tournaments domain.TournamentStore
	markets     domain.MarketStore
	logger      *slog.Logger
}

// NewTournamentService creates a TournamentService.
func NewTournamentService(
	tournaments domain.TournamentStore,
	markets domain.MarketStore,
	logger *slog.Logger,
) *TournamentService {
	return &TournamentService{
		tournaments: tournaments,
		markets:     markets,
		logger:      logger,
	}
}

func (in TournamentInput) validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Game) == "" {
		return fmt.Errorf("tournament_service: name and game required: %w", domain.ErrMissingFields)
	}
	if in.EndDate.Before(in.StartDate) {
		return fmt.Errorf("tournament_service: end date before start date: %w", domain.ErrMissingFields)
	}
	return nil
}

func (in TournamentInput) tournamentType() domain.TournamentType {
	if in.Type == domain.TournamentTypeCustom {
		return domain.TournamentTypeCustom
	}
	return domain.TournamentTypeOfficial
}

// CreateTournament creates a tournament.
func (s *TournamentService) CreateTournament(ctx context.Context, in TournamentInput) (domain.Tournament, error) {
	if err := in.validate(); err != nil {
		return domain.Tournament{}, err
	}

	now := time.Now()
	t := domain.Tournament{
		ID:          uuid.New().String(),
		Name:        in.Name,
		Image:       in.Image,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Game:        in.Game,
		Type:        in.tournamentType(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.tournaments.Create(ctx, t); err != nil {
		return domain.Tournament{}, err
	}

	s.logger.InfoContext(ctx, "tournament created",
		slog.String("tournament_id", t.ID),
		slog.String("name", t.Name))
	return t, nil
}

// GetTournament returns a tournament with its markets attached.
func (s *TournamentService) GetTournament(ctx context.Context, id string) (domain.Tournament, error) {
	t, err := s.tournaments.GetByID(ctx, id)
	if err != nil {
		return domain.Tournament{}, err
	}

	markets, err := s.markets.ListByTournament(ctx, id)
	if err != nil {
		return domain.Tournament{}, err
	}
	t.Markets = markets
	return t, nil
}

// ListTournaments returns tournaments, optionally filtered by type.
func (s *TournamentService) ListTournaments(ctx context.Context, typ domain.TournamentType, opts domain.ListOpts) ([]domain.Tournament, error) {
	return s.tournaments.List(ctx, typ, opts)
}

// UpdateTournament overwrites a tournament's mutable fields.
func (s *TournamentService) UpdateTournament(ctx context.Context, id string, in TournamentInput) (domain.Tournament, error) {
	if err := in.validate(); err != nil {
		return domain.Tournament{}, err
	}

	existing, err := s.tournaments.GetByID(ctx, id)
	if err != nil {
		return domain.Tournament{}, err
	}

	existing.Name = in.Name
	existing.Image = in.Image
	existing.Description = in.Description
	existing.StartDate = in.StartDate
	existing.EndDate = in.EndDate
	existing.Game = in.Game
	existing.Type = in.tournamentType()
	existing.UpdatedAt = time.Now()

	if err := s.tournaments.Update(ctx, existing); err != nil {
		return domain.Tournament{}, err
	}
	return existing, nil
}

// DeleteTournament removes a tournament and, via the schema cascade, its
// markets.
func (s *TournamentService) DeleteTournament(ctx context.Context, id string) error {
	if err := s.tournaments.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "tournament deleted", slog.String("tournament_id", id))
	return nil
}
