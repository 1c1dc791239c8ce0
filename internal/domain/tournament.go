package domain

import "time"

// TournamentType classifies who curates a tournament.
type TournamentType string

const (
	TournamentTypeOfficial TournamentType = "official"
	TournamentTypeCustom   TournamentType = "custom"
)

// Tournament groups markets for a single esports event.
type Tournament struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Image       string         `json:"image"`
	Description string         `json:"description"`
	StartDate   time.Time      `json:"startDate"`
	EndDate     time.Time      `json:"endDate"`
	Game        string         `json:"game"`
	Type        TournamentType `json:"type"`
	// Markets is populated on detail reads; list queries leave it nil.
	Markets   []Market  `json:"markets,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
