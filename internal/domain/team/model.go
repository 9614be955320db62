package team

import "fmt"

// Team is a persisted team inside a league. Name and abbreviation may
// be corrected after creation; the id never changes.
type Team struct {
	ID           int64
	LeagueID     int64
	Name         string
	Abbreviation string
	ExternalRef  string
}

// Identity is how a scraper or odds feed refers to a team. Sources
// disagree on spelling, so this is an input record, not a key.
type Identity struct {
	Name         string `json:"name" validate:"required"`
	Abbreviation string `json:"abbreviation"`
}

func (t Team) Validate() error {
	if t.LeagueID <= 0 {
		return fmt.Errorf("team league id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("team name is required")
	}

	return nil
}
