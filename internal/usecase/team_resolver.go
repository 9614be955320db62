package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/statline/oddsync/internal/domain/team"
	"github.com/statline/oddsync/internal/platform/logging"
)

// foundTeamSampleRate throttles the "team found" debug event, which
// fires for every snapshot of a popular team.
const foundTeamSampleRate = 200

// TeamResolverService finds or creates teams within a league. Lookup
// is case-insensitive exact match on name or abbreviation; anything
// fuzzier belongs to the odds matcher, not here.
type TeamResolverService struct {
	teams   team.Repository
	logger  *logging.Logger
	sampler *logging.Sampler
}

func NewTeamResolverService(teams team.Repository, logger *logging.Logger, sampler *logging.Sampler) *TeamResolverService {
	if logger == nil {
		logger = logging.Default()
	}
	if sampler == nil {
		sampler = logging.NewSampler(logging.DefaultSampleRate)
	}
	return &TeamResolverService{
		teams:   teams,
		logger:  logger,
		sampler: sampler,
	}
}

// Find returns the team id for the identity, if one exists.
func (s *TeamResolverService) Find(ctx context.Context, leagueID int64, identity team.Identity) (int64, bool, error) {
	identity = cleanIdentity(identity)
	if identity.Name == "" {
		return 0, false, fmt.Errorf("%w: team name is required", ErrInvalidInput)
	}
	return s.teams.FindByIdentity(ctx, leagueID, identity)
}

// Resolve returns the existing team id for the identity, creating the
// team on first unmatched sighting. It always succeeds logically;
// only storage failures surface.
func (s *TeamResolverService) Resolve(ctx context.Context, leagueID int64, identity team.Identity) (int64, error) {
	identity = cleanIdentity(identity)
	if identity.Name == "" {
		return 0, fmt.Errorf("%w: team name is required", ErrInvalidInput)
	}

	teamID, found, err := s.teams.FindByIdentity(ctx, leagueID, identity)
	if err != nil {
		return 0, fmt.Errorf("find team by identity: %w", err)
	}
	if found {
		if s.sampler.ShouldLogEvery(fmt.Sprintf("team_found:%d", teamID), foundTeamSampleRate) {
			s.logger.DebugContext(ctx, "team found",
				"team_name", identity.Name,
				"team_id", teamID,
				"league_id", leagueID,
			)
		}
		return teamID, nil
	}

	teamID, err = s.teams.Upsert(ctx, leagueID, identity)
	if err != nil {
		return 0, fmt.Errorf("upsert team: %w", err)
	}

	s.logger.DebugContext(ctx, "team not found, created",
		"team_name", identity.Name,
		"abbreviation", identity.Abbreviation,
		"team_id", teamID,
		"league_id", leagueID,
	)
	return teamID, nil
}

func cleanIdentity(identity team.Identity) team.Identity {
	identity.Name = strings.TrimSpace(identity.Name)
	identity.Abbreviation = strings.TrimSpace(identity.Abbreviation)
	return identity
}
