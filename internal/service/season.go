package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Baileyhall3/footie-predictors/internal/model"
	"github.com/Baileyhall3/footie-predictors/internal/repository"
)

// Season errors.
var (
	ErrSeasonFinished   = errors.New("season is already finished")
	ErrEmptyLeaderboard = errors.New("leaderboard has no entries")
)

// SeasonService handles season lifecycle, in particular closing a season and
// crowning its winner from the leaderboard.
type SeasonService struct {
	seasonRepo  *repository.SeasonRepository
	leaderboard *LeaderboardService
}

// NewSeasonService creates a new SeasonService instance.
func NewSeasonService(seasonRepo *repository.SeasonRepository, leaderboard *LeaderboardService) *SeasonService {
	return &SeasonService{
		seasonRepo:  seasonRepo,
		leaderboard: leaderboard,
	}
}

// FinishSeason marks a season finished and records the rank-1 leaderboard
// entry as its winner.
func (s *SeasonService) FinishSeason(ctx context.Context, seasonID uuid.UUID) (*model.Season, error) {
	season, err := s.seasonRepo.GetByID(ctx, seasonID)
	if err != nil {
		return nil, err
	}

	if season.Finished {
		return nil, ErrSeasonFinished
	}

	ranked, err := s.leaderboard.GetRankedLeaderboard(ctx, season.GroupID)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return nil, ErrEmptyLeaderboard
	}

	winner := ranked[0]

	finished, err := s.seasonRepo.Finish(ctx, seasonID, winner.UserID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("season_id", seasonID.String()).
		Str("winner_id", winner.UserID.String()).
		Str("winner", winner.Username).
		Int("total_points", winner.TotalPoints).
		Msg("Season finished")

	return finished, nil
}
