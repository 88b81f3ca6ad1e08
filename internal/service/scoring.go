// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/Baileyhall3/footie-predictors/internal/repository"
	"github.com/Baileyhall3/footie-predictors/internal/scoring"
)

// Scoring errors.
var (
	// ErrMatchNotFinished means the match has no full-time result yet.
	// Recoverable: the caller retries on the next sweep.
	ErrMatchNotFinished = errors.New("match does not have final scores")
	// ErrAlreadyScored means points were already awarded for the match.
	// The at-most-once guard raises this on any duplicate attempt.
	ErrAlreadyScored = errors.New("match has already been scored")
	// ErrGroupRulesMissing means the group has no scoring rule set. This is a
	// data integrity failure; the finalizer holds the match out of auto-retry
	// until an operator fixes the group.
	ErrGroupRulesMissing = errors.New("group scoring rules are missing")
)

// ScoringService awards points for finished matches and accumulates them
// into gameweek scores and group leaderboards. The whole per-match pass runs
// in one transaction, so a failure leaves the match eligible for retry with
// no partial totals applied.
type ScoringService struct {
	pool            *pgxpool.Pool
	matchRepo       *repository.MatchRepository
	gameweekRepo    *repository.GameweekRepository
	groupRepo       *repository.GroupRepository
	predictionRepo  *repository.PredictionRepository
	scoreRepo       *repository.ScoreRepository
	leaderboardRepo *repository.LeaderboardRepository
	matchTimeout    time.Duration
}

// NewScoringService creates a new ScoringService instance.
func NewScoringService(
	pool *pgxpool.Pool,
	matchRepo *repository.MatchRepository,
	gameweekRepo *repository.GameweekRepository,
	groupRepo *repository.GroupRepository,
	predictionRepo *repository.PredictionRepository,
	scoreRepo *repository.ScoreRepository,
	leaderboardRepo *repository.LeaderboardRepository,
	matchTimeout time.Duration,
) *ScoringService {
	if matchTimeout <= 0 {
		matchTimeout = 30 * time.Second
	}
	return &ScoringService{
		pool:            pool,
		matchRepo:       matchRepo,
		gameweekRepo:    gameweekRepo,
		groupRepo:       groupRepo,
		predictionRepo:  predictionRepo,
		scoreRepo:       scoreRepo,
		leaderboardRepo: leaderboardRepo,
		matchTimeout:    matchTimeout,
	}
}

// CalculateMatchScores awards points for every prediction of a finished
// match. Each prediction is classified as exact, correct result or incorrect,
// and its award is merged additively into the user's gameweek score and group
// leaderboard entry.
//
// The match is claimed via its scored-at marker inside the same transaction,
// so the calculation runs at most once per match: a second call returns
// ErrAlreadyScored and no totals change.
func (s *ScoringService) CalculateMatchScores(ctx context.Context, matchID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, s.matchTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin scoring transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	match, err := s.matchRepo.GetByID(ctx, tx, matchID)
	if err != nil {
		return err
	}

	if !match.Finished() {
		return ErrMatchNotFinished
	}

	claimed, err := s.matchRepo.ClaimForScoring(ctx, tx, matchID)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrAlreadyScored
	}

	gameweek, err := s.gameweekRepo.GetByID(ctx, tx, match.GameweekID)
	if err != nil {
		return err
	}

	rules, err := s.groupRepo.GetRules(ctx, tx, gameweek.GroupID)
	if err != nil {
		if errors.Is(err, repository.ErrRulesNotFound) {
			return ErrGroupRulesMissing
		}
		return err
	}

	for _, warning := range scoring.ValidateRules(*rules) {
		log.Warn().
			Str("group_id", gameweek.GroupID.String()).
			Str("warning", warning).
			Msg("Suspicious scoring configuration")
	}

	predictions, err := s.predictionRepo.ListForMatch(ctx, tx, matchID)
	if err != nil {
		return err
	}

	finalHome := *match.FinalHomeScore
	finalAway := *match.FinalAwayScore

	for _, prediction := range predictions {
		class, points := scoring.Score(
			prediction.PredictedHomeScore, prediction.PredictedAwayScore,
			finalHome, finalAway, *rules,
		)

		exact := class == scoring.ClassExact
		correctResult := class == scoring.ClassCorrectResult

		if _, err := s.scoreRepo.AddPoints(ctx, tx, prediction.UserID, gameweek.ID, points, exact); err != nil {
			return err
		}

		if _, err := s.leaderboardRepo.AddPoints(ctx, tx, prediction.UserID, gameweek.GroupID, points, exact, correctResult); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit scoring transaction: %w", err)
	}

	log.Info().
		Str("match_id", matchID.String()).
		Str("gameweek_id", gameweek.ID.String()).
		Int("predictions", len(predictions)).
		Int("final_home", finalHome).
		Int("final_away", finalAway).
		Msg("Match scored")

	return nil
}

// MatchFailure pairs a match with the error that stopped its scoring pass.
type MatchFailure struct {
	MatchID uuid.UUID
	Err     error
}

// CalculateBatch scores many matches, isolating failures: one failing match
// never aborts the rest. Matches that are not finished yet or were already
// scored are skipped quietly; real failures are collected and returned.
func (s *ScoringService) CalculateBatch(ctx context.Context, matchIDs []uuid.UUID) []MatchFailure {
	var failures []MatchFailure

	for _, matchID := range matchIDs {
		err := s.CalculateMatchScores(ctx, matchID)
		switch {
		case err == nil:
		case errors.Is(err, ErrMatchNotFinished), errors.Is(err, ErrAlreadyScored):
			log.Debug().
				Str("match_id", matchID.String()).
				Err(err).
				Msg("Skipping match")
		default:
			log.Error().
				Str("match_id", matchID.String()).
				Err(err).
				Msg("Failed to score match")
			failures = append(failures, MatchFailure{MatchID: matchID, Err: err})
		}
	}

	return failures
}
