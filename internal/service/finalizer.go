package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Baileyhall3/footie-predictors/internal/pkg/lock"
	"github.com/Baileyhall3/footie-predictors/internal/repository"
)

// ResultSource supplies final scores for matches from an external feed.
// Final is false while the match is still in play.
type ResultSource interface {
	FetchResult(ctx context.Context, apiMatchID string) (home, away int, final bool, err error)
}

// FinalizerService is the match finalization trigger. On each sweep it locks
// expired gameweeks, pulls final scores from the result source, and runs the
// scoring pass over every finished match that has not been scored yet.
// Scoring failures are isolated per match.
type FinalizerService struct {
	scoring      *ScoringService
	leaderboard  *LeaderboardService
	matchRepo    *repository.MatchRepository
	gameweekRepo *repository.GameweekRepository
	results      ResultSource
	keys         *lock.KeyLock
	interval     time.Duration
	pollInterval time.Duration
	batchLimit   int

	lastFetch time.Time

	mu          sync.Mutex
	quarantined map[uuid.UUID]error // matches failing fatally, excluded from retry
}

// NewFinalizerService creates a new FinalizerService instance.
// The result source may be nil when results are written by another process.
func NewFinalizerService(
	scoring *ScoringService,
	leaderboard *LeaderboardService,
	matchRepo *repository.MatchRepository,
	gameweekRepo *repository.GameweekRepository,
	results ResultSource,
	keys *lock.KeyLock,
	interval time.Duration,
	pollInterval time.Duration,
	batchLimit int,
) *FinalizerService {
	if interval <= 0 {
		interval = time.Minute
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}
	if batchLimit <= 0 {
		batchLimit = 100
	}
	return &FinalizerService{
		scoring:      scoring,
		leaderboard:  leaderboard,
		matchRepo:    matchRepo,
		gameweekRepo: gameweekRepo,
		results:      results,
		keys:         keys,
		interval:     interval,
		pollInterval: pollInterval,
		batchLimit:   batchLimit,
		quarantined:  make(map[uuid.UUID]error),
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *FinalizerService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.interval).Msg("Finalizer started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Finalizer stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one full pass: deadline locking, result fetching, scoring and
// gameweek completion.
func (s *FinalizerService) Sweep(ctx context.Context) {
	if locked, err := s.gameweekRepo.LockExpired(ctx, time.Now()); err != nil {
		log.Error().Err(err).Msg("Failed to lock expired gameweeks")
	} else if locked > 0 {
		log.Info().Int64("gameweeks", locked).Msg("Locked expired gameweeks")
	}

	s.fetchResults(ctx)
	s.scoreFinished(ctx)
}

// fetchResults pulls final scores for in-play matches from the result feed.
// The feed is polled on its own cadence, typically slower than the sweep.
func (s *FinalizerService) fetchResults(ctx context.Context) {
	if s.results == nil {
		return
	}
	if time.Since(s.lastFetch) < s.pollInterval {
		return
	}
	s.lastFetch = time.Now()

	matches, err := s.matchRepo.ListAwaitingResult(ctx, time.Now())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list matches awaiting result")
		return
	}

	for _, match := range matches {
		home, away, final, err := s.results.FetchResult(ctx, *match.APIMatchID)
		if err != nil {
			// Feed hiccups are retried on the next sweep.
			log.Warn().
				Str("match_id", match.ID.String()).
				Err(err).
				Msg("Failed to fetch match result")
			continue
		}
		if !final {
			continue
		}

		if _, err := s.matchRepo.SetFinalScore(ctx, match.ID, home, away); err != nil {
			log.Error().
				Str("match_id", match.ID.String()).
				Err(err).
				Msg("Failed to record final score")
			continue
		}

		log.Info().
			Str("match_id", match.ID.String()).
			Int("home", home).
			Int("away", away).
			Msg("Final score recorded")
	}
}

// scoreFinished scores every finished, unscored match and completes
// gameweeks whose matches are all scored.
func (s *FinalizerService) scoreFinished(ctx context.Context) {
	matches, err := s.matchRepo.ListUnscoredFinished(ctx, s.batchLimit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list unscored matches")
		return
	}
	if len(matches) == 0 {
		return
	}

	affected := make(map[uuid.UUID]struct{})

	for _, match := range matches {
		if quarantineErr := s.quarantineError(match.ID); quarantineErr != nil {
			continue
		}

		// Skip matches another sweep in this process is already claiming;
		// the scored-at compare-and-set still guards cross-process races.
		key := "match:" + match.ID.String()
		if !s.keys.TryLock(key) {
			continue
		}

		err := s.scoring.CalculateMatchScores(ctx, match.ID)
		s.keys.Unlock(key)

		switch {
		case err == nil:
			affected[match.GameweekID] = struct{}{}
		case errors.Is(err, ErrAlreadyScored), errors.Is(err, ErrMatchNotFinished):
		case errors.Is(err, ErrGroupRulesMissing):
			s.quarantine(match.ID, err)
			log.Error().
				Str("match_id", match.ID.String()).
				Err(err).
				Msg("Match excluded from scoring until group is fixed")
		default:
			log.Error().
				Str("match_id", match.ID.String()).
				Err(err).
				Msg("Failed to score match, will retry")
		}
	}

	for gameweekID := range affected {
		s.completeGameweek(ctx, gameweekID)
	}
}

// completeGameweek finishes a locked gameweek once all its matches are
// scored, and materializes the position snapshot used for movement arrows.
func (s *FinalizerService) completeGameweek(ctx context.Context, gameweekID uuid.UUID) {
	remaining, err := s.gameweekRepo.CountUnscoredMatches(ctx, gameweekID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to count unscored matches")
		return
	}
	if remaining > 0 {
		return
	}

	gameweek, err := s.gameweekRepo.GetByID(ctx, s.scoring.pool, gameweekID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load gameweek")
		return
	}
	if gameweek.Finished {
		return
	}

	if err := s.gameweekRepo.MarkFinished(ctx, gameweekID); err != nil {
		log.Error().Err(err).Msg("Failed to mark gameweek finished")
		return
	}

	if err := s.leaderboard.SnapshotPositions(ctx, gameweek.GroupID, gameweek.WeekNumber); err != nil {
		log.Error().
			Str("gameweek_id", gameweekID.String()).
			Err(err).
			Msg("Failed to snapshot leaderboard positions")
		return
	}

	log.Info().
		Str("gameweek_id", gameweekID.String()).
		Int("week_number", gameweek.WeekNumber).
		Msg("Gameweek finished")
}

func (s *FinalizerService) quarantine(matchID uuid.UUID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quarantined[matchID] = err
}

func (s *FinalizerService) quarantineError(matchID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quarantined[matchID]
}
