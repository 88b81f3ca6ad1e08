package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Baileyhall3/footie-predictors/internal/model"
)

const matchColumns = `id, gameweek_id, home_team, away_team, match_time,
		final_home_score, final_away_score, api_match_id, scored_at`

// MatchRepository handles match persistence and the scored-at marker that
// keeps score calculation at-most-once per match.
type MatchRepository struct {
	pool *pgxpool.Pool
}

// NewMatchRepository creates a new MatchRepository instance.
func NewMatchRepository(pool *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{pool: pool}
}

func scanMatch(row pgx.Row) (*model.Match, error) {
	var m model.Match
	err := row.Scan(
		&m.ID,
		&m.GameweekID,
		&m.HomeTeam,
		&m.AwayTeam,
		&m.MatchTime,
		&m.FinalHomeScore,
		&m.FinalAwayScore,
		&m.APIMatchID,
		&m.ScoredAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create creates a new match in a gameweek.
func (r *MatchRepository) Create(ctx context.Context, gameweekID uuid.UUID, homeTeam, awayTeam string, matchTime time.Time, apiMatchID *string) (*model.Match, error) {
	const query = `
		INSERT INTO matches (gameweek_id, home_team, away_team, match_time, api_match_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + matchColumns

	match, err := scanMatch(r.pool.QueryRow(ctx, query, gameweekID, homeTeam, awayTeam, matchTime, apiMatchID))
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	return match, nil
}

// GetByID retrieves a match against the given querier, so the scoring pass
// can read it inside its transaction.
// Returns ErrMatchNotFound if the match does not exist.
func (r *MatchRepository) GetByID(ctx context.Context, q Querier, id uuid.UUID) (*model.Match, error) {
	const query = `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE id = $1
	`

	match, err := scanMatch(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	return match, nil
}

// SetFinalScore records a match's full-time result. Scoring is a separate
// step so a result write never implies points were awarded.
func (r *MatchRepository) SetFinalScore(ctx context.Context, id uuid.UUID, homeScore, awayScore int) (*model.Match, error) {
	const query = `
		UPDATE matches
		SET final_home_score = $2, final_away_score = $3
		WHERE id = $1
		RETURNING ` + matchColumns

	match, err := scanMatch(r.pool.QueryRow(ctx, query, id, homeScore, awayScore))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to set final score: %w", err)
	}

	return match, nil
}

// ClaimForScoring atomically sets the scored-at marker on a finished match.
// Returns false when the marker was already set, which makes a duplicate
// scoring attempt detectable before any points move. Run inside the scoring
// transaction so a failed pass rolls the claim back and stays retryable.
func (r *MatchRepository) ClaimForScoring(ctx context.Context, q Querier, id uuid.UUID) (bool, error) {
	const query = `
		UPDATE matches
		SET scored_at = NOW()
		WHERE id = $1 AND scored_at IS NULL
	`

	result, err := q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim match for scoring: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// ListUnscoredFinished retrieves matches that have a full-time result but no
// scored-at marker, oldest first. This is the scoring sweep's work queue.
func (r *MatchRepository) ListUnscoredFinished(ctx context.Context, limit int) ([]*model.Match, error) {
	const query = `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE final_home_score IS NOT NULL
		  AND final_away_score IS NOT NULL
		  AND scored_at IS NULL
		ORDER BY match_time ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unscored matches: %w", err)
	}
	defer rows.Close()

	var matches []*model.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, match)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}

	return matches, nil
}

// ListAwaitingResult retrieves matches that kicked off but have no final
// score yet, restricted to those with an external feed identifier.
func (r *MatchRepository) ListAwaitingResult(ctx context.Context, now time.Time) ([]*model.Match, error) {
	const query = `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE api_match_id IS NOT NULL
		  AND match_time < $1
		  AND (final_home_score IS NULL OR final_away_score IS NULL)
		ORDER BY match_time ASC
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches awaiting result: %w", err)
	}
	defer rows.Close()

	var matches []*model.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, match)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}

	return matches, nil
}
