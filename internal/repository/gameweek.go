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

// GameweekRepository handles gameweek persistence and deadline locking.
type GameweekRepository struct {
	pool *pgxpool.Pool
}

// NewGameweekRepository creates a new GameweekRepository instance.
func NewGameweekRepository(pool *pgxpool.Pool) *GameweekRepository {
	return &GameweekRepository{pool: pool}
}

// Create creates a new gameweek. Week numbers order the rounds within a group.
func (r *GameweekRepository) Create(ctx context.Context, groupID uuid.UUID, seasonID *uuid.UUID, weekNumber int, deadline time.Time) (*model.Gameweek, error) {
	const query = `
		INSERT INTO gameweeks (group_id, season_id, week_number, deadline, locked, active, finished)
		VALUES ($1, $2, $3, $4, FALSE, TRUE, FALSE)
		RETURNING id, group_id, season_id, week_number, deadline, locked, active, finished
	`

	var gw model.Gameweek
	err := r.pool.QueryRow(ctx, query, groupID, seasonID, weekNumber, deadline).Scan(
		&gw.ID,
		&gw.GroupID,
		&gw.SeasonID,
		&gw.WeekNumber,
		&gw.Deadline,
		&gw.Locked,
		&gw.Active,
		&gw.Finished,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gameweek: %w", err)
	}

	return &gw, nil
}

// GetByID retrieves a gameweek against the given querier, so the scoring
// pass can read it inside its transaction.
// Returns ErrGameweekNotFound if the gameweek does not exist.
func (r *GameweekRepository) GetByID(ctx context.Context, q Querier, id uuid.UUID) (*model.Gameweek, error) {
	const query = `
		SELECT id, group_id, season_id, week_number, deadline, locked, active, finished
		FROM gameweeks
		WHERE id = $1
	`

	var gw model.Gameweek
	err := q.QueryRow(ctx, query, id).Scan(
		&gw.ID,
		&gw.GroupID,
		&gw.SeasonID,
		&gw.WeekNumber,
		&gw.Deadline,
		&gw.Locked,
		&gw.Active,
		&gw.Finished,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameweekNotFound
		}
		return nil, fmt.Errorf("failed to get gameweek: %w", err)
	}

	return &gw, nil
}

// LockExpired locks every unlocked gameweek whose deadline has passed, along
// with all predictions for its matches. Returns the number of gameweeks
// locked. Predictions are immutable from this point on.
func (r *GameweekRepository) LockExpired(ctx context.Context, now time.Time) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const lockGameweeks = `
		UPDATE gameweeks
		SET locked = TRUE
		WHERE locked = FALSE AND deadline <= $1
		RETURNING id
	`

	rows, err := tx.Query(ctx, lockGameweeks, now)
	if err != nil {
		return 0, fmt.Errorf("failed to lock gameweeks: %w", err)
	}

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan gameweek id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating locked gameweeks: %w", err)
	}

	if len(ids) == 0 {
		return 0, nil
	}

	const lockPredictions = `
		UPDATE predictions
		SET locked = TRUE, updated_at = NOW()
		WHERE locked = FALSE
		  AND match_id IN (SELECT id FROM matches WHERE gameweek_id = ANY($1))
	`
	if _, err := tx.Exec(ctx, lockPredictions, ids); err != nil {
		return 0, fmt.Errorf("failed to lock predictions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit gameweek locks: %w", err)
	}

	return int64(len(ids)), nil
}

// MarkFinished marks a gameweek finished once all its matches are scored.
func (r *GameweekRepository) MarkFinished(ctx context.Context, id uuid.UUID) error {
	const query = `
		UPDATE gameweeks
		SET finished = TRUE, active = FALSE
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark gameweek finished: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrGameweekNotFound
	}

	return nil
}

// CountUnscoredMatches counts the matches of a gameweek that still await
// scoring, used to decide when the gameweek is complete.
func (r *GameweekRepository) CountUnscoredMatches(ctx context.Context, id uuid.UUID) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM matches
		WHERE gameweek_id = $1 AND scored_at IS NULL
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unscored matches: %w", err)
	}

	return count, nil
}

// ListBySeason retrieves a season's gameweeks in week order.
func (r *GameweekRepository) ListBySeason(ctx context.Context, seasonID uuid.UUID) ([]*model.Gameweek, error) {
	const query = `
		SELECT id, group_id, season_id, week_number, deadline, locked, active, finished
		FROM gameweeks
		WHERE season_id = $1
		ORDER BY week_number ASC
	`

	rows, err := r.pool.Query(ctx, query, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list gameweeks: %w", err)
	}
	defer rows.Close()

	var gameweeks []*model.Gameweek
	for rows.Next() {
		var gw model.Gameweek
		err := rows.Scan(
			&gw.ID,
			&gw.GroupID,
			&gw.SeasonID,
			&gw.WeekNumber,
			&gw.Deadline,
			&gw.Locked,
			&gw.Active,
			&gw.Finished,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gameweek: %w", err)
		}
		gameweeks = append(gameweeks, &gw)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating gameweeks: %w", err)
	}

	return gameweeks, nil
}
