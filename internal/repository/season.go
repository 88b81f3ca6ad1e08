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

// SeasonRepository handles season persistence.
type SeasonRepository struct {
	pool *pgxpool.Pool
}

// NewSeasonRepository creates a new SeasonRepository instance.
func NewSeasonRepository(pool *pgxpool.Pool) *SeasonRepository {
	return &SeasonRepository{pool: pool}
}

// Create creates a new active season for a group.
func (r *SeasonRepository) Create(ctx context.Context, groupID uuid.UUID, name string, start, end time.Time) (*model.Season, error) {
	const query = `
		INSERT INTO seasons (group_id, name, start_date, end_date, active, finished)
		VALUES ($1, $2, $3, $4, TRUE, FALSE)
		RETURNING id, group_id, name, start_date, end_date, active, finished, winner_id
	`

	var season model.Season
	err := r.pool.QueryRow(ctx, query, groupID, name, start, end).Scan(
		&season.ID,
		&season.GroupID,
		&season.Name,
		&season.StartDate,
		&season.EndDate,
		&season.Active,
		&season.Finished,
		&season.WinnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create season: %w", err)
	}

	return &season, nil
}

// GetByID retrieves a season by ID.
// Returns ErrSeasonNotFound if the season does not exist.
func (r *SeasonRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Season, error) {
	const query = `
		SELECT id, group_id, name, start_date, end_date, active, finished, winner_id
		FROM seasons
		WHERE id = $1
	`

	var season model.Season
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&season.ID,
		&season.GroupID,
		&season.Name,
		&season.StartDate,
		&season.EndDate,
		&season.Active,
		&season.Finished,
		&season.WinnerID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSeasonNotFound
		}
		return nil, fmt.Errorf("failed to get season: %w", err)
	}

	return &season, nil
}

// Finish marks a season finished and records its winner.
func (r *SeasonRepository) Finish(ctx context.Context, id uuid.UUID, winnerID uuid.UUID) (*model.Season, error) {
	const query = `
		UPDATE seasons
		SET active = FALSE, finished = TRUE, winner_id = $2
		WHERE id = $1
		RETURNING id, group_id, name, start_date, end_date, active, finished, winner_id
	`

	var season model.Season
	err := r.pool.QueryRow(ctx, query, id, winnerID).Scan(
		&season.ID,
		&season.GroupID,
		&season.Name,
		&season.StartDate,
		&season.EndDate,
		&season.Active,
		&season.Finished,
		&season.WinnerID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSeasonNotFound
		}
		return nil, fmt.Errorf("failed to finish season: %w", err)
	}

	return &season, nil
}
