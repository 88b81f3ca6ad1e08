package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Baileyhall3/footie-predictors/internal/model"
)

const predictionColumns = `id, user_id, match_id, predicted_home_score,
		predicted_away_score, locked, created_by_admin, created_at, updated_at`

// PredictionRepository handles prediction persistence. At most one prediction
// exists per (user, match); locked predictions are immutable.
type PredictionRepository struct {
	pool *pgxpool.Pool
}

// NewPredictionRepository creates a new PredictionRepository instance.
func NewPredictionRepository(pool *pgxpool.Pool) *PredictionRepository {
	return &PredictionRepository{pool: pool}
}

func scanPrediction(row pgx.Row) (*model.Prediction, error) {
	var p model.Prediction
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.MatchID,
		&p.PredictedHomeScore,
		&p.PredictedAwayScore,
		&p.Locked,
		&p.CreatedByAdmin,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert creates or replaces a user's prediction for a match. The insert is
// sourced from the match's gameweek, so a first prediction against a locked
// gameweek inserts zero rows; locked predictions are likewise never
// overwritten. Both cases return ErrPredictionLocked.
func (r *PredictionRepository) Upsert(ctx context.Context, userID, matchID uuid.UUID, homeScore, awayScore int, byAdmin bool) (*model.Prediction, error) {
	if homeScore < 0 || awayScore < 0 {
		return nil, fmt.Errorf("predicted scores must be non-negative: %d-%d", homeScore, awayScore)
	}

	const query = `
		INSERT INTO predictions (user_id, match_id, predicted_home_score, predicted_away_score, locked, created_by_admin, created_at, updated_at)
		SELECT $1, m.id, $3, $4, FALSE, $5, NOW(), NOW()
		FROM matches m
		JOIN gameweeks gw ON gw.id = m.gameweek_id
		WHERE m.id = $2 AND gw.locked = FALSE
		ON CONFLICT (user_id, match_id) DO UPDATE
		SET predicted_home_score = EXCLUDED.predicted_home_score,
		    predicted_away_score = EXCLUDED.predicted_away_score,
		    updated_at = NOW()
		WHERE predictions.locked = FALSE
		RETURNING ` + predictionColumns

	prediction, err := scanPrediction(r.pool.QueryRow(ctx, query, userID, matchID, homeScore, awayScore, byAdmin))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			var exists bool
			checkErr := r.pool.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM matches WHERE id = $1)`, matchID).Scan(&exists)
			if checkErr != nil {
				return nil, fmt.Errorf("failed to check match: %w", checkErr)
			}
			if !exists {
				return nil, ErrMatchNotFound
			}
			return nil, ErrPredictionLocked
		}
		return nil, fmt.Errorf("failed to upsert prediction: %w", err)
	}

	return prediction, nil
}

// ListForMatch retrieves all predictions for a match against the given
// querier, so the scoring pass can read them inside its transaction.
func (r *PredictionRepository) ListForMatch(ctx context.Context, q Querier, matchID uuid.UUID) ([]*model.Prediction, error) {
	const query = `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE match_id = $1
	`

	rows, err := q.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	var predictions []*model.Prediction
	for rows.Next() {
		prediction, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, prediction)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating predictions: %w", err)
	}

	return predictions, nil
}

// GetByUserAndMatch retrieves a user's prediction for a match.
func (r *PredictionRepository) GetByUserAndMatch(ctx context.Context, userID, matchID uuid.UUID) (*model.Prediction, error) {
	const query = `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE user_id = $1 AND match_id = $2
	`

	prediction, err := scanPrediction(r.pool.QueryRow(ctx, query, userID, matchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPredictionNotFound
		}
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	return prediction, nil
}

// LockForMatch locks all predictions for a match, typically at kick-off.
func (r *PredictionRepository) LockForMatch(ctx context.Context, matchID uuid.UUID) (int64, error) {
	const query = `
		UPDATE predictions
		SET locked = TRUE, updated_at = NOW()
		WHERE match_id = $1 AND locked = FALSE
	`

	result, err := r.pool.Exec(ctx, query, matchID)
	if err != nil {
		return 0, fmt.Errorf("failed to lock predictions: %w", err)
	}

	return result.RowsAffected(), nil
}
