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

// ScoreRepository handles per-gameweek score accumulation. One row exists per
// (user, gameweek); AddPoints is the only write path and is strictly additive.
type ScoreRepository struct {
	pool *pgxpool.Pool
}

// NewScoreRepository creates a new ScoreRepository instance.
func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

// AddPoints merges a signed point delta into the user's score for a gameweek.
// An absent row is created with the delta as its initial value. The upsert
// increments server-side, so concurrent awards for the same key never lose an
// update. Pass the scoring transaction as the querier.
func (r *ScoreRepository) AddPoints(ctx context.Context, q Querier, userID, gameweekID uuid.UUID, points int, exact bool) (*model.Score, error) {
	exactDelta := 0
	if exact {
		exactDelta = 1
	}

	const query = `
		INSERT INTO scores (user_id, gameweek_id, total_points, total_correct_scores, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id, gameweek_id) DO UPDATE
		SET total_points = scores.total_points + EXCLUDED.total_points,
		    total_correct_scores = scores.total_correct_scores + EXCLUDED.total_correct_scores,
		    updated_at = NOW()
		RETURNING id, user_id, gameweek_id, total_points, total_correct_scores, updated_at
	`

	var score model.Score
	err := q.QueryRow(ctx, query, userID, gameweekID, points, exactDelta).Scan(
		&score.ID,
		&score.UserID,
		&score.GameweekID,
		&score.TotalPoints,
		&score.TotalCorrectScores,
		&score.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add gameweek points: %w", err)
	}

	return &score, nil
}

// Get retrieves a user's score row for a gameweek.
func (r *ScoreRepository) Get(ctx context.Context, userID, gameweekID uuid.UUID) (*model.Score, error) {
	const query = `
		SELECT id, user_id, gameweek_id, total_points, total_correct_scores, updated_at
		FROM scores
		WHERE user_id = $1 AND gameweek_id = $2
	`

	var score model.Score
	err := r.pool.QueryRow(ctx, query, userID, gameweekID).Scan(
		&score.ID,
		&score.UserID,
		&score.GameweekID,
		&score.TotalPoints,
		&score.TotalCorrectScores,
		&score.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get score: %w", err)
	}

	return &score, nil
}

// ListGameweekScores retrieves every group member's score for a gameweek,
// zero-filled for members without a score row yet. Ordering and positions are
// applied by the caller. Returns ErrGameweekNotFound when the gameweek does
// not belong to the group.
func (r *ScoreRepository) ListGameweekScores(ctx context.Context, groupID, gameweekID uuid.UUID) ([]*model.GameweekScore, error) {
	var belongs bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM gameweeks WHERE id = $1 AND group_id = $2)`,
		gameweekID, groupID).Scan(&belongs)
	if err != nil {
		return nil, fmt.Errorf("failed to check gameweek: %w", err)
	}
	if !belongs {
		return nil, ErrGameweekNotFound
	}

	const query = `
		SELECT gm.user_id, u.username,
		       COALESCE(s.total_points, 0),
		       COALESCE(s.total_correct_scores, 0)
		FROM group_members gm
		JOIN users u ON u.id = gm.user_id
		LEFT JOIN scores s ON s.user_id = gm.user_id AND s.gameweek_id = $2
		WHERE gm.group_id = $1
	`

	rows, err := r.pool.Query(ctx, query, groupID, gameweekID)
	if err != nil {
		return nil, fmt.Errorf("failed to list gameweek scores: %w", err)
	}
	defer rows.Close()

	var scores []*model.GameweekScore
	for rows.Next() {
		var gs model.GameweekScore
		err := rows.Scan(
			&gs.UserID,
			&gs.Username,
			&gs.TotalPoints,
			&gs.TotalCorrectScores,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gameweek score: %w", err)
		}
		scores = append(scores, &gs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating gameweek scores: %w", err)
	}

	return scores, nil
}

// ListUserScores retrieves one user's points for every gameweek of a group,
// in week order, zero-filled for gameweeks without a score row.
func (r *ScoreRepository) ListUserScores(ctx context.Context, groupID, userID uuid.UUID) ([]*model.UserGameweekPoints, error) {
	const query = `
		SELECT gw.id, gw.week_number, COALESCE(s.total_points, 0)
		FROM gameweeks gw
		LEFT JOIN scores s ON s.gameweek_id = gw.id AND s.user_id = $2
		WHERE gw.group_id = $1
		ORDER BY gw.week_number ASC
	`

	rows, err := r.pool.Query(ctx, query, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user scores: %w", err)
	}
	defer rows.Close()

	var points []*model.UserGameweekPoints
	for rows.Next() {
		var p model.UserGameweekPoints
		if err := rows.Scan(&p.GameweekID, &p.WeekNumber, &p.TotalPoints); err != nil {
			return nil, fmt.Errorf("failed to scan user score: %w", err)
		}
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user scores: %w", err)
	}

	return points, nil
}
