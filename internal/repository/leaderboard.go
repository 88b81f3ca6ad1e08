package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Baileyhall3/footie-predictors/internal/model"
)

// LeaderboardRepository handles group leaderboard accumulation and the
// position history used for rank-movement arrows. One row exists per
// (user, group); AddPoints is strictly additive.
type LeaderboardRepository struct {
	pool *pgxpool.Pool
}

// NewLeaderboardRepository creates a new LeaderboardRepository instance.
func NewLeaderboardRepository(pool *pgxpool.Pool) *LeaderboardRepository {
	return &LeaderboardRepository{pool: pool}
}

// AddPoints merges a signed point delta into the user's leaderboard entry for
// a group, incrementing the exact-score or correct-result counter as flagged.
// Exact scores never increment the correct-result counter; the two buckets
// are disjoint. Pass the scoring transaction as the querier.
func (r *LeaderboardRepository) AddPoints(ctx context.Context, q Querier, userID, groupID uuid.UUID, points int, exact, correctResult bool) (*model.LeaderboardEntry, error) {
	exactDelta := 0
	if exact {
		exactDelta = 1
	}
	resultDelta := 0
	if correctResult {
		resultDelta = 1
	}

	const query = `
		INSERT INTO leaderboard (user_id, group_id, total_points, total_correct_scores, total_correct_results, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, group_id) DO UPDATE
		SET total_points = leaderboard.total_points + EXCLUDED.total_points,
		    total_correct_scores = leaderboard.total_correct_scores + EXCLUDED.total_correct_scores,
		    total_correct_results = leaderboard.total_correct_results + EXCLUDED.total_correct_results,
		    updated_at = NOW()
		RETURNING id, user_id, group_id, total_points, total_correct_scores, total_correct_results, updated_at
	`

	var entry model.LeaderboardEntry
	err := q.QueryRow(ctx, query, userID, groupID, points, exactDelta, resultDelta).Scan(
		&entry.ID,
		&entry.UserID,
		&entry.GroupID,
		&entry.TotalPoints,
		&entry.TotalCorrectScores,
		&entry.TotalCorrectResults,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add leaderboard points: %w", err)
	}

	return &entry, nil
}

// ListByGroup retrieves a group's leaderboard entries joined with usernames,
// ordered by points descending, exact scores descending, then user ID for a
// deterministic tiebreak.
func (r *LeaderboardRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*model.LeaderboardEntry, error) {
	const query = `
		SELECT l.id, l.user_id, l.group_id, u.username,
		       l.total_points, l.total_correct_scores, l.total_correct_results, l.updated_at
		FROM leaderboard l
		JOIN users u ON u.id = l.user_id
		WHERE l.group_id = $1
		ORDER BY l.total_points DESC, l.total_correct_scores DESC, l.user_id ASC
	`

	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*model.LeaderboardEntry
	for rows.Next() {
		var entry model.LeaderboardEntry
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.GroupID,
			&entry.Username,
			&entry.TotalPoints,
			&entry.TotalCorrectScores,
			&entry.TotalCorrectResults,
			&entry.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	return entries, nil
}

// ListTop retrieves the top N leaderboard entries for a group.
func (r *LeaderboardRepository) ListTop(ctx context.Context, groupID uuid.UUID, limit int) ([]*model.LeaderboardEntry, error) {
	const query = `
		SELECT l.id, l.user_id, l.group_id, u.username,
		       l.total_points, l.total_correct_scores, l.total_correct_results, l.updated_at
		FROM leaderboard l
		JOIN users u ON u.id = l.user_id
		WHERE l.group_id = $1
		ORDER BY l.total_points DESC, l.total_correct_scores DESC, l.user_id ASC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.LeaderboardEntry
	for rows.Next() {
		var entry model.LeaderboardEntry
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.GroupID,
			&entry.Username,
			&entry.TotalPoints,
			&entry.TotalCorrectScores,
			&entry.TotalCorrectResults,
			&entry.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top entries: %w", err)
	}

	return entries, nil
}

// ListHistory retrieves all position snapshots for a group.
func (r *LeaderboardRepository) ListHistory(ctx context.Context, groupID uuid.UUID) ([]*model.HistorySnapshot, error) {
	const query = `
		SELECT user_id, group_id, gameweek, position
		FROM leaderboard_history
		WHERE group_id = $1
		ORDER BY gameweek DESC
	`

	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leaderboard history: %w", err)
	}
	defer rows.Close()

	var snapshots []*model.HistorySnapshot
	for rows.Next() {
		var snap model.HistorySnapshot
		if err := rows.Scan(&snap.UserID, &snap.GroupID, &snap.Gameweek, &snap.Position); err != nil {
			return nil, fmt.Errorf("failed to scan history snapshot: %w", err)
		}
		snapshots = append(snapshots, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return snapshots, nil
}

// ListUserHistory retrieves one user's position snapshots for a group,
// newest gameweek first.
func (r *LeaderboardRepository) ListUserHistory(ctx context.Context, groupID, userID uuid.UUID) ([]*model.HistorySnapshot, error) {
	const query = `
		SELECT user_id, group_id, gameweek, position
		FROM leaderboard_history
		WHERE group_id = $1 AND user_id = $2
		ORDER BY gameweek DESC
	`

	rows, err := r.pool.Query(ctx, query, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user history: %w", err)
	}
	defer rows.Close()

	var snapshots []*model.HistorySnapshot
	for rows.Next() {
		var snap model.HistorySnapshot
		if err := rows.Scan(&snap.UserID, &snap.GroupID, &snap.Gameweek, &snap.Position); err != nil {
			return nil, fmt.Errorf("failed to scan history snapshot: %w", err)
		}
		snapshots = append(snapshots, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user history: %w", err)
	}

	return snapshots, nil
}

// SaveSnapshots records position snapshots for a gameweek. Re-running a
// snapshot for the same (user, group, gameweek) overwrites the position, so
// the materialization is idempotent.
func (r *LeaderboardRepository) SaveSnapshots(ctx context.Context, snapshots []*model.HistorySnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const query = `
		INSERT INTO leaderboard_history (user_id, group_id, gameweek, position)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, group_id, gameweek) DO UPDATE
		SET position = EXCLUDED.position
	`

	for _, snap := range snapshots {
		if _, err := tx.Exec(ctx, query, snap.UserID, snap.GroupID, snap.Gameweek, snap.Position); err != nil {
			return fmt.Errorf("failed to save history snapshot: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit history snapshots: %w", err)
	}

	return nil
}
