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

// GroupRepository handles group and scoring-rule persistence.
type GroupRepository struct {
	pool *pgxpool.Pool
}

// NewGroupRepository creates a new GroupRepository instance.
func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{pool: pool}
}

// Create creates a new group with its scoring rules. The owner is added as
// the first member with a zero leaderboard entry.
func (r *GroupRepository) Create(ctx context.Context, name string, ownerID uuid.UUID, isPublic bool, memberCap int, rules model.ScoringRules) (*model.Group, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const groupQuery = `
		INSERT INTO groups (name, owner_id, is_public, member_cap, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, name, owner_id, is_public, member_cap, created_at, updated_at
	`

	var group model.Group
	err = tx.QueryRow(ctx, groupQuery, name, ownerID, isPublic, memberCap).Scan(
		&group.ID,
		&group.Name,
		&group.OwnerID,
		&group.IsPublic,
		&group.MemberCap,
		&group.CreatedAt,
		&group.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	const rulesQuery = `
		INSERT INTO group_settings (group_id, exact_score_points, correct_result_points, incorrect_points)
		VALUES ($1, $2, $3, $4)
	`
	_, err = tx.Exec(ctx, rulesQuery, group.ID,
		rules.ExactScorePoints, rules.CorrectResultPoints, rules.IncorrectPoints)
	if err != nil {
		return nil, fmt.Errorf("failed to create group settings: %w", err)
	}

	if err := addMember(ctx, tx, group.ID, ownerID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit group creation: %w", err)
	}

	return &group, nil
}

// GetByID retrieves a group by ID.
// Returns ErrGroupNotFound if the group does not exist.
func (r *GroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Group, error) {
	const query = `
		SELECT id, name, owner_id, is_public, member_cap, created_at, updated_at
		FROM groups
		WHERE id = $1
	`

	var group model.Group
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&group.ID,
		&group.Name,
		&group.OwnerID,
		&group.IsPublic,
		&group.MemberCap,
		&group.CreatedAt,
		&group.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return &group, nil
}

// GetRules retrieves a group's scoring rules against the given querier, so
// the scoring pass can read them inside its transaction.
// Returns ErrRulesNotFound if the group has no settings row.
func (r *GroupRepository) GetRules(ctx context.Context, q Querier, groupID uuid.UUID) (*model.ScoringRules, error) {
	const query = `
		SELECT group_id, exact_score_points, correct_result_points, incorrect_points
		FROM group_settings
		WHERE group_id = $1
	`

	var rules model.ScoringRules
	err := q.QueryRow(ctx, query, groupID).Scan(
		&rules.GroupID,
		&rules.ExactScorePoints,
		&rules.CorrectResultPoints,
		&rules.IncorrectPoints,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRulesNotFound
		}
		return nil, fmt.Errorf("failed to get group settings: %w", err)
	}

	return &rules, nil
}

// UpdateRules replaces a group's scoring rules. Already-calculated matches
// are never rescored; the new rules only apply to future calculations.
func (r *GroupRepository) UpdateRules(ctx context.Context, rules model.ScoringRules) error {
	const query = `
		UPDATE group_settings
		SET exact_score_points = $2, correct_result_points = $3, incorrect_points = $4
		WHERE group_id = $1
	`

	result, err := r.pool.Exec(ctx, query, rules.GroupID,
		rules.ExactScorePoints, rules.CorrectResultPoints, rules.IncorrectPoints)
	if err != nil {
		return fmt.Errorf("failed to update group settings: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrRulesNotFound
	}

	return nil
}

// AddMember adds a user to a group and seeds their leaderboard entry at zero.
func (r *GroupRepository) AddMember(ctx context.Context, groupID, userID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := addMember(ctx, tx, groupID, userID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit membership: %w", err)
	}

	return nil
}

func addMember(ctx context.Context, q Querier, groupID, userID uuid.UUID) error {
	const memberQuery = `
		INSERT INTO group_members (group_id, user_id, joined_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (group_id, user_id) DO NOTHING
	`
	if _, err := q.Exec(ctx, memberQuery, groupID, userID); err != nil {
		return fmt.Errorf("failed to add group member: %w", err)
	}

	// New member starts from zero on the leaderboard. Existing totals are
	// kept for rejoining members.
	const entryQuery = `
		INSERT INTO leaderboard (user_id, group_id, total_points, total_correct_scores, total_correct_results, updated_at)
		VALUES ($1, $2, 0, 0, 0, NOW())
		ON CONFLICT (user_id, group_id) DO NOTHING
	`
	if _, err := q.Exec(ctx, entryQuery, userID, groupID); err != nil {
		return fmt.Errorf("failed to seed leaderboard entry: %w", err)
	}

	return nil
}

// ListMemberIDs retrieves the user IDs of all members of a group.
func (r *GroupRepository) ListMemberIDs(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error) {
	const query = `
		SELECT user_id
		FROM group_members
		WHERE group_id = $1
	`

	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group members: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return ids, nil
}
