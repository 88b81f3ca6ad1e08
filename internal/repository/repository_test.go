// Package repository provides data access layer implementations.
// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Baileyhall3/footie-predictors/internal/model"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool
// Skips the test if Docker is not available
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	err = applySchema(ctx, pool)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// applySchema applies the database schema
func applySchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS groups (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(255) NOT NULL,
			owner_id UUID NOT NULL REFERENCES users(id),
			is_public BOOLEAN NOT NULL DEFAULT TRUE,
			member_cap INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS group_settings (
			group_id UUID PRIMARY KEY REFERENCES groups(id) ON DELETE CASCADE,
			exact_score_points INT NOT NULL DEFAULT 3,
			correct_result_points INT NOT NULL DEFAULT 1,
			incorrect_points INT NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS group_members (
			group_id UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (group_id, user_id)
		);
		CREATE TABLE IF NOT EXISTS seasons (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			group_id UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			finished BOOLEAN NOT NULL DEFAULT FALSE,
			winner_id UUID REFERENCES users(id)
		);
		CREATE TABLE IF NOT EXISTS gameweeks (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			group_id UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			season_id UUID REFERENCES seasons(id) ON DELETE CASCADE,
			week_number INT NOT NULL,
			deadline TIMESTAMPTZ NOT NULL,
			locked BOOLEAN NOT NULL DEFAULT FALSE,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			finished BOOLEAN NOT NULL DEFAULT FALSE,
			UNIQUE (group_id, week_number)
		);
		CREATE TABLE IF NOT EXISTS matches (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			gameweek_id UUID NOT NULL REFERENCES gameweeks(id) ON DELETE CASCADE,
			home_team VARCHAR(255) NOT NULL,
			away_team VARCHAR(255) NOT NULL,
			match_time TIMESTAMPTZ NOT NULL,
			final_home_score INT,
			final_away_score INT,
			api_match_id VARCHAR(64),
			scored_at TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS predictions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			match_id UUID NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			predicted_home_score INT NOT NULL CHECK (predicted_home_score >= 0),
			predicted_away_score INT NOT NULL CHECK (predicted_away_score >= 0),
			locked BOOLEAN NOT NULL DEFAULT FALSE,
			created_by_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, match_id)
		);
		CREATE TABLE IF NOT EXISTS scores (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			gameweek_id UUID NOT NULL REFERENCES gameweeks(id) ON DELETE CASCADE,
			total_points INT NOT NULL DEFAULT 0,
			total_correct_scores INT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, gameweek_id)
		);
		CREATE TABLE IF NOT EXISTS leaderboard (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			group_id UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			total_points INT NOT NULL DEFAULT 0,
			total_correct_scores INT NOT NULL DEFAULT 0,
			total_correct_results INT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, group_id)
		);
		CREATE TABLE IF NOT EXISTS leaderboard_history (
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			group_id UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			gameweek INT NOT NULL,
			position INT NOT NULL,
			PRIMARY KEY (user_id, group_id, gameweek)
		);
	`)
	return err
}

var defaultRules = model.ScoringRules{
	ExactScorePoints:    3,
	CorrectResultPoints: 1,
	IncorrectPoints:     0,
}

// seedGroup creates an owner, a group with default rules and one gameweek.
func seedGroup(t *testing.T, pool *pgxpool.Pool) (*model.User, *model.Group, *model.Gameweek) {
	t.Helper()
	ctx := context.Background()

	owner, err := NewUserRepository(pool).Create(ctx, "owner")
	require.NoError(t, err)

	group, err := NewGroupRepository(pool).Create(ctx, "Test League", owner.ID, true, 0, defaultRules)
	require.NoError(t, err)

	gameweek, err := NewGameweekRepository(pool).Create(ctx, group.ID, nil, 1, time.Now().Add(time.Hour))
	require.NoError(t, err)

	return owner, group, gameweek
}

// ============================================================================
// GroupRepository Tests
// ============================================================================

func TestGroupRepository_CreateSeedsLeaderboard(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner, group, _ := seedGroup(t, pool)

	// Owner is a member with a zero leaderboard entry
	entries, err := NewLeaderboardRepository(pool).ListByGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, owner.ID, entries[0].UserID)
	assert.Equal(t, 0, entries[0].TotalPoints)
	assert.Equal(t, 0, entries[0].TotalCorrectScores)
	assert.Equal(t, 0, entries[0].TotalCorrectResults)
}

func TestGroupRepository_GetRules(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	_, group, _ := seedGroup(t, pool)

	repo := NewGroupRepository(pool)

	rules, err := repo.GetRules(ctx, pool, group.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, rules.ExactScorePoints)
	assert.Equal(t, 1, rules.CorrectResultPoints)
	assert.Equal(t, 0, rules.IncorrectPoints)

	// Unknown group has no settings row
	_, err = repo.GetRules(ctx, pool, uuid.New())
	assert.ErrorIs(t, err, ErrRulesNotFound)
}

func TestGroupRepository_AddMemberIsIdempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	_, group, gameweek := seedGroup(t, pool)

	user, err := NewUserRepository(pool).Create(ctx, "alice")
	require.NoError(t, err)

	groupRepo := NewGroupRepository(pool)
	require.NoError(t, groupRepo.AddMember(ctx, group.ID, user.ID))

	// Accumulate some points, then re-add; totals must survive
	_, err = NewScoreRepository(pool).AddPoints(ctx, pool, user.ID, gameweek.ID, 3, true)
	require.NoError(t, err)
	_, err = NewLeaderboardRepository(pool).AddPoints(ctx, pool, user.ID, group.ID, 3, true, false)
	require.NoError(t, err)

	require.NoError(t, groupRepo.AddMember(ctx, group.ID, user.ID))

	entries, err := NewLeaderboardRepository(pool).ListByGroup(ctx, group.ID)
	require.NoError(t, err)
	for _, entry := range entries {
		if entry.UserID == user.ID {
			assert.Equal(t, 3, entry.TotalPoints)
		}
	}
}

// ============================================================================
// ScoreRepository Tests
// ============================================================================

func TestScoreRepository_AddPointsAccumulates(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner, _, gameweek := seedGroup(t, pool)

	repo := NewScoreRepository(pool)

	// First award creates the row with the delta as initial value
	score, err := repo.AddPoints(ctx, pool, owner.ID, gameweek.ID, 3, true)
	require.NoError(t, err)
	assert.Equal(t, 3, score.TotalPoints)
	assert.Equal(t, 1, score.TotalCorrectScores)

	// Subsequent awards add, never overwrite
	score, err = repo.AddPoints(ctx, pool, owner.ID, gameweek.ID, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 4, score.TotalPoints)
	assert.Equal(t, 1, score.TotalCorrectScores)

	// Negative deltas are added as-is
	score, err = repo.AddPoints(ctx, pool, owner.ID, gameweek.ID, -2, false)
	require.NoError(t, err)
	assert.Equal(t, 2, score.TotalPoints)

	stored, err := repo.Get(ctx, owner.ID, gameweek.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.TotalPoints)
}

func TestScoreRepository_ListGameweekScoresZeroFilled(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner, group, gameweek := seedGroup(t, pool)

	user, err := NewUserRepository(pool).Create(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, NewGroupRepository(pool).AddMember(ctx, group.ID, user.ID))

	_, err = NewScoreRepository(pool).AddPoints(ctx, pool, user.ID, gameweek.ID, 3, true)
	require.NoError(t, err)

	scores, err := NewScoreRepository(pool).ListGameweekScores(ctx, group.ID, gameweek.ID)
	require.NoError(t, err)
	require.Len(t, scores, 2)

	byUser := make(map[uuid.UUID]*model.GameweekScore)
	for _, s := range scores {
		byUser[s.UserID] = s
	}
	assert.Equal(t, 3, byUser[user.ID].TotalPoints)
	assert.Equal(t, 0, byUser[owner.ID].TotalPoints) // member without a score row
}

func TestScoreRepository_ListGameweekScoresWrongGroup(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner, group, _ := seedGroup(t, pool)

	// A gameweek from a different group must not zero-fill silently
	other, err := NewGroupRepository(pool).Create(ctx, "Other League", owner.ID, true, 0, defaultRules)
	require.NoError(t, err)
	otherGameweek, err := NewGameweekRepository(pool).Create(ctx, other.ID, nil, 1, time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = NewScoreRepository(pool).ListGameweekScores(ctx, group.ID, otherGameweek.ID)
	assert.ErrorIs(t, err, ErrGameweekNotFound)
}

// ============================================================================
// LeaderboardRepository Tests
// ============================================================================

func TestLeaderboardRepository_CountersAreDisjoint(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner, group, _ := seedGroup(t, pool)

	repo := NewLeaderboardRepository(pool)

	// Exact score bumps the exact counter only
	entry, err := repo.AddPoints(ctx, pool, owner.ID, group.ID, 3, true, false)
	require.NoError(t, err)
	assert.Equal(t, 3, entry.TotalPoints)
	assert.Equal(t, 1, entry.TotalCorrectScores)
	assert.Equal(t, 0, entry.TotalCorrectResults)

	// Correct result bumps the result counter only
	entry, err = repo.AddPoints(ctx, pool, owner.ID, group.ID, 1, false, true)
	require.NoError(t, err)
	assert.Equal(t, 4, entry.TotalPoints)
	assert.Equal(t, 1, entry.TotalCorrectScores)
	assert.Equal(t, 1, entry.TotalCorrectResults)

	// Incorrect bumps nothing
	entry, err = repo.AddPoints(ctx, pool, owner.ID, group.ID, 0, false, false)
	require.NoError(t, err)
	assert.Equal(t, 4, entry.TotalPoints)
	assert.Equal(t, 1, entry.TotalCorrectScores)
	assert.Equal(t, 1, entry.TotalCorrectResults)
}

func TestLeaderboardRepository_OrderingBreaksTiesByExactScores(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	_, group, _ := seedGroup(t, pool)

	userRepo := NewUserRepository(pool)
	groupRepo := NewGroupRepository(pool)
	repo := NewLeaderboardRepository(pool)

	alice, err := userRepo.Create(ctx, "alice")
	require.NoError(t, err)
	bob, err := userRepo.Create(ctx, "bob")
	require.NoError(t, err)
	require.NoError(t, groupRepo.AddMember(ctx, group.ID, alice.ID))
	require.NoError(t, groupRepo.AddMember(ctx, group.ID, bob.ID))

	// Alice: 10 points, 2 exact. Bob: 10 points, 1 exact.
	_, err = repo.AddPoints(ctx, pool, alice.ID, group.ID, 10, true, false)
	require.NoError(t, err)
	_, err = repo.AddPoints(ctx, pool, alice.ID, group.ID, 0, true, false)
	require.NoError(t, err)
	_, err = repo.AddPoints(ctx, pool, bob.ID, group.ID, 10, true, false)
	require.NoError(t, err)

	entries, err := repo.ListByGroup(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3) // owner included at zero

	assert.Equal(t, alice.ID, entries[0].UserID)
	assert.Equal(t, bob.ID, entries[1].UserID)
}

func TestLeaderboardRepository_History(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner, group, _ := seedGroup(t, pool)

	repo := NewLeaderboardRepository(pool)

	snapshots := []*model.HistorySnapshot{
		{UserID: owner.ID, GroupID: group.ID, Gameweek: 1, Position: 2},
		{UserID: owner.ID, GroupID: group.ID, Gameweek: 2, Position: 1},
	}
	require.NoError(t, repo.SaveSnapshots(ctx, snapshots))

	history, err := repo.ListHistory(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].Gameweek) // newest first

	// Re-saving the same gameweek overwrites the position
	require.NoError(t, repo.SaveSnapshots(ctx, []*model.HistorySnapshot{
		{UserID: owner.ID, GroupID: group.ID, Gameweek: 2, Position: 3},
	}))

	userHistory, err := repo.ListUserHistory(ctx, group.ID, owner.ID)
	require.NoError(t, err)
	require.Len(t, userHistory, 2)
	assert.Equal(t, 3, userHistory[0].Position)
}

// ============================================================================
// MatchRepository Tests
// ============================================================================

func TestMatchRepository_ClaimForScoring(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	_, _, gameweek := seedGroup(t, pool)

	repo := NewMatchRepository(pool)

	match, err := repo.Create(ctx, gameweek.ID, "Reds", "Blues", time.Now().Add(-2*time.Hour), nil)
	require.NoError(t, err)

	// First claim wins
	claimed, err := repo.ClaimForScoring(ctx, pool, match.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	// Second claim is rejected
	claimed, err = repo.ClaimForScoring(ctx, pool, match.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	stored, err := repo.GetByID(ctx, pool, match.ID)
	require.NoError(t, err)
	assert.True(t, stored.Scored())
}

func TestMatchRepository_ListUnscoredFinished(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	_, _, gameweek := seedGroup(t, pool)

	repo := NewMatchRepository(pool)

	finished, err := repo.Create(ctx, gameweek.ID, "Reds", "Blues", time.Now().Add(-2*time.Hour), nil)
	require.NoError(t, err)
	_, err = repo.SetFinalScore(ctx, finished.ID, 2, 1)
	require.NoError(t, err)

	// Still in play: no final score
	_, err = repo.Create(ctx, gameweek.ID, "Greens", "Whites", time.Now().Add(-time.Hour), nil)
	require.NoError(t, err)

	// Already scored
	scored, err := repo.Create(ctx, gameweek.ID, "Blacks", "Yellows", time.Now().Add(-3*time.Hour), nil)
	require.NoError(t, err)
	_, err = repo.SetFinalScore(ctx, scored.ID, 0, 0)
	require.NoError(t, err)
	claimed, err := repo.ClaimForScoring(ctx, pool, scored.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	matches, err := repo.ListUnscoredFinished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, finished.ID, matches[0].ID)
}

// ============================================================================
// PredictionRepository Tests
// ============================================================================

func TestPredictionRepository_UpsertAndLock(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner, _, gameweek := seedGroup(t, pool)

	matchRepo := NewMatchRepository(pool)
	match, err := matchRepo.Create(ctx, gameweek.ID, "Reds", "Blues", time.Now().Add(time.Hour), nil)
	require.NoError(t, err)

	repo := NewPredictionRepository(pool)

	prediction, err := repo.Upsert(ctx, owner.ID, match.ID, 2, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 2, prediction.PredictedHomeScore)
	assert.Equal(t, 1, prediction.PredictedAwayScore)

	// Updating while unlocked replaces the scoreline
	prediction, err = repo.Upsert(ctx, owner.ID, match.ID, 0, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 0, prediction.PredictedHomeScore)

	// Still one prediction per (user, match)
	predictions, err := repo.ListForMatch(ctx, pool, match.ID)
	require.NoError(t, err)
	require.Len(t, predictions, 1)

	// Locked predictions are immutable
	locked, err := repo.LockForMatch(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), locked)

	_, err = repo.Upsert(ctx, owner.ID, match.ID, 5, 5, false)
	assert.ErrorIs(t, err, ErrPredictionLocked)
}

func TestPredictionRepository_FirstUpsertAfterGameweekLock(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner, group, _ := seedGroup(t, pool)

	gwRepo := NewGameweekRepository(pool)
	matchRepo := NewMatchRepository(pool)
	repo := NewPredictionRepository(pool)

	expired, err := gwRepo.Create(ctx, group.ID, nil, 2, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	match, err := matchRepo.Create(ctx, expired.ID, "Reds", "Blues", time.Now(), nil)
	require.NoError(t, err)

	locked, err := gwRepo.LockExpired(ctx, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), locked)

	// A user with no prior prediction cannot sneak one in post-deadline
	_, err = repo.Upsert(ctx, owner.ID, match.ID, 2, 1, false)
	assert.ErrorIs(t, err, ErrPredictionLocked)

	predictions, err := repo.ListForMatch(ctx, pool, match.ID)
	require.NoError(t, err)
	assert.Empty(t, predictions)
}

func TestPredictionRepository_UpsertUnknownMatch(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner, _, _ := seedGroup(t, pool)

	_, err := NewPredictionRepository(pool).Upsert(ctx, owner.ID, uuid.New(), 1, 0, false)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}

func TestPredictionRepository_RejectsNegativeScores(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner, _, gameweek := seedGroup(t, pool)

	match, err := NewMatchRepository(pool).Create(ctx, gameweek.ID, "Reds", "Blues", time.Now().Add(time.Hour), nil)
	require.NoError(t, err)

	_, err = NewPredictionRepository(pool).Upsert(ctx, owner.ID, match.ID, -1, 0, false)
	assert.Error(t, err)
}

// ============================================================================
// GameweekRepository Tests
// ============================================================================

func TestGameweekRepository_LockExpired(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner, group, _ := seedGroup(t, pool)

	gwRepo := NewGameweekRepository(pool)
	matchRepo := NewMatchRepository(pool)
	predRepo := NewPredictionRepository(pool)

	expired, err := gwRepo.Create(ctx, group.ID, nil, 2, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	upcoming, err := gwRepo.Create(ctx, group.ID, nil, 3, time.Now().Add(time.Hour))
	require.NoError(t, err)

	match, err := matchRepo.Create(ctx, expired.ID, "Reds", "Blues", time.Now().Add(time.Hour), nil)
	require.NoError(t, err)
	_, err = predRepo.Upsert(ctx, owner.ID, match.ID, 1, 0, false)
	require.NoError(t, err)

	locked, err := gwRepo.LockExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), locked)

	// The expired gameweek and its predictions are locked
	stored, err := gwRepo.GetByID(ctx, pool, expired.ID)
	require.NoError(t, err)
	assert.True(t, stored.Locked)

	_, err = predRepo.Upsert(ctx, owner.ID, match.ID, 2, 2, false)
	assert.ErrorIs(t, err, ErrPredictionLocked)

	// The upcoming gameweek is untouched
	stored, err = gwRepo.GetByID(ctx, pool, upcoming.ID)
	require.NoError(t, err)
	assert.False(t, stored.Locked)

	// A second pass finds nothing to lock
	locked, err = gwRepo.LockExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), locked)
}

func TestGameweekRepository_CountUnscoredAndFinish(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	_, _, gameweek := seedGroup(t, pool)

	gwRepo := NewGameweekRepository(pool)
	matchRepo := NewMatchRepository(pool)

	match, err := matchRepo.Create(ctx, gameweek.ID, "Reds", "Blues", time.Now().Add(-time.Hour), nil)
	require.NoError(t, err)

	count, err := gwRepo.CountUnscoredMatches(ctx, gameweek.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	claimed, err := matchRepo.ClaimForScoring(ctx, pool, match.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	count, err = gwRepo.CountUnscoredMatches(ctx, gameweek.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, gwRepo.MarkFinished(ctx, gameweek.ID))

	stored, err := gwRepo.GetByID(ctx, pool, gameweek.ID)
	require.NoError(t, err)
	assert.True(t, stored.Finished)
	assert.False(t, stored.Active)
}

// ============================================================================
// SeasonRepository Tests
// ============================================================================

func TestSeasonRepository_Finish(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	owner, group, _ := seedGroup(t, pool)

	repo := NewSeasonRepository(pool)

	season, err := repo.Create(ctx, group.ID, "2025/26", time.Now(), time.Now().Add(30*24*time.Hour))
	require.NoError(t, err)
	assert.True(t, season.Active)
	assert.Nil(t, season.WinnerID)

	finished, err := repo.Finish(ctx, season.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, finished.Finished)
	assert.False(t, finished.Active)
	require.NotNil(t, finished.WinnerID)
	assert.Equal(t, owner.ID, *finished.WinnerID)

	_, err = repo.Finish(ctx, uuid.New(), owner.ID)
	assert.ErrorIs(t, err, ErrSeasonNotFound)
}
