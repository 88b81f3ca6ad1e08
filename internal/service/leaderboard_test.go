package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Baileyhall3/footie-predictors/internal/model"
)

func entry(id uuid.UUID, username string, points, exact, results int) *model.LeaderboardEntry {
	return &model.LeaderboardEntry{
		UserID:              id,
		Username:            username,
		TotalPoints:         points,
		TotalCorrectScores:  exact,
		TotalCorrectResults: results,
	}
}

func TestRankEntries_OrdersByPointsThenExactScores(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()

	ranked := rankEntries([]*model.LeaderboardEntry{
		entry(bob, "bob", 10, 1, 4),
		entry(carol, "carol", 7, 3, 0),
		entry(alice, "alice", 10, 2, 2),
	})

	require.Len(t, ranked, 3)
	assert.Equal(t, alice, ranked[0].UserID) // 10 points, 2 exact
	assert.Equal(t, bob, ranked[1].UserID)   // 10 points, 1 exact
	assert.Equal(t, carol, ranked[2].UserID)

	assert.Equal(t, 1, ranked[0].Position)
	assert.Equal(t, 2, ranked[1].Position)
	assert.Equal(t, 3, ranked[2].Position)
}

func TestRankEntries_Empty(t *testing.T) {
	ranked := rankEntries(nil)
	assert.Empty(t, ranked)
}

func TestRankEntries_DoesNotMutateInput(t *testing.T) {
	first := entry(uuid.New(), "a", 1, 0, 0)
	second := entry(uuid.New(), "b", 5, 0, 0)
	entries := []*model.LeaderboardEntry{first, second}

	_ = rankEntries(entries)

	assert.Same(t, first, entries[0])
	assert.Same(t, second, entries[1])
}

func TestApplyMovement(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()
	groupID := uuid.New()

	ranked := rankEntries([]*model.LeaderboardEntry{
		entry(alice, "alice", 12, 2, 3),
		entry(bob, "bob", 9, 1, 4),
		entry(carol, "carol", 5, 0, 2),
	})

	history := []*model.HistorySnapshot{
		{UserID: alice, GroupID: groupID, Gameweek: 5, Position: 1},
		{UserID: bob, GroupID: groupID, Gameweek: 5, Position: 2},
		{UserID: alice, GroupID: groupID, Gameweek: 4, Position: 2},
		{UserID: bob, GroupID: groupID, Gameweek: 4, Position: 1},
		// carol joined after gameweek 4, only one snapshot
		{UserID: carol, GroupID: groupID, Gameweek: 5, Position: 3},
	}

	applyMovement(ranked, history)

	assert.Equal(t, model.MovementUp, ranked[0].Movement)   // alice 2 -> 1
	assert.Equal(t, model.MovementDown, ranked[1].Movement) // bob 1 -> 2
	assert.Equal(t, model.MovementSame, ranked[2].Movement) // carol has no previous snapshot
}

func TestApplyMovement_SingleGameweek(t *testing.T) {
	alice := uuid.New()
	groupID := uuid.New()

	ranked := rankEntries([]*model.LeaderboardEntry{
		entry(alice, "alice", 3, 1, 0),
	})

	applyMovement(ranked, []*model.HistorySnapshot{
		{UserID: alice, GroupID: groupID, Gameweek: 1, Position: 1},
	})

	assert.Equal(t, model.MovementSame, ranked[0].Movement)
}

func TestApplyMovement_NoHistory(t *testing.T) {
	ranked := rankEntries([]*model.LeaderboardEntry{
		entry(uuid.New(), "alice", 3, 1, 0),
	})

	applyMovement(ranked, nil)

	assert.Equal(t, model.MovementSame, ranked[0].Movement)
}

func TestApplyMovement_UsesTwoMostRecentGameweeks(t *testing.T) {
	alice := uuid.New()
	groupID := uuid.New()

	ranked := rankEntries([]*model.LeaderboardEntry{
		entry(alice, "alice", 20, 4, 2),
	})

	// Gameweek 1 is ignored; only 6 and 7 matter
	applyMovement(ranked, []*model.HistorySnapshot{
		{UserID: alice, GroupID: groupID, Gameweek: 1, Position: 1},
		{UserID: alice, GroupID: groupID, Gameweek: 6, Position: 3},
		{UserID: alice, GroupID: groupID, Gameweek: 7, Position: 2},
	})

	assert.Equal(t, model.MovementUp, ranked[0].Movement)
}

// ============================================================================
// Property-based tests
// ============================================================================

func genEntries(t *rapid.T) []*model.LeaderboardEntry {
	n := rapid.IntRange(0, 30).Draw(t, "n")
	entries := make([]*model.LeaderboardEntry, n)
	for i := range entries {
		entries[i] = &model.LeaderboardEntry{
			UserID:              uuid.New(),
			TotalPoints:         rapid.IntRange(-10, 100).Draw(t, "points"),
			TotalCorrectScores:  rapid.IntRange(0, 40).Draw(t, "exact"),
			TotalCorrectResults: rapid.IntRange(0, 40).Draw(t, "results"),
		}
	}
	return entries
}

// Property: positions are 1..n with no gaps, and the order is
// non-increasing on (points, exact scores).
func TestRankEntriesOrderingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		entries := genEntries(t)
		ranked := rankEntries(entries)

		require.Len(t, ranked, len(entries))
		for i := range ranked {
			require.Equal(t, i+1, ranked[i].Position)
		}
		for i := 1; i < len(ranked); i++ {
			prev, cur := ranked[i-1], ranked[i]
			require.GreaterOrEqual(t, prev.TotalPoints, cur.TotalPoints)
			if prev.TotalPoints == cur.TotalPoints {
				require.GreaterOrEqual(t, prev.TotalCorrectScores, cur.TotalCorrectScores)
			}
		}
	})
}

// Property: ranking is deterministic regardless of input order.
func TestRankEntriesDeterminismProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		entries := genEntries(t)

		shuffled := make([]*model.LeaderboardEntry, len(entries))
		copy(shuffled, entries)
		for i := len(shuffled) - 1; i > 0; i-- {
			j := rapid.IntRange(0, i).Draw(t, "j")
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		}

		require.Equal(t, rankEntries(entries), rankEntries(shuffled))
	})
}

// Property: with fewer than two distinct snapshot gameweeks every entry
// stays at "same".
func TestApplyMovementBoundaryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		entries := genEntries(t)
		ranked := rankEntries(entries)

		gameweek := rapid.IntRange(1, 38).Draw(t, "gameweek")
		groupID := uuid.New()

		var history []*model.HistorySnapshot
		for i, r := range ranked {
			if rapid.Bool().Draw(t, "include") {
				history = append(history, &model.HistorySnapshot{
					UserID:   r.UserID,
					GroupID:  groupID,
					Gameweek: gameweek,
					Position: i + 1,
				})
			}
		}

		applyMovement(ranked, history)

		for _, r := range ranked {
			require.Equal(t, model.MovementSame, r.Movement)
		}
	})
}
