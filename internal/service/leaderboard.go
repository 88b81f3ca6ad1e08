package service

import (
	"bytes"
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/Baileyhall3/footie-predictors/internal/model"
	"github.com/Baileyhall3/footie-predictors/internal/repository"
)

// LeaderboardService produces ranked leaderboards with movement indicators,
// and the per-gameweek score views. It is a pure read path: nothing here
// mutates score or leaderboard totals.
type LeaderboardService struct {
	leaderboardRepo *repository.LeaderboardRepository
	scoreRepo       *repository.ScoreRepository
}

// NewLeaderboardService creates a new LeaderboardService instance.
func NewLeaderboardService(
	leaderboardRepo *repository.LeaderboardRepository,
	scoreRepo *repository.ScoreRepository,
) *LeaderboardService {
	return &LeaderboardService{
		leaderboardRepo: leaderboardRepo,
		scoreRepo:       scoreRepo,
	}
}

// GetRankedLeaderboard returns a group's leaderboard ordered by total points
// descending, exact-score count descending, then user ID for a deterministic
// tiebreak. Positions are 1-based and distinct even on ties. Movement
// compares each user's position across the two most recent snapshot
// gameweeks; with fewer than two snapshots every entry reports "same".
func (s *LeaderboardService) GetRankedLeaderboard(ctx context.Context, groupID uuid.UUID) ([]model.RankedEntry, error) {
	entries, err := s.leaderboardRepo.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	ranked := rankEntries(entries)

	history, err := s.leaderboardRepo.ListHistory(ctx, groupID)
	if err != nil {
		return nil, err
	}

	applyMovement(ranked, history)

	return ranked, nil
}

// GetTopPerformers returns the top N entries of a group's leaderboard,
// without movement computation.
func (s *LeaderboardService) GetTopPerformers(ctx context.Context, groupID uuid.UUID, limit int) ([]model.RankedEntry, error) {
	entries, err := s.leaderboardRepo.ListTop(ctx, groupID, limit)
	if err != nil {
		return nil, err
	}

	return rankEntries(entries), nil
}

// GetUserPosition returns a user's current ranked entry in a group.
// A user with no leaderboard entry gets position zero.
func (s *LeaderboardService) GetUserPosition(ctx context.Context, groupID, userID uuid.UUID) (model.RankedEntry, error) {
	ranked, err := s.GetRankedLeaderboard(ctx, groupID)
	if err != nil {
		return model.RankedEntry{}, err
	}

	for _, entry := range ranked {
		if entry.UserID == userID {
			return entry, nil
		}
	}

	return model.RankedEntry{UserID: userID, Movement: model.MovementSame}, nil
}

// GetGameweekScores returns every group member's score for one gameweek,
// zero-filled for members without points, ordered and positioned like the
// leaderboard.
func (s *LeaderboardService) GetGameweekScores(ctx context.Context, groupID, gameweekID uuid.UUID) ([]*model.GameweekScore, error) {
	scores, err := s.scoreRepo.ListGameweekScores(ctx, groupID, gameweekID)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(scores, func(a, b *model.GameweekScore) int {
		if a.TotalPoints != b.TotalPoints {
			return b.TotalPoints - a.TotalPoints
		}
		if a.TotalCorrectScores != b.TotalCorrectScores {
			return b.TotalCorrectScores - a.TotalCorrectScores
		}
		return compareUUID(a.UserID, b.UserID)
	})

	for i, score := range scores {
		score.Position = i + 1
	}

	return scores, nil
}

// GetUserScores returns one user's points per gameweek across a group.
func (s *LeaderboardService) GetUserScores(ctx context.Context, groupID, userID uuid.UUID) ([]*model.UserGameweekPoints, error) {
	return s.scoreRepo.ListUserScores(ctx, groupID, userID)
}

// GetUserHistory returns a user's snapshot positions, newest first.
func (s *LeaderboardService) GetUserHistory(ctx context.Context, groupID, userID uuid.UUID) ([]*model.HistorySnapshot, error) {
	return s.leaderboardRepo.ListUserHistory(ctx, groupID, userID)
}

// SnapshotPositions materializes the group's current positions as the
// snapshot for the given gameweek number. Re-running for the same gameweek
// overwrites positions rather than duplicating rows.
func (s *LeaderboardService) SnapshotPositions(ctx context.Context, groupID uuid.UUID, weekNumber int) error {
	entries, err := s.leaderboardRepo.ListByGroup(ctx, groupID)
	if err != nil {
		return err
	}

	ranked := rankEntries(entries)

	snapshots := make([]*model.HistorySnapshot, len(ranked))
	for i, entry := range ranked {
		snapshots[i] = &model.HistorySnapshot{
			UserID:   entry.UserID,
			GroupID:  groupID,
			Gameweek: weekNumber,
			Position: entry.Position,
		}
	}

	return s.leaderboardRepo.SaveSnapshots(ctx, snapshots)
}

// rankEntries sorts leaderboard entries by total points descending, exact
// scores descending, then user ID ascending, and assigns 1-based positions.
// Repeated calls on the same rows always produce the same order.
func rankEntries(entries []*model.LeaderboardEntry) []model.RankedEntry {
	sorted := make([]*model.LeaderboardEntry, len(entries))
	copy(sorted, entries)

	slices.SortFunc(sorted, func(a, b *model.LeaderboardEntry) int {
		if a.TotalPoints != b.TotalPoints {
			return b.TotalPoints - a.TotalPoints
		}
		if a.TotalCorrectScores != b.TotalCorrectScores {
			return b.TotalCorrectScores - a.TotalCorrectScores
		}
		return compareUUID(a.UserID, b.UserID)
	})

	ranked := make([]model.RankedEntry, len(sorted))
	for i, entry := range sorted {
		ranked[i] = model.RankedEntry{
			Position:            i + 1,
			UserID:              entry.UserID,
			Username:            entry.Username,
			TotalPoints:         entry.TotalPoints,
			TotalCorrectScores:  entry.TotalCorrectScores,
			TotalCorrectResults: entry.TotalCorrectResults,
			Movement:            model.MovementSame,
		}
	}

	return ranked
}

// applyMovement sets each entry's movement from the two most recent distinct
// snapshot gameweeks. A user missing from either snapshot, or a history with
// fewer than two gameweeks, stays at "same".
func applyMovement(ranked []model.RankedEntry, history []*model.HistorySnapshot) {
	var gameweeks []int
	for _, snap := range history {
		if !slices.Contains(gameweeks, snap.Gameweek) {
			gameweeks = append(gameweeks, snap.Gameweek)
		}
	}
	if len(gameweeks) < 2 {
		return
	}

	slices.SortFunc(gameweeks, func(a, b int) int { return b - a })
	latest, previous := gameweeks[0], gameweeks[1]

	positions := make(map[uuid.UUID]map[int]int)
	for _, snap := range history {
		if positions[snap.UserID] == nil {
			positions[snap.UserID] = make(map[int]int)
		}
		positions[snap.UserID][snap.Gameweek] = snap.Position
	}

	for i := range ranked {
		userHistory := positions[ranked[i].UserID]
		current, haveCurrent := userHistory[latest]
		prev, havePrev := userHistory[previous]
		if !haveCurrent || !havePrev {
			continue
		}

		switch {
		case current < prev:
			ranked[i].Movement = model.MovementUp
		case current > prev:
			ranked[i].Movement = model.MovementDown
		}
	}
}

func compareUUID(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
