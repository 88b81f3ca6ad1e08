// Package model defines the data records for the prediction scoring engine.
package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered predictor. Display fields only; auth lives elsewhere.
type User struct {
	ID        uuid.UUID `db:"id"`
	Username  string    `db:"username"`
	CreatedAt time.Time `db:"created_at"`
}

// Group is one prediction competition instance.
type Group struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	OwnerID   uuid.UUID `db:"owner_id"`
	IsPublic  bool      `db:"is_public"`
	MemberCap int       `db:"member_cap"` // 0 means no cap
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// ScoringRules is a group's point configuration. Fixed per group at
// calculation time; changing it never rescores already-calculated matches.
type ScoringRules struct {
	GroupID             uuid.UUID `db:"group_id"`
	ExactScorePoints    int       `db:"exact_score_points"`
	CorrectResultPoints int       `db:"correct_result_points"`
	IncorrectPoints     int       `db:"incorrect_points"` // may be zero or negative
}

// Season is a time-boxed grouping of gameweeks within a group.
type Season struct {
	ID        uuid.UUID  `db:"id"`
	GroupID   uuid.UUID  `db:"group_id"`
	Name      string     `db:"name"`
	StartDate time.Time  `db:"start_date"`
	EndDate   time.Time  `db:"end_date"`
	Active    bool       `db:"active"`
	Finished  bool       `db:"finished"`
	WinnerID  *uuid.UUID `db:"winner_id"` // set when the season closes
}

// Gameweek is an ordered round of fixtures within a season.
type Gameweek struct {
	ID         uuid.UUID  `db:"id"`
	GroupID    uuid.UUID  `db:"group_id"`
	SeasonID   *uuid.UUID `db:"season_id"`
	WeekNumber int        `db:"week_number"` // unique within group, ordering key
	Deadline   time.Time  `db:"deadline"`
	Locked     bool       `db:"locked"`
	Active     bool       `db:"active"`
	Finished   bool       `db:"finished"`
}

// Match is a fixture within a gameweek. Both final scores non-nil means the
// match is finished; ScoredAt non-nil means points were already awarded.
type Match struct {
	ID             uuid.UUID  `db:"id"`
	GameweekID     uuid.UUID  `db:"gameweek_id"`
	HomeTeam       string     `db:"home_team"`
	AwayTeam       string     `db:"away_team"`
	MatchTime      time.Time  `db:"match_time"`
	FinalHomeScore *int       `db:"final_home_score"`
	FinalAwayScore *int       `db:"final_away_score"`
	APIMatchID     *string    `db:"api_match_id"` // external result-feed identifier
	ScoredAt       *time.Time `db:"scored_at"`
}

// Finished reports whether the match has a full-time result.
func (m *Match) Finished() bool {
	return m.FinalHomeScore != nil && m.FinalAwayScore != nil
}

// Scored reports whether points have already been awarded for the match.
func (m *Match) Scored() bool {
	return m.ScoredAt != nil
}

// Prediction is one user's forecast for one match. At most one per
// (user, match); immutable once the gameweek locks.
type Prediction struct {
	ID                 uuid.UUID `db:"id"`
	UserID             uuid.UUID `db:"user_id"`
	MatchID            uuid.UUID `db:"match_id"`
	PredictedHomeScore int       `db:"predicted_home_score"`
	PredictedAwayScore int       `db:"predicted_away_score"`
	Locked             bool      `db:"locked"`
	CreatedByAdmin     bool      `db:"created_by_admin"` // proxy predictions for fake users
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// Score is a user's accumulated points within one gameweek.
// Unique per (user, gameweek); only ever updated additively.
type Score struct {
	ID                 uuid.UUID `db:"id"`
	UserID             uuid.UUID `db:"user_id"`
	GameweekID         uuid.UUID `db:"gameweek_id"`
	TotalPoints        int       `db:"total_points"`
	TotalCorrectScores int       `db:"total_correct_scores"`
	UpdatedAt          time.Time `db:"updated_at"`
}

// LeaderboardEntry is a user's accumulated totals across a group's season.
// Unique per (user, group); seeded at zero on join or created lazily on the
// first award, and only ever updated additively.
type LeaderboardEntry struct {
	ID                  uuid.UUID `db:"id"`
	UserID              uuid.UUID `db:"user_id"`
	GroupID             uuid.UUID `db:"group_id"`
	Username            string    `db:"username"` // joined from users
	TotalPoints         int       `db:"total_points"`
	TotalCorrectScores  int       `db:"total_correct_scores"`
	TotalCorrectResults int       `db:"total_correct_results"`
	UpdatedAt           time.Time `db:"updated_at"`
}

// Movement indicates how a user's rank changed since the previous
// scored gameweek.
type Movement string

const (
	MovementUp   Movement = "up"
	MovementDown Movement = "down"
	MovementSame Movement = "same"
)

// RankedEntry is a leaderboard entry with its 1-based position and
// rank movement. Ties receive distinct sequential positions.
type RankedEntry struct {
	Position            int
	UserID              uuid.UUID
	Username            string
	TotalPoints         int
	TotalCorrectScores  int
	TotalCorrectResults int
	Movement            Movement
}

// HistorySnapshot records a user's leaderboard position as of a gameweek.
// Written when a gameweek completes; read-only input to movement computation.
type HistorySnapshot struct {
	UserID   uuid.UUID `db:"user_id"`
	GroupID  uuid.UUID `db:"group_id"`
	Gameweek int       `db:"gameweek"`
	Position int       `db:"position"`
}

// GameweekScore is a group member's score row for one gameweek, zero-filled
// for members who have no score yet.
type GameweekScore struct {
	Position           int
	UserID             uuid.UUID
	Username           string
	TotalPoints        int
	TotalCorrectScores int
}

// UserGameweekPoints is one user's points for a single gameweek, used for
// per-user score history across a group.
type UserGameweekPoints struct {
	GameweekID  uuid.UUID
	WeekNumber  int
	TotalPoints int
}
