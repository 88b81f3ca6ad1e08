// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Common errors for repository operations.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrGroupNotFound      = errors.New("group not found")
	ErrRulesNotFound      = errors.New("group scoring rules not found")
	ErrSeasonNotFound     = errors.New("season not found")
	ErrGameweekNotFound   = errors.New("gameweek not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrPredictionLocked   = errors.New("prediction is locked")
	ErrPredictionNotFound = errors.New("prediction not found")
	ErrEntryNotFound      = errors.New("leaderboard entry not found")
)

// Querier is the subset of pgx operations the repositories need. It is
// satisfied by both *pgxpool.Pool and pgx.Tx, so write paths can run inside
// the per-match scoring transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
