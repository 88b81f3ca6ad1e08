// Package main is the entry point for the prediction scoring daemon.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Baileyhall3/footie-predictors/internal/config"
	"github.com/Baileyhall3/footie-predictors/internal/pkg/db"
	"github.com/Baileyhall3/footie-predictors/internal/pkg/lock"
	"github.com/Baileyhall3/footie-predictors/internal/repository"
	"github.com/Baileyhall3/footie-predictors/internal/service"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	// Run database migrations
	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories
	groupRepo := repository.NewGroupRepository(dbPool.Pool)
	gameweekRepo := repository.NewGameweekRepository(dbPool.Pool)
	matchRepo := repository.NewMatchRepository(dbPool.Pool)
	predictionRepo := repository.NewPredictionRepository(dbPool.Pool)
	scoreRepo := repository.NewScoreRepository(dbPool.Pool)
	leaderboardRepo := repository.NewLeaderboardRepository(dbPool.Pool)

	// Initialize services
	scoringService := service.NewScoringService(
		dbPool.Pool,
		matchRepo,
		gameweekRepo,
		groupRepo,
		predictionRepo,
		scoreRepo,
		leaderboardRepo,
		cfg.Scoring.MatchTimeout,
	)

	leaderboardService := service.NewLeaderboardService(leaderboardRepo, scoreRepo)

	// Initialize match key lock
	keys := lock.NewKeyLock()

	// The result feed is deployed as a separate poller writing final scores
	// directly; this daemon only scores what it finds finished.
	finalizer := service.NewFinalizerService(
		scoringService,
		leaderboardService,
		matchRepo,
		gameweekRepo,
		nil,
		keys,
		cfg.Scoring.SweepInterval,
		cfg.Results.PollInterval,
		cfg.Scoring.BatchLimit,
	)

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start the finalizer sweep loop
	go finalizer.Run(ctx)

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	cancel()
	log.Info().Msg("Scoring daemon stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: users
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: users table created")

	// Migration 2: groups, settings and membership
	_, err = pool.Exec(ctx, `
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
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: group tables created")

	// Migration 3: seasons and gameweeks
	_, err = pool.Exec(ctx, `
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
		CREATE INDEX IF NOT EXISTS idx_gameweeks_deadline ON gameweeks(deadline) WHERE locked = FALSE;
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: season and gameweek tables created")

	// Migration 4: matches and predictions
	_, err = pool.Exec(ctx, `
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
		CREATE INDEX IF NOT EXISTS idx_matches_unscored ON matches(match_time)
			WHERE scored_at IS NULL AND final_home_score IS NOT NULL AND final_away_score IS NOT NULL;
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
		CREATE INDEX IF NOT EXISTS idx_predictions_match ON predictions(match_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: match and prediction tables created")

	// Migration 5: score aggregates and leaderboard
	_, err = pool.Exec(ctx, `
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
		CREATE INDEX IF NOT EXISTS idx_leaderboard_group ON leaderboard(group_id, total_points DESC, total_correct_scores DESC);
		CREATE TABLE IF NOT EXISTS leaderboard_history (
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			group_id UUID NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
			gameweek INT NOT NULL,
			position INT NOT NULL,
			PRIMARY KEY (user_id, group_id, gameweek)
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 5: score and leaderboard tables created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
