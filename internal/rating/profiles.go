package rating

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/park285/cheese-chess-server/internal/domain"
)

// MemoryProfiles is the in-memory ProfileStore used when no database is configured.
type MemoryProfiles struct {
	mu       sync.RWMutex
	profiles map[string]*domain.ChessProfile
}

func NewMemoryProfiles() *MemoryProfiles {
	return &MemoryProfiles{profiles: make(map[string]*domain.ChessProfile)}
}

func (m *MemoryProfiles) GetProfile(_ context.Context, playerID string) (*domain.ChessProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[playerID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryProfiles) UpsertProfile(_ context.Context, profile *domain.ChessProfile) error {
	if profile == nil {
		return fmt.Errorf("nil chess profile payload")
	}
	cp := *profile
	m.mu.Lock()
	m.profiles[profile.PlayerID] = &cp
	m.mu.Unlock()
	return nil
}

// PostgresProfiles stores profiles in the chess_profiles table.
type PostgresProfiles struct {
	db *sql.DB
}

func NewPostgresProfiles(db *sql.DB) *PostgresProfiles {
	return &PostgresProfiles{db: db}
}

const createProfilesTable = `
	CREATE TABLE IF NOT EXISTS chess_profiles (
		player_id      TEXT PRIMARY KEY,
		rating         INTEGER NOT NULL,
		games_played   INTEGER NOT NULL DEFAULT 0,
		wins           INTEGER NOT NULL DEFAULT 0,
		losses         INTEGER NOT NULL DEFAULT 0,
		draws          INTEGER NOT NULL DEFAULT 0,
		streak         INTEGER NOT NULL DEFAULT 0,
		streak_type    TEXT NOT NULL DEFAULT '',
		last_game_id   TEXT NOT NULL DEFAULT '',
		last_played_at TIMESTAMPTZ,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// EnsureSchema creates the profile table when it does not exist.
func (r *PostgresProfiles) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createProfilesTable)
	return err
}

func (r *PostgresProfiles) GetProfile(ctx context.Context, playerID string) (*domain.ChessProfile, error) {
	const query = `
		SELECT
			player_id,
			rating,
			games_played,
			wins,
			losses,
			draws,
			streak,
			streak_type,
			last_game_id,
			COALESCE(last_played_at, created_at),
			updated_at,
			created_at
		FROM chess_profiles
		WHERE player_id = $1
		LIMIT 1`

	var profile domain.ChessProfile
	err := r.db.QueryRowContext(ctx, query, playerID).Scan(
		&profile.PlayerID,
		&profile.Rating,
		&profile.GamesPlayed,
		&profile.Wins,
		&profile.Losses,
		&profile.Draws,
		&profile.Streak,
		&profile.StreakType,
		&profile.LastGameID,
		&profile.LastPlayedAt,
		&profile.UpdatedAt,
		&profile.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select chess profile: %w", err)
	}
	return &profile, nil
}

func (r *PostgresProfiles) UpsertProfile(ctx context.Context, profile *domain.ChessProfile) error {
	if profile == nil {
		return fmt.Errorf("nil chess profile payload")
	}
	const query = `
		INSERT INTO chess_profiles (
			player_id,
			rating,
			games_played,
			wins,
			losses,
			draws,
			streak,
			streak_type,
			last_game_id,
			last_played_at,
			updated_at,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (player_id)
		DO UPDATE SET
			rating = EXCLUDED.rating,
			games_played = EXCLUDED.games_played,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			draws = EXCLUDED.draws,
			streak = EXCLUDED.streak,
			streak_type = EXCLUDED.streak_type,
			last_game_id = EXCLUDED.last_game_id,
			last_played_at = EXCLUDED.last_played_at,
			updated_at = NOW()`

	_, err := r.db.ExecContext(
		ctx,
		query,
		profile.PlayerID,
		profile.Rating,
		profile.GamesPlayed,
		profile.Wins,
		profile.Losses,
		profile.Draws,
		profile.Streak,
		profile.StreakType,
		profile.LastGameID,
		profile.LastPlayedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert chess profile: %w", err)
	}
	return nil
}
