// Package store handles SQLite persistence and implements the backend port locally.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/verte-zerg/chordarena/internal/backend"
	"github.com/verte-zerg/chordarena/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// DefaultSalt keys daily mission selection when none is configured.
const DefaultSalt = "chordarena"

// Store wraps SQLite access for profiles, sessions and missions.
type Store struct {
	db   *sql.DB
	salt string
	mu   sync.Mutex // guards rnd
	rnd  *rand.Rand
	now  func() time.Time
}

var _ backend.Backend = (*Store)(nil)

// Option customizes a Store.
type Option func(*Store)

// WithSalt sets the secret used to pick daily missions.
func WithSalt(salt string) Option {
	return func(s *Store) {
		if salt != "" {
			s.salt = salt
		}
	}
}

// WithRand sets the source used for reward rolls.
func WithRand(rnd *rand.Rand) Option {
	return func(s *Store) {
		if rnd != nil {
			s.rnd = rnd
		}
	}
}

// WithNow sets the clock used for mission dates and timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string, opts ...Option) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Writes from fire-and-forget commands must not hit SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	store := &Store{
		db:   db,
		salt: DefaultSalt,
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			device_id TEXT PRIMARY KEY,
			total_xp INTEGER NOT NULL,
			coins INTEGER NOT NULL,
			high_score INTEGER NOT NULL,
			unlocked_arena INTEGER NOT NULL,
			last_played_arena INTEGER NOT NULL,
			seen_stories TEXT NOT NULL,
			games_played INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY,
			device_id TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			arena_id INTEGER NOT NULL,
			score INTEGER NOT NULL,
			level INTEGER NOT NULL,
			xp INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			wrong INTEGER NOT NULL,
			max_combo INTEGER NOT NULL,
			end_reason TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			clamped INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS missions (
			id INTEGER PRIMARY KEY,
			device_id TEXT NOT NULL,
			date TEXT NOT NULL,
			goal TEXT NOT NULL,
			title TEXT NOT NULL,
			target INTEGER NOT NULL,
			current INTEGER NOT NULL,
			completed INTEGER NOT NULL,
			claimed INTEGER NOT NULL,
			reward_type TEXT NOT NULL,
			reward_amount INTEGER NOT NULL,
			UNIQUE (device_id, date, goal)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_ended_at ON sessions(ended_at);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_score ON sessions(score);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadProfile returns the profile for deviceID, or nil when none is stored.
func (s *Store) LoadProfile(ctx context.Context, deviceID string) (*model.Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT device_id, total_xp, coins, high_score, unlocked_arena, last_played_arena, seen_stories, games_played, updated_at
		 FROM profiles WHERE device_id = ?`, deviceID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &p, nil
}

func scanProfile(row *sql.Row) (model.Profile, error) {
	var p model.Profile
	var seen, updated string
	if err := row.Scan(&p.DeviceID, &p.TotalXP, &p.Coins, &p.HighScore, &p.UnlockedArena,
		&p.LastPlayedArena, &seen, &p.GamesPlayed, &updated); err != nil {
		return model.Profile{}, err
	}
	if seen != "" {
		p.SeenStories = strings.Split(seen, ",")
	}
	if updated != "" {
		t, err := time.Parse(time.RFC3339Nano, updated)
		if err != nil {
			return model.Profile{}, err
		}
		p.UpdatedAt = t
	}
	return p, nil
}

// SaveProfile upserts a profile. Coins are only changed by reward claims and the
// unlocked arena never moves backwards.
func (s *Store) SaveProfile(ctx context.Context, deviceID string, p model.Profile) error {
	if deviceID == "" {
		return fmt.Errorf("device id is empty")
	}
	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}
	unlocked := max(1, p.UnlockedArena)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (device_id, total_xp, coins, high_score, unlocked_arena, last_played_arena, seen_stories, games_played, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(device_id) DO UPDATE SET
			total_xp = excluded.total_xp,
			high_score = excluded.high_score,
			unlocked_arena = MAX(profiles.unlocked_arena, excluded.unlocked_arena),
			last_played_arena = excluded.last_played_arena,
			seen_stories = excluded.seen_stories,
			games_played = excluded.games_played,
			updated_at = excluded.updated_at`,
		deviceID,
		p.TotalXP,
		p.Coins,
		p.HighScore,
		unlocked,
		max(1, p.LastPlayedArena),
		strings.Join(p.SeenStories, ","),
		p.GamesPlayed,
		updated.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// ensureProfile inserts a starting profile when the device has none.
func ensureProfile(ctx context.Context, tx *sql.Tx, deviceID string, now time.Time) error {
	p := model.NewProfile(deviceID)
	_, err := tx.ExecContext(ctx,
		`INSERT INTO profiles (device_id, total_xp, coins, high_score, unlocked_arena, last_played_arena, seen_stories, games_played, updated_at)
		 VALUES (?, 0, 0, 0, ?, ?, '', 0, ?)
		 ON CONFLICT(device_id) DO NOTHING`,
		deviceID, p.UnlockedArena, p.LastPlayedArena, now.UTC().Format(time.RFC3339Nano))
	return err
}
