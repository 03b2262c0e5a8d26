package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/verte-zerg/chordarena/internal/arena"
	"github.com/verte-zerg/chordarena/internal/chord"
	"github.com/verte-zerg/chordarena/internal/model"
)

// maxAnswerXP is the most XP a single answer can earn: top level, top multiplier, doubled.
func maxAnswerXP() int {
	best := 1
	for _, a := range arena.All() {
		best = max(best, a.Multiplier())
	}
	return chord.MaxLevel * 10 * best * 2
}

// plausible clamps score and XP to what the reported answers could have earned.
func plausible(r model.SessionResult) (model.SessionResult, bool) {
	clamped := false
	if limit := r.Correct * chord.MaxLevel * 10; r.Score > limit {
		r.Score = limit
		clamped = true
	}
	if limit := r.Correct * maxAnswerXP(); r.XP > limit {
		r.XP = limit
		clamped = true
	}
	if r.Level > chord.MaxLevel {
		r.Level = chord.MaxLevel
		clamped = true
	}
	return r, clamped
}

// RecordSessionResult stores a finished session. Implausible totals are clamped,
// inconsistent ones are rejected without being stored.
func (s *Store) RecordSessionResult(ctx context.Context, deviceID string, r model.SessionResult) (model.ResultAck, error) {
	if deviceID == "" {
		return model.ResultAck{}, fmt.Errorf("device id is empty")
	}
	if r.EndedAt.Before(r.StartedAt) || r.Score < 0 || r.XP < 0 || r.Correct < 0 || r.Wrong < 0 {
		return model.ResultAck{Accepted: false, Score: r.Score, XP: r.XP}, nil
	}
	r, clamped := plausible(r)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.ResultAck{}, fmt.Errorf("failed to begin session insert: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (device_id, started_at, ended_at, arena_id, score, level, xp, correct, wrong, max_combo, end_reason, duration_ms, clamped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		deviceID,
		r.StartedAt.UTC().Format(time.RFC3339Nano),
		r.EndedAt.UTC().Format(time.RFC3339Nano),
		r.ArenaID,
		r.Score,
		r.Level,
		r.XP,
		r.Correct,
		r.Wrong,
		r.MaxCombo,
		r.EndReason,
		r.DurationMs,
		boolInt(clamped),
	)
	if err != nil {
		return model.ResultAck{}, fmt.Errorf("failed to insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.ResultAck{}, err
	}
	var better int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE score > ?`, r.Score).Scan(&better); err != nil {
		return model.ResultAck{}, fmt.Errorf("failed to rank session: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return model.ResultAck{}, err
	}
	return model.ResultAck{
		SessionID: id,
		Accepted:  true,
		Clamped:   clamped,
		Score:     r.Score,
		XP:        r.XP,
		Rank:      better + 1,
	}, nil
}

// ListSessions returns session aggregates filtered by stats config, oldest first.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.DeviceID != "" {
		clauses = append(clauses, "device_id = ?")
		args = append(args, cfg.DeviceID)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, cfg.Since.UTC().Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, ended_at, arena_id, score, level, xp, correct, wrong, max_combo, duration_ms
		FROM sessions
		WHERE %s
		ORDER BY ended_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var endedAt string
		if err := rows.Scan(&agg.SessionID, &endedAt, &agg.ArenaID, &agg.Score, &agg.Level, &agg.XP,
			&agg.Correct, &agg.Wrong, &agg.MaxCombo, &agg.DurationMs); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, endedAt)
		if err != nil {
			return nil, err
		}
		agg.EndedAt = parsed
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}
	return sessions, nil
}

// UnlockNextArena raises the device's unlocked arena to the one after fromArenaID.
// Unlocking never moves backwards; unlocking past the last arena is a no-op.
func (s *Store) UnlockNextArena(ctx context.Context, deviceID string, fromArenaID int) error {
	from, ok := arena.ByID(fromArenaID)
	if !ok {
		return fmt.Errorf("unknown arena %d", fromArenaID)
	}
	next, ok := arena.Next(from)
	if !ok {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin unlock: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()
	now := s.now()
	if err = ensureProfile(ctx, tx, deviceID, now); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE profiles SET unlocked_arena = MAX(unlocked_arena, ?), updated_at = ? WHERE device_id = ?`,
		next.ID, now.UTC().Format(time.RFC3339Nano), deviceID); err != nil {
		return fmt.Errorf("failed to unlock arena: %w", err)
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
