package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/chordarena/internal/backend"
	"github.com/verte-zerg/chordarena/internal/mission"
	"github.com/verte-zerg/chordarena/internal/model"
)

const missionColumns = `id, device_id, date, goal, title, target, current, completed, claimed, reward_type, reward_amount`

// FetchDailyMissions returns today's missions, assigning them on first request.
func (s *Store) FetchDailyMissions(ctx context.Context, deviceID string) ([]model.Mission, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device id is empty")
	}
	date := mission.DateKey(s.now())
	for _, t := range mission.Daily(s.now(), deviceID, s.salt, mission.PerDay) {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO missions (device_id, date, goal, title, target, current, completed, claimed, reward_type, reward_amount)
			 VALUES (?, ?, ?, ?, ?, 0, 0, 0, ?, ?)
			 ON CONFLICT(device_id, date, goal) DO NOTHING`,
			deviceID, date, t.Goal, t.Title, t.Target, t.RewardType, t.RewardAmount); err != nil {
			return nil, fmt.Errorf("failed to assign missions: %w", err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+missionColumns+` FROM missions WHERE device_id = ? AND date = ? ORDER BY id ASC`, deviceID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query missions: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()
	var out []model.Mission
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMission(row scanner) (model.Mission, error) {
	var m model.Mission
	var completed, claimed int
	if err := row.Scan(&m.ID, &m.DeviceID, &m.Date, &m.Goal, &m.Title, &m.Target, &m.Current,
		&completed, &claimed, &m.RewardType, &m.RewardAmount); err != nil {
		return model.Mission{}, err
	}
	m.Completed = completed != 0
	m.Claimed = claimed != 0
	return m, nil
}

func getMission(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, id int64) (model.Mission, error) {
	m, err := scanMission(q.QueryRowContext(ctx, `SELECT `+missionColumns+` FROM missions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Mission{}, backend.ErrNotFound
	}
	return m, err
}

// UpdateMissionProgress stores proposed progress. The caller's completion flag is
// advisory: completion is recomputed against the target and never reverts.
func (s *Store) UpdateMissionProgress(ctx context.Context, missionID int64, value int, _ bool) (model.Mission, error) {
	m, err := getMission(ctx, s.db, missionID)
	if err != nil {
		return model.Mission{}, fmt.Errorf("failed to load mission %d: %w", missionID, err)
	}
	if m.Claimed {
		return m, nil
	}
	m.Current = max(0, value)
	m.Completed = m.Completed || m.Current >= m.Target
	if _, err := s.db.ExecContext(ctx,
		`UPDATE missions SET current = ?, completed = ? WHERE id = ?`,
		m.Current, boolInt(m.Completed), m.ID); err != nil {
		return model.Mission{}, fmt.Errorf("failed to update mission %d: %w", missionID, err)
	}
	return m, nil
}

// ClaimMissionReward issues the reward of a completed mission once.
// Coin rewards are credited to the owning profile in the same transaction.
func (s *Store) ClaimMissionReward(ctx context.Context, missionID int64) (model.Reward, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Reward{}, fmt.Errorf("failed to begin claim: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	m, err := getMission(ctx, tx, missionID)
	if err != nil {
		return model.Reward{}, fmt.Errorf("failed to load mission %d: %w", missionID, err)
	}
	if m.Claimed {
		err = backend.ErrAlreadyClaimed
		return model.Reward{}, err
	}
	if !m.Completed {
		err = backend.ErrNotCompleted
		return model.Reward{}, err
	}
	s.mu.Lock()
	reward := mission.RollReward(s.rnd, m)
	s.mu.Unlock()
	if _, err = tx.ExecContext(ctx, `UPDATE missions SET claimed = 1 WHERE id = ?`, m.ID); err != nil {
		return model.Reward{}, fmt.Errorf("failed to mark mission claimed: %w", err)
	}
	if reward.Type == model.RewardCoins && reward.Amount > 0 {
		now := s.now()
		if err = ensureProfile(ctx, tx, m.DeviceID, now); err != nil {
			return model.Reward{}, fmt.Errorf("failed to create profile: %w", err)
		}
		if _, err = tx.ExecContext(ctx,
			`UPDATE profiles SET coins = coins + ?, updated_at = ? WHERE device_id = ?`,
			reward.Amount, now.UTC().Format(time.RFC3339Nano), m.DeviceID); err != nil {
			return model.Reward{}, fmt.Errorf("failed to credit coins: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return model.Reward{}, err
	}
	return reward, nil
}
