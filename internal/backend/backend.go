// Package backend defines the persistence and sync port the game talks to.
//
// Calls are fire-and-forget from the engine's point of view: the in-memory session
// is authoritative and a failed call never rolls local progress back.
package backend

import (
	"context"
	"errors"

	"github.com/verte-zerg/chordarena/internal/model"
)

var (
	// ErrNotFound is returned when a mission or profile does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyClaimed is returned when a mission reward was claimed before.
	ErrAlreadyClaimed = errors.New("reward already claimed")
	// ErrNotCompleted is returned when claiming a mission that is not complete.
	ErrNotCompleted = errors.New("mission not completed")
)

// Backend is implemented by the local SQLite store and the HTTP client.
type Backend interface {
	// LoadProfile returns nil and no error when the device has no profile yet.
	LoadProfile(ctx context.Context, deviceID string) (*model.Profile, error)
	SaveProfile(ctx context.Context, deviceID string, p model.Profile) error
	RecordSessionResult(ctx context.Context, deviceID string, r model.SessionResult) (model.ResultAck, error)
	FetchDailyMissions(ctx context.Context, deviceID string) ([]model.Mission, error)
	UpdateMissionProgress(ctx context.Context, missionID int64, value int, completed bool) (model.Mission, error)
	ClaimMissionReward(ctx context.Context, missionID int64) (model.Reward, error)
	UnlockNextArena(ctx context.Context, deviceID string, fromArenaID int) error
}

// LoadOrCreate returns the stored profile, or a fresh one when none exists.
// The fresh profile is not saved.
func LoadOrCreate(ctx context.Context, b Backend, deviceID string) (model.Profile, error) {
	p, err := b.LoadProfile(ctx, deviceID)
	if err != nil {
		return model.NewProfile(deviceID), err
	}
	if p == nil {
		return model.NewProfile(deviceID), nil
	}
	return *p, nil
}
