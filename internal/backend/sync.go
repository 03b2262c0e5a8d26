package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/verte-zerg/chordarena/internal/mission"
	"github.com/verte-zerg/chordarena/internal/model"
)

// Outcome collects what the backend answered at a session checkpoint.
type Outcome struct {
	Ack      model.ResultAck
	Missions []model.Mission
	// Completed lists missions that became claimable during this session.
	Completed []model.Mission
}

// FinishSession runs the session-end checkpoint: save the folded profile, record the
// result and push mission progress. A nil profile skips the save, so a placeholder
// never overwrites stored lifetime stats. Every step is attempted; failures are joined.
func FinishSession(ctx context.Context, b Backend, deviceID string, p *model.Profile, r model.SessionResult, c mission.Counters) (Outcome, error) {
	var out Outcome
	var errs []error

	if p != nil {
		if err := b.SaveProfile(ctx, deviceID, *p); err != nil {
			errs = append(errs, fmt.Errorf("failed to save profile: %w", err))
		}
	}
	ack, err := b.RecordSessionResult(ctx, deviceID, r)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to record session: %w", err))
	} else {
		out.Ack = ack
	}

	missions, err := b.FetchDailyMissions(ctx, deviceID)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to fetch missions: %w", err))
		return out, errors.Join(errs...)
	}
	byID := make(map[int64]int, len(missions))
	for i, m := range missions {
		byID[m.ID] = i
	}
	for _, prop := range mission.Propose(c, missions) {
		if !prop.Changed() && !prop.Completed {
			continue
		}
		updated, err := b.UpdateMissionProgress(ctx, prop.MissionID, prop.Value, prop.Completed)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to update mission %d: %w", prop.MissionID, err))
			continue
		}
		missions[byID[updated.ID]] = updated
		if updated.Completed {
			out.Completed = append(out.Completed, updated)
		}
	}
	out.Missions = missions
	return out, errors.Join(errs...)
}
