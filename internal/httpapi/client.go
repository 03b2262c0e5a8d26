package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/verte-zerg/chordarena/internal/backend"
	"github.com/verte-zerg/chordarena/internal/model"
)

// Client implements backend.Backend against a Server.
type Client struct {
	base string
	http *http.Client

	mu     sync.Mutex
	tokens map[string]string
}

var _ backend.Backend = (*Client)(nil)

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   hc,
		tokens: map[string]string{},
	}
}

// Register obtains a token for deviceID, or for a new device when deviceID is empty.
// It returns the device id the server assigned.
func (c *Client) Register(ctx context.Context, deviceID string) (string, error) {
	var res registerRes
	if err := c.do(ctx, "", http.MethodPost, "/v1/devices", registerReq{DeviceID: deviceID}, &res); err != nil {
		return "", fmt.Errorf("failed to register device: %w", err)
	}
	c.mu.Lock()
	c.tokens[res.DeviceID] = res.Token
	c.mu.Unlock()
	return res.DeviceID, nil
}

func (c *Client) token(ctx context.Context, deviceID string) (string, error) {
	c.mu.Lock()
	tok, ok := c.tokens[deviceID]
	c.mu.Unlock()
	if ok {
		return tok, nil
	}
	if _, err := c.Register(ctx, deviceID); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens[deviceID], nil
}

// anyToken returns a token for mission calls, which carry no device id.
func (c *Client) anyToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tok := range c.tokens {
		return tok, nil
	}
	return "", errors.New("no registered device")
}

func (c *Client) LoadProfile(ctx context.Context, deviceID string) (*model.Profile, error) {
	tok, err := c.token(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	var p model.Profile
	err = c.do(ctx, tok, http.MethodGet, "/v1/profile", nil, &p)
	if errors.Is(err, backend.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return &p, nil
}

func (c *Client) SaveProfile(ctx context.Context, deviceID string, p model.Profile) error {
	tok, err := c.token(ctx, deviceID)
	if err != nil {
		return err
	}
	if err := c.do(ctx, tok, http.MethodPut, "/v1/profile", p, nil); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (c *Client) RecordSessionResult(ctx context.Context, deviceID string, r model.SessionResult) (model.ResultAck, error) {
	tok, err := c.token(ctx, deviceID)
	if err != nil {
		return model.ResultAck{}, err
	}
	var ack model.ResultAck
	if err := c.do(ctx, tok, http.MethodPost, "/v1/sessions", r, &ack); err != nil {
		return model.ResultAck{}, fmt.Errorf("failed to record session: %w", err)
	}
	return ack, nil
}

func (c *Client) FetchDailyMissions(ctx context.Context, deviceID string) ([]model.Mission, error) {
	tok, err := c.token(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	var missions []model.Mission
	if err := c.do(ctx, tok, http.MethodGet, "/v1/missions", nil, &missions); err != nil {
		return nil, fmt.Errorf("failed to fetch missions: %w", err)
	}
	return missions, nil
}

func (c *Client) UpdateMissionProgress(ctx context.Context, missionID int64, value int, completed bool) (model.Mission, error) {
	tok, err := c.anyToken()
	if err != nil {
		return model.Mission{}, err
	}
	var m model.Mission
	path := fmt.Sprintf("/v1/missions/%d/progress", missionID)
	if err := c.do(ctx, tok, http.MethodPut, path, progressReq{Value: value, Completed: completed}, &m); err != nil {
		return model.Mission{}, fmt.Errorf("failed to update mission %d: %w", missionID, err)
	}
	return m, nil
}

func (c *Client) ClaimMissionReward(ctx context.Context, missionID int64) (model.Reward, error) {
	tok, err := c.anyToken()
	if err != nil {
		return model.Reward{}, err
	}
	var reward model.Reward
	path := fmt.Sprintf("/v1/missions/%d/claim", missionID)
	if err := c.do(ctx, tok, http.MethodPost, path, nil, &reward); err != nil {
		return model.Reward{}, fmt.Errorf("failed to claim mission %d: %w", missionID, err)
	}
	return reward, nil
}

func (c *Client) UnlockNextArena(ctx context.Context, deviceID string, fromArenaID int) error {
	tok, err := c.token(ctx, deviceID)
	if err != nil {
		return err
	}
	if err := c.do(ctx, tok, http.MethodPost, "/v1/arenas/unlock", unlockReq{FromArenaID: fromArenaID}, nil); err != nil {
		return fmt.Errorf("failed to unlock arena: %w", err)
	}
	return nil
}

// StatusError is a non-2xx answer the client could not map to a backend error.
type StatusError struct {
	Status int
	Code   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d %s", e.Status, e.Code)
}

func (c *Client) do(ctx context.Context, token, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()

	if resp.StatusCode >= 300 {
		var e errorRes
		_ = json.NewDecoder(resp.Body).Decode(&e)
		switch e.Error {
		case codeNotFound:
			return backend.ErrNotFound
		case codeAlreadyClaimed:
			return backend.ErrAlreadyClaimed
		case codeNotCompleted:
			return backend.ErrNotCompleted
		}
		return &StatusError{Status: resp.StatusCode, Code: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
