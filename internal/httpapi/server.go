// Package httpapi exposes a backend over HTTP and provides a client for it.
//
// Routes map one to one onto backend.Backend. A device first registers with
// POST /v1/devices and receives an HS256 token; every other /v1 route requires it
// as a bearer token and acts on the device named in its subject.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/chordarena/internal/backend"
	"github.com/verte-zerg/chordarena/internal/model"
)

// TokenTTL is how long a device token stays valid.
const TokenTTL = 30 * 24 * time.Hour

// Server bundles the router and the backend it serves.
type Server struct {
	r      *chi.Mux
	b      backend.Backend
	secret []byte
	log    zerolog.Logger
	now    func() time.Time
}

// New constructs a Server, installs middleware and registers routes.
func New(b backend.Backend, secret []byte, logger zerolog.Logger) *Server {
	s := &Server{r: chi.NewRouter(), b: b, secret: secret, log: logger, now: time.Now}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(s.accessLog)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(10 * time.Second))
	s.r.Use(jsonContentType)

	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.r.Route("/v1", func(r chi.Router) {
		r.Post("/devices", s.handleRegister)
		r.Group(func(r chi.Router) {
			r.Use(s.requireDevice)
			r.Get("/profile", s.handleLoadProfile)
			r.Put("/profile", s.handleSaveProfile)
			r.Post("/sessions", s.handleRecordSession)
			r.Get("/missions", s.handleFetchMissions)
			r.Put("/missions/{id}/progress", s.handleUpdateMission)
			r.Post("/missions/{id}/claim", s.handleClaimMission)
			r.Post("/arenas/unlock", s.handleUnlockArena)
		})
	})

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})
	return s
}

// Handler returns the root handler, e.g. for httptest.
func (s *Server) Handler() http.Handler { return s.r }

// ListenAndServe serves on addr until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("requestId", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// ----------------------------- auth ----------------------------------------

type ctxDeviceKey struct{}

func deviceFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxDeviceKey{}).(string)
	return id
}

func (s *Server) signToken(deviceID string) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   deviceID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString(s.secret)
	return signed, exp, err
}

func bearer(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return ""
}

func (s *Server) requireDevice(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := bearer(r)
		if tokenStr == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid || claims.Subject == "" {
			writeError(w, http.StatusUnauthorized, "invalid_token")
			return
		}
		ctx := context.WithValue(r.Context(), ctxDeviceKey{}, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ----------------------------- handlers ------------------------------------

type registerReq struct {
	DeviceID string `json:"deviceId"`
}

type registerRes struct {
	DeviceID  string    `json:"deviceId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request")
			return
		}
	}
	id := strings.TrimSpace(req.DeviceID)
	if id == "" {
		id = uuid.NewString()
	}
	token, exp, err := s.signToken(id)
	if err != nil {
		s.log.Error().Err(err).Msg("sign token")
		writeError(w, http.StatusInternalServerError, "token_failed")
		return
	}
	writeJSON(w, http.StatusOK, registerRes{DeviceID: id, Token: token, ExpiresAt: exp})
}

func (s *Server) handleLoadProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.b.LoadProfile(r.Context(), deviceFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if p == nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var p model.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request")
		return
	}
	device := deviceFrom(r.Context())
	p.DeviceID = device
	if err := s.b.SaveProfile(r.Context(), device, p); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecordSession(w http.ResponseWriter, r *http.Request) {
	var res model.SessionResult
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request")
		return
	}
	ack, err := s.b.RecordSessionResult(r.Context(), deviceFrom(r.Context()), res)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

func (s *Server) handleFetchMissions(w http.ResponseWriter, r *http.Request) {
	missions, err := s.b.FetchDailyMissions(r.Context(), deviceFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if missions == nil {
		missions = []model.Mission{}
	}
	writeJSON(w, http.StatusOK, missions)
}

type progressReq struct {
	Value     int  `json:"value"`
	Completed bool `json:"completed"`
}

func (s *Server) handleUpdateMission(w http.ResponseWriter, r *http.Request) {
	id, ok := missionID(w, r)
	if !ok {
		return
	}
	var req progressReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request")
		return
	}
	m, err := s.b.UpdateMissionProgress(r.Context(), id, req.Value, req.Completed)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleClaimMission(w http.ResponseWriter, r *http.Request) {
	id, ok := missionID(w, r)
	if !ok {
		return
	}
	reward, err := s.b.ClaimMissionReward(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reward)
}

type unlockReq struct {
	FromArenaID int `json:"fromArenaId"`
}

func (s *Server) handleUnlockArena(w http.ResponseWriter, r *http.Request) {
	var req unlockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request")
		return
	}
	if err := s.b.UnlockNextArena(r.Context(), deviceFrom(r.Context()), req.FromArenaID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func missionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "bad_mission_id")
		return 0, false
	}
	return id, true
}

// ----------------------------- responses -----------------------------------

const (
	codeNotFound       = "not_found"
	codeAlreadyClaimed = "already_claimed"
	codeNotCompleted   = "not_completed"
)

type errorRes struct {
	Error string `json:"error"`
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, backend.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound)
	case errors.Is(err, backend.ErrAlreadyClaimed):
		writeError(w, http.StatusConflict, codeAlreadyClaimed)
	case errors.Is(err, backend.ErrNotCompleted):
		writeError(w, http.StatusConflict, codeNotCompleted)
	default:
		s.log.Error().Err(err).Str("requestId", chimw.GetReqID(r.Context())).Msg("backend call failed")
		writeError(w, http.StatusInternalServerError, "internal")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	writeJSON(w, status, errorRes{Error: code})
}
