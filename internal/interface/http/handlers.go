package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/brimiq/LearnQuest-Backend/internal/application/command"
	"github.com/brimiq/LearnQuest-Backend/internal/application/query"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/leaderboard"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/shared"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/stats"
	"github.com/brimiq/LearnQuest-Backend/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot returns basic service information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Resource not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "learnquest-api",
		"status":  "running",
		"uptime":  s.Uptime().Round(time.Second).String(),
	})
}

// handleHealth performs a full health check against the backing stores.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := probeContext(r)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if s.deps.Database != nil {
		if err := s.deps.Database.Ping(ctx); err != nil {
			checks["database"] = err.Error()
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Ping(ctx); err != nil {
			checks["cache"] = err.Error()
			healthy = false
		} else {
			checks["cache"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, map[string]interface{}{
		"healthy":   healthy,
		"checks":    checks,
		"uptime":    s.Uptime().Round(time.Second).String(),
		"timestamp": time.Now().UTC(),
	})
}

// handleReady reports whether the service can serve traffic.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := probeContext(r)
	defer cancel()

	if s.deps.Database != nil {
		if err := s.deps.Database.Ping(ctx); err != nil {
			writeJSONError(w, http.StatusServiceUnavailable, "not_ready", "Database unavailable")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive is the liveness probe. It only confirms the process responds.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// ACCOUNT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister creates a new account with zeroed gamification stats.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	result, err := s.deps.RegisterAccountHandler.Handle(r.Context(), command.RegisterAccountCommand{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY HANDLERS (WRITE SIDE)
// ══════════════════════════════════════════════════════════════════════════════

type recordActivityRequest struct {
	// Type is the activity reason: resource_complete, module_complete,
	// comment_post or quiz_pass.
	Type string `json:"type"`

	// OccurredAt optionally backdates the activity (RFC 3339).
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
}

// handleRecordActivity awards XP for a learning activity. The Idempotency-Key
// header deduplicates retried deliveries.
func (s *Server) handleRecordActivity(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	var req recordActivityRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	cmd := command.AwardXPCommand{
		UserID:         userID,
		Reason:         stats.Reason(req.Type),
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	if req.OccurredAt != nil {
		cmd.OccurredAt = *req.OccurredAt
	}

	result, err := s.deps.AwardXPHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Deduplicated {
		// Replayed idempotency key: acknowledge without a new award.
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD HANDLERS (READ SIDE)
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard returns the top N entries for a period.
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetLeaderboardHandler.Handle(r.Context(), query.GetLeaderboardQuery{
		Period: getQueryParam(r, "period", string(leaderboard.PeriodAllTime)),
		Limit:  getQueryParamInt(r, "limit", 0),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetUserRank returns a user's rank with two neighbors on each side.
func (s *Server) handleGetUserRank(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetUserRankHandler.Handle(r.Context(), query.GetUserRankQuery{
		UserID: r.PathValue("id"),
		Period: getQueryParam(r, "period", string(leaderboard.PeriodAllTime)),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAK, BADGE AND STATS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetStreak(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetStreakStatusHandler.Handle(r.Context(), query.GetStreakStatusQuery{
		UserID: r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetBadges(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetBadgesHandler.Handle(r.Context(), query.GetBadgesQuery{
		UserID: r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.GetPeriodStatsHandler.Handle(r.Context(), query.GetPeriodStatsQuery{
		UserID: r.PathValue("id"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps domain errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "validation_error", err.Error())
	case shared.IsAlreadyExists(err):
		writeJSONError(w, http.StatusConflict, "already_exists", err.Error())
	case errors.Is(err, shared.ErrConflictExceeded):
		writeJSONError(w, http.StatusConflict, "conflict", "Concurrent updates, please retry")
	case errors.Is(err, shared.ErrServiceUnavailable):
		writeJSONError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
	default:
		s.logger.Error("unhandled request error",
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

const maxBodyBytes = 1 << 20 // 1 MB

// probeContext bounds health probe work so a hung store cannot stall the probe.
func probeContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}

// decodeBody decodes a JSON request body, rejecting unknown fields.
func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
