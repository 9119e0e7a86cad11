package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tracker-backend/internal/quickupdate"
	"tracker-backend/internal/types"
)

func (s *Server) handleQuickUpdate(w http.ResponseWriter, r *http.Request) {
	var req types.QuickUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	sid := s.sessionID(w, r, req.SessionID)

	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}
	res, err := s.engine.Handle(ctx, sid, req.Prompt)
	if err != nil {
		s.logger.Error("quick update failed",
			zap.String("session_id", sid),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to process quick update")
		return
	}

	resp := types.QuickUpdateResponse{
		SessionID: sid,
		Intent:    string(res.Intent),
		Message:   res.Message,
	}
	code := http.StatusOK
	switch res.Status {
	case quickupdate.StatusPartial:
		resp.Success = true
		resp.FollowUp = true
		resp.MissingFields = res.MissingFields
		resp.Collected = res.Collected
	case quickupdate.StatusComplete:
		resp.Success = true
		resp.Created = res.Created
	case quickupdate.StatusFailed:
		kind := quickupdate.ClassifyFailure(res.Err)
		code = failureStatus(kind)
		resp.Errors = quickupdate.ValidationFields(res.Err)
		if kind != quickupdate.FailureUpstream {
			resp.Collected = res.Collected
		}
	}
	writeJSON(w, code, resp)
}

func failureStatus(kind quickupdate.FailureKind) int {
	switch kind {
	case quickupdate.FailureUndetermined:
		return http.StatusUnprocessableEntity
	case quickupdate.FailureNotFound:
		return http.StatusNotFound
	case quickupdate.FailureValidation:
		return http.StatusBadRequest
	case quickupdate.FailureUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "id")
	collected, ok, err := s.engine.Collected(r.Context(), sid)
	if err != nil {
		s.logger.Error("failed to load session", zap.String("session_id", sid), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, types.SessionResponse{SessionID: sid, Collected: collected})
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "id")
	if err := s.engine.Reset(r.Context(), sid); err != nil {
		s.logger.Error("failed to reset session", zap.String("session_id", sid), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to reset session")
		return
	}
	if cookie, err := GetSessionCookie(r); err == nil && cookie == sid {
		ClearSessionCookie(w, s.cfg.SecureCookies)
	}
	w.WriteHeader(http.StatusNoContent)
}

// sessionID resolves the caller's session from the body, the X-Session-Id
// header or the session cookie, generating one when none is given. The id
// is echoed back in the header and cookie.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request, fromBody string) string {
	sid := strings.TrimSpace(fromBody)
	if sid == "" {
		sid = strings.TrimSpace(r.Header.Get(SessionHeader))
	}
	if sid == "" {
		if cookie, err := GetSessionCookie(r); err == nil {
			sid = strings.TrimSpace(cookie)
		}
	}
	if sid == "" {
		sid = uuid.NewString()
		s.logger.Debug("session created", zap.String("session_id", sid), zap.String("path", r.URL.Path))
	}
	w.Header().Set(SessionHeader, sid)
	SetSessionCookie(w, sid, s.cfg.SessionTTL, s.cfg.SecureCookies)
	return sid
}
