package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/ceasapp/auth-service/internal/errors"
)

const contentTypeJSON = "application/json; charset=utf-8"

type issueRequest struct {
	Email      string `json:"email"`
	FullName   string `json:"display_name,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type identityResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"display_name,omitempty"`
}

type deviceSession struct {
	JTI       string     `json:"jti"`
	ParentJTI string     `json:"parent_jti,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// HealthHandler reports service liveness and identity.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service": s.config.GetAppName(),
			"status":  "ok",
		})
	}
}

// IssueHandler exchanges an upstream-verified identity assertion for a token
// pair, provisioning the user on first sight.
func (s *Server) IssueHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req issueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "email is required")
			return
		}

		pair, err := s.sessions.IssueSession(r.Context(), req.Email, req.FullName, req.ExternalID)
		if err != nil {
			s.writeSessionError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}

// RefreshHandler rotates a refresh token into a new pair.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "refresh_token is required")
			return
		}

		pair, err := s.sessions.RotateRefresh(r.Context(), req.RefreshToken)
		if err != nil {
			s.writeSessionError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}

// LogoutHandler revokes the presented refresh token. It always responds
// 204: an already-invalid token is not the client's problem at logout time.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			s.sessions.RevokeThisDevice(r.Context(), req.RefreshToken)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// LogoutAllHandler revokes every active refresh token owned by the
// authenticated caller.
func (s *Server) LogoutAllHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			writeUnauthenticated(w)
			return
		}
		if err := s.sessions.RevokeAllDevices(r.Context(), user); err != nil {
			s.writeSessionError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// MeHandler returns the authenticated caller's identity.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			writeUnauthenticated(w)
			return
		}
		writeJSON(w, http.StatusOK, identityResponse{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.FullName,
		})
	}
}

// SessionsHandler lists the caller's refresh-token records for audit:
// rotation lineage, expiry, and revocation state. Secrets and hashes are
// never included.
func (s *Server) SessionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			writeUnauthenticated(w)
			return
		}
		tokens, err := s.sessions.ListDevices(r.Context(), user)
		if err != nil {
			s.writeSessionError(w, r, err)
			return
		}
		sessions := make([]deviceSession, 0, len(tokens))
		for _, t := range tokens {
			sessions = append(sessions, deviceSession{
				JTI:       t.JTI,
				ParentJTI: t.ParentJTI,
				CreatedAt: t.CreatedAt,
				ExpiresAt: t.ExpiresAt,
				RevokedAt: t.RevokedAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
	}
}

// writeSessionError maps manager errors onto the wire. The four auth-domain
// kinds all become 401; expired tokens keep a distinct code so clients know
// to re-authenticate rather than retry. Anything else is a store fault and
// surfaces as an opaque 500.
func (s *Server) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case apperrors.Is(err, apperrors.ErrExpiredToken):
		writeError(w, http.StatusUnauthorized, "expired_token", "re-authentication required")
	case apperrors.Is(err, apperrors.ErrMalformedToken),
		apperrors.Is(err, apperrors.ErrInvalidToken),
		apperrors.Is(err, apperrors.ErrUnauthenticated):
		writeUnauthenticated(w)
	default:
		log.Err(err).Str("path", r.URL.Path).Msg("session operation failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func writeUnauthenticated(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "unauthenticated", "")
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	body := map[string]string{"error": code}
	if description != "" {
		body["error_description"] = description
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
