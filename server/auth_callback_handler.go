package server

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	ssoStateCookie = "sso_state"
	ssoNonceCookie = "sso_nonce"
	ssoCookieTTL   = 10 * time.Minute
)

// SSOLoginHandler starts the OIDC authorization-code flow against the
// upstream provider. State and nonce are pinned in short-lived cookies and
// checked on the way back.
func (s *Server) SSOLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := generateRandomString(32)
		nonce := generateRandomString(32)

		s.setFlowCookie(w, r, ssoStateCookie, state)
		s.setFlowCookie(w, r, ssoNonceCookie, nonce)

		authURL := s.oidc.OAuth2Config.AuthCodeURL(state, oauth2.SetAuthURLParam("nonce", nonce))
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// SSOCallbackHandler completes the flow: it exchanges the code, verifies the
// ID token and nonce, then issues a first-party token pair for the asserted
// identity. Handles both GET (query params) and POST (form_post mode).
func (s *Server) SSOCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if errorParam := r.FormValue("error"); errorParam != "" {
			writeError(w, http.StatusBadRequest, errorParam, r.FormValue("error_description"))
			return
		}

		state := r.FormValue("state")
		code := r.FormValue("code")
		if code == "" || state == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "missing code or state parameter")
			return
		}

		stateCookie, err := r.Cookie(ssoStateCookie)
		if err != nil || stateCookie.Value != state {
			writeError(w, http.StatusBadRequest, "invalid_request", "state mismatch")
			return
		}
		nonceCookie, err := r.Cookie(ssoNonceCookie)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "missing nonce")
			return
		}
		s.clearFlowCookie(w, r, ssoStateCookie)
		s.clearFlowCookie(w, r, ssoNonceCookie)

		oauth2Token, err := s.oidc.OAuth2Config.Exchange(r.Context(), code)
		if err != nil {
			writeError(w, http.StatusBadGateway, "exchange_failed", "token exchange with provider failed")
			return
		}

		rawIDToken, ok := oauth2Token.Extra("id_token").(string)
		if !ok {
			writeError(w, http.StatusBadGateway, "exchange_failed", "no ID token in provider response")
			return
		}

		idToken, err := s.oidc.Verifier.Verify(r.Context(), rawIDToken)
		if err != nil {
			writeUnauthenticated(w)
			return
		}

		var claims struct {
			Nonce string `json:"nonce"`
			Sub   string `json:"sub"`
			Email string `json:"email"`
			Name  string `json:"name"`
		}
		if err := idToken.Claims(&claims); err != nil {
			writeUnauthenticated(w)
			return
		}

		// Validate nonce to prevent replay attacks
		if claims.Nonce != nonceCookie.Value {
			writeUnauthenticated(w)
			return
		}

		pair, err := s.sessions.IssueSession(r.Context(), claims.Email, claims.Name, claims.Sub)
		if err != nil {
			s.writeSessionError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}

func (s *Server) setFlowCookie(w http.ResponseWriter, r *http.Request, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ssoCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearFlowCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// generateRandomString creates a random base64url string
func generateRandomString(length int) string {
	b := make([]byte, length)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)[:length]
}
