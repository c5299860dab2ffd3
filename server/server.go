package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/ceasapp/auth-service/internal/config"
	"github.com/ceasapp/auth-service/session"
)

// OidcClient bundles the handles for talking to the upstream identity
// provider. It is nil when SSO is not configured.
type OidcClient struct {
	Provider     *oidc.Provider
	OAuth2Config *oauth2.Config
	Verifier     *oidc.IDTokenVerifier
}

type Server struct {
	env      string // Environment (e.g., "DEV", "production")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	sessions *session.Manager
	oidc     *OidcClient
}

func New(cfg config.Config, sessions *session.Manager) (*Server, error) {
	s := &Server{
		mux:      http.NewServeMux(),
		config:   cfg,
		sessions: sessions,
	}
	s.env = cfg.GetEnv()

	if cfg.OidcEnabled() {
		oidcClient, err := newOidcClient(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("[Server New] failed to initialise OIDC provider: %w", err)
		}
		s.oidc = oidcClient
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func newOidcClient(ctx context.Context, cfg config.OidcConfig) (*OidcClient, error) {
	provider, err := oidc.NewProvider(ctx, cfg.GetOidcIssuerURL())
	if err != nil {
		return nil, err
	}
	oauth2Config := &oauth2.Config{
		ClientID:     cfg.GetOidcClientID(),
		ClientSecret: cfg.GetOidcClientSecret(),
		RedirectURL:  cfg.GetOidcRedirectURL(),
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	return &OidcClient{
		Provider:     provider,
		OAuth2Config: oauth2Config,
		Verifier:     provider.Verifier(&oidc.Config{ClientID: cfg.GetOidcClientID()}),
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
