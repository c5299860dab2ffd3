package server

import "net/http"

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteRoot, s.HealthHandler())

	// Session lifecycle
	s.RegisterRouteHandler("POST "+RouteAuthIssue, ChainMiddleware(s.IssueHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// Routes that require a valid access token
	s.RegisterRouteHandler("POST "+RouteAuthLogoutAll, ChainMiddleware(s.LogoutAllHandler(), s.authenticatedAPIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), s.authenticatedAPIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthSessions, ChainMiddleware(s.SessionsHandler(), s.authenticatedAPIMiddleware()...))

	// Upstream identity provider flow
	if s.oidc != nil {
		s.RegisterRouteFunc("GET "+RouteSSOLogin, s.SSOLoginHandler())
		s.RegisterRouteFunc("GET "+RouteSSOCallback, s.SSOCallbackHandler())
		s.RegisterRouteFunc("POST "+RouteSSOCallback, s.SSOCallbackHandler()) // For form_post response mode
	}
}

func (s *Server) authenticatedAPIMiddleware() []func(http.HandlerFunc) http.HandlerFunc {
	return append(s.APIMiddleware(), s.RequireAuth())
}
