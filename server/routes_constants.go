package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Session Routes
	RouteAuthIssue     = "/auth/issue"
	RouteAuthRefresh   = "/auth/refresh"
	RouteAuthLogout    = "/auth/logout"
	RouteAuthLogoutAll = "/auth/logout-all"
	RouteAuthMe        = "/auth/me"
	RouteAuthSessions  = "/auth/sessions"

	// Upstream identity provider routes (registered only when OIDC is configured)
	RouteSSOLogin    = "/auth/sso/login"
	RouteSSOCallback = "/auth/sso/callback"

	// Service routes
	RouteRoot = "/"
)
