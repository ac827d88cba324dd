package server

import "net/http"

func (s *Server) initRoutes() {
	// OAuth install/grant flow (unauthenticated by definition)
	s.RegisterRouteFunc("GET "+RouteAuthBegin, ChainMiddleware(s.BeginAuthHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAuthCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.APIMiddleware()...))

	// Settings API (session-token gated)
	s.RegisterRouteFunc("GET "+RouteAPISettings, s.api(s.SettingsStatsHandler()))
	s.RegisterRouteFunc("GET "+RouteAPISettingsSearch, s.api(s.SettingsSearchHandler()))
	s.RegisterRouteFunc("POST "+RouteAPISettingsBulk, s.api(s.SettingsBulkUpdateHandler()))
	s.RegisterRouteFunc("GET "+RouteAPISettingsInstance, s.api(s.SettingsListHandler()))
	s.RegisterRouteFunc("DELETE "+RouteAPISettingsInstance, s.api(s.SettingsClearHandler()))
	s.RegisterRouteFunc("PUT "+RouteAPISettingsKey, s.api(s.SettingsUpdateHandler()))

	// Session API (session-token gated)
	s.RegisterRouteFunc("GET "+RouteAPISessions, s.api(s.SessionsListHandler()))
	s.RegisterRouteFunc("DELETE "+RouteAPISessionCurrent, s.api(s.SessionLogoutHandler()))
	s.RegisterRouteFunc("POST "+RouteAPISessionsDelete, s.api(s.SessionsDeleteHandler()))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}

// api wraps a shop-scoped handler with the standard API middleware chain and
// session-token authentication.
func (s *Server) api(next ShopHandler) http.HandlerFunc {
	return ChainMiddleware(s.WithShop(next), s.APIMiddleware()...)
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
