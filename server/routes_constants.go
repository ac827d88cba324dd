package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// OAuth Routes
	RouteAuthBegin    = "/auth/begin"
	RouteAuthCallback = "/auth/callback"

	// Settings API Routes
	RouteAPISettings         = "/api/settings"
	RouteAPISettingsSearch   = "/api/settings/search"
	RouteAPISettingsBulk     = "/api/settings/bulk"
	RouteAPISettingsInstance = "/api/settings/{instance}"
	RouteAPISettingsKey      = "/api/settings/{instance}/{key}"

	// Session API Routes
	RouteAPISessions       = "/api/sessions"
	RouteAPISessionCurrent = "/api/sessions/current"
	RouteAPISessionsDelete = "/api/sessions/delete"

	// Misc Routes
	RouteHealth = "/health"
)
