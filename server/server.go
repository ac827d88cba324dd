package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/shoplane/embedded-app-server/internal/config"
	"github.com/shoplane/embedded-app-server/sessions"
	"github.com/shoplane/embedded-app-server/settings"
)

type Server struct {
	env      string // Environment (e.g. "DEV", "production")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	sessions sessions.Repo
	settings *settings.Store
}

func New(config config.Config, sessionRepo sessions.Repo, settingsStore *settings.Store) (*Server, error) {
	if config.GetShopifyAPIKey() == "" || config.GetShopifyAPISecret() == "" {
		return nil, fmt.Errorf("[Server New] SHOPIFY_API_KEY and SHOPIFY_API_SECRET are required")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   config,
		sessions: sessionRepo,
		settings: settingsStore,
	}
	s.env = config.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
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

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
