package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/shoplane/embedded-app-server/internal/errors"
	"github.com/shoplane/embedded-app-server/sessions"
)

// sessionView is the redacted wire shape for a stored session. The access
// token itself never leaves the server.
type sessionView struct {
	ID       string     `json:"id"`
	Shop     string     `json:"shop"`
	IsOnline bool       `json:"is_online"`
	Scope    string     `json:"scope"`
	Expires  *time.Time `json:"expires,omitempty"`
	User     string     `json:"user,omitempty"`
}

func viewOfSession(session *sessions.Session) sessionView {
	v := sessionView{
		ID:       session.ID,
		Shop:     session.Shop,
		IsOnline: session.IsOnline,
		Scope:    session.Scope,
		Expires:  session.Expires,
	}
	if session.OnlineAccessInfo != nil {
		v.User = session.OnlineAccessInfo.AssociatedUser.Email
	}
	return v
}

// SessionsListHandler lists the calling shop's stored sessions. A storage
// fault degrades to an empty list with an inline error string.
func (s *Server) SessionsListHandler() ShopHandler {
	return func(w http.ResponseWriter, r *http.Request, sc ShopContext) {
		found, err := s.sessions.FindSessionsByShop(r.Context(), sc.Shop)
		resp := map[string]any{"shop": sc.Shop, "sessions": []sessionView{}}
		if err != nil {
			log.Error().Err(err).Str("shop", sc.Shop).Msg("Failed to list sessions")
			resp["error"] = "database unavailable"
			writeJSON(w, http.StatusOK, resp)
			return
		}
		views := make([]sessionView, 0, len(found))
		for _, session := range found {
			views = append(views, viewOfSession(session))
		}
		resp["sessions"] = views
		writeJSON(w, http.StatusOK, resp)
	}
}

// SessionLogoutHandler deletes the calling shop's offline session.
func (s *Server) SessionLogoutHandler() ShopHandler {
	return func(w http.ResponseWriter, r *http.Request, sc ShopContext) {
		if err := s.sessions.DeleteSession(r.Context(), sc.SessionID); err != nil {
			log.Error().Err(err).Str("shop", sc.Shop).Msg("Failed to delete session")
			writeJSONError(w, http.StatusInternalServerError, "failed to delete session")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": sc.SessionID})
	}
}

// SessionsDeleteHandler bulk-deletes sessions by id. Ids are checked against
// the calling shop before any deletion happens; the deletion itself is
// sequential and stops at the first failure.
func (s *Server) SessionsDeleteHandler() ShopHandler {
	return func(w http.ResponseWriter, r *http.Request, sc ShopContext) {
		var body struct {
			IDs []string `json:"ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		for _, id := range body.IDs {
			shop, err := sessions.ShopFromSessionID(id)
			if err != nil || shop != sc.Shop {
				writeJSONError(w, http.StatusForbidden, apperrors.ErrMalformedSessionID.Error()+": "+id)
				return
			}
		}

		if err := s.sessions.DeleteSessions(r.Context(), body.IDs); err != nil {
			log.Error().Err(err).Str("shop", sc.Shop).Msg("Bulk session delete stopped early")
			writeJSON(w, http.StatusOK, map[string]any{
				"deleted": false,
				"error":   err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "count": len(body.IDs)})
	}
}
