package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/shoplane/embedded-app-server/internal/errors"
	"github.com/shoplane/embedded-app-server/settings"
)

// settingsResponse is the inline-error envelope for settings reads. A failed
// read still answers 200 with an empty list and the error string, so the
// admin UI renders a degraded table instead of a crashed request.
type settingsResponse struct {
	Instance string             `json:"instance"`
	Settings []settings.Setting `json:"settings"`
	Error    string             `json:"error,omitempty"`
}

func (s *Server) instanceFromPath(r *http.Request) (settings.Instance, error) {
	return settings.InstanceFromKey(r.PathValue("instance"))
}

// SettingsStatsHandler reports row counts and last-update times across every
// instance for the dashboard.
func (s *Server) SettingsStatsHandler() ShopHandler {
	return func(w http.ResponseWriter, r *http.Request, sc ShopContext) {
		writeJSON(w, http.StatusOK, map[string]any{
			"shop":      sc.Shop,
			"instances": s.settings.Stats(r.Context()),
		})
	}
}

// SettingsListHandler returns every setting in one instance. The first read
// against a fresh instance bootstraps its table via the store's retry path.
func (s *Server) SettingsListHandler() ShopHandler {
	return func(w http.ResponseWriter, r *http.Request, sc ShopContext) {
		inst, err := s.instanceFromPath(r)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}

		resp := settingsResponse{Instance: inst.Key(), Settings: []settings.Setting{}}
		loaded, err := s.settings.Load(r.Context(), inst)
		if err != nil {
			log.Error().Err(err).Str("instance", inst.Key()).Msg("Failed to load settings")
			resp.Error = "database unavailable"
			writeJSON(w, http.StatusOK, resp)
			return
		}
		resp.Settings = loaded
		writeJSON(w, http.StatusOK, resp)
	}
}

// SettingsUpdateHandler upserts one setting and returns the instance's fresh
// snapshot.
func (s *Server) SettingsUpdateHandler() ShopHandler {
	return func(w http.ResponseWriter, r *http.Request, sc ShopContext) {
		inst, err := s.instanceFromPath(r)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		key := r.PathValue("key")
		if key == "" {
			writeJSONError(w, http.StatusBadRequest, "setting key is required")
			return
		}

		var body struct {
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		snapshot, err := s.settings.Update(r.Context(), inst, key, body.Value)
		if err != nil {
			log.Error().Err(err).Str("instance", inst.Key()).Str("key", key).Msg("Failed to update setting")
			writeJSON(w, http.StatusOK, settingsResponse{
				Instance: inst.Key(),
				Settings: []settings.Setting{},
				Error:    "database unavailable",
			})
			return
		}
		writeJSON(w, http.StatusOK, settingsResponse{Instance: inst.Key(), Settings: snapshot})
	}
}

// SettingsClearHandler deletes every row in an instance.
func (s *Server) SettingsClearHandler() ShopHandler {
	return func(w http.ResponseWriter, r *http.Request, sc ShopContext) {
		inst, err := s.instanceFromPath(r)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		if err := s.settings.Clear(r.Context(), inst); err != nil {
			log.Error().Err(err).Str("instance", inst.Key()).Msg("Failed to clear settings")
			writeJSON(w, http.StatusOK, settingsResponse{
				Instance: inst.Key(),
				Settings: []settings.Setting{},
				Error:    err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, settingsResponse{Instance: inst.Key(), Settings: []settings.Setting{}})
	}
}

// SettingsSearchHandler matches a query across every instance.
func (s *Server) SettingsSearchHandler() ShopHandler {
	return func(w http.ResponseWriter, r *http.Request, sc ShopContext) {
		q := r.URL.Query().Get("q")
		if q == "" {
			writeJSONError(w, http.StatusBadRequest, "query parameter q is required")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"query":   q,
			"results": s.settings.Search(r.Context(), q),
		})
	}
}

// SettingsBulkUpdateHandler applies independent updates across instances.
// Partial failure is reported per element, never rolled back.
func (s *Server) SettingsBulkUpdateHandler() ShopHandler {
	return func(w http.ResponseWriter, r *http.Request, sc ShopContext) {
		var body []struct {
			Instance string `json:"instance"`
			Key      string `json:"key"`
			Value    string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		updates := make([]settings.KeyValue, 0, len(body))
		for _, item := range body {
			inst, err := settings.InstanceFromKey(item.Instance)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, apperrors.ErrUnknownInstance.Error()+": "+item.Instance)
				return
			}
			updates = append(updates, settings.KeyValue{Instance: inst, Key: item.Key, Value: item.Value})
		}

		writeJSON(w, http.StatusOK, s.settings.BulkUpdate(r.Context(), updates))
	}
}
