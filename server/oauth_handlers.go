package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	apperrors "github.com/shoplane/embedded-app-server/internal/errors"
	"github.com/shoplane/embedded-app-server/sessions"
)

const stateCookieName = "oauth_state"

// oauthConfig builds the per-shop OAuth2 configuration. Shopify's authorize
// and token endpoints live on the shop's own domain.
func (s *Server) oauthConfig(shop string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.config.GetShopifyAPIKey(),
		ClientSecret: s.config.GetShopifyAPISecret(),
		Scopes:       s.config.GetShopifyScopes(),
		RedirectURL:  s.config.GetBaseURL() + RouteAuthCallback,
		Endpoint: oauth2.Endpoint{
			AuthURL:  fmt.Sprintf("https://%s/admin/oauth/authorize", shop),
			TokenURL: fmt.Sprintf("https://%s/admin/oauth/access_token", shop),
		},
	}
}

// BeginAuthHandler starts the install/grant flow: validates the shop domain,
// stashes a state nonce in a cookie and redirects to the shop's authorize
// URL.
func (s *Server) BeginAuthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := r.URL.Query().Get("shop")
		if !ValidShopDomain(shop) {
			writeJSONError(w, http.StatusBadRequest, apperrors.ErrInvalidShopDomain.Error())
			return
		}

		state := uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     stateCookieName,
			Value:    state,
			Path:     RouteAuthCallback,
			MaxAge:   300,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})

		http.Redirect(w, r, s.oauthConfig(shop).AuthCodeURL(state), http.StatusFound)
	}
}

// OAuthCallbackHandler completes the grant: verifies the Shopify HMAC over
// the callback query, checks the state nonce, exchanges the code for an
// access token and persists the resulting session.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		shop := query.Get("shop")
		code := query.Get("code")
		state := query.Get("state")

		if !ValidShopDomain(shop) {
			writeJSONError(w, http.StatusBadRequest, apperrors.ErrInvalidShopDomain.Error())
			return
		}
		if code == "" || state == "" {
			writeJSONError(w, http.StatusBadRequest, "missing code or state parameter")
			return
		}

		if !VerifyHMAC(query, s.config.GetShopifyAPISecret()) {
			writeJSONError(w, http.StatusUnauthorized, apperrors.ErrInvalidHMAC.Error())
			return
		}

		cookie, err := r.Cookie(stateCookieName)
		if err != nil || cookie.Value != state {
			writeJSONError(w, http.StatusUnauthorized, apperrors.ErrInvalidState.Error())
			return
		}
		// Expire the nonce; it is single use.
		http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: RouteAuthCallback, MaxAge: -1})

		token, err := s.oauthConfig(shop).Exchange(r.Context(), code)
		if err != nil {
			log.Error().Err(err).Str("shop", shop).Msg("Token exchange failed")
			writeJSONError(w, http.StatusBadGateway, "token exchange failed")
			return
		}

		session := sessionFromToken(shop, state, token)
		if err := s.sessions.StoreSession(r.Context(), session); err != nil {
			log.Error().Err(err).Str("shop", shop).Msg("Failed to persist session")
			writeJSONError(w, http.StatusInternalServerError, "failed to persist session")
			return
		}

		// Back into the embedded admin frame.
		http.Redirect(w, r,
			fmt.Sprintf("https://%s/admin/apps/%s", shop, s.config.GetShopifyAPIKey()),
			http.StatusFound)
	}
}

// sessionFromToken maps a Shopify token response to a session. An
// associated_user payload marks an online (per-user) token; otherwise this
// is the shop's offline token.
func sessionFromToken(shop, state string, token *oauth2.Token) *sessions.Session {
	scope, _ := token.Extra("scope").(string)
	session := &sessions.Session{
		ID:          sessions.OfflineID(shop),
		Shop:        shop,
		State:       state,
		Scope:       scope,
		AccessToken: token.AccessToken,
	}

	userPayload, ok := token.Extra("associated_user").(map[string]any)
	if !ok {
		return session
	}

	info := &sessions.OnlineAccessInfo{
		AssociatedUser: sessions.AssociatedUser{
			ID:            int64(floatExtra(userPayload, "id")),
			FirstName:     stringExtra(userPayload, "first_name"),
			LastName:      stringExtra(userPayload, "last_name"),
			Email:         stringExtra(userPayload, "email"),
			EmailVerified: boolExtra(userPayload, "email_verified"),
			AccountOwner:  boolExtra(userPayload, "account_owner"),
			Locale:        stringExtra(userPayload, "locale"),
			Collaborator:  boolExtra(userPayload, "collaborator"),
		},
	}
	if expiresIn, ok := token.Extra("expires_in").(float64); ok {
		info.ExpiresIn = int64(expiresIn)
		expiry := time.Now().Add(time.Duration(expiresIn) * time.Second).UTC()
		session.Expires = &expiry
	}
	if userScope, ok := token.Extra("associated_user_scope").(string); ok {
		info.AssociatedUserScope = userScope
	}

	session.IsOnline = true
	session.OnlineAccessInfo = info
	session.ID = sessions.OnlineID(shop, info.AssociatedUser.ID)
	return session
}

func stringExtra(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func boolExtra(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func floatExtra(m map[string]any, key string) float64 {
	v, _ := m[key].(float64)
	return v
}
