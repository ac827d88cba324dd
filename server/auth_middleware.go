package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/shoplane/embedded-app-server/internal/errors"
	"github.com/shoplane/embedded-app-server/sessions"
)

// ShopContext is the typed, request-scoped tenant context resolved by the
// auth middleware. It is passed to handlers as an explicit parameter; nothing
// reads it from an ambient context value.
type ShopContext struct {
	Shop      string // shop domain from the token's dest claim
	SessionID string // offline session id for the shop
	UserID    string // admin user id (sub claim), empty for offline calls
}

// ShopHandler is an HTTP handler that additionally receives the resolved
// shop context.
type ShopHandler func(w http.ResponseWriter, r *http.Request, sc ShopContext)

// sessionTokenClaims are the claims of a Shopify embedded-app session token.
// dest carries "https://{shop}"; aud must equal the app's API key.
type sessionTokenClaims struct {
	Dest string `json:"dest"`
	Sid  string `json:"sid"`
	jwt.RegisteredClaims
}

// WithShop verifies the Authorization bearer session token and invokes next
// with the resolved ShopContext. An invalid or missing token is a 401 with a
// JSON error body.
func (s *Server) WithShop(next ShopHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, err.Error())
			return
		}

		sc, err := s.verifySessionToken(token)
		if err != nil {
			log.Warn().Err(err).Msg("Session token rejected")
			writeJSONError(w, http.StatusUnauthorized, "invalid session token")
			return
		}

		next(w, r, sc)
	}
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing Authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	if parts[1] == "" {
		return "", fmt.Errorf("empty token")
	}
	return parts[1], nil
}

func (s *Server) verifySessionToken(tokenString string) (ShopContext, error) {
	claims := &sessionTokenClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return []byte(s.config.GetShopifyAPISecret()), nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithAudience(s.config.GetShopifyAPIKey()),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return ShopContext{}, apperrors.Wrapf(apperrors.ErrInvalidSessionToken, "%v", err)
	}

	shop := strings.TrimPrefix(claims.Dest, "https://")
	if !ValidShopDomain(shop) {
		return ShopContext{}, apperrors.Wrapf(apperrors.ErrInvalidSessionToken, "bad dest claim %q", claims.Dest)
	}

	return ShopContext{
		Shop:      shop,
		SessionID: sessions.OfflineID(shop),
		UserID:    claims.Subject,
	}, nil
}
