package sessions

import (
	"strconv"
	"strings"
	"time"

	apperrors "github.com/shoplane/embedded-app-server/internal/errors"
)

// Session is one authenticated Shopify admin session for one shop.
// Two kinds exist:
// 1. Offline sessions (id "offline_{shop}") - one per shop, long-lived shop token
// 2. Online sessions (id "{prefix}_{shop}_{userID}") - per admin user, short-lived
type Session struct {
	ID               string            // Unique within the shop's session table; encodes the shop
	Shop             string            // Shop domain (e.g. "my-shop.myshopify.com")
	State            string            // OAuth handshake state, opaque
	IsOnline         bool              // Online (per-user) vs offline (per-shop) token
	Scope            string            // Granted scopes, comma separated
	AccessToken      string            // Admin API access token (secret)
	Expires          *time.Time        // Token expiry; nil for offline sessions
	OnlineAccessInfo *OnlineAccessInfo // Associated-user payload for online sessions
}

// OnlineAccessInfo is the associated-user payload Shopify returns with an
// online access token. Stored as JSON alongside the session row.
type OnlineAccessInfo struct {
	ExpiresIn           int64          `json:"expires_in"`
	AssociatedUserScope string         `json:"associated_user_scope"`
	AssociatedUser      AssociatedUser `json:"associated_user"`
}

type AssociatedUser struct {
	ID            int64  `json:"id"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	AccountOwner  bool   `json:"account_owner"`
	Locale        string `json:"locale"`
	Collaborator  bool   `json:"collaborator"`
}

// OfflineID returns the canonical offline session id for a shop.
func OfflineID(shop string) string {
	return "offline_" + shop
}

// OnlineID returns the canonical online session id for a shop and user.
func OnlineID(shop string, userID int64) string {
	return "online_" + shop + "_" + strconv.FormatInt(userID, 10)
}

// ShopFromSessionID re-derives the shop from a session id. The id embeds the
// shop as its second '_'-delimited segment; online ids carry a trailing
// "_{userID}" suffix that is stripped. An id without a '_' separator is a
// parse failure (ErrMalformedSessionID), not a storage fault.
func ShopFromSessionID(id string) (string, error) {
	parts := strings.SplitN(id, "_", 2)
	if len(parts) < 2 {
		return "", apperrors.ErrMalformedSessionID
	}
	shop := parts[1]
	if idx := strings.Index(shop, "_"); idx >= 0 {
		shop = shop[:idx]
	}
	if shop == "" {
		return "", apperrors.ErrMalformedSessionID
	}
	return shop, nil
}
