package sessions

import "context"

// Repo is the session persistence contract consumed by the authentication
// layer. Implementations never panic across this boundary: every failure is
// a returned error, and callers can distinguish parse failures
// (ErrMalformedSessionID), missing rows (ErrSessionNotFound) and an unbound
// storage namespace (ErrStorageUnavailable) with errors.Is.
type Repo interface {
	// StoreSession upserts a session into its shop's session table,
	// creating the table on first use.
	StoreSession(ctx context.Context, session *Session) error

	// LoadSession retrieves a session by id. The shop is re-derived from
	// the id itself.
	LoadSession(ctx context.Context, id string) (*Session, error)

	// DeleteSession removes a session by id. Deleting an absent session is
	// not an error.
	DeleteSession(ctx context.Context, id string) error

	// DeleteSessions removes sessions one by one and stops at the first
	// failure. It is not atomic: prior deletions are not rolled back.
	DeleteSessions(ctx context.Context, ids []string) error

	// FindSessionsByShop returns every session stored for a shop.
	FindSessionsByShop(ctx context.Context, shop string) ([]*Session, error)
}
