// Package sqlrepo persists Shopify admin sessions in a per-shop storage
// instance. Each shop gets its own instance named "shop-{domain}", keeping
// tenant data isolated at the database-file level.
package sqlrepo

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "github.com/shoplane/embedded-app-server/internal/errors"
	"github.com/shoplane/embedded-app-server/internal/utils"
	"github.com/shoplane/embedded-app-server/sessions"
	"github.com/shoplane/embedded-app-server/storage"
)

const shopInstancePrefix = "shop-"

const createSessionsTable = `CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	shop TEXT NOT NULL,
	state TEXT,
	isOnline INTEGER,
	scope TEXT,
	accessToken TEXT,
	expires INTEGER,
	onlineAccessInfo TEXT
)`

var _ sessions.Repo = (*Repo)(nil)

// InstanceResolver yields storage instances by name. *storage.Namespace
// satisfies it.
type InstanceResolver interface {
	Resolve(name string) (*storage.Instance, error)
}

// Repo implements sessions.Repo on top of a storage namespace.
type Repo struct {
	ns InstanceResolver
}

func New(ns InstanceResolver) *Repo {
	return &Repo{ns: ns}
}

// InstanceNameForShop maps a shop domain to its storage instance name.
func InstanceNameForShop(shop string) string {
	return shopInstancePrefix + storage.SanitizeName(shop)
}

func (r *Repo) instanceForShop(shop string) (*storage.Instance, error) {
	if shop == "" {
		return nil, fmt.Errorf("sqlrepo: empty shop: %w", apperrors.ErrInvalidShopDomain)
	}
	return r.ns.Resolve(InstanceNameForShop(shop))
}

// StoreSession ensures the shop's sessions table exists, then upserts the
// session row. Table creation is idempotent.
func (r *Repo) StoreSession(ctx context.Context, session *sessions.Session) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("sqlrepo.StoreSession: session id is required: %w", apperrors.ErrMalformedSessionID)
	}
	inst, err := r.instanceForShop(session.Shop)
	if err != nil {
		return err
	}
	if _, err := inst.Run(ctx, createSessionsTable); err != nil {
		return apperrors.Wrapf(err, "sqlrepo.StoreSession ensure table")
	}

	var accessInfo *string
	if session.OnlineAccessInfo != nil {
		encoded, err := json.Marshal(session.OnlineAccessInfo)
		if err != nil {
			return apperrors.Wrapf(err, "sqlrepo.StoreSession encode onlineAccessInfo")
		}
		accessInfo = utils.Ptr(string(encoded))
	}

	_, err = inst.Run(ctx,
		`INSERT OR REPLACE INTO sessions (id, shop, state, isOnline, scope, accessToken, expires, onlineAccessInfo)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.Shop,
		session.State,
		boolToInt(session.IsOnline),
		session.Scope,
		session.AccessToken,
		utils.EpochMillis(session.Expires),
		accessInfo,
	)
	if err != nil {
		return apperrors.Wrapf(err, "sqlrepo.StoreSession upsert %q", session.ID)
	}
	return nil
}

// LoadSession re-derives the shop from the id, then reads the row. A
// malformed id or a missing row (including a shop whose table was never
// created) reports ErrMalformedSessionID / ErrSessionNotFound.
func (r *Repo) LoadSession(ctx context.Context, id string) (*sessions.Session, error) {
	shop, err := sessions.ShopFromSessionID(id)
	if err != nil {
		return nil, err
	}
	inst, err := r.instanceForShop(shop)
	if err != nil {
		return nil, err
	}

	row, err := inst.First(ctx, `SELECT * FROM sessions WHERE id = ?`, id)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNoSuchTable) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, apperrors.Wrapf(err, "sqlrepo.LoadSession %q", id)
	}
	if row == nil {
		return nil, apperrors.ErrSessionNotFound
	}
	return decodeSession(row)
}

// DeleteSession removes a session by id. A missing row or a never-created
// table is not an error.
func (r *Repo) DeleteSession(ctx context.Context, id string) error {
	shop, err := sessions.ShopFromSessionID(id)
	if err != nil {
		return err
	}
	inst, err := r.instanceForShop(shop)
	if err != nil {
		return err
	}
	if _, err := inst.Run(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		if apperrors.Is(err, apperrors.ErrNoSuchTable) {
			return nil
		}
		return apperrors.Wrapf(err, "sqlrepo.DeleteSession %q", id)
	}
	return nil
}

// DeleteSessions deletes sequentially and stops at the first failure.
// Sessions already deleted stay deleted; later ids are never attempted.
func (r *Repo) DeleteSessions(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := r.DeleteSession(ctx, id); err != nil {
			return apperrors.Wrapf(err, "sqlrepo.DeleteSessions stopped at %q", id)
		}
	}
	return nil
}

// FindSessionsByShop returns every session stored for a shop. A shop whose
// table was never created has no sessions.
func (r *Repo) FindSessionsByShop(ctx context.Context, shop string) ([]*sessions.Session, error) {
	inst, err := r.instanceForShop(shop)
	if err != nil {
		return []*sessions.Session{}, err
	}

	rows, _, err := inst.All(ctx, `SELECT * FROM sessions WHERE shop = ?`, shop)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNoSuchTable) {
			return []*sessions.Session{}, nil
		}
		return []*sessions.Session{}, apperrors.Wrapf(err, "sqlrepo.FindSessionsByShop %q", shop)
	}

	out := make([]*sessions.Session, 0, len(rows))
	for _, row := range rows {
		session, err := decodeSession(row)
		if err != nil {
			return []*sessions.Session{}, apperrors.Wrapf(err, "sqlrepo.FindSessionsByShop %q", shop)
		}
		out = append(out, session)
	}
	return out, nil
}

func decodeSession(row storage.Row) (*sessions.Session, error) {
	session := &sessions.Session{
		ID:          stringCol(row, "id"),
		Shop:        stringCol(row, "shop"),
		State:       stringCol(row, "state"),
		IsOnline:    intCol(row, "isOnline") != 0,
		Scope:       stringCol(row, "scope"),
		AccessToken: stringCol(row, "accessToken"),
	}
	if ms, ok := row["expires"].(int64); ok {
		session.Expires = utils.TimeFromMillis(&ms)
	}
	if encoded := stringCol(row, "onlineAccessInfo"); encoded != "" {
		info := &sessions.OnlineAccessInfo{}
		if err := json.Unmarshal([]byte(encoded), info); err != nil {
			return nil, apperrors.Wrapf(err, "decode onlineAccessInfo for %q", session.ID)
		}
		session.OnlineAccessInfo = info
	}
	return session, nil
}

func stringCol(row storage.Row, col string) string {
	if s, ok := row[col].(string); ok {
		return s
	}
	return ""
}

func intCol(row storage.Row, col string) int64 {
	if n, ok := row[col].(int64); ok {
		return n
	}
	return 0
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
