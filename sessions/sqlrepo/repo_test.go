package sqlrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/shoplane/embedded-app-server/internal/errors"
	"github.com/shoplane/embedded-app-server/internal/utils"
	"github.com/shoplane/embedded-app-server/sessions"
	"github.com/shoplane/embedded-app-server/sessions/sqlrepo"
	"github.com/shoplane/embedded-app-server/storage"
)

const testShop = "my-shop.myshopify.com"

func newTestRepo(t *testing.T) *sqlrepo.Repo {
	t.Helper()
	ns, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ns.Close() })
	return sqlrepo.New(ns)
}

func onlineTestSession() *sessions.Session {
	expires := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	return &sessions.Session{
		ID:          sessions.OnlineID(testShop, 12345),
		Shop:        testShop,
		State:       "nonce-abc",
		IsOnline:    true,
		Scope:       "read_products,write_products",
		AccessToken: "shpat_secret",
		Expires:     &expires,
		OnlineAccessInfo: &sessions.OnlineAccessInfo{
			ExpiresIn:           86400,
			AssociatedUserScope: "read_products",
			AssociatedUser: sessions.AssociatedUser{
				ID:            12345,
				FirstName:     "Jane",
				LastName:      "Doe",
				Email:         "jane@example.com",
				EmailVerified: true,
				AccountOwner:  true,
				Locale:        "en",
			},
		},
	}
}

func TestStoreLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	t.Run("online session with all fields", func(t *testing.T) {
		stored := onlineTestSession()
		require.NoError(t, repo.StoreSession(ctx, stored))

		loaded, err := repo.LoadSession(ctx, stored.ID)
		require.NoError(t, err)
		require.Equal(t, stored, loaded)
	})

	t.Run("offline session with nil optionals", func(t *testing.T) {
		stored := &sessions.Session{
			ID:          sessions.OfflineID(testShop),
			Shop:        testShop,
			Scope:       "read_products",
			AccessToken: "shpat_offline",
		}
		require.NoError(t, repo.StoreSession(ctx, stored))

		loaded, err := repo.LoadSession(ctx, stored.ID)
		require.NoError(t, err)
		require.Nil(t, loaded.Expires)
		require.Nil(t, loaded.OnlineAccessInfo)
		require.False(t, loaded.IsOnline)
		require.Equal(t, stored, loaded)
	})
}

func TestStoreSession_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	first := onlineTestSession()
	require.NoError(t, repo.StoreSession(ctx, first))

	second := onlineTestSession()
	second.AccessToken = "shpat_rotated"
	second.Expires = utils.Ptr(first.Expires.Add(time.Hour))
	require.NoError(t, repo.StoreSession(ctx, second))

	all, err := repo.FindSessionsByShop(ctx, testShop)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "shpat_rotated", all[0].AccessToken)
	require.Equal(t, second.Expires, all[0].Expires)
}

func TestLoadSession_Failures(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	t.Run("malformed id", func(t *testing.T) {
		_, err := repo.LoadSession(ctx, "malformed")
		require.ErrorIs(t, err, apperrors.ErrMalformedSessionID)
	})

	t.Run("no matching row", func(t *testing.T) {
		require.NoError(t, repo.StoreSession(ctx, onlineTestSession()))
		_, err := repo.LoadSession(ctx, sessions.OfflineID(testShop))
		require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})

	t.Run("shop whose table was never created", func(t *testing.T) {
		_, err := repo.LoadSession(ctx, sessions.OfflineID("fresh.myshopify.com"))
		require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	})
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	stored := onlineTestSession()
	require.NoError(t, repo.StoreSession(ctx, stored))
	require.NoError(t, repo.DeleteSession(ctx, stored.ID))

	_, err := repo.LoadSession(ctx, stored.ID)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	// Deleting an absent session is not an error.
	require.NoError(t, repo.DeleteSession(ctx, stored.ID))
}

func TestDeleteSessions_StopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	a := &sessions.Session{ID: sessions.OfflineID(testShop), Shop: testShop, AccessToken: "a"}
	c := &sessions.Session{ID: sessions.OnlineID(testShop, 1), Shop: testShop, AccessToken: "c"}
	require.NoError(t, repo.StoreSession(ctx, a))
	require.NoError(t, repo.StoreSession(ctx, c))

	// "b" cannot be parsed, so deletion stops there: a is gone, c survives.
	err := repo.DeleteSessions(ctx, []string{a.ID, "b", c.ID})
	require.ErrorIs(t, err, apperrors.ErrMalformedSessionID)

	_, err = repo.LoadSession(ctx, a.ID)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	survivor, err := repo.LoadSession(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "c", survivor.AccessToken)
}

func TestFindSessionsByShop(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	t.Run("fresh shop has no sessions", func(t *testing.T) {
		found, err := repo.FindSessionsByShop(ctx, "fresh.myshopify.com")
		require.NoError(t, err)
		require.Empty(t, found)
	})

	t.Run("shops are isolated", func(t *testing.T) {
		mine := onlineTestSession()
		require.NoError(t, repo.StoreSession(ctx, mine))

		other := &sessions.Session{
			ID:          sessions.OfflineID("other.myshopify.com"),
			Shop:        "other.myshopify.com",
			AccessToken: "shpat_other",
		}
		require.NoError(t, repo.StoreSession(ctx, other))

		found, err := repo.FindSessionsByShop(ctx, testShop)
		require.NoError(t, err)
		require.Len(t, found, 1)
		require.Equal(t, mine.ID, found[0].ID)
	})
}

func TestNamespaceUnavailable(t *testing.T) {
	ctx := context.Background()
	var ns *storage.Namespace // unbound storage
	repo := sqlrepo.New(ns)

	err := repo.StoreSession(ctx, onlineTestSession())
	require.ErrorIs(t, err, apperrors.ErrStorageUnavailable)

	_, err = repo.LoadSession(ctx, sessions.OfflineID(testShop))
	require.ErrorIs(t, err, apperrors.ErrStorageUnavailable)

	found, err := repo.FindSessionsByShop(ctx, testShop)
	require.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
	require.Empty(t, found)

	err = repo.DeleteSession(ctx, sessions.OfflineID(testShop))
	require.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
}
