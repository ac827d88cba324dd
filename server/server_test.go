package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/shoplane/embedded-app-server/internal/config"
	"github.com/shoplane/embedded-app-server/server"
	"github.com/shoplane/embedded-app-server/sessions"
	"github.com/shoplane/embedded-app-server/sessions/repofakes"
	"github.com/shoplane/embedded-app-server/settings"
	"github.com/shoplane/embedded-app-server/storage"
)

const (
	testAPIKey    = "test-api-key"
	testAPISecret = "test-api-secret"
	testShop      = "my-shop.myshopify.com"
)

type testFixture struct {
	server      *server.Server
	sessionRepo *repofakes.FakeSessionRepo
	settings    *settings.Store
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	t.Setenv("SHOPIFY_API_KEY", testAPIKey)
	t.Setenv("SHOPIFY_API_SECRET", testAPISecret)
	t.Setenv("ENV", "TEST")

	ns, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ns.Close() })

	sessionRepo := repofakes.NewFakeSessionRepo()
	settingsStore := settings.NewStore(ns)

	srv, err := server.New(config.New(), sessionRepo, settingsStore)
	require.NoError(t, err)

	return &testFixture{server: srv, sessionRepo: sessionRepo, settings: settingsStore}
}

func sessionToken(t *testing.T, shop, secret string) string {
	t.Helper()
	claims := jwt.MapClaims{
		"iss":  "https://" + shop + "/admin",
		"dest": "https://" + shop,
		"aud":  testAPIKey,
		"sub":  "999",
		"exp":  time.Now().Add(time.Minute).Unix(),
		"iat":  time.Now().Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func (f *testFixture) request(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("missing token", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/sessions", "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		token := sessionToken(t, testShop, "wrong-secret")
		rec := f.request(t, http.MethodGet, "/api/sessions", token, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := jwt.MapClaims{
			"dest": "https://" + testShop,
			"aud":  testAPIKey,
			"exp":  time.Now().Add(-time.Minute).Unix(),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAPISecret))
		require.NoError(t, err)
		rec := f.request(t, http.MethodGet, "/api/sessions", token, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token := sessionToken(t, testShop, testAPISecret)
		rec := f.request(t, http.MethodGet, "/api/sessions", token, "")
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestSessionsListHandler_RedactsTokens(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	require.NoError(t, f.sessionRepo.StoreSession(ctx, &sessions.Session{
		ID:          sessions.OfflineID(testShop),
		Shop:        testShop,
		Scope:       "read_products",
		AccessToken: "shpat_super_secret",
	}))

	token := sessionToken(t, testShop, testAPISecret)
	rec := f.request(t, http.MethodGet, "/api/sessions", token, "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Contains(t, body, sessions.OfflineID(testShop))
	require.NotContains(t, body, "shpat_super_secret")
}

func TestSettingsHandlers(t *testing.T) {
	f := setupTestFixture(t)
	token := sessionToken(t, testShop, testAPISecret)

	t.Run("list bootstraps a fresh instance", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/settings/general", token, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Instance string             `json:"instance"`
			Settings []settings.Setting `json:"settings"`
			Error    string             `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "general", resp.Instance)
		require.Empty(t, resp.Settings)
		require.Empty(t, resp.Error)
	})

	t.Run("update returns fresh snapshot", func(t *testing.T) {
		rec := f.request(t, http.MethodPut, "/api/settings/general/theme", token, `{"value":"dark"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Settings []settings.Setting `json:"settings"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Settings, 1)
		require.Equal(t, "theme", resp.Settings[0].Key)
		require.Equal(t, "dark", resp.Settings[0].Value)
	})

	t.Run("unknown instance", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/settings/nope", token, "")
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("stats covers every instance", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/settings", token, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Shop      string                   `json:"shop"`
			Instances []settings.InstanceStats `json:"instances"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, testShop, resp.Shop)
		require.Len(t, resp.Instances, 3)
	})

	t.Run("search", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/api/settings/search?q=theme", token, "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"theme"`)
	})

	t.Run("bulk update", func(t *testing.T) {
		body := `[{"instance":"general","key":"a","value":"1"},{"instance":"features","key":"b","value":"2"}]`
		// features was never loaded: its table is missing and updates have no
		// retry, so this element fails while the other succeeds.
		rec := f.request(t, http.MethodPost, "/api/settings/bulk", token, body)
		require.Equal(t, http.StatusOK, rec.Code)

		var result settings.BulkResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		require.Equal(t, 1, result.Updated)
		require.Equal(t, 1, result.Failed)
	})

	t.Run("clear", func(t *testing.T) {
		rec := f.request(t, http.MethodDelete, "/api/settings/general", token, "")
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.request(t, http.MethodGet, "/api/settings/general", token, "")
		var resp struct {
			Settings []settings.Setting `json:"settings"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Empty(t, resp.Settings)
	})
}

func TestSettingsHandlers_StorageUnavailable(t *testing.T) {
	t.Setenv("SHOPIFY_API_KEY", testAPIKey)
	t.Setenv("SHOPIFY_API_SECRET", testAPISecret)
	t.Setenv("ENV", "TEST")

	var ns *storage.Namespace // unbound storage
	srv, err := server.New(config.New(), repofakes.NewFakeSessionRepo(), settings.NewStore(ns))
	require.NoError(t, err)
	f := &testFixture{server: srv}

	token := sessionToken(t, testShop, testAPISecret)
	rec := f.request(t, http.MethodGet, "/api/settings/general", token, "")

	// The request degrades, it does not crash: 200 with an inline error and
	// an empty table.
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Settings []settings.Setting `json:"settings"`
		Error    string             `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Settings)
	require.Equal(t, "database unavailable", resp.Error)
}

func TestSessionDeleteHandlers(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	token := sessionToken(t, testShop, testAPISecret)

	t.Run("logout deletes the offline session", func(t *testing.T) {
		require.NoError(t, f.sessionRepo.StoreSession(ctx, &sessions.Session{
			ID: sessions.OfflineID(testShop), Shop: testShop, AccessToken: "x",
		}))

		rec := f.request(t, http.MethodDelete, "/api/sessions/current", token, "")
		require.Equal(t, http.StatusOK, rec.Code)
		require.False(t, f.sessionRepo.Has(sessions.OfflineID(testShop)))
	})

	t.Run("bulk delete rejects foreign shops", func(t *testing.T) {
		body := `{"ids":["offline_other.myshopify.com"]}`
		rec := f.request(t, http.MethodPost, "/api/sessions/delete", token, body)
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("bulk delete stops at first failure", func(t *testing.T) {
		a := sessions.OnlineID(testShop, 1)
		b := sessions.OnlineID(testShop, 2)
		c := sessions.OnlineID(testShop, 3)
		for _, id := range []string{a, b, c} {
			require.NoError(t, f.sessionRepo.StoreSession(ctx, &sessions.Session{
				ID: id, Shop: testShop, AccessToken: "x",
			}))
		}
		f.sessionRepo.DeleteErrFor[b] = context.DeadlineExceeded

		body := `{"ids":["` + a + `","` + b + `","` + c + `"]}`
		rec := f.request(t, http.MethodPost, "/api/sessions/delete", token, body)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"deleted":false`)

		// a was deleted before the failure; c was never attempted.
		require.False(t, f.sessionRepo.Has(a))
		require.True(t, f.sessionRepo.Has(b))
		require.True(t, f.sessionRepo.Has(c))
	})
}

func TestBeginAuthHandler(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("invalid shop", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/auth/begin?shop=evil.com", "", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("redirects to the shop authorize URL", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/auth/begin?shop="+testShop, "", "")
		require.Equal(t, http.StatusFound, rec.Code)

		location := rec.Header().Get("Location")
		require.Contains(t, location, "https://"+testShop+"/admin/oauth/authorize")
		require.Contains(t, location, "client_id="+testAPIKey)

		var stateCookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == "oauth_state" {
				stateCookie = c
			}
		}
		require.NotNil(t, stateCookie)
		require.NotEmpty(t, stateCookie.Value)
		require.Contains(t, location, "state="+stateCookie.Value)
	})
}

func TestOAuthCallbackHandler_Rejections(t *testing.T) {
	f := setupTestFixture(t)

	t.Run("bad shop", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/auth/callback?shop=evil.com&code=c&state=s", "", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing code", func(t *testing.T) {
		rec := f.request(t, http.MethodGet, "/auth/callback?shop="+testShop+"&state=s", "", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad hmac", func(t *testing.T) {
		rec := f.request(t, http.MethodGet,
			"/auth/callback?shop="+testShop+"&code=c&state=s&hmac=deadbeef", "", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHealthHandler(t *testing.T) {
	f := setupTestFixture(t)
	rec := f.request(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"ok"`)
}
