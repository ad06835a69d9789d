package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/confetti-go/confetti/internal/cache"
	"github.com/confetti-go/confetti/internal/config"
	"github.com/confetti-go/confetti/internal/db/controller/setting"
	"github.com/confetti-go/confetti/internal/db/models"
	"github.com/confetti-go/confetti/internal/invalidation"
	"github.com/confetti-go/confetti/internal/resolver"
	"github.com/confetti-go/confetti/internal/response"
	"github.com/confetti-go/confetti/internal/web/handler/admin/definitions"
)

type testService struct {
	*Service
	resolver *resolver.Resolver
	cache    *cache.Memory
}

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.User{}, &models.SettingCategory{}, &models.SettingDefinition{}, &models.SettingValue{})
	require.NoError(t, err, "failed to migrate test database")

	return db
}

func newTestConfig() *config.Config {
	cfg := config.Default()
	cfg.DevMode = true
	cfg.Webserver.Port = 3000
	cfg.Webserver.URL = "http://localhost"
	cfg.Webserver.CleanPath = true
	cfg.Confetti.CachePrefix = "test"

	return &cfg
}

func newTestService(t *testing.T, cfg *config.Config) *testService {
	t.Helper()

	db := setupTestDB(t)

	mem := cache.NewMemory(0)
	t.Cleanup(func() { _ = mem.Close() })

	rt := config.NewRuntime(cfg.Confetti)
	inv := invalidation.New(mem, func() cache.Keys { return cache.Keys{Prefix: rt.Get().CachePrefix} })

	store, err := setting.New(db, inv)
	require.NoError(t, err)

	theme := models.NewDefinition("ui.theme", models.TypeChoice)
	theme.Default = models.MustJSON("light")
	theme.Choices = models.Choices{{Value: "light"}, {Value: "dark"}}
	theme.Frontend = true
	require.NoError(t, store.CreateDefinition(theme))

	jobs := models.NewDefinition("feature.jobs", models.TypeBool)
	jobs.Default = models.MustJSON(true)
	require.NoError(t, store.CreateDefinition(jobs))

	pinned := models.NewDefinition("feature.session_timeout", models.TypeDuration)
	pinned.Default = models.MustJSON(3600)
	pinned.Editable = false
	require.NoError(t, store.CreateDefinition(pinned))

	res := resolver.New(store, mem, rt)

	svc, err := New(cfg, db, res, inv, WithGatherer(prometheus.NewRegistry()))
	require.NoError(t, err)

	svc.alive.Store(true)

	return &testService{Service: svc, resolver: res, cache: mem}
}

type request struct {
	method  string
	path    string
	body    string
	user    string
	staff   bool
	super   bool
	headers map[string]string
}

func (s *testService) do(t *testing.T, r request) (int, []byte) {
	t.Helper()

	var body io.Reader
	if r.body != "" {
		body = strings.NewReader(r.body)
	}

	req := httptest.NewRequest(r.method, r.path, body)
	if r.body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}

	if r.user != "" {
		req.Header.Set("X-Confetti-User", r.user)
	}

	if r.staff {
		req.Header.Set("X-Confetti-Staff", "true")
	}

	if r.super {
		req.Header.Set("X-Confetti-Superuser", "true")
	}

	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := s.App.Test(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, out
}

func decodeItems(t *testing.T, body []byte) []resolver.Item {
	t.Helper()

	var items []resolver.Item
	require.NoError(t, json.Unmarshal(body, &items))

	return items
}

func decodeItem(t *testing.T, body []byte) resolver.Item {
	t.Helper()

	var item resolver.Item
	require.NoError(t, json.Unmarshal(body, &item))

	return item
}

func keysOf(items []resolver.Item) []string {
	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key)
	}

	return keys
}

func TestList(t *testing.T) {
	s := newTestService(t, newTestConfig())

	status, body := s.do(t, request{method: fiber.MethodGet, path: "/settings"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"feature.jobs", "ui.theme"}, keysOf(decodeItems(t, body)))

	status, body = s.do(t, request{method: fiber.MethodGet, path: "/settings", user: "5", staff: true})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"feature.jobs", "feature.session_timeout", "ui.theme"}, keysOf(decodeItems(t, body)))
}

func TestFrontend(t *testing.T) {
	s := newTestService(t, newTestConfig())

	status, body := s.do(t, request{method: fiber.MethodGet, path: "/settings/frontend"})
	require.Equal(t, http.StatusOK, status)

	items := decodeItems(t, body)
	require.Len(t, items, 1)
	assert.Equal(t, "ui.theme", items[0].Key)
	assert.Equal(t, "light", items[0].Effective)

	def, err := s.resolver.Store().GetDefinition("ui.theme")
	require.NoError(t, err)

	def.Default = models.MustJSON("dark")
	require.NoError(t, s.resolver.Store().UpdateDefinition(def))

	status, body = s.do(t, request{method: fiber.MethodGet, path: "/settings/frontend"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "dark", decodeItems(t, body)[0].Effective)
}

func TestDetail(t *testing.T) {
	testCases := []struct {
		name       string
		req        request
		wantStatus int
	}{
		{name: "anonymous", req: request{path: "/settings/ui.theme"}, wantStatus: http.StatusOK},
		{name: "unknown", req: request{path: "/settings/ui.missing"}, wantStatus: http.StatusNotFound},
		{name: "non editable for user", req: request{path: "/settings/feature.session_timeout", user: "1", staff: true}, wantStatus: http.StatusNotFound},
		{name: "non editable for superuser", req: request{path: "/settings/feature.session_timeout", user: "1", super: true}, wantStatus: http.StatusOK},
		{name: "double slash", req: request{path: "/settings//ui.theme"}, wantStatus: http.StatusOK},
	}

	s := newTestService(t, newTestConfig())

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.req.method = fiber.MethodGet

			status, body := s.do(t, tc.req)
			assert.Equal(t, tc.wantStatus, status, string(body))
		})
	}
}

func TestPatch(t *testing.T) {
	testCases := []struct {
		name       string
		req        request
		wantStatus int
		check      func(t *testing.T, item resolver.Item)
	}{
		{
			name:       "user override",
			req:        request{path: "/settings/ui.theme", user: "1", body: `{"value":"dark"}`},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, item resolver.Item) {
				assert.Equal(t, "dark", item.UserValue)
				assert.Equal(t, "dark", item.Effective)
				assert.Nil(t, item.GlobalValue)
			},
		},
		{
			name:       "explicit user scope",
			req:        request{path: "/settings/ui.theme", user: "2", body: `{"value":"light","scope":"user"}`},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, item resolver.Item) {
				assert.Equal(t, "light", item.UserValue)
			},
		},
		{
			name:       "anonymous",
			req:        request{path: "/settings/ui.theme", body: `{"value":"dark"}`},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "global without staff",
			req:        request{path: "/settings/feature.jobs", user: "1", body: `{"value":false,"scope":"global"}`},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "global anonymous",
			req:        request{path: "/settings/feature.jobs", body: `{"value":false,"scope":"global"}`},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "global by staff",
			req:        request{path: "/settings/feature.jobs", user: "9", staff: true, body: `{"value":false,"scope":"global"}`},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, item resolver.Item) {
				assert.Equal(t, false, item.GlobalValue)
				assert.Equal(t, false, item.Effective)
			},
		},
		{
			name:       "invalid choice",
			req:        request{path: "/settings/ui.theme", user: "1", body: `{"value":"neon"}`},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing value",
			req:        request{path: "/settings/ui.theme", user: "1", body: `{"scope":"user"}`},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown scope",
			req:        request{path: "/settings/ui.theme", user: "1", body: `{"value":"dark","scope":"tenant"}`},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			req:        request{path: "/settings/ui.theme", user: "1", body: `{"value":`},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown key",
			req:        request{path: "/settings/ui.missing", user: "1", body: `{"value":1}`},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "non editable hidden",
			req:        request{path: "/settings/feature.session_timeout", user: "1", body: `{"value":5}`},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "non editable by superuser stores default",
			req:        request{path: "/settings/feature.session_timeout", user: "1", super: true, body: `{"value":5}`},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, item resolver.Item) {
				assert.Equal(t, float64(3600), item.UserValue)
			},
		},
		{
			name:       "null clears override",
			req:        request{path: "/settings/ui.theme", user: "1", body: `{"value":null}`},
			wantStatus: http.StatusOK,
			check: func(t *testing.T, item resolver.Item) {
				assert.Nil(t, item.UserValue)
				assert.Equal(t, "light", item.Effective)
			},
		},
	}

	s := newTestService(t, newTestConfig())

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.req.method = fiber.MethodPatch

			status, body := s.do(t, tc.req)
			require.Equal(t, tc.wantStatus, status, string(body))

			if tc.check != nil {
				tc.check(t, decodeItem(t, body))
			}
		})
	}

	// the staff write is visible to everybody
	assert.False(t, s.resolver.IsEnabled("feature.jobs", nil, true))
}

func TestPatchReadYourWrite(t *testing.T) {
	s := newTestService(t, newTestConfig())

	for _, value := range []string{"true", "false", "true"} {
		status, _ := s.do(t, request{
			method: fiber.MethodPatch,
			path:   "/settings/feature.jobs",
			user:   "1",
			staff:  true,
			body:   `{"value":` + value + `,"scope":"global"}`,
		})
		require.Equal(t, http.StatusOK, status)

		status, body := s.do(t, request{method: fiber.MethodGet, path: "/settings/feature.jobs"})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, value == "true", decodeItem(t, body).Effective)
	}
}

func TestPatchRejectPolicy(t *testing.T) {
	cfg := newTestConfig()
	cfg.Confetti.NonEditablePolicy = config.PolicyReject

	s := newTestService(t, cfg)

	status, body := s.do(t, request{
		method: fiber.MethodPatch,
		path:   "/settings/feature.session_timeout",
		user:   "1",
		super:  true,
		body:   `{"value":5}`,
	})
	assert.Equal(t, http.StatusForbidden, status, string(body))
}

func TestPurge(t *testing.T) {
	testCases := []struct {
		name       string
		req        request
		wantStatus int
		wantBody   string
	}{
		{name: "anonymous", req: request{body: `{"all":true}`}, wantStatus: http.StatusUnauthorized},
		{name: "not staff", req: request{user: "1", body: `{"all":true}`}, wantStatus: http.StatusForbidden},
		{name: "empty request", req: request{user: "1", staff: true, body: `{}`}, wantStatus: http.StatusBadRequest},
		{name: "unknown key", req: request{user: "1", staff: true, body: `{"keys":["ui.missing"]}`}, wantStatus: http.StatusNotFound},
		{name: "keys", req: request{user: "1", staff: true, body: `{"keys":["ui.theme"]}`}, wantStatus: http.StatusOK, wantBody: `{"purged":1,"all":false}`},
		{name: "all", req: request{user: "1", staff: true, body: `{"all":true}`}, wantStatus: http.StatusOK, wantBody: `{"purged":0,"all":true}`},
	}

	s := newTestService(t, newTestConfig())

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// warm the global entry of ui.theme
			assert.Equal(t, "light", s.resolver.Get("ui.theme", nil, nil))
			_, err := s.resolver.SetValue("ui.theme", "light", nil, nil)
			require.NoError(t, err)

			tc.req.method = fiber.MethodPost
			tc.req.path = "/admin/cache/purge"

			status, body := s.do(t, tc.req)
			require.Equal(t, tc.wantStatus, status, string(body))

			if tc.wantBody != "" {
				assert.JSONEq(t, tc.wantBody, string(body))
			}
		})
	}
}

func TestDeleteUser(t *testing.T) {
	s := newTestService(t, newTestConfig())

	status, body := s.do(t, request{method: fiber.MethodPatch, path: "/settings/ui.theme", user: "7", body: `{"value":"dark"}`})
	require.Equal(t, http.StatusOK, status, string(body))

	uid := uint64(7)
	keys := cache.Keys{Prefix: "test"}

	// warm the user entry
	assert.Equal(t, "dark", s.resolver.Get("ui.theme", &uid, nil))
	_, ok, err := s.cache.Get(keys.Value("ui.theme", &uid))
	require.NoError(t, err)
	require.True(t, ok)

	testCases := []struct {
		name       string
		req        request
		wantStatus int
		wantBody   string
	}{
		{name: "anonymous", req: request{path: "/admin/users/7"}, wantStatus: http.StatusUnauthorized},
		{name: "not staff", req: request{path: "/admin/users/7", user: "1"}, wantStatus: http.StatusForbidden},
		{name: "invalid id", req: request{path: "/admin/users/seven", user: "1", staff: true}, wantStatus: http.StatusBadRequest},
		{name: "unknown user", req: request{path: "/admin/users/99", user: "1", staff: true}, wantStatus: http.StatusNotFound},
		{name: "delete", req: request{path: "/admin/users/7", user: "1", staff: true}, wantStatus: http.StatusOK, wantBody: `{"user_id":7,"values_removed":1}`},
		{name: "already deleted", req: request{path: "/admin/users/7", user: "1", staff: true}, wantStatus: http.StatusNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.req.method = fiber.MethodDelete

			status, body := s.do(t, tc.req)
			require.Equal(t, tc.wantStatus, status, string(body))

			if tc.wantBody != "" {
				assert.JSONEq(t, tc.wantBody, string(body))
			}
		})
	}

	_, ok, err = s.cache.Get(keys.Value("ui.theme", &uid))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "light", s.resolver.Get("ui.theme", &uid, nil))
}

func TestDefinitionOverview(t *testing.T) {
	s := newTestService(t, newTestConfig())

	// user 7 overrides feature.jobs
	status, body := s.do(t, request{method: fiber.MethodPatch, path: "/settings/feature.jobs", user: "7", body: `{"value":false}`})
	require.Equal(t, http.StatusOK, status, string(body))

	testCases := []struct {
		name       string
		req        request
		wantStatus int
		wantKeys   []string
		wantTotal  int
	}{
		{name: "anonymous", req: request{}, wantStatus: http.StatusUnauthorized},
		{name: "not staff", req: request{user: "1"}, wantStatus: http.StatusForbidden},
		{
			name:       "all",
			req:        request{user: "1", staff: true},
			wantStatus: http.StatusOK,
			wantKeys:   []string{"feature.jobs", "feature.session_timeout", "ui.theme"},
			wantTotal:  3,
		},
		{
			name:       "search",
			req:        request{user: "1", staff: true, path: "?search=FEATURE"},
			wantStatus: http.StatusOK,
			wantKeys:   []string{"feature.jobs", "feature.session_timeout"},
			wantTotal:  2,
		},
		{
			name:       "type filter",
			req:        request{user: "1", staff: true, path: "?type=choice"},
			wantStatus: http.StatusOK,
			wantKeys:   []string{"ui.theme"},
			wantTotal:  1,
		},
		{
			name:       "second page",
			req:        request{user: "1", staff: true, path: "?pageSize=2&page=2"},
			wantStatus: http.StatusOK,
			wantKeys:   []string{"ui.theme"},
			wantTotal:  3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.req.method = fiber.MethodGet
			tc.req.path = "/admin/definitions" + tc.req.path

			status, body := s.do(t, tc.req)
			require.Equal(t, tc.wantStatus, status, string(body))

			if tc.wantStatus != http.StatusOK {
				return
			}

			var page definitions.Page
			require.NoError(t, json.Unmarshal(body, &page))
			assert.Equal(t, tc.wantTotal, page.TotalItems)

			keys := make([]string, 0, len(page.Definitions))
			for _, d := range page.Definitions {
				keys = append(keys, d.Key)

				if d.Key == "feature.jobs" {
					assert.Equal(t, 1, d.Overrides)
				}
			}

			assert.Equal(t, tc.wantKeys, keys)
		})
	}
}

func TestEnvelopeResponses(t *testing.T) {
	cfg := newTestConfig()
	cfg.Confetti.ResponseMethod = response.MethodEnvelope

	s := newTestService(t, cfg)

	status, body := s.do(t, request{method: fiber.MethodGet, path: "/settings/ui.missing"})
	require.Equal(t, http.StatusNotFound, status)
	assert.JSONEq(t, `{"ok":false,"status":404,"error":{"detail":"setting not found"}}`, string(body))

	status, body = s.do(t, request{method: fiber.MethodGet, path: "/settings/frontend"})
	require.Equal(t, http.StatusOK, status)

	var envelope struct {
		OK   bool            `json:"ok"`
		Data []resolver.Item `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	assert.True(t, envelope.OK)
	assert.Len(t, envelope.Data, 1)
}

func TestUnknownResponseMethod(t *testing.T) {
	cfg := newTestConfig()
	cfg.Confetti.ResponseMethod = "xml"

	_, err := New(cfg, setupTestDB(t), nil, nil)
	require.ErrorIs(t, err, response.ErrUnknownMethod)
}

func TestInvalidIdentity(t *testing.T) {
	s := newTestService(t, newTestConfig())

	status, body := s.do(t, request{method: fiber.MethodGet, path: "/settings", user: "alice"})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "invalid user id")
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestService(t, newTestConfig())

	status, body := s.do(t, request{method: fiber.MethodGet, path: HealthPath})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", string(body))

	s.alive.Store(false)

	status, _ = s.do(t, request{method: fiber.MethodGet, path: HealthPath})
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, _ = s.do(t, request{method: fiber.MethodGet, path: MetricsPath})
	assert.Equal(t, http.StatusOK, status)
}
