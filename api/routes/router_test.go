package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-wishlist/internal/repository"
	"github.com/angelmondragon/storefront-wishlist/internal/sessions"
	"github.com/angelmondragon/storefront-wishlist/internal/wishlist"
	"github.com/angelmondragon/storefront-wishlist/pkg/auth"
	"github.com/angelmondragon/storefront-wishlist/pkg/config"
	"github.com/angelmondragon/storefront-wishlist/pkg/db/models"
	"github.com/angelmondragon/storefront-wishlist/pkg/logger"
	"github.com/angelmondragon/storefront-wishlist/pkg/metrics"
	"github.com/angelmondragon/storefront-wishlist/pkg/security"
)

const (
	testShop   = "demo-shop.myshopify.com"
	testSecret = "proxy-secret"
	mountPath  = "/apps/wishlist"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type harness struct {
	handler  http.Handler
	repo     *repository.Memory
	sessions *sessions.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &config.Config{
		App: config.AppConfig{Env: "test"},
		Proxy: config.ProxyConfig{
			SharedSecret:    testSecret,
			MountPath:       mountPath,
			RateLimitWindow: time.Minute,
			RateLimitMax:    100,
		},
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	reg := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)
	wishlistMetrics := metrics.NewWishlistMetrics(reg)

	tokens, err := auth.NewTokenService(config.SessionConfig{Secret: "session-secret", Issuer: "storefront-wishlist"})
	require.NoError(t, err)

	repo := repository.NewMemory()
	manager, err := sessions.NewManager(sessions.ManagerParams{
		Repo:    repo,
		Tokens:  tokens,
		Logger:  logg,
		Metrics: wishlistMetrics,
	})
	require.NoError(t, err)

	svc, err := wishlist.NewService(wishlist.ServiceParams{
		Repo:     repo,
		Activity: manager,
		Tokens:   tokens,
		Logger:   logg,
		Metrics:  wishlistMetrics,
	})
	require.NoError(t, err)

	handler := NewRouter(cfg, logg, stubPinger{}, nil, httpMetrics, wishlistMetrics,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), manager, svc)
	return &harness{handler: handler, repo: repo, sessions: manager}
}

type proxyRequest struct {
	method string
	path   string
	body   string
	token  string
	sign   bool
}

func (h *harness) do(t *testing.T, req proxyRequest) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	r := httptest.NewRequest(req.method, mountPath+req.path, strings.NewReader(req.body))
	r.Header.Set(security.HeaderShopDomain, testShop)
	if req.body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	if req.sign {
		r.Header.Set(security.HeaderProxySignature, security.SignRequest(
			testSecret, r.Method, r.URL.Path, testShop, r.URL.Query(), []byte(req.body)))
	}
	if req.token != "" {
		r.Header.Set("Authorization", "Bearer "+req.token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, r)

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&body), rec.Body.String())
	}
	return rec, body
}

func errorCode(body map[string]any) string {
	errBody, _ := body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

func TestHealthRoutes(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Contains(t, rec.Body.String(), `"redis":"disabled"`)
}

func TestMetricsEndpointExportsRequestCounters(t *testing.T) {
	h := newHarness(t)
	h.do(t, proxyRequest{method: http.MethodGet, path: "/ping", sign: true})

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/apps/wishlist/ping",status="200"}`)
}

func TestProxyRoutesRequireSignature(t *testing.T) {
	h := newHarness(t)

	rec, body := h.do(t, proxyRequest{method: http.MethodGet, path: "/wishlist"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))
}

func TestGetWishlistBootstrapsGuestSession(t *testing.T) {
	h := newHarness(t)

	rec, body := h.do(t, proxyRequest{method: http.MethodGet, path: "/wishlist", sign: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])

	wl := body["wishlist"].(map[string]any)
	assert.NotEmpty(t, wl["shareUUID"])
	assert.Empty(t, wl["items"])
	assert.Len(t, h.repo.Events(models.EventTypeSession), 1)
}

func TestGetWishlistBootstrapsCustomerFromQuery(t *testing.T) {
	h := newHarness(t)

	rec, body := h.do(t, proxyRequest{method: http.MethodGet, path: "/wishlist?logged_in_customer_id=c1&customer_email=c1@example.com", sign: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	session := h.sessions.ValidateSession(body["token"].(string), testShop)
	require.NotNil(t, session)
	assert.True(t, session.Identity.IsRegistered())
	assert.Equal(t, "c1", session.Identity.ExternalID())
}

func TestCustomerBootstrapRejectsReplayedSignature(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	signed := httptest.NewRequest(http.MethodGet, mountPath+"/wishlist?logged_in_customer_id=c1", nil)
	signed.Header.Set(security.HeaderShopDomain, testShop)
	sig := security.SignRequest(testSecret, signed.Method, signed.URL.Path, testShop, signed.URL.Query(), nil)
	signed.Header.Set(security.HeaderProxySignature, sig)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, signed)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	replays := []struct {
		target string
		shop   string
	}{
		{mountPath + "/wishlist?logged_in_customer_id=victim-42", testShop},
		{mountPath + "/wishlist?logged_in_customer_id=c1", "other-tenant.myshopify.com"},
		{mountPath + "/wishlist?logged_in_customer_id=c1&customer_email=x@example.com", testShop},
	}
	for _, tc := range replays {
		r := httptest.NewRequest(http.MethodGet, tc.target, nil)
		r.Header.Set(security.HeaderShopDomain, tc.shop)
		r.Header.Set(security.HeaderProxySignature, sig)
		rec := httptest.NewRecorder()
		h.handler.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.target)
		assert.NotContains(t, rec.Body.String(), `"token"`, tc.target)
	}

	shop, err := h.repo.FindShopByDomain(ctx, testShop)
	require.NoError(t, err)
	_, err = h.repo.FindCustomer(ctx, shop.ID, "victim-42")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = h.repo.FindShopByDomain(ctx, "other-tenant.myshopify.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestMutatingRoutesRequireBearer(t *testing.T) {
	h := newHarness(t)

	rec, body := h.do(t, proxyRequest{method: http.MethodPost, path: "/wishlist/items", body: `{"productId":1,"variantId":2,"handle":"x"}`, sign: true})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(body))

	rec, _ = h.do(t, proxyRequest{method: http.MethodPost, path: "/wishlist/items", body: `{}`, token: "not-a-token", sign: true})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddItemConflictReturnsExistingItem(t *testing.T) {
	h := newHarness(t)
	guest, err := h.sessions.CreateGuestSession(context.Background(), testShop, "g1")
	require.NoError(t, err)

	payload := `{"productId":100,"variantId":200,"handle":"shoe"}`
	rec, body := h.do(t, proxyRequest{method: http.MethodPost, path: "/wishlist/items", body: payload, token: guest.Token, sign: true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := body["item"].(map[string]any)

	rec, body = h.do(t, proxyRequest{method: http.MethodPost, path: "/wishlist/items", body: payload, token: guest.Token, sign: true})
	require.Equal(t, http.StatusConflict, rec.Code)
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Equal(t, created["id"], details["item"].(map[string]any)["id"])
}

func TestRemoveItemOwnership(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	owner, err := h.sessions.CreateGuestSession(ctx, testShop, "g1")
	require.NoError(t, err)
	other, err := h.sessions.CreateGuestSession(ctx, testShop, "g2")
	require.NoError(t, err)

	_, body := h.do(t, proxyRequest{method: http.MethodPost, path: "/wishlist/items", body: `{"productId":"1","variantId":"2","handle":"x"}`, token: owner.Token, sign: true})
	itemID := body["item"].(map[string]any)["id"].(string)

	rec, _ := h.do(t, proxyRequest{method: http.MethodDelete, path: "/wishlist/items/" + itemID, token: other.Token, sign: true})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = h.do(t, proxyRequest{method: http.MethodDelete, path: "/wishlist/items/" + itemID, token: owner.Token, sign: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Item removed from wishlist", body["message"])

	rec, _ = h.do(t, proxyRequest{method: http.MethodDelete, path: "/wishlist/items/" + itemID, token: owner.Token, sign: true})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = h.do(t, proxyRequest{method: http.MethodDelete, path: "/wishlist/items/not-a-uuid", token: owner.Token, sign: true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGuestToCustomerMigrationEndToEnd(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	guest, err := h.sessions.CreateGuestSession(ctx, testShop, "g1")
	require.NoError(t, err)
	rec, _ := h.do(t, proxyRequest{method: http.MethodPost, path: "/wishlist/items", body: `{"productId":100,"variantId":200,"handle":"shoe"}`, token: guest.Token, sign: true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, body := h.do(t, proxyRequest{method: http.MethodGet, path: "/wishlist?logged_in_customer_id=c1", sign: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	customerToken := body["token"].(string)

	// A guest cannot migrate.
	rec, body = h.do(t, proxyRequest{method: http.MethodPost, path: "/wishlist/migrate", body: `{"guestToken":"` + guest.Token + `"}`, token: guest.Token, sign: true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(body))

	migrateBody := `{"guestToken":"` + guest.Token + `"}`
	rec, body = h.do(t, proxyRequest{method: http.MethodPost, path: "/wishlist/migrate", body: migrateBody, token: customerToken, sign: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["migrated"])
	assert.Equal(t, float64(1), body["migratedCount"])
	assert.NotEmpty(t, body["token"])

	rec, body = h.do(t, proxyRequest{method: http.MethodGet, path: "/wishlist", token: customerToken, sign: true})
	require.Equal(t, http.StatusOK, rec.Code)
	items := body["wishlist"].(map[string]any)["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "100", item["productId"])
	assert.Equal(t, "200", item["variantId"])
	assert.Equal(t, "shoe", item["handle"])

	rec, body = h.do(t, proxyRequest{method: http.MethodPost, path: "/wishlist/migrate", body: migrateBody, token: customerToken, sign: true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["migrated"])
	assert.Equal(t, float64(0), body["migratedCount"])

	assert.Len(t, h.repo.Events(models.EventTypeMigrate), 1)
}

func TestSessionRefresh(t *testing.T) {
	h := newHarness(t)
	guest, err := h.sessions.CreateGuestSession(context.Background(), testShop, "g1")
	require.NoError(t, err)

	rec, body := h.do(t, proxyRequest{method: http.MethodPost, path: "/session/refresh", token: guest.Token, sign: true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, float64(auth.GuestTTL.Seconds()), body["expiresIn"])

	rec, _ = h.do(t, proxyRequest{method: http.MethodPost, path: "/session/refresh", token: "garbage", sign: true})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = h.do(t, proxyRequest{method: http.MethodPost, path: "/session/refresh", sign: true})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
