package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialapp/cmd/security/keys"
)

var (
	testKeyOnce sync.Once
	testKeyPEM  string
	testKeyErr  error
)

func testPrivateKeyPEM(t *testing.T) string {
	t.Helper()
	testKeyOnce.Do(func() {
		p, err := keys.Generate("app-test", 2048)
		if err != nil {
			testKeyErr = err
			return
		}
		b, err := p.PrivatePEM()
		testKeyPEM, testKeyErr = string(b), err
	})
	require.NoError(t, testKeyErr)
	return testKeyPEM
}

// setMemoryEnv configures an in-memory app with cheap password hashing.
func setMemoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SOCIAL_DATABASE_URL", "")
	t.Setenv("SOCIAL_JWT_PRIVATE_KEY", testPrivateKeyPEM(t))
	t.Setenv("SOCIAL_JWT_KEY_ID", "app-test")
	t.Setenv("SOCIAL_ARGON2_MEMORY_KIB", "8192")
	t.Setenv("SOCIAL_ARGON2_ITERATIONS", "1")
	t.Setenv("SOCIAL_AUTH_COOKIE_SECURE", "false")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(LoadConfig(), discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func TestNew_FailsWithoutSigningKey(t *testing.T) {
	setMemoryEnv(t)
	t.Setenv("SOCIAL_JWT_PRIVATE_KEY", "")
	t.Setenv("SOCIAL_JWT_PRIVATE_KEY_FILE", "")

	_, err := New(LoadConfig(), discardLogger())
	require.ErrorIs(t, err, keys.ErrKeyMissing)
}

func TestNew_FailsOnSecurityPolicy(t *testing.T) {
	setMemoryEnv(t)
	t.Setenv("SOCIAL_REQUIRE_TOKEN_HMAC", "true")
	t.Setenv("SOCIAL_TOKEN_HMAC_KEY", "short")

	_, err := New(LoadConfig(), discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}

func TestApp_EndToEndInMemory(t *testing.T) {
	setMemoryEnv(t)
	srv := httptest.NewServer(newTestApp(t).Handler())
	defer srv.Close()

	body := `{"username":"alice","email":"alice@example.com","password":"correct horse battery","confirmPassword":"correct horse battery"}`
	res, err := http.Post(srv.URL+"/auth/register", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusCreated, res.StatusCode)
	assert.NotEmpty(t, res.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", res.Header.Get("X-Content-Type-Options"))

	var auth struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&auth))

	var cookie *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == "refreshToken" {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/me", nil)
	req.Header.Set("Authorization", "Bearer "+auth.AccessToken)
	me, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	me.Body.Close()
	assert.Equal(t, http.StatusOK, me.StatusCode)

	req, _ = http.NewRequest(http.MethodPost, srv.URL+"/auth/refresh", nil)
	req.AddCookie(cookie)
	ref, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	ref.Body.Close()
	assert.Equal(t, http.StatusOK, ref.StatusCode)

	metrics, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer metrics.Body.Close()
	raw, err := io.ReadAll(metrics.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `socialapp_auth_operations_total{operation="register",result="success"} 1`)
	assert.Contains(t, string(raw), `socialapp_auth_operations_total{operation="refresh",result="success"} 1`)
}

func TestApp_BootstrapAdminIsIdempotent(t *testing.T) {
	setMemoryEnv(t)
	t.Setenv("SOCIAL_BOOTSTRAP_ADMIN_USERNAME", "root")
	t.Setenv("SOCIAL_BOOTSTRAP_ADMIN_EMAIL", "root@example.com")
	t.Setenv("SOCIAL_BOOTSTRAP_ADMIN_PASSWORD", "correct horse battery")

	a := newTestApp(t)
	require.NoError(t, bootstrapAdmin(context.Background(), a.accounts, a.cfg.BootstrapAdmin, discardLogger()))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		bytes.NewBufferString(`{"username":"root","password":"correct horse battery"}`))
	a.Handler().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var out struct {
		Role string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, "ADMIN", out.Role)
}

func TestHealthAndReadiness(t *testing.T) {
	setMemoryEnv(t)
	h := newTestApp(t).Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestReadiness_RequiresDB(t *testing.T) {
	setMemoryEnv(t)
	t.Setenv("SOCIAL_READINESS_REQUIRE_DB", "true")
	h := newTestApp(t).Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
