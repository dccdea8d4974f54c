package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, secret, sub string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub, "role": "authenticated", "exp": exp.Unix()}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func sessionApp() *fiber.App {
	app := fiber.New()
	app.Get("/whoami", SessionMiddleware(testSecret), func(c *fiber.Ctx) error {
		return c.SendString("user=" + UserID(c))
	})
	app.Get("/private", SessionMiddleware(testSecret), RequireSession(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/stream", StreamSessionMiddleware(testSecret), func(c *fiber.Ctx) error {
		return c.SendString("user=" + UserID(c))
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (int, string) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestSessionMiddleware(t *testing.T) {
	app := sessionApp()
	valid := signToken(t, testSecret, "user-123", time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"anonymous", "", http.StatusOK, "user="},
		{"valid bearer", "Bearer " + valid, http.StatusOK, "user=user-123"},
		{"expired", "Bearer " + signToken(t, testSecret, "u", time.Now().Add(-time.Minute)), http.StatusUnauthorized, "invalid session"},
		{"wrong secret", "Bearer " + signToken(t, "another-secret", "u", time.Now().Add(time.Hour)), http.StatusUnauthorized, "invalid session"},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized, "invalid session"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			status, body := doRequest(t, app, req)
			assert.Equal(t, tt.status, status)
			assert.Contains(t, body, tt.body)
		})
	}
}

func TestRequireSession(t *testing.T) {
	app := sessionApp()

	status, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Contains(t, body, "no_auth")

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "u1", time.Now().Add(time.Hour)))
	status, _ = doRequest(t, app, req)
	assert.Equal(t, http.StatusOK, status)
}

func TestStreamSessionMiddleware(t *testing.T) {
	app := sessionApp()

	status, _ := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/stream", nil))
	assert.Equal(t, http.StatusUnauthorized, status)

	token := signToken(t, testSecret, "u9", time.Now().Add(time.Hour))
	status, body := doRequest(t, app, httptest.NewRequest(http.MethodGet, "/stream?token="+token, nil))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "user=u9", body)
}

func TestParseSession_RequiresSubjectAndExpiry(t *testing.T) {
	noSub := signToken(t, testSecret, "", time.Now().Add(time.Hour))
	_, err := ParseSession(noSub, []byte(testSecret))
	assert.Error(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u"}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = ParseSession(noExp, []byte(testSecret))
	assert.Error(t, err)

	claims, err := ParseSession(signToken(t, testSecret, "u", time.Now().Add(time.Hour)), []byte(testSecret))
	require.NoError(t, err)
	assert.Equal(t, "u", claims.Subject)
	assert.Equal(t, "authenticated", claims.Role)
}

func TestServiceRoleMiddleware(t *testing.T) {
	app := fiber.New()
	app.Post("/s/admin/ping", ServiceRoleMiddleware("service-key"), func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	tests := []struct {
		name    string
		headers map[string]string
		status  int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong", map[string]string{"Authorization": "Bearer nope"}, http.StatusForbidden},
		{"bearer", map[string]string{"Authorization": "Bearer service-key"}, http.StatusOK},
		{"apikey header", map[string]string{"apikey": "service-key"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/s/admin/ping", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			status, _ := doRequest(t, app, req)
			assert.Equal(t, tt.status, status)
		})
	}
}
