package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dimitrije/family-core/internal/audit"
	"github.com/dimitrije/family-core/internal/models"
	"github.com/dimitrije/family-core/internal/services"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *services.JWTService {
	return services.NewJWTService("test-secret-key", 15*time.Minute)
}

func generateTestToken(t *testing.T, jwtSvc *services.JWTService, userID uuid.UUID, email string) string {
	t.Helper()
	token, err := jwtSvc.GenerateAccessToken(userID, email)
	require.NoError(t, err)
	return token
}

func newProtectedApp(jwtSvc *services.JWTService, handler drift.HandlerFunc) http.Handler {
	app := drift.New()
	app.Use(Auth(jwtSvc))
	app.Get("/protected", handler)
	return app
}

func okHandler(c *drift.Context) {
	_ = c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func TestAuth_RejectsBadHeaders(t *testing.T) {
	jwtSvc := newTestJWTService()
	otherToken := generateTestToken(t, services.NewJWTService("other-secret", time.Minute), uuid.New(), "a@x.com")

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"missing", "", "missing authorization header"},
		{"wrong scheme", "Token some-token", "invalid authorization header format"},
		{"scheme only", "Bearer", "invalid authorization header format"},
		{"garbage token", "Bearer invalid-token", "invalid or expired token"},
		{"wrong secret", "Bearer " + otherToken, "invalid or expired token"},
	}

	app := newProtectedApp(jwtSvc, okHandler)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			app.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.message)
		})
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	jwtSvc := services.NewJWTService("test-secret-key", -time.Minute)
	token := generateTestToken(t, jwtSvc, uuid.New(), "a@x.com")
	app := newProtectedApp(jwtSvc, okHandler)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	app.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_ValidTokenExposesIdentity(t *testing.T) {
	jwtSvc := newTestJWTService()
	userID := uuid.New()
	token := generateTestToken(t, jwtSvc, userID, "a@x.com")

	var gotID uuid.UUID
	var gotEmail string
	app := newProtectedApp(jwtSvc, func(c *drift.Context) {
		gotID = GetUserID(c)
		gotEmail = GetUserEmail(c)
		okHandler(c)
	})

	for _, scheme := range []string{"Bearer", "bearer", "BEARER"} {
		t.Run(scheme, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", scheme+" "+token)
			rec := httptest.NewRecorder()

			app.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, userID, gotID)
			assert.Equal(t, "a@x.com", gotEmail)
		})
	}
}

func TestGetUserID_NotSet(t *testing.T) {
	app := drift.New()

	gotID := uuid.New()
	gotEmail := "unset"
	app.Get("/test", func(c *drift.Context) {
		gotID = GetUserID(c)
		gotEmail = GetUserEmail(c)
		_ = c.JSON(http.StatusOK, nil)
	})

	app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, uuid.Nil, gotID)
	assert.Empty(t, gotEmail)
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "198.51.100.2"},
		{"peer address", nil, "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			app := drift.New()
			app.Get("/ip", func(c *drift.Context) {
				got = ClientIP(c)
				_ = c.JSON(http.StatusOK, nil)
			})

			req := httptest.NewRequest(http.MethodGet, "/ip", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			app.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestContext_CarriesAuditMetadata(t *testing.T) {
	recorder := &audit.Memory{}
	app := drift.New()
	app.Get("/audit", func(c *drift.Context) {
		recorder.Record(RequestContext(c), models.AuditLogEntry{ActionType: models.AuditGameLocked})
		_ = c.JSON(http.StatusOK, nil)
	})

	req := httptest.NewRequest(http.MethodGet, "/audit", nil)
	req.Header.Set("X-Real-IP", "198.51.100.9")
	req.Header.Set("User-Agent", "family-app/1.0")
	app.ServeHTTP(httptest.NewRecorder(), req)

	entries := recorder.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "198.51.100.9", entries[0].IPAddress)
	assert.Equal(t, "family-app/1.0", entries[0].UserAgent)
}
