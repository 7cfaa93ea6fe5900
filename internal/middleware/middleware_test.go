package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/entity"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(userID, role string) Claims {
	return Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func identityEcho(t *testing.T, got *entity.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		*got = id
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestJWTAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     func(t *testing.T) string
		wantStatus int
		wantID     entity.Identity
	}{
		{
			name:       "valid admin token",
			header:     func(t *testing.T) string { return "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("u1", "ADMIN")) },
			wantStatus: http.StatusNoContent,
			wantID:     entity.Identity{ID: "u1", Role: entity.RoleAdmin},
		},
		{
			name:       "missing header",
			header:     func(t *testing.T) string { return "" },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not a bearer token",
			header:     func(t *testing.T) string { return "Basic dXNlcjpwYXNz" },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong secret",
			header:     func(t *testing.T) string { return "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims("u1", "admin")) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "expired",
			header: func(t *testing.T) string {
				c := validClaims("u1", "admin")
				c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
				return "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), c)
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "none algorithm",
			header:     func(t *testing.T) string { return "Bearer " + signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims("u1", "admin")) },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "no user id",
			header:     func(t *testing.T) string { return "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("", "admin")) },
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got entity.Identity
			h := JWTAuth(testSecret, zap.NewNop())(identityEcho(t, &got))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/news", nil)
			if hdr := tt.header(t); hdr != "" {
				req.Header.Set("Authorization", hdr)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusNoContent {
				assert.Equal(t, tt.wantID, got)
			} else {
				assert.Contains(t, rec.Body.String(), `"success":false`)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := RequireRole(entity.RoleAdmin)(ok)

	serve := func(req *http.Request) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(req))

	userReq := req.WithContext(WithIdentity(req.Context(), entity.Identity{ID: "r1", Role: entity.RoleUser}))
	assert.Equal(t, http.StatusForbidden, serve(userReq))

	adminReq := req.WithContext(WithIdentity(req.Context(), entity.Identity{ID: "u1", Role: entity.RoleAdmin}))
	assert.Equal(t, http.StatusOK, serve(adminReq))
}

func TestRequestLoggerAndMetrics(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := metrics.NewMetricsManager("test")

	r := chi.NewRouter()
	r.Use(RequestLogger(zap.New(core)))
	r.Use(Metrics(m))
	r.Get("/api/v1/news/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/news/abc", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zap.WarnLevel, entry.Level)
	assert.Equal(t, "/api/v1/news/{id}", entry.ContextMap()["route"])
	assert.Equal(t, int64(http.StatusNotFound), entry.ContextMap()["status"])

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/news/{id}", "404")))
}
