package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/maisgenetica/backend/internal/infrastructure/auth"
	"github.com/maisgenetica/backend/internal/infrastructure/config"
	"github.com/maisgenetica/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestAuthenticator(t *testing.T) (*auth.AdminAuthenticator, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("senha-secreta"), bcrypt.MinCost)
	require.NoError(t, err)

	tokens := auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars!",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "maisgenetica-test",
	})
	a := auth.NewAdminAuthenticator(config.AdminConfig{Username: "admin", PasswordHash: string(hash)}, tokens, nil)

	token, err := a.Login(context.Background(), "admin", "senha-secreta")
	require.NoError(t, err)
	return a, token.AccessToken
}

func newAuthRouter(a TokenAuthenticator) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), AdminAuth(a, nil))
	router.GET("/admin", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user":       GetJWTUsername(c),
			"ctx_admin":  logger.GetAdmin(c.Request.Context()),
			"has_claims": GetJWTClaims(c) != nil,
		})
	})
	return router
}

func TestAdminAuth_ValidToken(t *testing.T) {
	a, token := newTestAuthenticator(t)
	router := newAuthRouter(a)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"admin","ctx_admin":"admin","has_claims":true}`, w.Body.String())
}

func TestAdminAuth_Rejections(t *testing.T) {
	a, token := newTestAuthenticator(t)
	router := newAuthRouter(a)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "ERR_UNAUTHORIZED"},
		{"wrong scheme", "Basic " + token, "ERR_UNAUTHORIZED"},
		{"empty token", "Bearer ", "ERR_UNAUTHORIZED"},
		{"garbage token", "Bearer not.a.jwt", "ERR_TOKEN_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.code)
			assert.Equal(t, `Bearer realm="admin"`, w.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestAdminAuth_RevokedToken(t *testing.T) {
	a, token := newTestAuthenticator(t)
	claims, err := a.Authenticate(context.Background(), token)
	require.NoError(t, err)
	require.NoError(t, a.Logout(context.Background(), claims))

	router := newAuthRouter(a)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_TOKEN_REVOKED")
}

type authenticatorFunc func(ctx context.Context, token string) (*auth.Claims, error)

func (f authenticatorFunc) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	return f(ctx, token)
}

func TestAdminAuth_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{auth.ErrExpiredToken, http.StatusUnauthorized, "ERR_TOKEN_EXPIRED"},
		{auth.ErrInvalidClaims, http.StatusUnauthorized, "ERR_TOKEN_INVALID"},
		{auth.ErrTokenNotYetValid, http.StatusUnauthorized, "ERR_TOKEN_INVALID"},
		{errors.New("redis: connection refused"), http.StatusServiceUnavailable, "ERR_SERVICE_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			router := newAuthRouter(authenticatorFunc(func(context.Context, string) (*auth.Claims, error) {
				return nil, tt.err
			}))

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set(AuthHeaderKey, "Bearer x")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.code)
		})
	}
}

func TestGetJWTClaims_NotSet(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetJWTClaims(c))
	assert.Empty(t, GetJWTUsername(c))
}
