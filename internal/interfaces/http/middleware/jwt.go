package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/maisgenetica/backend/internal/infrastructure/auth"
	"github.com/maisgenetica/backend/internal/infrastructure/logger"
	"github.com/maisgenetica/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey   = "jwt_claims"
	JWTUsernameKey = "jwt_username"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
)

// TokenAuthenticator validates bearer tokens. auth.AdminAuthenticator
// implements it, including the revocation check.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

// AdminAuth rejects requests without a valid administrator bearer token and
// stores the claims for handlers
func AdminAuth(authenticator TokenAuthenticator, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c.GetHeader(AuthHeaderKey))
		if !ok {
			abortAuth(c, dto.ErrCodeUnauthorized, "Autenticação necessária")
			return
		}

		claims, err := authenticator.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			code, message, known := authErrorCode(err)
			if !known {
				log.Error("Token check failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, dto.NewErrorResponseWithRequestID(
					dto.ErrCodeServiceUnavailable, "Serviço temporariamente indisponível", GetRequestID(c)))
				return
			}
			log.Warn("JWT authentication failed", zap.Error(err), zap.String("path", c.Request.URL.Path))
			abortAuth(c, code, message)
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUsernameKey, claims.Username)

		ctx, _ := logger.WithAdmin(c.Request.Context(), claims.Username)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	return token, token != ""
}

func authErrorCode(err error) (code, message string, known bool) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return dto.ErrCodeTokenExpired, "Sessão expirada", true
	case errors.Is(err, auth.ErrTokenRevoked):
		return dto.ErrCodeTokenRevoked, "Sessão encerrada", true
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return dto.ErrCodeTokenInvalid, "Token inválido", true
	}
	return "", "", false
}

func abortAuth(c *gin.Context, code, message string) {
	c.Header("WWW-Authenticate", `Bearer realm="admin"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}

// GetJWTClaims returns the claims stored by AdminAuth, or nil
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(JWTClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetJWTUsername returns the authenticated administrator
func GetJWTUsername(c *gin.Context) string {
	return c.GetString(JWTUsernameKey)
}
