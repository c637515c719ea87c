package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/snupai/shortlink/internal/model"
)

const accountKey = "account"

// Claims are the session token fields we rely on. Subject identifies the
// account at the identity provider.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AccountResolver maps a verified identity onto an account
type AccountResolver interface {
	Ensure(ctx context.Context, subject, email string) (*model.Account, error)
}

// SessionAuth verifies HS256 bearer tokens and loads the caller's account
func SessionAuth(secret []byte, accounts AccountResolver, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must be in format: Bearer {token}"})
			return
		}

		claims, err := ParseToken(raw, secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
			return
		}

		account, err := accounts.Ensure(c.Request.Context(), claims.Subject, claims.Email)
		if err != nil {
			log.Error().Err(err).Str("request_id", GetRequestID(c)).Msg("failed to load account")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Set(accountKey, account)
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role; it must follow SessionAuth
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := GetAccount(c)
		if !ok || !account.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

// GetAccount returns the account loaded by SessionAuth
func GetAccount(c *gin.Context) (*model.Account, bool) {
	v, ok := c.Get(accountKey)
	if !ok {
		return nil, false
	}
	account, ok := v.(*model.Account)
	return account, ok
}

// ParseToken validates a session token and returns its claims
func ParseToken(raw string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// SignToken issues a session token. The identity provider normally does
// this; it is used by tooling and tests.
func SignToken(secret []byte, claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}
