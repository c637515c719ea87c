package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/snupai/shortlink/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

type stubAccounts struct {
	accounts map[string]*model.Account
}

func (s *stubAccounts) Ensure(_ context.Context, subject, email string) (*model.Account, error) {
	if acc, ok := s.accounts[subject]; ok {
		return acc, nil
	}
	acc := &model.Account{ID: int64(len(s.accounts) + 1), Subject: subject, Email: email, Role: model.RoleUser}
	s.accounts[subject] = acc
	return acc, nil
}

func authRouter(accounts AccountResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	g := r.Group("/", SessionAuth(secret, accounts, zerolog.Nop()))
	g.GET("/me", func(c *gin.Context) {
		acc, _ := GetAccount(c)
		c.JSON(http.StatusOK, gin.H{"email": acc.Email})
	})
	g.GET("/admin", RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func token(t *testing.T, sub, email string, exp time.Time) string {
	tok, err := SignToken(secret, Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	require.NoError(t, err)
	return tok
}

func get(r http.Handler, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSessionAuth(t *testing.T) {
	accounts := &stubAccounts{accounts: map[string]*model.Account{
		"boss": {ID: 99, Subject: "boss", Email: "boss@example.com", Role: model.RoleAdmin},
	}}
	r := authRouter(accounts)
	valid := token(t, "user-1", "u@example.com", time.Now().Add(time.Hour))

	w := get(r, "/me", valid)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "u@example.com")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "not-a-jwt").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", token(t, "user-1", "", time.Now().Add(-time.Minute))).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", token(t, "", "", time.Now().Add(time.Hour))).Code)

	assert.Equal(t, http.StatusForbidden, get(r, "/admin", valid).Code)
	assert.Equal(t, http.StatusNoContent, get(r, "/admin", token(t, "boss", "", time.Now().Add(time.Hour))).Code)
}

func TestParseTokenRejectsOtherKeysAndMethods(t *testing.T) {
	other, err := SignToken([]byte("other"), Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "x"}})
	require.NoError(t, err)
	_, err = ParseToken(other, secret)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "x"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken(none, secret)
	assert.Error(t, err)
}

func TestRequestIDKeepsInboundUUID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "3f1c2a4e-8f77-4a43-9d3b-2f5c1b7e9a10")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "3f1c2a4e-8f77-4a43-9d3b-2f5c1b7e9a10", w.Body.String())

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Body.String())
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), AccessLog(zerolog.New(&buf)))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/missing", nil))

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"status":404`)
	assert.Contains(t, out, `"path":"/missing"`)
	assert.Contains(t, out, w.Header().Get(RequestIDHeader))
}
