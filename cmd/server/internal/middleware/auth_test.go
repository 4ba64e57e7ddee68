package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newAuthRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BearerAuth(secret, slog.Default(), "/health"))
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/caption/file", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("subject"))
	})
	return r
}

func doGet(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBearerAuthDisabledWithoutSecret(t *testing.T) {
	r := newAuthRouter("")
	assert.Equal(t, http.StatusOK, doGet(r, "/caption/file", "").Code)
}

func TestBearerAuth(t *testing.T) {
	r := newAuthRouter(testSecret)

	assert.Equal(t, http.StatusOK, doGet(r, "/health", "").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/caption/file", "").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/caption/file", "Bearer not-a-jwt").Code)

	tok, err := IssueToken([]byte(testSecret), "n8n", []string{"caption"}, time.Hour)
	require.NoError(t, err)
	w := doGet(r, "/caption/file", "Bearer "+tok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "n8n", w.Body.String())

	other, err := IssueToken([]byte("another-secret-another-secret-xx"), "n8n", nil, 0)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "/caption/file", "Bearer "+other).Code)
}

func TestParseTokenExpiry(t *testing.T) {
	tok, err := IssueToken([]byte(testSecret), "svc", nil, 0)
	require.NoError(t, err)
	claims, err := ParseToken([]byte(testSecret), tok)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)

	past := Claims{Name: "svc"}
	past.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, past).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = ParseToken([]byte(testSecret), expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}
