package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfantasy/whp/internal/shared/whpapi"
)

const secret = "test-secret"

func signed(t *testing.T, claims jwt.MapClaims, key string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

func validToken(t *testing.T) string {
	return signed(t, jwt.MapClaims{
		"uid":      "u-1",
		"username": "somchai",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}, secret)
}

// echo answers with what Auth left on the context.
func echo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"user_id":   c.GetString("user_id"),
		"username":  c.GetString("username"),
		"forwarded": whpapi.TokenFrom(c.Request.Context()),
	})
}

func newRouter(cfg AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/p", Auth(cfg), echo)
	return r
}

func get(r *gin.Engine, setup func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := newRouter(AuthConfig{Secret: secret, Required: true})

	w := get(r, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := validToken(t)
	w = get(r, func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token) })
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"u-1","username":"somchai","forwarded":"`+token+`"}`, w.Body.String())
}

func TestAuthRejectsBadSignature(t *testing.T) {
	r := newRouter(AuthConfig{Secret: secret})
	token := signed(t, jwt.MapClaims{"uid": "u-1"}, "other-secret")

	w := get(r, func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token) })
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthOptionalPassesAnonymous(t *testing.T) {
	r := newRouter(AuthConfig{Secret: secret})

	w := get(r, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"","username":"","forwarded":""}`, w.Body.String())
}

func TestAuthWithoutSecretForwardsCookieToken(t *testing.T) {
	r := newRouter(AuthConfig{})

	w := get(r, func(req *http.Request) { req.AddCookie(&http.Cookie{Name: TokenCookie, Value: "opaque"}) })
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"","username":"","forwarded":"opaque"}`, w.Body.String())
}

func TestRequestID(t *testing.T) {
	r := newRouter(AuthConfig{})

	w := get(r, func(req *http.Request) { req.Header.Set("X-Request-ID", "req-42") })
	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))

	w = get(r, nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("https://whp.example.com/"))
	r.GET("/p", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/p", nil)
	req.Header.Set("Origin", "https://whp.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://whp.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
