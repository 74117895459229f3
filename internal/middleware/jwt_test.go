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
	"go.uber.org/zap"

	"github.com/plm-registrar/enrollment-api/internal/models"
	"github.com/plm-registrar/enrollment-api/internal/service"
	"github.com/plm-registrar/enrollment-api/pkg/config"
)

func newJWTRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := service.NewAuthService(nil, nil, zap.NewNop(), config.JWTConfig{Secret: secret, Expiration: time.Hour})
	r := gin.New()
	r.GET("/protected", JWT(auth), func(c *gin.Context) {
		claims := c.MustGet(ContextStudentKey).(*models.JWTClaims)
		c.String(http.StatusOK, claims.StudentID)
	})
	return r
}

func signToken(t *testing.T, secret string, expires time.Duration) string {
	t.Helper()
	now := time.Now().UTC()
	claims := &models.JWTClaims{
		StudentID: "2021-00123",
		FullName:  "Juan Dela Cruz",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "2021-00123",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expires)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestJWTMiddlewareAllowsValidToken(t *testing.T) {
	r := newJWTRouter("test-signing-key")
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "test-signing-key", time.Hour))

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2021-00123", w.Body.String())
}

func TestJWTMiddlewareRejectsMissingHeader(t *testing.T) {
	r := newJWTRouter("test-signing-key")
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)

	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddlewareRejectsMalformedHeader(t *testing.T) {
	r := newJWTRouter("test-signing-key")
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")

	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMiddlewareRejectsExpiredToken(t *testing.T) {
	r := newJWTRouter("test-signing-key")
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "test-signing-key", -time.Hour))

	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
