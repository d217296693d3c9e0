package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
)

func signToken(t *testing.T, secret, userID string, expiresAt time.Time) string {
	t.Helper()
	claims := &AccessTokenCustomClaims{
		UserID: userID,
		StandardClaims: jwt.StandardClaims{
			Subject:   userID,
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	assert.NoError(t, err)
	return signed
}

func TestJWTAccessTokenMiddleware(t *testing.T) {
	manager := newJWTManagerWithSecret("test-secret")

	var gotUserID string
	handler := JWTAccessTokenMiddleware(manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// No Authorization header
	req := httptest.NewRequest(http.MethodGet, "/api/protected/items", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)

	// Expired token
	expired := signToken(t, "test-secret", "user-1", time.Now().Add(-time.Hour))
	req = httptest.NewRequest(http.MethodGet, "/api/protected/items", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)

	// Wrong secret
	forged := signToken(t, "other-secret", "user-1", time.Now().Add(time.Hour))
	req = httptest.NewRequest(http.MethodGet, "/api/protected/items", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)

	// Valid token passes through and exposes the user id
	valid := signToken(t, "test-secret", "user-1", time.Now().Add(time.Hour))
	req = httptest.NewRequest(http.MethodGet, "/api/protected/items", nil)
	req.Header.Set("Authorization", "Bearer "+valid)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Result().StatusCode)
	assert.Equal(t, "user-1", gotUserID)
}
