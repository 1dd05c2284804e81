package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, role, ok := UserFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		w.Header().Set("X-User", id)
		w.Header().Set("X-Role", role)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_ValidBearer(t *testing.T) {
	key := newTestKey(t)
	tok, err := SignToken(key, "user-1", "tenant", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	AuthMiddleware(&key.PublicKey)(echoUser()).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "user-1", rr.Header().Get("X-User"))
	require.Equal(t, "tenant", rr.Header().Get("X-Role"))
}

func TestAuthMiddleware_Cookie(t *testing.T) {
	key := newTestKey(t)
	tok, err := SignToken(key, "user-2", "landlord", time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookieName, Value: tok})
	rr := httptest.NewRecorder()
	AuthMiddleware(&key.PublicKey)(echoUser()).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "landlord", rr.Header().Get("X-Role"))
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	key := newTestKey(t)
	other := newTestKey(t)

	expired, err := SignToken(key, "user-1", "tenant", -time.Minute)
	require.NoError(t, err)
	wrongKey, err := SignToken(other, "user-1", "tenant", time.Minute)
	require.NoError(t, err)
	noRole, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": TokenIssuer, "sub": "user-1", "exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString(key)
	require.NoError(t, err)
	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": "someone-else", "sub": "user-1", "role": "tenant", "exp": time.Now().Add(time.Minute).Unix(),
	}).SignedString(key)
	require.NoError(t, err)

	cases := map[string]string{
		"missing":      "",
		"malformed":    "Token abc",
		"expired":      "Bearer " + expired,
		"wrong key":    "Bearer " + wrongKey,
		"no role":      "Bearer " + noRole,
		"wrong issuer": "Bearer " + wrongIssuer,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rr := httptest.NewRecorder()
			AuthMiddleware(&key.PublicKey)(echoUser()).ServeHTTP(rr, req)
			require.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}

func TestRequireRoles(t *testing.T) {
	key := newTestKey(t)
	handler := AuthMiddleware(&key.PublicKey)(RequireRoles("admin")(echoUser()))

	for role, want := range map[string]int{"admin": http.StatusOK, "tenant": http.StatusForbidden} {
		tok, err := SignToken(key, "user-1", role, time.Minute)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, want, rr.Code, "role %s", role)
	}
}
