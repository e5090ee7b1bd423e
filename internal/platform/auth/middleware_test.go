package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	tokenStr, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func validClaims(sub string, roles ...string) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: roles,
	}
}

// run executes mw around a handler that records the principal it saw.
func run(t *testing.T, mw echo.MiddlewareFunc, header, path string) (string, []string, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)

	var uid string
	var roles []string
	err := mw(func(c echo.Context) error {
		uid = UserIDFromContext(c.Request().Context())
		roles = RolesFromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	})(c)
	return uid, roles, err
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestJWTMiddleware_Rejects(t *testing.T) {
	expired := validClaims("u1", RoleStaff)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong key", "Bearer " + createTestToken(t, validClaims("u1"), []byte("other-key"))},
		{"expired", "Bearer " + createTestToken(t, expired, testSigningKey)},
		{"no subject", "Bearer " + createTestToken(t, validClaims("", RoleStaff), testSigningKey)},
	}

	mw := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, mw, tt.header, "/api/v1/doctors")
			expectStatus(t, err, http.StatusUnauthorized)
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})
	token := createTestToken(t, validClaims("user-42", RoleStaff, RoleViewer), testSigningKey)

	uid, roles, err := run(t, mw, "Bearer "+token, "/api/v1/doctors")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uid != "user-42" {
		t.Errorf("expected user-42, got %s", uid)
	}
	if len(roles) != 2 || roles[0] != RoleStaff {
		t.Errorf("unexpected roles %v", roles)
	}
}

func TestJWTMiddleware_IssuerAndAudience(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testSigningKey, Issuer: "https://idp", Audience: "doctor-api"})

	good := validClaims("u1")
	good.Issuer = "https://idp"
	good.Audience = jwt.ClaimStrings{"doctor-api"}
	if _, _, err := run(t, mw, "Bearer "+createTestToken(t, good, testSigningKey), "/x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := good
	bad.Audience = jwt.ClaimStrings{"someone-else"}
	_, _, err := run(t, mw, "Bearer "+createTestToken(t, bad, testSigningKey), "/x")
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestJWTMiddleware_RS256ViaJWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate RSA key: %v", err)
	}
	var fetches int32
	srv := newJWKSServer(t, &fetches, func(int32) []JWKSKey { return []JWKSKey{rsaPublicKeyToJWK(key, "rs1")} })

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims("rs-user", RoleAdmin))
	tok.Header["kid"] = "rs1"
	signed, err := tok.SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	uid, _, err := run(t, JWTMiddleware(JWTConfig{JWKSURL: srv.URL}), "Bearer "+signed, "/x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uid != "rs-user" {
		t.Errorf("expected rs-user, got %s", uid)
	}
}

func TestJWTMiddleware_Skipper(t *testing.T) {
	mw := JWTMiddleware(JWTConfig{SigningKey: testSigningKey, Skipper: AuthSkipper})

	if _, _, err := run(t, mw, "", "/health"); err != nil {
		t.Errorf("expected /health to skip auth, got %v", err)
	}
	_, _, err := run(t, mw, "", "/api/v1/doctors")
	expectStatus(t, err, http.StatusUnauthorized)
}

func TestDevAuthMiddleware(t *testing.T) {
	uid, roles, err := run(t, DevAuthMiddleware(nil), "", "/api/v1/doctors")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uid != "dev-user" {
		t.Errorf("expected dev-user, got %s", uid)
	}
	if len(roles) != 1 || roles[0] != RoleAdmin {
		t.Errorf("expected [admin], got %v", roles)
	}

	uid, _, _ = run(t, DevAuthMiddleware(nil), "Bearer something", "/api/v1/doctors")
	if uid != "" {
		t.Errorf("expected no default principal when a token is sent, got %s", uid)
	}

	uid, _, _ = run(t, DevAuthMiddleware(AuthSkipper), "", "/health")
	if uid != "" {
		t.Errorf("expected skipped path to have no principal, got %s", uid)
	}
}
