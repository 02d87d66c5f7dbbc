package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mintToken(t *testing.T, secret []byte, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, adminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func authProbe(t *testing.T, secret []byte, authorization string) int {
	t.Helper()
	called := false
	h := WithAdminAuth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/working-hours", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code == http.StatusNoContent && !called {
		t.Fatal("handler not reached despite success status")
	}
	return rec.Code
}

func TestWithAdminAuth(t *testing.T) {
	secret := []byte("test-secret")

	if code := authProbe(t, secret, "Bearer "+mintToken(t, secret, "admin")); code != http.StatusNoContent {
		t.Fatalf("valid admin token: status = %d", code)
	}
	if code := authProbe(t, secret, ""); code != http.StatusUnauthorized {
		t.Fatalf("missing token: status = %d", code)
	}
	if code := authProbe(t, secret, "Bearer not.a.token"); code != http.StatusUnauthorized {
		t.Fatalf("garbage token: status = %d", code)
	}
	if code := authProbe(t, secret, "Bearer "+mintToken(t, []byte("other-secret"), "admin")); code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: status = %d", code)
	}
	if code := authProbe(t, secret, "Bearer "+mintToken(t, secret, "client")); code != http.StatusForbidden {
		t.Fatalf("non-admin role: status = %d", code)
	}
}
