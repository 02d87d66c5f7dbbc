package handlers

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"salonbook/libs/httpx"
)

type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// WithAdminAuth guards admin routes with a bearer token minted by the
// external auth provider. Only verification happens here (HS256 with a
// shared secret); there is no session state.
func WithAdminAuth(secret []byte) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if !strings.HasPrefix(raw, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims := &adminClaims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(raw, "Bearer "), claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			if claims.Role != "admin" {
				http.Error(w, "admin role required", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
