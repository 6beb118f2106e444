package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"medreminder/internal/httputil"
)

// ScopeDispatch is the scope a token needs to trigger a cycle.
const ScopeDispatch = "dispatch"

// TriggerClaims are the claims carried by manual-trigger tokens.
type TriggerClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// RequireScope validates an HS256 bearer token and checks its scope claim.
func RequireScope(jwtSecret, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenString string

			// Expected format: "Bearer <token>"
			parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenString = strings.TrimSpace(parts[1])
			}
			if tokenString == "" {
				httputil.WriteUnauthorized(w, "Missing authentication token")
				return
			}

			claims := &TriggerClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(jwtSecret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					httputil.WriteUnauthorizedWithCode(w, httputil.ErrCodeTokenExpired, "Token has expired")
					return
				}
				httputil.WriteUnauthorizedWithCode(w, httputil.ErrCodeTokenInvalid, "Invalid authentication token")
				return
			}
			if !token.Valid {
				httputil.WriteUnauthorizedWithCode(w, httputil.ErrCodeTokenInvalid, "Invalid authentication token")
				return
			}

			if claims.Scope != scope {
				httputil.WriteForbidden(w, "Token lacks the required scope")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
