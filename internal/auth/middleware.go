package auth

import (
	"net/http"
	"strings"

	"github.com/carryon-collective/carryon/internal/middleware"
)

// Authenticate is HTTP middleware that validates a bearer access token and
// attaches the authenticated user ID to the request context. Requests without
// an Authorization header pass through unauthenticated; the rate limiter then
// falls back to IP keying and handlers see an empty user ID.
func Authenticate(svc *JWTService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				writeAuthError(w, r, "Authorization header must use the Bearer scheme")
				return
			}

			claims, err := svc.ValidateToken(tokenString)
			if err != nil {
				writeAuthError(w, r, "Invalid or expired token")
				return
			}
			if claims.Type != TokenTypeAccess {
				writeAuthError(w, r, "Token is not an access token")
				return
			}

			ctx := middleware.SetUserID(r.Context(), claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeAuthError writes a 401 with the API error envelope. It avoids
// importing the api package to keep the dependency direction one-way.
func writeAuthError(w http.ResponseWriter, r *http.Request, message string) {
	middleware.UpdateResponseContext(w, middleware.SetErrorCode(r.Context(), "auth_failed"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":{"code":"auth_failed","message":"` + message + `"}}`))
}
