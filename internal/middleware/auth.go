package middleware

import (
	"net/http"

	"shopora-be/internal/auth"
	"shopora-be/internal/utils"

	"github.com/golang-jwt/jwt/v5"
)

// Auth parses the bearer token (or cookie) and, when valid, stores the user
// identity in the request context. Requests without a usable token pass
// through anonymously; handlers decide whether identity is required.
func Auth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, guestContext(r))
				return
			}

			token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
				return secret, nil
			})
			if err != nil || !token.Valid {
				next.ServeHTTP(w, guestContext(r))
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				next.ServeHTTP(w, guestContext(r))
				return
			}

			uid, _ := claims["user_id"].(float64)
			email, _ := claims["email"].(string)
			role, _ := claims["role"].(string)

			ctx := utils.SetUserContext(r.Context(), uint(uid), email, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// guestContext keys anonymous callers by the opaque cart token header so the
// session-held guest cart can be resolved.
func guestContext(r *http.Request) *http.Request {
	if token := r.Header.Get("X-Guest-Token"); token != "" {
		return r.WithContext(utils.SetGuestToken(r.Context(), token))
	}
	return r
}

// RequireUser rejects requests that carry no authenticated identity.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
			utils.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests without the admin role claim.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !utils.IsAdmin(r.Context()) {
			utils.WriteJSONError(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
