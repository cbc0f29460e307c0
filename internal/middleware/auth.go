package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cxworkforce/presencia/config"
	"github.com/go-chi/jwtauth/v5"
)

// AddUserIDToContext extracts user_id from the verified JWT and stores it in
// the request context under config.UserIDKey.
func AddUserIDToContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, _, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				next.ServeHTTP(w, r)
				return
			}
			claims := token.PrivateClaims()
			var userID int
			if rawID, ok := claims["user_id"]; ok {
				switch v := rawID.(type) {
				case float64:
					userID = int(v)
				case int:
					userID = v
				case string:
					if id, err := strconv.Atoi(v); err == nil {
						userID = id
					}
				}
			}
			if userID != 0 {
				ctx := context.WithValue(r.Context(), config.UserIDKey, userID)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetUserIDFromContext returns the user id placed by AddUserIDToContext.
func GetUserIDFromContext(ctx context.Context) (int, bool) {
	if val := ctx.Value(config.UserIDKey); val != nil {
		if id, ok := val.(int); ok {
			return id, true
		}
	}
	return 0, false
}
