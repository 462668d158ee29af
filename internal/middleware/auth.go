package middleware

import (
	"context"
	"log"
	"net/http"

	"github.com/picstream/service/internal/response"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

// UsernameKey is the context key for the verified caller's username.
const UsernameKey contextKey = "username"

// Verifier decides whether a credential pair is authorized. A false result
// with a nil error is a normal rejection; a non-nil error means the decision
// could not be obtained at all.
type Verifier interface {
	Verify(ctx context.Context, username, accessToken string) (bool, error)
}

// RequireAuthorized returns middleware that gates every request on the external
// verifier. Both the username and access_token cookies must be present; the
// wrapped handler runs only after the verifier accepts the pair.
func RequireAuthorized(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, err := r.Cookie("username")
			if err != nil {
				response.BadRequest(w, "username cookie not available")
				return
			}
			accessToken, err := r.Cookie("access_token")
			if err != nil {
				response.BadRequest(w, "access_token cookie not available")
				return
			}

			authorized, err := verifier.Verify(r.Context(), username.Value, accessToken.Value)
			if err != nil {
				log.Printf("auth: verifier unreachable: %v", err)
				response.ServiceUnavailable(w, "authentication service not available")
				return
			}
			if !authorized {
				response.Unauthorized(w, "user is not authorized")
				return
			}

			ctx := context.WithValue(r.Context(), UsernameKey, username.Value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
