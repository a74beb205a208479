package middlewares

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"
	"github.com/mbolis/formify/httpx"
	"github.com/mbolis/formify/log"
)

// Authenticated checks the bearer token and the 'user' role it carries.
func Authenticated(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(oauth.Authorize(secret, nil), requireRole(httpx.RoleUser)).Handler(next)
	}
}

// OptionalAuth reads the bearer token when there is one. A missing or
// rejected token lets the request through anonymously.
func OptionalAuth(secret string) func(http.Handler) http.Handler {
	authorize := oauth.Authorize(secret, nil)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}

			passed := false
			buf := httpx.NewResponseBuffer()
			authorize(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				passed = true
				next.ServeHTTP(w, r)
			})).ServeHTTP(buf, r)
			if passed {
				return
			}

			log.Debugf("auth.optional: rejected token (%d)", buf.Status())
			r.Header.Del("authorization")
			next.ServeHTTP(w, r)
		})
	}
}

// TokenParam moves an access_token query parameter into the Authorization
// header. Browsers cannot set headers on a websocket handshake.
func TokenParam(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := r.URL.Query().Get("access_token"); token != "" && r.Header.Get("authorization") == "" {
			r.Header.Set("authorization", "Bearer "+token)
		}
		next.ServeHTTP(w, r)
	})
}

func requireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !HasRole(r, role) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func claims(r *http.Request) map[string]string {
	claims, _ := r.Context().Value(oauth.ClaimsContext).(map[string]string)
	return claims
}

func HasRole(r *http.Request, role string) bool {
	if rolesClaim, ok := claims(r)["roles"]; ok {
		for _, have := range strings.Split(rolesClaim, ",") {
			if have == role {
				return true
			}
		}
	}
	return false
}

// UserID is the id of the authenticated user, if any.
func UserID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(claims(r)["user_id"])
	if err != nil {
		return 0, false
	}
	return id, true
}
