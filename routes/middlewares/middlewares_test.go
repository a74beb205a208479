package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/oauth"
	"github.com/stretchr/testify/assert"
)

func withClaims(r *http.Request, claims map[string]string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), oauth.ClaimsContext, claims))
}

func TestClaims(t *testing.T) {
	r := withClaims(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{
		"roles":   "user,staff",
		"user_id": "42",
	})

	id, ok := UserID(r)
	assert.True(t, ok)
	assert.Equal(t, 42, id)
	assert.True(t, HasRole(r, "user"))
	assert.True(t, HasRole(r, "staff"))
	assert.False(t, HasRole(r, "admin"))
}

func TestClaims_Anonymous(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := UserID(r)
	assert.False(t, ok)
	assert.False(t, HasRole(r, "user"))
}

func TestRequireRole(t *testing.T) {
	h := requireRole("staff")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, withClaims(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"roles": "user"}))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, withClaims(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"roles": "user,staff"}))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestTokenParam(t *testing.T) {
	var got string
	h := TokenParam(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("authorization")
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ws?access_token=abc", nil))
	assert.Equal(t, "Bearer abc", got)

	r := httptest.NewRequest(http.MethodGet, "/ws?access_token=abc", nil)
	r.Header.Set("authorization", "Bearer header")
	h.ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, "Bearer header", got)
}

func TestOptionalAuth_RejectedTokenIsAnonymous(t *testing.T) {
	var called bool
	var authorization string
	h := OptionalAuth("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		authorization = r.Header.Get("authorization")
		_, ok := UserID(r)
		assert.False(t, ok)
		w.WriteHeader(http.StatusNoContent)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	assert.True(t, called)
	assert.Empty(t, authorization)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
