package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picstream/service/internal/auth"
)

// gatedHandler returns a protected handler and a flag recording whether it ran.
func gatedHandler(verifier Verifier) (http.Handler, *atomic.Bool) {
	var called atomic.Bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
		w.WriteHeader(http.StatusOK)
	})
	return RequireAuthorized(verifier)(next), &called
}

func withCredentials(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: "username", Value: "alice"})
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "tok-123"})
	return req
}

func TestRequireAuthorized_MissingCredentials(t *testing.T) {
	t.Parallel()

	var verifierCalls atomic.Int32
	verifierSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verifierCalls.Add(1)
	}))
	defer verifierSrv.Close()

	handler, called := gatedHandler(auth.NewClient(verifierSrv.URL, time.Second))

	tests := []struct {
		name    string
		cookies []*http.Cookie
	}{
		{name: "no cookies"},
		{name: "missing access_token", cookies: []*http.Cookie{{Name: "username", Value: "alice"}}},
		{name: "missing username", cookies: []*http.Cookie{{Name: "access_token", Value: "tok"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for _, c := range tt.cookies {
				req.AddCookie(c)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	assert.False(t, called.Load(), "handler must never run without both credentials")
	assert.Zero(t, verifierCalls.Load(), "verifier must not be consulted without both credentials")
}

func TestRequireAuthorized_Verified(t *testing.T) {
	t.Parallel()

	var verifierCalls atomic.Int32
	verifierSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		verifierCalls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer verifierSrv.Close()

	handler, called := gatedHandler(auth.NewClient(verifierSrv.URL, time.Second))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withCredentials(httptest.NewRequest(http.MethodGet, "/", nil)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called.Load())
	assert.Equal(t, int32(1), verifierCalls.Load(), "exactly one verification call per request")
}

func TestRequireAuthorized_Rejected(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusInternalServerError} {
		verifierSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		handler, called := gatedHandler(auth.NewClient(verifierSrv.URL, time.Second))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, withCredentials(httptest.NewRequest(http.MethodGet, "/", nil)))

		// Any non-2xx verifier status is a rejection, not an infrastructure error.
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "verifier status %d", status)
		assert.False(t, called.Load())
		verifierSrv.Close()
	}
}

func TestRequireAuthorized_VerifierUnreachable(t *testing.T) {
	t.Parallel()

	verifierSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	verifierSrv.Close() // transport fault: nothing listens anymore

	handler, called := gatedHandler(auth.NewClient(verifierSrv.URL, time.Second))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withCredentials(httptest.NewRequest(http.MethodGet, "/", nil)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, called.Load())
}

func TestRequireAuthorized_InjectsUsername(t *testing.T) {
	t.Parallel()

	verifierSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer verifierSrv.Close()

	var gotUsername string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUsername, _ = r.Context().Value(UsernameKey).(string)
	})
	handler := RequireAuthorized(auth.NewClient(verifierSrv.URL, time.Second))(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withCredentials(httptest.NewRequest(http.MethodGet, "/", nil)))

	assert.Equal(t, "alice", gotUsername)
}

func TestClient_SendsCredentialPair(t *testing.T) {
	t.Parallel()

	var gotBody map[string]string
	verifierSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer verifierSrv.Close()

	client := auth.NewClient(verifierSrv.URL, time.Second)
	ok, err := client.Verify(context.Background(), "alice", "tok-123")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, map[string]string{"username": "alice", "access_token": "tok-123"}, gotBody)
}
