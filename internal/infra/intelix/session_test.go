package intelix

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/automaton-filecheck/internal/domain/filecheck"
)

func newAuthServer(t *testing.T, logins *int32, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(logins, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSession_loginSendsBasicCredentials(t *testing.T) {
	var logins int32
	srv := newAuthServer(t, &logins, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Basic Y2xpZW50OnNlY3JldA==", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		w.Write([]byte(`{"access_token":"tok-1"}`))
	})

	s := NewSession("Y2xpZW50OnNlY3JldA==", srv.URL, srv.Client())
	token, err := s.EnsureAuthenticated(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, "tok-1", s.Token())
}

func TestSession_idempotent(t *testing.T) {
	var logins int32
	srv := newAuthServer(t, &logins, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok-1"}`))
	})

	s := NewSession("creds", srv.URL, srv.Client())
	first, err := s.EnsureAuthenticated(context.Background())
	require.NoError(t, err)
	second, err := s.EnsureAuthenticated(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&logins))
}

func TestSession_concurrentFirstUseLogsInOnce(t *testing.T) {
	var logins int32
	srv := newAuthServer(t, &logins, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok-1"}`))
	})

	s := NewSession("creds", srv.URL, srv.Client())
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := s.EnsureAuthenticated(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "tok-1", token)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&logins))
}

func TestSession_missingCredentials(t *testing.T) {
	var logins int32
	srv := newAuthServer(t, &logins, func(w http.ResponseWriter, r *http.Request) {})

	s := NewSession("", srv.URL, srv.Client())
	_, err := s.EnsureAuthenticated(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, filecheck.ErrConfiguration))
	assert.Zero(t, atomic.LoadInt32(&logins))
}

func TestSession_failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"unauthorized": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_client"}`))
		},
		"malformed": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		},
		"missing token": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"token_type":"bearer"}`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			var logins int32
			srv := newAuthServer(t, &logins, h)
			s := NewSession("creds", srv.URL, srv.Client())

			_, err := s.EnsureAuthenticated(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, filecheck.ErrAuthentication))
			assert.Empty(t, s.Token())
		})
	}
}

func TestSession_networkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := NewSession("creds", url, nil)
	_, err := s.EnsureAuthenticated(context.Background())
	assert.True(t, errors.Is(err, filecheck.ErrAuthentication))
}

func TestSession_reset(t *testing.T) {
	var logins int32
	srv := newAuthServer(t, &logins, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"tok"}`))
	})

	s := NewSession("creds", srv.URL, srv.Client())
	_, err := s.EnsureAuthenticated(context.Background())
	require.NoError(t, err)
	s.Reset()
	assert.Empty(t, s.Token())
	_, err = s.EnsureAuthenticated(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&logins))
}
