package nodeapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/ergo-devnet-provisioning/nodeconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNode mimics the Ergo REST API key check.
func fakeNode(secret string) http.Handler {
	r := chi.NewRouter()
	r.Get("/info", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"ergo-mainnet-node-1"}`))
	})
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get(APIKeyHeader) != secret {
					w.WriteHeader(http.StatusForbidden)
					w.Write([]byte(`{"error":403,"reason":"Forbidden","detail":"Api key hash is not valid"}`))
					return
				}
				next.ServeHTTP(w, r)
			})
		})
		r.Get("/wallet/status", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"isInitialized":false,"isUnlocked":false}`))
		})
		r.Get("/broken", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
	})
	return r
}

func TestCheckKey(t *testing.T) {
	srv := httptest.NewServer(fakeNode("hello"))
	defer srv.Close()

	client := &Client{BaseURL: srv.URL + "/"}
	ctx := context.Background()

	testCases := []struct {
		name       string
		path       string
		secret     string
		accepted   bool
		statusCode int
		wantErr    bool
	}{
		{name: "valid key on default path", path: "", secret: "hello", accepted: true, statusCode: http.StatusOK},
		{name: "invalid key", path: "/wallet/status", secret: "hellO", accepted: false, statusCode: http.StatusForbidden},
		{name: "unauthenticated endpoint", path: "info", secret: "anything", accepted: true, statusCode: http.StatusOK},
		{name: "server error", path: "/broken", secret: "hello", statusCode: http.StatusInternalServerError, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := client.CheckKey(ctx, tc.path, tc.secret)
			if tc.wantErr {
				require.Error(t, err)
				require.NotNil(t, result)
				assert.Equal(t, tc.statusCode, result.StatusCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.accepted, result.Accepted)
			assert.Equal(t, tc.statusCode, result.StatusCode)
			assert.True(t, strings.HasPrefix(result.URL, srv.URL+"/"))
		})
	}
}

func TestCheckKeyUnreachable(t *testing.T) {
	srv := httptest.NewServer(fakeNode("hello"))
	url := srv.URL
	srv.Close()

	_, err := (&Client{BaseURL: url}).CheckKey(context.Background(), "", "hello")
	require.Error(t, err)
}

func TestNewClientForNode(t *testing.T) {
	c := NewClientForNode("localhost", nodeconfig.DefaultPorts, 3)
	require.Equal(t, "http://localhost:9502", c.BaseURL)
	require.NotNil(t, c.HTTPClient)
}

func TestCurlHint(t *testing.T) {
	require.Equal(t,
		"curl -H 'api_key: hello' http://localhost:9500/info",
		CurlHint("localhost", 9500, "hello"))
	require.Equal(t,
		`curl -H "api_key: $(cat '/srv/ergo/config/ergo-1.api.key')" http://localhost:9500/info`,
		CurlHintFromFile("localhost", 9500, "/srv/ergo/config/ergo-1.api.key"))
}
