package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_DecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))
		fmt.Fprint(w, `{"name":"probe","count":3}`)
	}))
	defer srv.Close()

	var out struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	client := NewClient("test", srv.URL, "secret", "X-API-KEY")
	require.NoError(t, client.GetJSON(context.Background(), "/v1/thing", &out))
	assert.Equal(t, "probe", out.Name)
	assert.Equal(t, 3, out.Count)
}

func TestClient_StatusTaxonomy(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusInternalServerError, ErrTransient},
		{http.StatusBadGateway, ErrTransient},
		{http.StatusTeapot, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			var out struct{}
			err := NewClient("test", srv.URL, "", "").GetJSON(context.Background(), "/", &out)
			assert.Equal(t, tt.want, KindOf(err))
		})
	}
}

func TestClient_AuthRejectionDisablesProvider(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient("test", srv.URL, "bad-key", "X-API-KEY")
	var out struct{}

	err := client.GetJSON(context.Background(), "/", &out)
	assert.Equal(t, ErrAuth, KindOf(err))

	// The breaker fails fast now; the source never sees the second call
	err = client.GetJSON(context.Background(), "/", &out)
	assert.Equal(t, ErrAuth, KindOf(err))
	assert.Equal(t, int64(1), calls.Load())
}

func TestClient_UndecodableBodyIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html>not json</html>")
	}))
	defer srv.Close()

	var out struct{}
	err := NewClient("test", srv.URL, "", "").GetJSON(context.Background(), "/", &out)
	assert.Equal(t, ErrMalformed, KindOf(err))
}
