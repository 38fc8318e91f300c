package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_ExtractsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "netra-go")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body><p>Shiva is pure consciousness.</p><script>x()</script></body></html>`))
	}))
	defer srv.Close()

	doc, err := NewHTTPFetcher(0).Fetch(context.Background(), srv.URL+"/vbt.html")
	require.NoError(t, err)

	assert.Equal(t, "Shiva is pure consciousness.", doc.Content)
	assert.Equal(t, srv.URL+"/vbt.html", doc.ID)
}

func TestHTTPFetcher_PlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("  <not html> stays as is  "))
	}))
	defer srv.Close()

	doc, err := NewHTTPFetcher(0).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<not html> stays as is", doc.Content)
}

func TestHTTPFetcher_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(0)

	_, err := f.Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "status 404")

	for _, bad := range []string{"", "ftp://example.com/x", "not a url", "http://"} {
		_, err := f.Fetch(context.Background(), bad)
		assert.Error(t, err, bad)
	}
}
