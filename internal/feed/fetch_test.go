package feed

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wormsign/internal/model"
)

func testFetcher() *Fetcher {
	return New(Options{
		AllowPrivate:      true,
		Insecure:          true,
		RetryMax:          0,
		RequestsPerSecond: 1000,
	})
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/list.csv", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "worm-sign", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte("package_name,package_version\nleft-pad,1.3.0\nevil,\n"))
	})
	mux.HandleFunc("/list.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"packages":[{"name":"left-pad","version":"1.3.0","reason":"json"},{"name":"other","version":"2.0.0"}]}`))
	})
	mux.HandleFunc("/bad.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	})
	mux.HandleFunc("/down", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})
	mux.HandleFunc("/hop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/list.csv", http.StatusMovedPermanently)
	})
	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchCSVAndJSON(t *testing.T) {
	srv := newServer(t)
	f := testFetcher()

	records, errs := f.Fetch(context.Background(), []Source{
		{Name: "csv", URL: srv.URL + "/list.csv", Format: FormatCSV},
		{Name: "json", URL: srv.URL + "/list.json", Format: FormatJSON},
	})
	assert.Empty(t, errs)
	assert.Equal(t, []model.CompromiseRecord{
		{Name: "left-pad", Version: "1.3.0"},
		{Name: "evil", Version: ""},
		{Name: "other", Version: "2.0.0"},
	}, records)
}

func TestFetchFollowsRedirect(t *testing.T) {
	srv := newServer(t)
	records, err := testFetcher().FetchOne(context.Background(), Source{Name: "hop", URL: srv.URL + "/hop", Format: FormatCSV})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestFetchErrorsAreCollected(t *testing.T) {
	srv := newServer(t)
	records, errs := testFetcher().Fetch(context.Background(), []Source{
		{Name: "down", URL: srv.URL + "/down", Format: FormatCSV},
		{Name: "bad", URL: srv.URL + "/bad.json", Format: FormatJSON},
		{Name: "loop", URL: srv.URL + "/loop", Format: FormatCSV},
		{Name: "ok", URL: srv.URL + "/list.csv", Format: FormatCSV},
	})
	assert.Len(t, records, 2)
	require.Len(t, errs, 3)
	assert.Equal(t, "Failed to fetch from down: API request failed with status 500", errs[0])
	assert.Equal(t, `Failed to fetch from bad: invalid API response: "packages" field must be an array`, errs[1])
	assert.Contains(t, errs[2], "Failed to fetch from loop:")
	assert.Contains(t, errs[2], ErrTooManyRedirects.Error())
}

func TestFetchRejectsPlainHTTP(t *testing.T) {
	_, err := testFetcher().FetchOne(context.Background(), Source{Name: "x", URL: "http://example.com/list.csv", Format: FormatCSV})
	assert.True(t, errors.Is(err, ErrInsecureScheme))
}

func TestFetchRejectsPrivateAddress(t *testing.T) {
	srv := newServer(t)
	f := New(Options{Insecure: true, RequestsPerSecond: 1000})

	_, err := f.FetchOne(context.Background(), Source{Name: "local", URL: srv.URL + "/list.csv", Format: FormatCSV})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrForbiddenAddress), "got %v", err)
}

func TestIsPrivateIP(t *testing.T) {
	private := []string{"10.1.2.3", "172.16.0.1", "172.31.255.255", "192.168.1.1", "127.0.0.1", "169.254.169.254", "::1", "fe80::1", "fd00::1", "0.0.0.0"}
	public := []string{"8.8.8.8", "172.32.0.1", "1.1.1.1", "2606:4700:4700::1111"}

	for _, s := range private {
		assert.True(t, IsPrivateIP(net.ParseIP(s)), s)
	}
	for _, s := range public {
		assert.False(t, IsPrivateIP(net.ParseIP(s)), s)
	}
}

func TestLookup(t *testing.T) {
	srcs, err := Lookup([]string{"koi", " DataDog "})
	require.NoError(t, err)
	require.Len(t, srcs, 2)
	assert.Equal(t, "koi", srcs[0].Name)
	assert.Equal(t, "datadog", srcs[1].Name)
	for _, s := range srcs {
		assert.True(t, strings.HasPrefix(s.URL, "https://"))
		assert.Equal(t, FormatCSV, s.Format)
	}

	_, err = Lookup([]string{"ibm"})
	assert.True(t, errors.Is(err, ErrUnknownSource))

	srcs, err = Lookup([]string{"koi", "all"})
	require.NoError(t, err)
	require.Len(t, srcs, 2)
	assert.Equal(t, "koi", srcs[0].Name)
	assert.Equal(t, "datadog", srcs[1].Name)
}

func TestCustom(t *testing.T) {
	s, err := Custom("https://feeds.example.com/iocs.json", "")
	require.NoError(t, err)
	assert.Equal(t, "feeds.example.com", s.Name)
	assert.Equal(t, FormatJSON, s.Format)

	_, err = Custom("https://feeds.example.com/x", "xml")
	assert.Error(t, err)

	_, err = Custom("not a url", "csv")
	assert.Error(t, err)
}
