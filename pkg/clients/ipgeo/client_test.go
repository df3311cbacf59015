package ipgeo

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) Client {
	t.Helper()
	return serveAs(t, status, "application/json", body)
}

func serveAs(t *testing.T, status int, contentType, body string) Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/", r.URL.Path)
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 0)
}

func TestLookup(t *testing.T) {
	client := serve(t, http.StatusOK, `{"ip":"1.2.3.4","city":"Bengaluru","country_name":"India","latitude":12.97,"longitude":77.59}`)

	loc, err := client.Lookup(context.Background())
	require.NoError(t, err)
	assert.True(t, loc.HasCoordinates())
	assert.Equal(t, 12.97, loc.Latitude)
	assert.Equal(t, "Bengaluru", loc.City)
}

func TestLookup_MissingCoordinates(t *testing.T) {
	client := serve(t, http.StatusOK, `{"ip":"10.0.0.1","reserved":true}`)

	loc, err := client.Lookup(context.Background())
	require.NoError(t, err)
	assert.False(t, loc.HasCoordinates())
}

func TestLookup_ProviderRefusalHasNoCoordinates(t *testing.T) {
	client := serve(t, http.StatusOK, `{"error":true,"reason":"RateLimited"}`)

	loc, err := client.Lookup(context.Background())
	require.NoError(t, err)
	assert.False(t, loc.HasCoordinates())
	assert.True(t, loc.Error)
	assert.Equal(t, "RateLimited", loc.Reason)
}

func TestLookup_JSONErrorStatusHasNoCoordinates(t *testing.T) {
	client := serve(t, http.StatusTooManyRequests, `{"error":true}`)

	loc, err := client.Lookup(context.Background())
	require.NoError(t, err)
	assert.False(t, loc.HasCoordinates())
	assert.Contains(t, loc.Reason, "429")
}

func TestLookup_NonJSONBodyFails(t *testing.T) {
	client := serveAs(t, http.StatusBadGateway, "text/html", `<html>bad gateway</html>`)

	_, err := client.Lookup(context.Background())
	require.Error(t, err)
}
