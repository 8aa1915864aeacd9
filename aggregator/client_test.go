package aggregator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listings-aggregator-api/core/domain"
	"listings-aggregator-api/core/fetch"
	"listings-aggregator-api/core/reconcile"
)

const upstreamBody = `{"listings":[
	{"id":"1","address":"1 Elm","city":"Austin","price":500000},
	{"id":"2","address":"2 Oak","city":"Austin","price":650000},
	{"id":"3","address":"3 Pine","city":"Dallas","price":700000}
]}`

func newUpstream(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, url string, extra ...Option) *Client {
	t.Helper()
	opts := []Option{
		WithSources(Source{Name: "local", URL: url, Headers: map[string]string{"X-Key": "${LOCAL_KEY}"}}),
		WithCredentialLookup(func(key string) (string, bool) {
			return "secret", key == "LOCAL_KEY"
		}),
		WithFetchPolicy(fetch.Policy{Timeout: 2 * time.Second, Attempts: 1, HealthTimeout: 2 * time.Second}),
	}
	client, err := NewClient(append(opts, extra...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient()
	require.NoError(t, err)
	defer client.Close()

	assert.NotEmpty(t, client.Sources())
}

func TestNewClient_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"merge policy", WithMergePolicy("replace_all")},
		{"id mode", WithSyntheticIDMode("sequential")},
		{"fetch attempts", WithFetchPolicy(fetch.Policy{Attempts: 0})},
		{"store type", WithStoreOption(StoreOption{Type: "mongo"})},
		{"postgres without dsn", WithStoreOption(StoreOption{Type: StoreTypePostgres})},
		{"nil store", WithStore(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.opt)
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))
		})
	}
}

func TestClient_RefreshAndRead(t *testing.T) {
	upstream := newUpstream(t, upstreamBody)
	client := newTestClient(t, upstream.URL, WithMergePolicy(reconcile.PolicyPreserveNonEmpty))
	ctx := context.Background()

	summary, err := client.Refresh(ctx)
	require.NoError(t, err)
	outcome := summary.Sources["local"]
	assert.Equal(t, domain.OutcomeOK, outcome.Kind)
	assert.Equal(t, 3, outcome.Created)

	all, err := client.Listings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	austin, err := client.Search(ctx, Criteria{"city": "austin"})
	require.NoError(t, err)
	assert.Len(t, austin, 2)

	got, err := client.Get(ctx, all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, all[0].ExternalID, got.ExternalID)

	stats, at, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.False(t, at.IsZero())

	reports, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.HealthHealthy, reports["local"].Status)
}

func TestClient_Pagination(t *testing.T) {
	upstream := newUpstream(t, upstreamBody)
	client := newTestClient(t, upstream.URL)
	ctx := context.Background()

	page1, err := client.Listings(ctx, WithPagination(1, 2))
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page2, err := client.Listings(ctx, WithPagination(2, 2))
	require.NoError(t, err)
	assert.Len(t, page2, 1)

	page3, err := client.Listings(ctx, WithPagination(3, 2))
	require.NoError(t, err)
	assert.Empty(t, page3)
}

func TestClient_TranslatesErrors(t *testing.T) {
	upstream := newUpstream(t, upstreamBody)
	client := newTestClient(t, upstream.URL)
	ctx := context.Background()

	_, err := client.Search(ctx, Criteria{"min_price": "10", "max_price": "5"})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	_, err = client.Get(ctx, "missing")
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))

	_, err = client.Purge(ctx, "")
	assert.True(t, IsValidationError(err))
}

func TestClient_MissingCredential(t *testing.T) {
	upstream := newUpstream(t, upstreamBody)
	client, err := NewClient(
		WithSources(Source{Name: "local", URL: upstream.URL, Headers: map[string]string{"X-Key": "${NOPE}"}}),
		WithCredentialLookup(func(string) (string, bool) { return "", false }),
	)
	require.NoError(t, err)
	defer client.Close()

	summary, err := client.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeMisconfigured, summary.Sources["local"].Kind)
}

func TestClient_SQLiteStore(t *testing.T) {
	upstream := newUpstream(t, upstreamBody)
	path := filepath.Join(t.TempDir(), "listings.db")
	client := newTestClient(t, upstream.URL, WithStoreOption(StoreOption{Type: StoreTypeSQLite, FilePath: path}))

	_, err := client.Refresh(context.Background())
	require.NoError(t, err)

	n, err := client.Purge(context.Background(), "local")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestClient_Closed(t *testing.T) {
	client, err := NewClient()
	require.NoError(t, err)
	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, err = client.Listings(context.Background())
	assert.ErrorIs(t, err, ErrClientClosed)
}
