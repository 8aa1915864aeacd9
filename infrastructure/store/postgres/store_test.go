package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"listings-aggregator-api/core/interfaces"
	"listings-aggregator-api/infrastructure/store/storetest"
)

// Set TEST_POSTGRES_DSN to a disposable database to run these tests
func TestStoreContract(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) interfaces.ListingStore {
		ctx := context.Background()
		s, err := NewStore(ctx, dsn, 4)
		require.NoError(t, err)
		_, err = s.pool.Exec(ctx, "TRUNCATE listings")
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestNewStore_InvalidDSN(t *testing.T) {
	_, err := NewStore(context.Background(), "::not a dsn::", 1)
	require.Error(t, err)
}
