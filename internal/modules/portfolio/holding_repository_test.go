package portfolio

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupHoldingRepo(t *testing.T) *HoldingRepository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "Failed to open test database")
	t.Cleanup(func() { _ = db.Close() })

	// Each pooled connection would get its own in-memory database.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(HoldingsSchema)
	require.NoError(t, err, "Failed to create holdings table")

	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewHoldingRepository(db, log)
}

func TestHoldingRepository_UpsertAndGet(t *testing.T) {
	repo := setupHoldingRepo(t)

	err := repo.Upsert("alice", "AAPL", 10, decimal.RequireFromString("175.50"))
	assert.NoError(t, err)

	h, err := repo.GetByUserAndSymbol("alice", "AAPL")
	assert.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, int64(10), h.Quantity)
	assert.True(t, h.AvgPrice.Equal(decimal.RequireFromString("175.50")))

	// Second upsert replaces, it does not duplicate.
	err = repo.Upsert("alice", "AAPL", 20, decimal.RequireFromString("180.00"))
	assert.NoError(t, err)

	holdings, err := repo.GetByUser("alice")
	assert.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, int64(20), holdings[0].Quantity)
	assert.True(t, holdings[0].AvgPrice.Equal(decimal.RequireFromString("180.00")))
}

func TestHoldingRepository_GetMissingReturnsNil(t *testing.T) {
	repo := setupHoldingRepo(t)

	h, err := repo.GetByUserAndSymbol("alice", "AAPL")
	assert.NoError(t, err)
	assert.Nil(t, h)
}

func TestHoldingRepository_GetByUserInsertionOrder(t *testing.T) {
	repo := setupHoldingRepo(t)

	require.NoError(t, repo.Upsert("alice", "MSFT", 1, decimal.RequireFromString("380.90")))
	require.NoError(t, repo.Upsert("alice", "AAPL", 2, decimal.RequireFromString("175.50")))
	require.NoError(t, repo.Upsert("bob", "AAPL", 3, decimal.RequireFromString("175.50")))

	holdings, err := repo.GetByUser("alice")
	assert.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, "MSFT", holdings[0].Symbol, "insertion order, not alphabetical")
	assert.Equal(t, "AAPL", holdings[1].Symbol)
}

func TestHoldingRepository_Delete(t *testing.T) {
	repo := setupHoldingRepo(t)

	require.NoError(t, repo.Upsert("alice", "AAPL", 10, decimal.RequireFromString("175.50")))
	require.NoError(t, repo.Delete("alice", "AAPL"))

	h, err := repo.GetByUserAndSymbol("alice", "AAPL")
	assert.NoError(t, err)
	assert.Nil(t, h)

	holdings, err := repo.GetByUser("alice")
	assert.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestHoldingRepository_InTransactionCommits(t *testing.T) {
	repo := setupHoldingRepo(t)

	err := repo.InTransaction(func(store HoldingStore) error {
		if err := store.Upsert("alice", "AAPL", 10, decimal.RequireFromString("175.50")); err != nil {
			return err
		}
		return store.Upsert("alice", "MSFT", 5, decimal.RequireFromString("380.90"))
	})
	require.NoError(t, err)

	holdings, err := repo.GetByUser("alice")
	assert.NoError(t, err)
	assert.Len(t, holdings, 2)
}

func TestHoldingRepository_InTransactionRollsBack(t *testing.T) {
	repo := setupHoldingRepo(t)

	require.NoError(t, repo.Upsert("alice", "AAPL", 10, decimal.RequireFromString("175.50")))

	boom := errors.New("boom")
	err := repo.InTransaction(func(store HoldingStore) error {
		if err := store.Delete("alice", "AAPL"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	h, err := repo.GetByUserAndSymbol("alice", "AAPL")
	assert.NoError(t, err)
	require.NotNil(t, h, "a failed transaction leaves the position untouched")
	assert.Equal(t, int64(10), h.Quantity)
}
