package market

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
)

func setupMarketService(t *testing.T) *Service {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// Each pooled connection would get its own in-memory database.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(StocksSchema)
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewStockRepository(db, log)
	return NewService(repo, events.NewManager(nil, log), log)
}

func TestService_SeedIsIdempotent(t *testing.T) {
	svc := setupMarketService(t)

	require.NoError(t, svc.Seed())
	require.NoError(t, svc.Seed())

	stocks, err := svc.List()
	require.NoError(t, err)
	assert.Len(t, stocks, len(seedStocks), "seeding twice must not duplicate")

	aapl, err := svc.Get("AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc.", aapl.CompanyName)
	assert.True(t, aapl.CurrentPrice.Equal(decimal.RequireFromString("175.50")))
}

func TestService_AddAndGet(t *testing.T) {
	svc := setupMarketService(t)

	stock, err := svc.Add("shop", "Shopify Inc.", decimal.RequireFromString("72.40"))
	require.NoError(t, err)
	assert.Equal(t, "SHOP", stock.Symbol, "symbol is normalized on the way in")
	assert.Greater(t, stock.ID, int64(0))

	loaded, err := svc.Get("  shop ")
	require.NoError(t, err)
	assert.True(t, loaded.CurrentPrice.Equal(decimal.RequireFromString("72.40")))

	assert.True(t, svc.Exists("SHOP"))
	assert.False(t, svc.Exists("NOPE"))

	price, ok := svc.CurrentPrice("shop")
	assert.True(t, ok)
	assert.True(t, price.Equal(decimal.RequireFromString("72.40")))

	_, ok = svc.CurrentPrice("NOPE")
	assert.False(t, ok)
}

func TestService_AddRejectsInvalidAndDuplicate(t *testing.T) {
	svc := setupMarketService(t)

	_, err := svc.Add("", "No Symbol Corp", decimal.RequireFromString("10.00"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.Add("NEG", "Negative Corp", decimal.RequireFromString("-1.00"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.Add("DUP", "Dup Corp", decimal.RequireFromString("10.00"))
	require.NoError(t, err)
	_, err = svc.Add("dup", "Dup Again Corp", decimal.RequireFromString("11.00"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument, "duplicate symbol must be rejected")
}

func TestService_GetUnknownSymbol(t *testing.T) {
	svc := setupMarketService(t)

	_, err := svc.Get("NOPE")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_UpdatePriceComputesChange(t *testing.T) {
	svc := setupMarketService(t)

	_, err := svc.Add("AAPL", "Apple Inc.", decimal.RequireFromString("200.00"))
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePrice("AAPL", decimal.RequireFromString("210.00")))

	stock, err := svc.Get("AAPL")
	require.NoError(t, err)
	assert.True(t, stock.CurrentPrice.Equal(decimal.RequireFromString("210.00")))
	assert.True(t, stock.ChangePct.Equal(decimal.RequireFromString("5.00")),
		"200 -> 210 is +5%%, got %s", stock.ChangePct)

	err = svc.UpdatePrice("AAPL", decimal.Zero)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	err = svc.UpdatePrice("NOPE", decimal.RequireFromString("10.00"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_Search(t *testing.T) {
	svc := setupMarketService(t)
	require.NoError(t, svc.Seed())

	results, err := svc.Search("apple")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "AAPL", results[0].Symbol)

	results, err = svc.Search("")
	require.NoError(t, err)
	assert.Len(t, results, len(seedStocks), "empty term returns everything")
}

func TestSimulatorJob_KeepsPricesPositive(t *testing.T) {
	svc := setupMarketService(t)

	_, err := svc.Add("TINY", "Tiny Corp", decimal.RequireFromString("0.02"))
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	job := NewSimulatorJob(svc, 0.5, log)

	for i := 0; i < 20; i++ {
		require.NoError(t, job.Run())
	}

	stock, err := svc.Get("TINY")
	require.NoError(t, err)
	assert.True(t, stock.CurrentPrice.GreaterThanOrEqual(decimal.RequireFromString("0.01")),
		"simulated price must never fall below a cent, got %s", stock.CurrentPrice)
}
