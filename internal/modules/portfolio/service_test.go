package portfolio

import (
	"database/sql"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
)

// stubQuotes is a fixed price table
type stubQuotes map[string]decimal.Decimal

func (q stubQuotes) CurrentPrice(symbol string) (decimal.Decimal, bool) {
	price, ok := q[symbol]
	return price, ok
}

func setupPortfolioService(t *testing.T, quotes stubQuotes) *Service {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// Each pooled connection would get its own in-memory database.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(HoldingsSchema)
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewHoldingRepository(db, log)
	return NewService(repo, quotes, events.NewManager(nil, log), log)
}

func TestService_BuyRecomputesAveragePrice(t *testing.T) {
	svc := setupPortfolioService(t, stubQuotes{})

	// 10 @ 175.50 then 10 @ 184.50 averages to 180.00.
	require.NoError(t, svc.ApplyTrade("alice", "AAPL", true, 10, decimal.RequireFromString("175.50")))
	require.NoError(t, svc.ApplyTrade("alice", "AAPL", true, 10, decimal.RequireFromString("184.50")))

	h, err := svc.Holding("alice", "AAPL")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, int64(20), h.Quantity)
	assert.True(t, h.AvgPrice.Equal(decimal.RequireFromString("180.00")),
		"expected 180.00, got %s", h.AvgPrice)
}

func TestService_AveragePriceRoundsHalfUp(t *testing.T) {
	svc := setupPortfolioService(t, stubQuotes{})

	// (1*100.00 + 2*100.05)/3 = 100.0333... rounds to 100.03
	require.NoError(t, svc.ApplyTrade("alice", "AAPL", true, 1, decimal.RequireFromString("100.00")))
	require.NoError(t, svc.ApplyTrade("alice", "AAPL", true, 2, decimal.RequireFromString("100.05")))

	h, err := svc.Holding("alice", "AAPL")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.True(t, h.AvgPrice.Equal(decimal.RequireFromString("100.03")),
		"expected 100.03, got %s", h.AvgPrice)
}

func TestService_SellKeepsAveragePrice(t *testing.T) {
	svc := setupPortfolioService(t, stubQuotes{})

	require.NoError(t, svc.ApplyTrade("alice", "AAPL", true, 20, decimal.RequireFromString("180.00")))
	require.NoError(t, svc.ApplyTrade("alice", "AAPL", false, 5, decimal.RequireFromString("250.00")))

	h, err := svc.Holding("alice", "AAPL")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, int64(15), h.Quantity)
	assert.True(t, h.AvgPrice.Equal(decimal.RequireFromString("180.00")),
		"selling must not touch the average purchase price")
}

func TestService_SellToZeroDeletesHolding(t *testing.T) {
	svc := setupPortfolioService(t, stubQuotes{})

	require.NoError(t, svc.ApplyTrade("alice", "AAPL", true, 10, decimal.RequireFromString("175.50")))
	require.NoError(t, svc.ApplyTrade("alice", "AAPL", false, 10, decimal.RequireFromString("175.50")))

	h, err := svc.Holding("alice", "AAPL")
	require.NoError(t, err)
	assert.Nil(t, h, "a fully sold position disappears")

	holdings, err := svc.Holdings("alice")
	require.NoError(t, err)
	assert.Empty(t, holdings)
}

func TestService_OversellLeavesPositionUntouched(t *testing.T) {
	svc := setupPortfolioService(t, stubQuotes{})

	require.NoError(t, svc.ApplyTrade("alice", "AAPL", true, 10, decimal.RequireFromString("175.50")))

	err := svc.ApplyTrade("alice", "AAPL", false, 11, decimal.RequireFromString("175.50"))
	assert.ErrorIs(t, err, domain.ErrInsufficientHoldings)

	err = svc.ApplyTrade("alice", "MSFT", false, 1, decimal.RequireFromString("380.90"))
	assert.ErrorIs(t, err, domain.ErrInsufficientHoldings, "selling a symbol never held")

	h, err := svc.Holding("alice", "AAPL")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, int64(10), h.Quantity)
	assert.True(t, h.AvgPrice.Equal(decimal.RequireFromString("175.50")))
}

func TestService_ApplyTradeValidation(t *testing.T) {
	svc := setupPortfolioService(t, stubQuotes{})

	assert.ErrorIs(t, svc.ApplyTrade("", "AAPL", true, 10, decimal.RequireFromString("1.00")), domain.ErrInvalidArgument)
	assert.ErrorIs(t, svc.ApplyTrade("alice", "", true, 10, decimal.RequireFromString("1.00")), domain.ErrInvalidArgument)
	assert.ErrorIs(t, svc.ApplyTrade("alice", "AAPL", true, 0, decimal.RequireFromString("1.00")), domain.ErrInvalidArgument)
	assert.ErrorIs(t, svc.ApplyTrade("alice", "AAPL", true, 10, decimal.Zero), domain.ErrInvalidArgument)
}

func TestService_HasEnoughShares(t *testing.T) {
	svc := setupPortfolioService(t, stubQuotes{})

	require.NoError(t, svc.ApplyTrade("alice", "AAPL", true, 10, decimal.RequireFromString("175.50")))

	ok, err := svc.HasEnoughShares("alice", "AAPL", 10)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasEnoughShares("alice", "AAPL", 11)
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.HasEnoughShares("alice", "MSFT", 1)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestService_SummaryAndValuation(t *testing.T) {
	quotes := stubQuotes{
		"AAPL": decimal.RequireFromString("200.00"),
		"MSFT": decimal.RequireFromString("400.00"),
	}
	svc := setupPortfolioService(t, quotes)

	require.NoError(t, svc.ApplyTrade("alice", "AAPL", true, 10, decimal.RequireFromString("175.50")))
	require.NoError(t, svc.ApplyTrade("alice", "MSFT", true, 5, decimal.RequireFromString("380.90")))

	value, err := svc.TotalValue("alice")
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.RequireFromString("4000.00")), "10*200 + 5*400, got %s", value)

	summary, err := svc.Summary("alice")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.PositionCount)
	assert.True(t, summary.TotalCost.Equal(decimal.RequireFromString("3659.50")), "10*175.50 + 5*380.90")
	assert.True(t, summary.TotalGainLoss.Equal(decimal.RequireFromString("340.50")))
	// 340.50/3659.50 = 0.0930... -> 9.30%
	assert.True(t, summary.TotalGainLossPct.Equal(decimal.RequireFromString("9.30")),
		"expected 9.30, got %s", summary.TotalGainLossPct)
}

func TestService_TotalGainLoss(t *testing.T) {
	quotes := stubQuotes{
		"AAPL": decimal.RequireFromString("200.00"),
		"MSFT": decimal.RequireFromString("400.00"),
	}
	svc := setupPortfolioService(t, quotes)

	require.NoError(t, svc.ApplyTrade("alice", "AAPL", true, 10, decimal.RequireFromString("175.50")))
	require.NoError(t, svc.ApplyTrade("alice", "MSFT", true, 5, decimal.RequireFromString("380.90")))

	gainLoss, err := svc.TotalGainLoss("alice")
	require.NoError(t, err)
	// (200-175.50)*10 + (400-380.90)*5 = 245.00 + 95.50
	assert.True(t, gainLoss.Equal(decimal.RequireFromString("340.50")), "got %s", gainLoss)

	_, err = svc.TotalGainLoss("")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestService_ValuationSkipsUnquotedSymbols(t *testing.T) {
	svc := setupPortfolioService(t, stubQuotes{"AAPL": decimal.RequireFromString("200.00")})

	require.NoError(t, svc.ApplyTrade("alice", "AAPL", true, 10, decimal.RequireFromString("175.50")))
	require.NoError(t, svc.ApplyTrade("alice", "GONE", true, 5, decimal.RequireFromString("10.00")))

	value, err := svc.TotalValue("alice")
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.RequireFromString("2000.00")),
		"symbols without a quote contribute nothing, got %s", value)
}

func TestService_EmptyPortfolioSummary(t *testing.T) {
	svc := setupPortfolioService(t, stubQuotes{})

	summary, err := svc.Summary("alice")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.PositionCount)
	assert.True(t, summary.TotalValue.IsZero())
	assert.True(t, summary.TotalGainLossPct.IsZero(), "no cost basis means no percentage")
}

func TestService_ConcurrentBuysSerialize(t *testing.T) {
	svc := setupPortfolioService(t, stubQuotes{})

	const workers = 8
	const buysEach = 5

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < buysEach; j++ {
				if err := svc.ApplyTrade("alice", "AAPL", true, 1, decimal.RequireFromString("100.00")); err != nil {
					t.Error(err)
				}
			}
		}()
	}
	wg.Wait()

	h, err := svc.Holding("alice", "AAPL")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, int64(workers*buysEach), h.Quantity, "no lost updates under concurrency")
	assert.True(t, h.AvgPrice.Equal(decimal.RequireFromString("100.00")))
}
