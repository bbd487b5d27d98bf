package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/papertrade/internal/events"
	"github.com/aristath/papertrade/internal/modules/market"
	"github.com/aristath/papertrade/internal/modules/portfolio"
)

func openMemoryDB(t *testing.T, schema string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.SetMaxOpenConns(1)

	_, err = db.Exec(schema)
	require.NoError(t, err)
	return db
}

// setupRouter wires the portfolio routes over seeded market quotes
func setupRouter(t *testing.T) (chi.Router, *portfolio.Service) {
	t.Helper()

	log := zerolog.New(nil).Level(zerolog.Disabled)
	eventManager := events.NewManager(nil, log)

	marketService := market.NewService(
		market.NewStockRepository(openMemoryDB(t, market.StocksSchema), log), eventManager, log)
	require.NoError(t, marketService.Seed())

	portfolioService := portfolio.NewService(
		portfolio.NewHoldingRepository(openMemoryDB(t, portfolio.HoldingsSchema), log),
		marketService, eventManager, log)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		NewHandler(portfolioService, log).RegisterRoutes(r)
	})
	return router, portfolioService
}

func getJSON(t *testing.T, router chi.Router, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var response map[string]interface{}
	if rec.Code == http.StatusOK {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	}
	return rec, response
}

func TestHandleGetHoldings(t *testing.T) {
	router, portfolioService := setupRouter(t)

	rec, response := getJSON(t, router, "/api/portfolio/alice/holdings")
	require.Equal(t, http.StatusOK, rec.Code)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(0), data["count"], "empty portfolio serves an empty list")

	require.NoError(t, portfolioService.ApplyTrade("alice", "AAPL", true, 10, decimal.RequireFromString("170.00")))

	rec, response = getJSON(t, router, "/api/portfolio/alice/holdings")
	require.Equal(t, http.StatusOK, rec.Code)
	data = response["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])
}

func TestHandleGetHoldingNotFound(t *testing.T) {
	router, _ := setupRouter(t)

	rec, _ := getJSON(t, router, "/api/portfolio/alice/holdings/AAPL")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetGainLoss(t *testing.T) {
	router, portfolioService := setupRouter(t)

	// 10 AAPL bought at 170.00, quoted at the seeded 175.50.
	require.NoError(t, portfolioService.ApplyTrade("alice", "AAPL", true, 10, decimal.RequireFromString("170.00")))

	rec, response := getJSON(t, router, "/api/portfolio/alice/gain-loss")
	require.Equal(t, http.StatusOK, rec.Code)

	data := response["data"].(map[string]interface{})
	gainLoss, err := decimal.NewFromString(data["total_gain_loss"].(string))
	require.NoError(t, err)
	assert.True(t, gainLoss.Equal(decimal.RequireFromString("55.00")),
		"got %s", gainLoss.String())
}

func TestHandleGetGainLossRequiresUser(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	eventManager := events.NewManager(nil, log)

	marketService := market.NewService(
		market.NewStockRepository(openMemoryDB(t, market.StocksSchema), log), eventManager, log)
	portfolioService := portfolio.NewService(
		portfolio.NewHoldingRepository(openMemoryDB(t, portfolio.HoldingsSchema), log),
		marketService, eventManager, log)

	handler := NewHandler(portfolioService, log)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/portfolio/x/gain-loss", nil)

	handler.HandleGetGainLoss(rec, req, "  ")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
