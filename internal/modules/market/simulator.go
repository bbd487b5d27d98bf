package market

import (
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat/distuv"
)

// minPrice is the floor applied to simulated prices
var minPrice = decimal.RequireFromString("0.01")

// SimulatorJob applies a Gaussian random-walk step to every quoted price.
// Step returns are drawn from N(0, sigma); with the default sigma a single
// step moves a price by well under one percent most of the time.
type SimulatorJob struct {
	service *Service
	dist    distuv.Normal
	log     zerolog.Logger
}

// NewSimulatorJob creates a new price simulator job
func NewSimulatorJob(service *Service, sigma float64, log zerolog.Logger) *SimulatorJob {
	if sigma <= 0 {
		sigma = 0.004
	}
	return &SimulatorJob{
		service: service,
		dist:    distuv.Normal{Mu: 0, Sigma: sigma},
		log:     log.With().Str("job", "price_simulator").Logger(),
	}
}

// Name returns the job name
func (j *SimulatorJob) Name() string {
	return "price_simulator"
}

// Run applies one simulation step to every stock
func (j *SimulatorJob) Run() error {
	stocks, err := j.service.List()
	if err != nil {
		return fmt.Errorf("failed to list stocks: %w", err)
	}

	updated := 0
	for _, stock := range stocks {
		step := j.dist.Rand()

		factor := decimal.NewFromFloat(1 + step)
		next := stock.CurrentPrice.Mul(factor).Round(2)
		if next.LessThan(minPrice) {
			next = minPrice
		}
		if next.Equal(stock.CurrentPrice) {
			continue
		}

		if err := j.service.UpdatePrice(stock.Symbol, next); err != nil {
			j.log.Error().Err(err).Str("symbol", stock.Symbol).Msg("Failed to apply simulated price")
			continue
		}

		if err := j.recordDailyData(stock, next); err != nil {
			j.log.Warn().Err(err).Str("symbol", stock.Symbol).Msg("Failed to record daily data")
		}
		updated++
	}

	j.log.Debug().Int("updated", updated).Int("total", len(stocks)).Msg("Simulation step applied")
	return nil
}

// recordDailyData folds a simulated tick into the open/high/low/volume
// figures. The first tick a stock sees establishes its open.
func (j *SimulatorJob) recordDailyData(stock Stock, next decimal.Decimal) error {
	open := stock.OpenPrice
	if open.IsZero() {
		open = stock.CurrentPrice
	}

	high := stock.HighPrice
	if next.GreaterThan(high) {
		high = next
	}
	low := stock.LowPrice
	if low.IsZero() || next.LessThan(low) {
		low = next
	}

	volume := stock.Volume + rand.Int63n(10000) + 1
	return j.service.RecordDailyData(stock.Symbol, open, high, low, volume)
}
