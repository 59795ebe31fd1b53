// Package forecast implements the monthly growth simulation and includes
// functions for computing the projections.
package forecast

import (
	"fmt"

	"github.com/growthlab/growth-forecast/internal/config"
	"github.com/growthlab/growth-forecast/pkg/assumptions"
	"github.com/growthlab/growth-forecast/pkg/constants"
	"go.uber.org/zap"
)

// Engine runs the monthly growth simulation.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a simulation engine with the given logger.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Run simulates years*12 months from the given assumptions and returns the
// full monthly and yearly tables. Every month is a strict function of the
// previous month's record, so the loop is sequential by construction, and
// re-running with a changed duration always regenerates the whole projection
// from scratch rather than extending a previous one.
func (e *Engine) Run(store *assumptions.Store, years int) (*Projection, error) {
	if years < 1 {
		return nil, fmt.Errorf("simulation duration must be at least 1 year, got %d", years)
	}

	params, err := resolveParams(store)
	if err != nil {
		return nil, fmt.Errorf("resolving assumptions: %w", err)
	}

	months := years * constants.MonthsPerYear
	monthly := make([]MonthRecord, 0, months)
	acc := newAccumulator()
	var prev *MonthRecord
	for i := 0; i < months; i++ {
		rec := stepMonth(params, prev, &acc, i)
		monthly = append(monthly, rec)
		prev = &monthly[len(monthly)-1]
	}
	yearly := aggregateYears(monthly, params)

	e.logger.Debug("simulation complete",
		zap.String("op", "forecast.Engine.Run"),
		zap.Int("months", len(monthly)),
		zap.Int("years", len(yearly)),
	)

	return &Projection{Monthly: monthly, Yearly: yearly}, nil
}

// GetForecast processes the projections for all active scenarios.
func GetForecast(logger *zap.Logger, conf config.Configuration) ([]Forecast, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := NewEngine(logger)
	var results []Forecast
	for _, scenario := range conf.Scenarios {
		if !scenario.Active {
			logger.Debug(fmt.Sprintf("skipping scenario %s because it is inactive", scenario.Name),
				zap.String("op", "forecast.GetForecast"),
			)
			continue
		}

		store, err := conf.StoreForScenario(scenario.Name)
		if err != nil {
			return results, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}

		projection, err := engine.Run(store, conf.Simulation.Years)
		if err != nil {
			return results, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}

		results = append(results, Forecast{
			Name:    scenario.Name,
			Monthly: projection.Monthly,
			Yearly:  projection.Yearly,
		})
	}

	return results, nil
}
