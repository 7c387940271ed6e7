// Package features derives one row of behavioural features per user from a
// transaction table: mean amount, transactions per active day, the share of
// transactions per type and direction, and optionally the drift between a
// user's first and last transactions.
package features

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/txn-features/internal/domain"
	"github.com/dvloznov/txn-features/internal/logger"
)

// Config parameterises a feature build.
type Config struct {
	FirstNTxn    int  // size of the earliest-transactions window
	LastNTxn     int  // size of the latest-transactions window
	IncludeTrend bool // join diff_mean_amount_sent and diff_days_between_txn
}

// DefaultConfig returns windows of three transactions, trend disabled.
func DefaultConfig() Config {
	return Config{FirstNTxn: 3, LastNTxn: 3}
}

// Validate checks the window sizes.
func (c Config) Validate() error {
	if c.FirstNTxn < 1 || c.LastNTxn < 1 {
		return fmt.Errorf("first_n_txn=%d last_n_txn=%d: %w", c.FirstNTxn, c.LastNTxn, ErrInvalidWindow)
	}
	return nil
}

// NewFeaturePipeline creates the standard feature build: derive days, mean
// amount, daily count, the two category distributions and, when enabled,
// the trend block.
func NewFeaturePipeline(cfg Config) *Pipeline {
	steps := []PipelineStep{
		&DeriveDaysStep{},
		&AverageAmountStep{},
		&AverageDailyCountStep{},
		&DistributionStep{Column: domain.ColumnTransactionsType},
		&DistributionStep{Column: domain.ColumnDirection},
	}
	if cfg.IncludeTrend {
		steps = append(steps, &TrendStep{FirstN: cfg.FirstNTxn, LastN: cfg.LastNTxn})
	}
	return NewPipeline(steps...)
}

// Build validates the table and runs the feature pipeline over it. The input
// table is never modified. Either the full feature table is returned or an
// error; there are no partial results.
func Build(ctx context.Context, t *Table, cfg Config) (*FeatureTable, error) {
	if t == nil {
		return nil, fmt.Errorf("Build: nil table")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Build: config: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("Build: invalid input: %w", err)
	}

	log := logger.FromContext(ctx)
	start := time.Now()

	state := &PipelineState{Table: t}
	if err := NewFeaturePipeline(cfg).Execute(ctx, state); err != nil {
		return nil, fmt.Errorf("Build: %w", err)
	}

	log.Info().
		Int("transactions", t.Len()).
		Int("users", state.Output.Len()).
		Int("type_columns", len(state.Output.TypeValues)).
		Int("direction_columns", len(state.Output.DirectionValues)).
		Bool("trend", state.Output.HasTrend).
		Dur("duration", time.Since(start)).
		Msg("Feature table built")

	return state.Output, nil
}
