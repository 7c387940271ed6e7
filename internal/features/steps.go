package features

import (
	"context"
	"fmt"
	"sort"

	"github.com/dvloznov/txn-features/internal/domain"
	"github.com/dvloznov/txn-features/internal/logger"
)

// PipelineStep is a single stage of the feature build.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds what the steps share: the working table and the
// feature table being merged.
type PipelineState struct {
	Table  *Table
	Output *FeatureTable
	index  map[string]int // user -> position in Output.Rows
}

// DeriveDaysStep adds transaction_day to the working table.
type DeriveDaysStep struct{}

func (s *DeriveDaysStep) Name() string { return "derive_days" }

func (s *DeriveDaysStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Table = state.Table.WithCalendarDays()
	return nil
}

// AverageAmountStep seeds the output with one row per user and its mean amount.
type AverageAmountStep struct{}

func (s *AverageAmountStep) Name() string { return "average_amount" }

func (s *AverageAmountStep) Execute(ctx context.Context, state *PipelineState) error {
	avg, err := AverageAmount(state.Table)
	if err != nil {
		return err
	}
	users := sortedKeys(avg)
	state.Output = &FeatureTable{Rows: make([]FeatureRow, len(users))}
	state.index = make(map[string]int, len(users))
	for i, u := range users {
		state.Output.Rows[i] = FeatureRow{UserID: u, AmountUSD: avg[u]}
		state.index[u] = i
	}
	return nil
}

// AverageDailyCountStep joins avg_txn.
type AverageDailyCountStep struct{}

func (s *AverageDailyCountStep) Name() string { return "average_daily_count" }

func (s *AverageDailyCountStep) Execute(ctx context.Context, state *PipelineState) error {
	counts, err := AverageDailyCount(state.Table)
	if err != nil {
		return err
	}
	return innerJoin(state, counts, func(r *FeatureRow, v float64) { r.AvgTxn = v })
}

// DistributionStep joins the share block of one categorical column.
type DistributionStep struct {
	Column string
}

func (s *DistributionStep) Name() string { return "distribution_" + s.Column }

func (s *DistributionStep) Execute(ctx context.Context, state *PipelineState) error {
	dist, err := CategoryDistribution(state.Table, s.Column)
	if err != nil {
		return err
	}

	switch s.Column {
	case domain.ColumnTransactionsType:
		state.Output.TypeValues = dist.Values
		return innerJoin(state, dist.Shares, func(r *FeatureRow, v []float64) { r.TypeShares = v })
	case domain.ColumnDirection:
		state.Output.DirectionValues = dist.Values
		return innerJoin(state, dist.Shares, func(r *FeatureRow, v []float64) { r.DirectionShares = v })
	default:
		return &domain.MissingColumnError{Column: s.Column}
	}
}

// TrendStep joins the first/last window trend block.
type TrendStep struct {
	FirstN int
	LastN  int
}

func (s *TrendStep) Name() string { return "trend" }

func (s *TrendStep) Execute(ctx context.Context, state *PipelineState) error {
	trends, err := TrendStats(state.Table, s.FirstN, s.LastN)
	if err != nil {
		return err
	}
	state.Output.HasTrend = true
	return innerJoin(state, trends, func(r *FeatureRow, v Trend) {
		tr := v
		r.Trend = &tr
	})
}

// innerJoin attaches a per-user branch to the output on user_id. Every
// branch derives from the same table, so a user missing on either side means
// the invariants were broken and the build aborts instead of dropping rows.
func innerJoin[V any](state *PipelineState, branch map[string]V, set func(*FeatureRow, V)) error {
	if state.Output == nil {
		return fmt.Errorf("join before base table was built")
	}
	if len(branch) != len(state.Output.Rows) {
		return fmt.Errorf("join: branch has %d users, base has %d", len(branch), len(state.Output.Rows))
	}
	for u, v := range branch {
		i, ok := state.index[u]
		if !ok {
			return fmt.Errorf("join: user %q not in base table", u)
		}
		set(&state.Output.Rows[i], v)
	}
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially, checking for cancellation between
// them.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("pipeline step %d (%s) not started: %w", i+1, step.Name(), err)
		}
		log.Debug().Int("step", i+1).Str("name", step.Name()).Msg("Running feature step")
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
