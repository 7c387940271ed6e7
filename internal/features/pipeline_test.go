package features

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dvloznov/txn-features/internal/domain"
	"github.com/dvloznov/txn-features/internal/logger"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestBuild_ExampleScenario(t *testing.T) {
	rows := []domain.Transaction{
		txn("1", "U1", 0, 10, "TRANSFER", "OUTBOUND"),
		txn("2", "U1", 1, 20, "TRANSFER", "OUTBOUND"),
		txn("3", "U1", 4, 30, "TRANSFER", "OUTBOUND"),
	}
	cfg := Config{FirstNTxn: 2, LastNTxn: 2, IncludeTrend: true}

	ft, err := Build(context.Background(), NewTable(rows), cfg)
	require.NoError(t, err)
	require.Equal(t, 1, ft.Len())

	row, ok := ft.Row("U1")
	require.True(t, ok)
	assert.InDelta(t, 20.0, row.AmountUSD, 1e-9)
	assert.InDelta(t, 1.0, row.AvgTxn, 1e-9)
	assert.Equal(t, []float64{1}, row.TypeShares)
	assert.Equal(t, []float64{1}, row.DirectionShares)
	require.NotNil(t, row.Trend)
	assert.InDelta(t, 10.0, row.Trend.DiffMeanAmountSent, 1e-9)
}

func TestBuild_Columns(t *testing.T) {
	ft, err := Build(context.Background(), NewTable(sampleRows()), DefaultConfig())
	require.NoError(t, err)

	want := []string{
		"user_id", "amount_usd", "avg_txn",
		"CARD_PAYMENT", "TOPUP", "TRANSFER",
		"INBOUND", "OUTBOUND",
	}
	if diff := cmp.Diff(want, ft.Columns()); diff != "" {
		t.Errorf("Columns() mismatch (-want +got):\n%s", diff)
	}

	for _, rec := range ft.Records() {
		assert.Len(t, rec, len(want))
	}
}

func TestBuild_ColumnsWithTrend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IncludeTrend = true
	ft, err := Build(context.Background(), NewTable(sampleRows()), cfg)
	require.NoError(t, err)

	cols := ft.Columns()
	assert.Equal(t, []string{ColumnDiffMeanAmountSent, ColumnDiffDaysBetweenTxn}, cols[len(cols)-2:])

	// U3 has one transaction so its day drift renders empty.
	records := ft.Records()
	assert.Equal(t, "U3", records[2][0])
	assert.Equal(t, "0", records[2][len(cols)-2])
	assert.Equal(t, "", records[2][len(cols)-1])
}

func TestBuild_CollidingCategoryNames(t *testing.T) {
	rows := []domain.Transaction{
		txn("1", "U1", 0, 10, "OTHER", "OTHER"),
		txn("2", "U1", 1, 10, "FEE", "OUT"),
	}
	ft, err := Build(context.Background(), NewTable(rows), DefaultConfig())
	require.NoError(t, err)

	want := []string{"user_id", "amount_usd", "avg_txn", "FEE", "OTHER_x", "OTHER_y", "OUT"}
	assert.Equal(t, want, ft.Columns())
}

func TestBuild_Properties(t *testing.T) {
	rows := sampleRows()
	cfg := DefaultConfig()
	cfg.IncludeTrend = true

	ft, err := Build(context.Background(), NewTable(rows), cfg)
	require.NoError(t, err)

	t.Run("merge completeness", func(t *testing.T) {
		users := map[string]bool{}
		for _, r := range rows {
			users[r.UserID] = true
		}
		assert.Equal(t, len(users), ft.Len())
	})

	t.Run("share normalisation", func(t *testing.T) {
		for _, r := range ft.Rows {
			assert.InDelta(t, 1.0, floats.Sum(r.TypeShares), 1e-9, "type shares of %s", r.UserID)
			assert.InDelta(t, 1.0, floats.Sum(r.DirectionShares), 1e-9, "direction shares of %s", r.UserID)
		}
	})

	t.Run("idempotence", func(t *testing.T) {
		again, err := Build(context.Background(), NewTable(rows), cfg)
		require.NoError(t, err)
		if diff := cmp.Diff(ft, again); diff != "" {
			t.Errorf("second build differs (-first +second):\n%s", diff)
		}
	})

	t.Run("input untouched", func(t *testing.T) {
		if diff := cmp.Diff(sampleRows(), rows); diff != "" {
			t.Errorf("input rows changed:\n%s", diff)
		}
	})
}

func TestBuild_SharedInputTable(t *testing.T) {
	table := NewTable(sampleRows())
	_, err := Build(context.Background(), table, DefaultConfig())
	require.NoError(t, err)

	assert.False(t, table.HasColumn(domain.ColumnTransactionDay), "Build must not add columns to its input")
}

func TestBuild_Errors(t *testing.T) {
	t.Run("invalid rows abort", func(t *testing.T) {
		rows := sampleRows()
		rows[3].UserID = ""
		ft, err := Build(context.Background(), NewTable(rows), DefaultConfig())
		assert.Nil(t, ft)

		var ie *InvariantError
		assert.True(t, errors.As(err, &ie), "expected InvariantError, got %v", err)
	})

	t.Run("invalid windows", func(t *testing.T) {
		_, err := Build(context.Background(), NewTable(sampleRows()), Config{FirstNTxn: 0, LastNTxn: 3})
		assert.ErrorIs(t, err, ErrInvalidWindow)
	})

	t.Run("nil table", func(t *testing.T) {
		_, err := Build(context.Background(), nil, DefaultConfig())
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ft, err := Build(ctx, NewTable(sampleRows()), DefaultConfig())
		assert.Nil(t, ft)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBuild_EmptyTable(t *testing.T) {
	ft, err := Build(context.Background(), NewTable(nil), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, ft.Len())
	assert.Equal(t, []string{"user_id", "amount_usd", "avg_txn"}, ft.Columns())
}

func TestBuild_Logging(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(buf))

	_, err := Build(ctx, NewTable(sampleRows()), DefaultConfig())
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.Contains(out, "Feature table built"), "missing summary log: %s", out)
	assert.True(t, strings.Contains(out, `"users":3`), "missing users field: %s", out)
}

func TestPipeline_StepFailureIsWrapped(t *testing.T) {
	state := &PipelineState{Table: NewTable(sampleRows())}
	p := NewPipeline(&AverageDailyCountStep{})

	err := p.Execute(context.Background(), state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline step 1 (average_daily_count) failed")
}

func TestInnerJoin_AbortsOnUserMismatch(t *testing.T) {
	seeded := func(t *testing.T) *PipelineState {
		t.Helper()
		state := &PipelineState{Table: NewTable(sampleRows())}
		require.NoError(t, (&AverageAmountStep{}).Execute(context.Background(), state))
		require.Equal(t, 3, state.Output.Len())
		return state
	}
	set := func(r *FeatureRow, v float64) { r.AvgTxn = v }

	t.Run("unknown user", func(t *testing.T) {
		state := seeded(t)
		err := innerJoin(state, map[string]float64{"U1": 1, "U2": 1, "ZZ": 1}, set)
		assert.ErrorContains(t, err, `user "ZZ" not in base table`)
	})

	t.Run("missing user", func(t *testing.T) {
		state := seeded(t)
		err := innerJoin(state, map[string]float64{"U1": 1, "U2": 1}, set)
		assert.ErrorContains(t, err, "branch has 2 users, base has 3")
	})

	t.Run("matching users", func(t *testing.T) {
		state := seeded(t)
		require.NoError(t, innerJoin(state, map[string]float64{"U1": 1, "U2": 2, "U3": 3}, set))
		row, ok := state.Output.Row("U2")
		require.True(t, ok)
		assert.Equal(t, 2.0, row.AvgTxn)
	})

	t.Run("no base table", func(t *testing.T) {
		state := &PipelineState{Table: NewTable(sampleRows())}
		err := innerJoin(state, map[string]float64{"U1": 1}, set)
		assert.ErrorContains(t, err, "join before base table was built")
	})
}

func TestPipeline_JoinBeforeBaseFails(t *testing.T) {
	state := &PipelineState{Table: NewTable(sampleRows())}
	p := NewPipeline(&DeriveDaysStep{}, &AverageDailyCountStep{})

	err := p.Execute(context.Background(), state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline step 2 (average_daily_count) failed: join before base table was built")
	assert.Nil(t, state.Output)
}
