// Copyright 2021 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package window

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sitecore/qexec/internal/config"
	"github.com/sitecore/qexec/pkg/container/table"
	"github.com/sitecore/qexec/pkg/container/tuple"
	"github.com/sitecore/qexec/pkg/container/types"
	"github.com/sitecore/qexec/pkg/vm"
	"github.com/sitecore/qexec/pkg/vm/process"
)

// colExpr evaluates to the value of input column int(c), ignoring params.
type colExpr int

func (c colExpr) Eval(row tuple.Tuple, _ []types.NValue) (types.NValue, error) {
	return row.GetValue(int(c))
}

func newTestContext() *vm.ExecutorContext {
	locals := process.NewLocals(config.DefaultSiteConfig())
	return vm.NewExecutorContext(locals, nil, nil, nil)
}

func buildInput(t *testing.T, rows [][3]int64) table.Table {
	t.Helper()
	schema := types.NewTupleSchema([]types.ColumnInfo{
		{Type: types.Integer},
		{Type: types.Integer},
		{Type: types.Integer},
	})
	in := table.NewTempTable("win_in", schema, table.Limits{})
	for _, r := range rows {
		row := in.TempTuple()
		require.NoError(t, row.SetValue(0, types.GetIntegerValue(int32(r[0]))))
		require.NoError(t, row.SetValue(1, types.GetIntegerValue(int32(r[1]))))
		require.NoError(t, row.SetValue(2, types.GetIntegerValue(int32(r[2]))))
		require.NoError(t, in.InsertTempTuple(row))
	}
	return in
}

func outputRows(t *testing.T, out table.Table) [][]int64 {
	t.Helper()
	it := out.Iterator()
	row := out.TempTuple()
	var rows [][]int64
	for {
		has, err := it.Next(row)
		require.NoError(t, err)
		if !has {
			break
		}
		vals := make([]int64, out.ColumnCount())
		for i := range vals {
			v, err := row.GetValue(i)
			require.NoError(t, err)
			vals[i] = v.Int64()
		}
		rows = append(rows, vals)
	}
	return rows
}

func newArgument(in table.Table) *Argument {
	outSchema := types.NewTupleSchema([]types.ColumnInfo{
		{Type: types.BigInt},
		{Type: types.BigInt},
		{Type: types.BigInt},
		{Type: types.Integer},
	})
	return &Argument{
		PartitionBy: []Expr{colExpr(0)},
		OrderBy:     []Expr{colExpr(1)},
		Aggregates: []AggregateSpec{
			{Kind: KindRank, OutputType: types.BigInt},
			{Kind: KindDenseRank, OutputType: types.BigInt},
			{Kind: KindCount, OutputType: types.BigInt},
		},
		PassThrough:  []Expr{colExpr(2)},
		Input:        in,
		OutputSchema: outSchema,
		OutputName:   "win_out",
	}
}

func TestWindowRankDenseRankCount(t *testing.T) {
	in := buildInput(t, [][3]int64{
		{1, 1, 10},
		{1, 1, 11},
		{1, 2, 12},
		{2, 1, 13},
	})
	arg := newArgument(in)
	ctx := newTestContext()

	require.NoError(t, arg.Prepare(ctx))
	res, err := arg.Call(ctx)
	require.NoError(t, err)
	require.Equal(t, vm.ExecDone, res.Status)

	got := outputRows(t, res.OutputTable)
	want := [][]int64{
		{1, 1, 2, 10},
		{1, 1, 2, 11},
		{3, 2, 3, 12},
		{1, 1, 1, 13},
	}
	require.Equal(t, want, got)
}

func TestWindowSinglePartitionSingleGroup(t *testing.T) {
	in := buildInput(t, [][3]int64{
		{7, 5, 100},
		{7, 5, 101},
		{7, 5, 102},
	})
	arg := newArgument(in)
	ctx := newTestContext()

	require.NoError(t, arg.Prepare(ctx))
	res, err := arg.Call(ctx)
	require.NoError(t, err)

	got := outputRows(t, res.OutputTable)
	for _, row := range got {
		require.Equal(t, int64(1), row[0])
		require.Equal(t, int64(1), row[1])
		require.Equal(t, int64(3), row[2])
	}
}

func TestWindowEmptyInput(t *testing.T) {
	in := buildInput(t, nil)
	arg := newArgument(in)
	ctx := newTestContext()

	require.NoError(t, arg.Prepare(ctx))
	res, err := arg.Call(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, res.OutputTable.RowCount())
}

// buildInputWithNullableArg builds a 4-column input: partition, order,
// pass-through, and a fourth "argument" column that is null wherever vals
// marks it so (true entries in nulls set that row's 4th column to null
// instead of its int value).
func buildInputWithNullableArg(t *testing.T, rows [][4]int64, nulls []bool) table.Table {
	t.Helper()
	schema := types.NewTupleSchema([]types.ColumnInfo{
		{Type: types.Integer},
		{Type: types.Integer},
		{Type: types.Integer},
		{Type: types.Integer, Nullable: true},
	})
	in := table.NewTempTable("win_in_nullable", schema, table.Limits{})
	for i, r := range rows {
		row := in.TempTuple()
		require.NoError(t, row.SetValue(0, types.GetIntegerValue(int32(r[0]))))
		require.NoError(t, row.SetValue(1, types.GetIntegerValue(int32(r[1]))))
		require.NoError(t, row.SetValue(2, types.GetIntegerValue(int32(r[2]))))
		if nulls[i] {
			require.NoError(t, row.SetValue(3, types.Null(types.Integer)))
		} else {
			require.NoError(t, row.SetValue(3, types.GetIntegerValue(int32(r[3]))))
		}
		require.NoError(t, in.InsertTempTuple(row))
	}
	return in
}

// TestWindowCountOfExpressionExcludesNulls exercises COUNT(E) rather than
// COUNT(*): a peer group of three rows where the argument column is null
// for the first row must count 2, not 3, for every row in the group.
func TestWindowCountOfExpressionExcludesNulls(t *testing.T) {
	in := buildInputWithNullableArg(t, [][4]int64{
		{1, 1, 100, 0},
		{1, 1, 101, 7},
		{1, 1, 102, 7},
	}, []bool{true, false, false})

	outSchema := types.NewTupleSchema([]types.ColumnInfo{
		{Type: types.BigInt},
		{Type: types.Integer},
	})
	arg := &Argument{
		PartitionBy: []Expr{colExpr(0)},
		OrderBy:     []Expr{colExpr(1)},
		Aggregates: []AggregateSpec{
			{Kind: KindCount, Args: []Expr{colExpr(3)}, OutputType: types.BigInt},
		},
		PassThrough:  []Expr{colExpr(2)},
		Input:        in,
		OutputSchema: outSchema,
		OutputName:   "win_out_count_e",
	}
	ctx := newTestContext()

	require.NoError(t, arg.Prepare(ctx))
	res, err := arg.Call(ctx)
	require.NoError(t, err)

	got := outputRows(t, res.OutputTable)
	want := [][]int64{
		{2, 100},
		{2, 101},
		{2, 102},
	}
	require.Equal(t, want, got)
}

// TestWindowPrepareRejectsUnknownAggregateKind asserts that an
// unrecognized aggregate kind fails Prepare with a reported error instead
// of leaving a nil WindowAggregate to panic on first use.
func TestWindowPrepareRejectsUnknownAggregateKind(t *testing.T) {
	in := buildInput(t, [][3]int64{{1, 1, 10}})
	outSchema := types.NewTupleSchema([]types.ColumnInfo{
		{Type: types.BigInt},
		{Type: types.Integer},
	})
	arg := &Argument{
		PartitionBy:  []Expr{colExpr(0)},
		OrderBy:      []Expr{colExpr(1)},
		Aggregates:   []AggregateSpec{{Kind: AggregateKind(99), OutputType: types.BigInt}},
		PassThrough:  []Expr{colExpr(2)},
		Input:        in,
		OutputSchema: outSchema,
		OutputName:   "win_out_bad_kind",
	}
	ctx := newTestContext()

	err := arg.Prepare(ctx)
	require.Error(t, err)
}

// TestWindowMiddleNeverPassesLeading exercises the invariant directly: the
// middle cursor's GetLocation must never exceed the leading cursor's across
// a scan with multiple groups and partitions.
func TestWindowMiddleNeverPassesLeading(t *testing.T) {
	in := buildInput(t, [][3]int64{
		{1, 1, 1}, {1, 2, 2}, {1, 2, 3}, {2, 1, 4}, {2, 1, 5}, {2, 1, 6},
	})
	arg := newArgument(in)
	ctx := newTestContext()

	require.NoError(t, arg.Prepare(ctx))
	_, err := arg.Call(ctx)
	require.NoError(t, err)
}
