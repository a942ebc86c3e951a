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

package projection

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

// colExpr is a bare input-column reference, enabling fast path A.
type colExpr int

func (c colExpr) Eval(row tuple.Tuple, _ []types.NValue) (types.NValue, error) {
	return row.GetValue(int(c))
}
func (c colExpr) AsTupleColumn() (int, bool) { return int(c), true }
func (c colExpr) AsParam() (int, bool)       { return 0, false }

// paramExpr is a bare parameter reference, enabling fast path B.
type paramExpr int

func (p paramExpr) Eval(_ tuple.Tuple, params []types.NValue) (types.NValue, error) {
	return params[int(p)], nil
}
func (p paramExpr) AsTupleColumn() (int, bool) { return 0, false }
func (p paramExpr) AsParam() (int, bool)       { return int(p), true }

// fullExpr forces the default evaluation path: neither a column nor a
// param reference, just a computed expression.
type fullExpr struct{ col int }

func (f fullExpr) Eval(row tuple.Tuple, _ []types.NValue) (types.NValue, error) {
	v, err := row.GetValue(f.col)
	if err != nil {
		return types.NValue{}, err
	}
	return v.OpAdd(types.GetIntegerValue(1))
}
func (f fullExpr) AsTupleColumn() (int, bool) { return 0, false }
func (f fullExpr) AsParam() (int, bool)       { return 0, false }

func newTestContext(params []types.NValue) *vm.ExecutorContext {
	locals := process.NewLocals(config.DefaultSiteConfig())
	return vm.NewExecutorContext(locals, params, nil, nil)
}

func buildInput(t *testing.T, rows []int32) table.Table {
	t.Helper()
	schema := types.NewTupleSchema([]types.ColumnInfo{{Type: types.Integer}})
	in := table.NewTempTable("proj_in", schema, table.Limits{})
	for _, r := range rows {
		row := in.TempTuple()
		require.NoError(t, row.SetValue(0, types.GetIntegerValue(r)))
		require.NoError(t, in.InsertTempTuple(row))
	}
	return in
}

func TestProjectionColumnFastPath(t *testing.T) {
	in := buildInput(t, []int32{1, 2, 3})
	arg := &Argument{Expressions: []Expr{colExpr(0)}, Input: in, OutputName: "out"}
	ctx := newTestContext(nil)

	require.NoError(t, arg.Prepare(ctx))
	res, err := arg.Call(ctx)
	require.NoError(t, err)
	require.Equal(t, vm.ExecDone, res.Status)
	require.Equal(t, 3, res.OutputTable.RowCount())
}

func TestProjectionParamFastPath(t *testing.T) {
	in := buildInput(t, []int32{1, 2})
	arg := &Argument{Expressions: []Expr{paramExpr(0)}, Input: in, OutputName: "out"}
	ctx := newTestContext([]types.NValue{types.GetIntegerValue(42)})

	require.NoError(t, arg.Prepare(ctx))
	res, err := arg.Call(ctx)
	require.NoError(t, err)

	it := res.OutputTable.Iterator()
	row := res.OutputTable.TempTuple()
	has, err := it.Next(row)
	require.NoError(t, err)
	require.True(t, has)
	v, err := row.GetValue(0)
	require.NoError(t, err)
	require.Equal(t, int64(42), v.Int64())
}

func TestProjectionFullEvaluationPath(t *testing.T) {
	in := buildInput(t, []int32{10, 20})
	outSchema := types.NewTupleSchema([]types.ColumnInfo{{Type: types.Integer}})
	arg := &Argument{
		Expressions:  []Expr{fullExpr{col: 0}},
		Input:        in,
		OutputSchema: outSchema,
		OutputName:   "out",
	}
	ctx := newTestContext(nil)

	require.NoError(t, arg.Prepare(ctx))
	res, err := arg.Call(ctx)
	require.NoError(t, err)

	it := res.OutputTable.Iterator()
	row := res.OutputTable.TempTuple()
	var got []int64
	for {
		has, err := it.Next(row)
		require.NoError(t, err)
		if !has {
			break
		}
		v, err := row.GetValue(0)
		require.NoError(t, err)
		got = append(got, v.Int64())
	}
	require.Equal(t, []int64{11, 21}, got)
}

func TestProjectionRejectsMissingInput(t *testing.T) {
	arg := &Argument{Expressions: []Expr{colExpr(0)}}
	require.Error(t, arg.Prepare(newTestContext(nil)))
}

func TestProjectionParamOutOfRangeFails(t *testing.T) {
	in := buildInput(t, []int32{1})
	arg := &Argument{Expressions: []Expr{paramExpr(3)}, Input: in, OutputName: "out"}
	ctx := newTestContext(nil)
	require.NoError(t, arg.Prepare(ctx))
	_, err := arg.Call(ctx)
	require.Error(t, err)
}

func TestProjectionCleanupTruncatesOutput(t *testing.T) {
	in := buildInput(t, []int32{1, 2})
	arg := &Argument{Expressions: []Expr{colExpr(0)}, Input: in, OutputName: "out"}
	ctx := newTestContext(nil)
	require.NoError(t, arg.Prepare(ctx))
	_, err := arg.Call(ctx)
	require.NoError(t, err)

	arg.CleanupTempOutputTable()
	require.Equal(t, 0, arg.OutputTable().RowCount())
}
