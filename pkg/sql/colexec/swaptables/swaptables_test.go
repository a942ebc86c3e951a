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

package swaptables

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sitecore/qexec/internal/config"
	"github.com/sitecore/qexec/pkg/container/table"
	"github.com/sitecore/qexec/pkg/container/types"
	"github.com/sitecore/qexec/pkg/vm"
	"github.com/sitecore/qexec/pkg/vm/process"
)

func newTestContext() *vm.ExecutorContext {
	locals := process.NewLocals(config.DefaultSiteConfig())
	return vm.NewExecutorContext(locals, nil, nil, nil)
}

func intSchema() *types.TupleSchema {
	return types.NewTupleSchema([]types.ColumnInfo{{Type: types.Integer}})
}

func insertN(t *testing.T, tbl *table.PersistentTable, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		row := tbl.TempTuple()
		require.NoError(t, row.SetValue(0, types.GetIntegerValue(int32(i))))
		require.NoError(t, tbl.InsertTempTuple(row))
	}
}

func TestSwapTablesEmitsCombinedRowCount(t *testing.T) {
	t1 := table.NewPersistentTable("t1", intSchema(), false)
	t2 := table.NewPersistentTable("t2", intSchema(), false)
	insertN(t, t1, 3)
	insertN(t, t2, 4)

	arg := &Argument{Target1: t1, Target2: t2, OutputName: "swap_out"}
	ctx := newTestContext()

	require.NoError(t, arg.Prepare(ctx))
	res, err := arg.Call(ctx)
	require.NoError(t, err)
	require.Equal(t, vm.ExecDone, res.Status)

	require.Equal(t, 4, t1.VisibleRowCount())
	require.Equal(t, 3, t2.VisibleRowCount())

	it := res.OutputTable.Iterator()
	row := res.OutputTable.TempTuple()
	has, err := it.Next(row)
	require.NoError(t, err)
	require.True(t, has)
	v, err := row.GetValue(0)
	require.NoError(t, err)
	require.Equal(t, int64(7), v.Int64())
}

func TestSwapTablesRejectsMissingTargets(t *testing.T) {
	t1 := table.NewPersistentTable("t1", intSchema(), false)
	arg := &Argument{Target1: t1, OutputName: "swap_out"}
	require.Error(t, arg.Prepare(newTestContext()))
}

func TestSwapTablesCleanupTruncatesOutput(t *testing.T) {
	t1 := table.NewPersistentTable("t1", intSchema(), false)
	t2 := table.NewPersistentTable("t2", intSchema(), false)
	arg := &Argument{Target1: t1, Target2: t2, OutputName: "swap_out"}
	ctx := newTestContext()
	require.NoError(t, arg.Prepare(ctx))
	_, err := arg.Call(ctx)
	require.NoError(t, err)

	arg.CleanupTempOutputTable()
	require.Equal(t, 0, arg.OutputTable().RowCount())
}
