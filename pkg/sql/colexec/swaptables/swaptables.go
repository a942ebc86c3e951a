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

// Package swaptables implements an atomic metadata swap of two persistent
// tables: a DDL-like operator with no input row stream.
package swaptables

import (
	"bytes"

	"github.com/sitecore/qexec/internal/qerr"
	"github.com/sitecore/qexec/pkg/container/table"
	"github.com/sitecore/qexec/pkg/container/types"
	"github.com/sitecore/qexec/pkg/vm"
)

const argName = "swap_tables"

// dmlCountSchema is the shape of every DML-count output this core emits:
// one non-nullable BigInt column.
var dmlCountSchema = types.NewTupleSchema([]types.ColumnInfo{{Type: types.BigInt}})

// Argument identifies the two persistent tables to exchange. There is no
// input stream, unlike projection/window: its only inputs are the two
// persistent tables referenced by the plan node.
type Argument struct {
	vm.Base

	Target1    *table.PersistentTable
	Target2    *table.PersistentTable
	TempLimits table.Limits
	OutputName string

	ctr *container
}

type container struct {
	output *table.TempTable
}

func (arg *Argument) String(buf *bytes.Buffer) {
	buf.WriteString(argName)
}

func (arg *Argument) Prepare(ctx *vm.ExecutorContext) error {
	if arg.Target1 == nil || arg.Target2 == nil {
		return qerr.NewInvalidInput("swap_tables: both targets must be set")
	}
	ctr := &container{output: table.NewTempTable(arg.OutputName, dmlCountSchema, arg.TempLimits)}
	arg.ctr = ctr
	arg.SetOutputTable(ctr.output)
	return nil
}

// Call performs the swap and emits the one-row DML-count output: the
// combined visible row count of both tables before the swap.
func (arg *Argument) Call(ctx *vm.ExecutorContext) (vm.ExecResult, error) {
	count, err := arg.Target1.SwapTable(arg.Target2, ctx.Engine)
	if err != nil {
		return vm.ExecResult{Status: vm.ExecFailed}, err
	}

	row := arg.ctr.output.TempTuple()
	if err := row.SetValue(0, types.GetBigIntValue(count)); err != nil {
		return vm.ExecResult{Status: vm.ExecFailed}, err
	}
	if err := arg.ctr.output.InsertTempTuple(row); err != nil {
		return vm.ExecResult{Status: vm.ExecFailed}, err
	}

	return vm.ExecResult{Status: vm.ExecDone, OutputTable: arg.ctr.output}, nil
}

func (arg *Argument) CleanupTempOutputTable() {
	if arg.ctr != nil {
		arg.ctr.output.Truncate()
	}
}

func (arg *Argument) CleanupMemoryPool() {}
