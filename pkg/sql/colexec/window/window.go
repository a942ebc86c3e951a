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
	"bytes"

	"github.com/sitecore/qexec/internal/qerr"
	"github.com/sitecore/qexec/pkg/container/table"
	"github.com/sitecore/qexec/pkg/container/tuple"
	"github.com/sitecore/qexec/pkg/container/types"
	"github.com/sitecore/qexec/pkg/vm"
)

type container struct {
	output *table.TempTable
	aggRow *WindowAggregateRow
	win    *tableWindow
}

// progressInterval is how many output rows Call emits between
// CountdownProgress callbacks.
const progressInterval = 1000

func (arg *Argument) String(buf *bytes.Buffer) {
	buf.WriteString(argName)
}

// Prepare builds the running aggregate vector and the leading-edge cursor
// over the (already sorted) input table.
func (arg *Argument) Prepare(ctx *vm.ExecutorContext) error {
	if arg.Input == nil {
		return qerr.NewInvalidInput("window: no input table")
	}
	if arg.OutputSchema == nil {
		return qerr.NewInvalidInput("window: OutputSchema must be supplied")
	}
	if arg.OutputSchema.ColumnCount() != len(arg.Aggregates)+len(arg.PassThrough) {
		return qerr.NewInvalidInput("window: output schema has %d columns, want %d aggregates + %d pass-through",
			arg.OutputSchema.ColumnCount(), len(arg.Aggregates), len(arg.PassThrough))
	}

	aggArgs := make([][]Expr, len(arg.Aggregates))
	for i, spec := range arg.Aggregates {
		aggArgs[i] = spec.Args
	}

	aggRow, err := newWindowAggregateRow(arg.Aggregates)
	if err != nil {
		return err
	}

	ctr := &container{
		output: table.NewTempTable(arg.OutputName, arg.OutputSchema, arg.TempLimits),
		aggRow: aggRow,
		win:    newTableWindow(arg.Input, arg.PartitionBy, arg.OrderBy, aggArgs),
	}
	arg.ctr = ctr
	arg.SetOutputTable(ctr.output)
	return nil
}

// Call runs the two-cursor scan once in full: the leading edge measures
// each peer group and the aggregate vector's value for it, then the middle
// edge walks the same rows emitting one output row apiece. The middle edge
// never advances past the leading edge, since a group can only be emitted
// once its size is known.
func (arg *Argument) Call(ctx *vm.ExecutorContext) (vm.ExecResult, error) {
	ctr := arg.ctr
	middle := arg.Input.Iterator()
	inRow := arg.Input.TempTuple()

	sinceReport := 0
	for {
		size, _, ok, err := ctr.win.measureNextGroup(ctr.aggRow, ctx.Params)
		if err != nil {
			return vm.ExecResult{Status: vm.ExecFailed}, err
		}
		if !ok {
			break
		}

		values, err := ctr.aggRow.finalize()
		if err != nil {
			return vm.ExecResult{Status: vm.ExecFailed}, err
		}

		for i := int64(0); i < size; i++ {
			has, err := middle.Next(inRow)
			if err != nil {
				return vm.ExecResult{Status: vm.ExecFailed}, err
			}
			if !has {
				return vm.ExecResult{Status: vm.ExecFailed},
					qerr.NewInternal("window: leading edge measured %d rows but middle edge ran out early", size)
			}
			if middle.GetLocation() > ctr.win.leading.GetLocation() {
				return vm.ExecResult{Status: vm.ExecFailed},
					qerr.NewInternal("window: middle edge passed leading edge")
			}

			outRow := ctr.output.TempTuple()
			if err := arg.fillOutputRow(ctx, inRow, outRow, values); err != nil {
				return vm.ExecResult{Status: vm.ExecFailed}, err
			}
			if err := ctr.output.InsertTempTuple(outRow); err != nil {
				return vm.ExecResult{Status: vm.ExecFailed}, err
			}

			sinceReport++
			if sinceReport >= progressInterval {
				ctx.Progress.CountdownProgress(sinceReport)
				sinceReport = 0
			}
		}

		ctr.aggRow.endGroup()
	}
	if sinceReport > 0 {
		ctx.Progress.CountdownProgress(sinceReport)
	}

	return vm.ExecResult{Status: vm.ExecDone, OutputTable: ctr.output}, nil
}

func (arg *Argument) fillOutputRow(ctx *vm.ExecutorContext, inRow, outRow tuple.Tuple, aggValues []types.NValue) error {
	numAggs := len(aggValues)
	for col := 0; col < numAggs; col++ {
		v, err := aggValues[col].CastAs(arg.Aggregates[col].OutputType)
		if err != nil {
			return qerr.NewTypeMismatch("window aggregate %d: %v", col, err)
		}
		if err := outRow.SetValue(col, v); err != nil {
			return err
		}
	}
	for i, expr := range arg.PassThrough {
		v, err := expr.Eval(inRow, ctx.Params)
		if err != nil {
			return qerr.NewExpressionEval("window pass-through column %d: %v", i, err)
		}
		if err := outRow.SetValue(numAggs+i, v); err != nil {
			return err
		}
	}
	return nil
}

func (arg *Argument) CleanupTempOutputTable() {
	if arg.ctr != nil {
		arg.ctr.output.Truncate()
	}
}

func (arg *Argument) CleanupMemoryPool() {}
