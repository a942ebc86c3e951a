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

// Package projection implements a streaming per-row expression evaluator,
// with two fast paths: bare input-column references and bare parameter
// references.
package projection

import (
	"bytes"

	"go.uber.org/zap"

	"github.com/sitecore/qexec/internal/qerr"
	"github.com/sitecore/qexec/internal/qlog"
	"github.com/sitecore/qexec/pkg/container/table"
	"github.com/sitecore/qexec/pkg/container/tuple"
	"github.com/sitecore/qexec/pkg/container/types"
	"github.com/sitecore/qexec/pkg/vm"
)

const argName = "projection"

// progressInterval is how many rows Call processes between
// CountdownProgress callbacks.
const progressInterval = 1000

// Expr is the minimal expression-evaluation surface this executor needs.
// The SQL expression compiler itself is an out-of-scope collaborator;
// this core only evaluates already-compiled expression trees.
type Expr interface {
	Eval(row tuple.Tuple, params []types.NValue) (types.NValue, error)

	// AsTupleColumn reports whether this expression is a bare reference to
	// input column idx, enabling fast path A. ok is false otherwise.
	AsTupleColumn() (idx int, ok bool)

	// AsParam reports whether this expression is a bare reference to
	// parameter idx, enabling fast path B. ok is false otherwise.
	AsParam() (idx int, ok bool)
}

// Argument is this operator's plan-node-derived configuration, the way the
// teacher's colexec packages split static Argument fields from mutable
// container state.
type Argument struct {
	vm.Base

	Expressions []Expr
	Input       table.Table
	TempLimits  table.Limits
	OutputName  string

	// OutputSchema, when set, is used verbatim — the plan node already
	// knows each output column's declared type. When nil, Prepare infers
	// a best-effort schema from the expressions (see schemaFromExpressions).
	OutputSchema *types.TupleSchema

	ctr *container
}

type container struct {
	outSchema *types.TupleSchema
	output    *table.TempTable

	// allTupleArray is non-nil iff every output expression is a bare
	// input-column reference (fast path A). allParamArray is its fast
	// path B counterpart. At most one is non-nil by construction: an
	// expression cannot be both a column reference and a param
	// reference, but a projection could mix the two across columns, in
	// which case neither array is used and every column falls back to
	// full evaluation.
	allTupleArray []int
	allParamArray []int
}

func (arg *Argument) String(buf *bytes.Buffer) {
	buf.WriteString(argName)
}

// Prepare builds the three parallel arrays this executor runs on: the
// expression array (Argument.Expressions, already supplied by the plan),
// and the two fast-path index arrays.
func (arg *Argument) Prepare(ctx *vm.ExecutorContext) error {
	if arg.Input == nil {
		return qerr.NewInvalidInput("projection: no input table")
	}
	outSchema := arg.OutputSchema
	if outSchema == nil {
		outSchema = schemaFromExpressions(arg.Expressions, arg.Input.Schema())
	}
	ctr := &container{
		outSchema: outSchema,
		output:    table.NewTempTable(arg.OutputName, outSchema, arg.TempLimits),
	}

	if idxs, ok := allTupleColumns(arg.Expressions); ok {
		ctr.allTupleArray = idxs
	} else if idxs, ok := allParams(arg.Expressions); ok {
		ctr.allParamArray = idxs
	}

	arg.ctr = ctr
	arg.SetOutputTable(ctr.output)
	return nil
}

// Call executes the whole projection in one pass: for each input tuple
// (via a delete-as-we-go iterator, since input is a single-pass temp
// source), populate the output tuple using whichever fast path applies,
// or full evaluation, then insert it.
func (arg *Argument) Call(ctx *vm.ExecutorContext) (vm.ExecResult, error) {
	ctr := arg.ctr
	it := arg.Input.IteratorDeletingAsWeGo()
	inRow := arg.Input.TempTuple()

	sinceReport := 0
	for {
		has, err := it.Next(inRow)
		if err != nil {
			return vm.ExecResult{Status: vm.ExecFailed}, err
		}
		if !has {
			break
		}

		outRow := ctr.output.TempTuple()
		if err := arg.fillRow(ctx, inRow, outRow, ctr); err != nil {
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
	if sinceReport > 0 {
		ctx.Progress.CountdownProgress(sinceReport)
	}

	return vm.ExecResult{Status: vm.ExecDone, OutputTable: ctr.output}, nil
}

func (arg *Argument) fillRow(ctx *vm.ExecutorContext, inRow, outRow tuple.Tuple, ctr *container) error {
	switch {
	case ctr.allTupleArray != nil:
		for col, srcIdx := range ctr.allTupleArray {
			v, err := inRow.GetValue(srcIdx)
			if err != nil {
				return err
			}
			if err := outRow.SetValue(col, v); err != nil {
				return err
			}
		}
	case ctr.allParamArray != nil:
		for col, paramIdx := range ctr.allParamArray {
			if paramIdx < 0 || paramIdx >= len(ctx.Params) {
				return qerr.NewInvalidInput("projection: parameter index %d out of range", paramIdx)
			}
			if err := outRow.SetValue(col, ctx.Params[paramIdx]); err != nil {
				return err
			}
		}
	default:
		for col, expr := range arg.Expressions {
			v, err := expr.Eval(inRow, ctx.Params)
			if err != nil {
				qlog.Base().Debug("projection: expression evaluation failed", zap.Int("column", col), zap.Error(err))
				return qerr.NewExpressionEval("projection column %d: %v", col, err)
			}
			if err := outRow.SetValue(col, v); err != nil {
				return err
			}
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

func allTupleColumns(exprs []Expr) ([]int, bool) {
	idxs := make([]int, len(exprs))
	for i, e := range exprs {
		idx, ok := e.AsTupleColumn()
		if !ok {
			return nil, false
		}
		idxs[i] = idx
	}
	return idxs, true
}

func allParams(exprs []Expr) ([]int, bool) {
	idxs := make([]int, len(exprs))
	for i, e := range exprs {
		idx, ok := e.AsParam()
		if !ok {
			return nil, false
		}
		idxs[i] = idx
	}
	return idxs, true
}

// schemaFromExpressions is a placeholder that assumes every output column
// has the same type as its corresponding input column when it is a bare
// column reference, and an Integer width slot otherwise. A real planner
// would carry output types on the plan node; this core only consumes an
// already-typed plan, so production callers should supply OutputSchema
// directly rather than relying on this inference helper.
func schemaFromExpressions(exprs []Expr, inSchema *types.TupleSchema) *types.TupleSchema {
	cols := make([]types.ColumnInfo, len(exprs))
	for i, e := range exprs {
		if idx, ok := e.AsTupleColumn(); ok {
			cols[i] = inSchema.ColumnInfo(idx)
			continue
		}
		cols[i] = types.ColumnInfo{Type: types.Integer, Nullable: true}
	}
	return types.NewTupleSchema(cols)
}
