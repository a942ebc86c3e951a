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
	"github.com/sitecore/qexec/pkg/container/table"
	"github.com/sitecore/qexec/pkg/container/tuple"
	"github.com/sitecore/qexec/pkg/container/types"
)

// edgeKind classifies the boundary a new peer group opens on, relative to
// the group before it.
type edgeKind int

const (
	edgeNewPartition edgeKind = iota // PARTITION BY key changed (or this is the first group)
	edgeNewGroup                     // ORDER BY key changed within the same partition
)

// tableWindow drives the leading-edge cursor: it reads one peer group ahead
// of the middle edge that projection.Call-style code uses to emit rows,
// so a group's size and aggregate value are both known before any of its
// rows are written to the output. Key tuples are swapped rather than
// copied between the "current group" and "next row read" slots, since a
// key is only ever compared, never mutated in place.
type tableWindow struct {
	leading     *table.Iterator
	partitionBy []Expr
	orderBy     []Expr
	aggArgs     [][]Expr

	leadingRow tuple.Tuple
	scratchRow tuple.Tuple

	curPartitionKey, nextPartitionKey []types.NValue
	curOrderKey, nextOrderKey         []types.NValue

	havePending bool
	exhausted   bool
}

func newTableWindow(input table.Table, partitionBy, orderBy []Expr, aggArgs [][]Expr) *tableWindow {
	return &tableWindow{
		leading:     input.Iterator(),
		partitionBy: partitionBy,
		orderBy:     orderBy,
		aggArgs:     aggArgs,
		leadingRow:  input.TempTuple(),
		scratchRow:  input.TempTuple(),
	}
}

func evalKey(exprs []Expr, row tuple.Tuple, params []types.NValue) ([]types.NValue, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	vals := make([]types.NValue, len(exprs))
	for i, e := range exprs {
		v, err := e.Eval(row, params)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func keysEqual(a, b []types.NValue) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	for i := range a {
		c, err := a[i].Compare(b[i])
		if err != nil {
			return false, err
		}
		if c != 0 {
			return false, nil
		}
	}
	return true, nil
}

// measureNextGroup scans forward from the leading edge's current position
// to find the next peer group's size, feeding each of its rows to agg via
// lookaheadOneRow and, once the group's extent is known, lookaheadNextGroup.
// It returns the group's row count and how it borders the previous group.
// ok is false once there are no more rows.
func (w *tableWindow) measureNextGroup(agg *WindowAggregateRow, params []types.NValue) (size int64, edge edgeKind, ok bool, err error) {
	if w.exhausted {
		return 0, 0, false, nil
	}

	if !w.havePending {
		has, rerr := w.leading.Next(w.leadingRow)
		if rerr != nil {
			return 0, 0, false, rerr
		}
		if !has {
			w.exhausted = true
			return 0, 0, false, nil
		}
		w.nextPartitionKey, err = evalKey(w.partitionBy, w.leadingRow, params)
		if err != nil {
			return 0, 0, false, err
		}
		w.nextOrderKey, err = evalKey(w.orderBy, w.leadingRow, params)
		if err != nil {
			return 0, 0, false, err
		}
	}

	// A previous group exists once either key slot has been filled; with no
	// PARTITION BY expressions the whole input is one partition.
	edge = edgeNewPartition
	if w.curPartitionKey != nil || w.curOrderKey != nil {
		samePartition, eqErr := keysEqual(w.nextPartitionKey, w.curPartitionKey)
		if eqErr != nil {
			return 0, 0, false, eqErr
		}
		if samePartition {
			edge = edgeNewGroup
		}
	}
	w.curPartitionKey, w.curOrderKey = w.nextPartitionKey, w.nextOrderKey
	groupPartitionKey, groupOrderKey := w.curPartitionKey, w.curOrderKey

	if edge == edgeNewPartition {
		agg.resetAgg()
	}

	for {
		args, aerr := w.evalAggArgs(w.leadingRow, params)
		if aerr != nil {
			return 0, 0, false, aerr
		}
		if aerr = agg.lookaheadOneRow(args); aerr != nil {
			return 0, 0, false, aerr
		}
		size++

		has, rerr := w.leading.Next(w.scratchRow)
		if rerr != nil {
			return 0, 0, false, rerr
		}
		if !has {
			w.havePending = false
			w.exhausted = true
			break
		}

		nextPart, perr := evalKey(w.partitionBy, w.scratchRow, params)
		if perr != nil {
			return 0, 0, false, perr
		}
		nextOrder, oerr := evalKey(w.orderBy, w.scratchRow, params)
		if oerr != nil {
			return 0, 0, false, oerr
		}
		samePartition, eqErr := keysEqual(nextPart, groupPartitionKey)
		if eqErr != nil {
			return 0, 0, false, eqErr
		}
		sameOrder, eqErr2 := keysEqual(nextOrder, groupOrderKey)
		if eqErr2 != nil {
			return 0, 0, false, eqErr2
		}
		if samePartition && sameOrder {
			w.leadingRow, w.scratchRow = w.scratchRow, w.leadingRow
			continue
		}

		w.leadingRow, w.scratchRow = w.scratchRow, w.leadingRow
		w.nextPartitionKey, w.nextOrderKey = nextPart, nextOrder
		w.havePending = true
		break
	}

	agg.lookaheadNextGroup(size)
	return size, edge, true, nil
}

func (w *tableWindow) evalAggArgs(row tuple.Tuple, params []types.NValue) ([][]types.NValue, error) {
	out := make([][]types.NValue, len(w.aggArgs))
	for i, exprs := range w.aggArgs {
		vals, err := evalKey(exprs, row, params)
		if err != nil {
			return nil, err
		}
		out[i] = vals
	}
	return out, nil
}
