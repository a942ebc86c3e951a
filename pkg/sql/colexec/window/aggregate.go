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
	"github.com/sitecore/qexec/internal/qerr"
	"github.com/sitecore/qexec/pkg/container/types"
)

// WindowAggregate is one running window-function computation. Every peer
// group (rows sharing the same PARTITION BY and ORDER BY key) is scanned
// twice: once by the leading edge to discover its size, once by the middle
// edge to emit rows, with the aggregate's value computed once per group in
// between. Implementations hold their own running totals across groups
// within a partition and clear them on ResetAgg.
type WindowAggregate interface {
	// NeedsLookahead reports whether this aggregate must observe each row
	// of the leading-edge scan. When it returns false, LookaheadOneRow is
	// not called for it; LookaheadNextGroup still is. Every aggregate
	// shipped here returns true.
	NeedsLookahead() bool

	// LookaheadOneRow observes one row's argument values during the
	// leading-edge scan of the current group, before the group's size is
	// known.
	LookaheadOneRow(args []types.NValue) error

	// LookaheadNextGroup is called once the leading edge has measured the
	// current group's size, updating any running total that depends on it.
	LookaheadNextGroup(groupSize int64)

	// EndGroup clears per-group scratch state accumulated by
	// LookaheadOneRow, distinct from the running totals ResetAgg clears.
	EndGroup()

	// Finalize returns the value every row in the just-measured group
	// should carry.
	Finalize() (types.NValue, error)

	// ResetAgg clears all running state; called at the start of a new
	// partition.
	ResetAgg()
}

// RankAgg implements RANK() OVER (PARTITION BY ... ORDER BY ...): one plus
// the number of rows that precede the current peer group within its
// partition. Every row in a group shares the same rank.
type RankAgg struct {
	priorRows int64
	rank      int64
}

func NewRankAgg() *RankAgg { return &RankAgg{} }

func (a *RankAgg) NeedsLookahead() bool                   { return true }
func (a *RankAgg) LookaheadOneRow(_ []types.NValue) error { return nil }

func (a *RankAgg) LookaheadNextGroup(groupSize int64) {
	a.rank = a.priorRows + 1
	a.priorRows += groupSize
}

func (a *RankAgg) EndGroup() {}

func (a *RankAgg) Finalize() (types.NValue, error) {
	return types.GetBigIntValue(a.rank), nil
}

func (a *RankAgg) ResetAgg() {
	a.priorRows = 0
	a.rank = 0
}

// DenseRankAgg implements DENSE_RANK(): the count of distinct ORDER BY
// values seen so far within the partition, including the current one. It
// increments by exactly one per group regardless of group size, unlike
// RankAgg which jumps by the prior group's row count.
type DenseRankAgg struct {
	rank int64
}

func NewDenseRankAgg() *DenseRankAgg { return &DenseRankAgg{} }

func (a *DenseRankAgg) NeedsLookahead() bool                   { return true }
func (a *DenseRankAgg) LookaheadOneRow(_ []types.NValue) error { return nil }

// LookaheadNextGroup increments unconditionally: DENSE_RANK counts groups,
// not rows, so groupSize plays no part in the new value.
func (a *DenseRankAgg) LookaheadNextGroup(_ int64) {
	a.rank++
}

func (a *DenseRankAgg) EndGroup() {}

func (a *DenseRankAgg) Finalize() (types.NValue, error) {
	return types.GetBigIntValue(a.rank), nil
}

func (a *DenseRankAgg) ResetAgg() {
	a.rank = 0
}

// CountAgg implements COUNT(*)/COUNT(E) OVER (PARTITION BY ... ORDER BY ...)
// under the default frame (RANGE BETWEEN UNBOUNDED PRECEDING AND CURRENT
// ROW): the running total of rows through the end of the current peer
// group. With no argument (COUNT(*)) every row counts; with one argument
// (COUNT(E)) only rows where E is non-null count.
type CountAgg struct {
	total      int64
	groupCount int64
}

func NewCountAgg() *CountAgg { return &CountAgg{} }

func (a *CountAgg) NeedsLookahead() bool { return true }

// LookaheadOneRow tallies the current group's row count as it is scanned:
// len(args) == 0 means COUNT(*), which counts every row; one argument means
// COUNT(E), which excludes rows where E is null.
func (a *CountAgg) LookaheadOneRow(args []types.NValue) error {
	if len(args) == 0 || !args[0].IsNull() {
		a.groupCount++
	}
	return nil
}

func (a *CountAgg) LookaheadNextGroup(_ int64) {
	a.total += a.groupCount
	a.groupCount = 0
}

func (a *CountAgg) EndGroup() {}

func (a *CountAgg) Finalize() (types.NValue, error) {
	return types.GetBigIntValue(a.total), nil
}

func (a *CountAgg) ResetAgg() {
	a.total = 0
	a.groupCount = 0
}

func newAggregate(kind AggregateKind) (WindowAggregate, error) {
	switch kind {
	case KindRank:
		return NewRankAgg(), nil
	case KindDenseRank:
		return NewDenseRankAgg(), nil
	case KindCount:
		return NewCountAgg(), nil
	default:
		return nil, qerr.NewUnsupportedAggregate("window: unknown aggregate kind %v", kind)
	}
}
