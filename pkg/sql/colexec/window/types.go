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

// Package window implements the window-function executor: given an input
// table pre-sorted by PARTITION BY then ORDER BY, it emits one output row
// per input row holding each requested window aggregate's value plus the
// pass-through columns.
package window

import (
	"github.com/sitecore/qexec/pkg/container/table"
	"github.com/sitecore/qexec/pkg/container/tuple"
	"github.com/sitecore/qexec/pkg/container/types"
	"github.com/sitecore/qexec/pkg/vm"
)

const argName = "window"

// Expr is the expression-evaluation surface key extraction and pass-through
// columns need. It is the Eval method of projection.Expr alone, so any type
// that satisfies projection.Expr satisfies this interface without adapters.
type Expr interface {
	Eval(row tuple.Tuple, params []types.NValue) (types.NValue, error)
}

// AggregateKind names the shipped WindowAggregate variants: a tagged sum
// over a small, closed variant set.
type AggregateKind int

const (
	KindRank AggregateKind = iota
	KindDenseRank
	KindCount
)

func (k AggregateKind) String() string {
	switch k {
	case KindRank:
		return "RANK"
	case KindDenseRank:
		return "DENSE_RANK"
	case KindCount:
		return "COUNT"
	default:
		return "UNKNOWN"
	}
}

// AggregateSpec is one requested window aggregate: its kind, its argument
// expressions (empty for COUNT(*)), and the output type to finalize as.
type AggregateSpec struct {
	Kind       AggregateKind
	Args       []Expr
	OutputType types.ValueType
}

// Argument is this operator's plan-node-derived configuration.
type Argument struct {
	vm.Base

	PartitionBy []Expr
	OrderBy     []Expr
	Aggregates  []AggregateSpec
	// PassThrough evaluates the output columns past len(Aggregates),
	// against the current input row.
	PassThrough []Expr

	Input        table.Table
	OutputSchema *types.TupleSchema
	TempLimits   table.Limits
	OutputName   string

	ctr *container
}
