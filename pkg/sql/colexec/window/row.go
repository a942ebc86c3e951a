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

import "github.com/sitecore/qexec/pkg/container/types"

// WindowAggregateRow is the one-per-operator vector of running aggregates,
// one slot per requested window function, addressed by column position in
// the output schema.
type WindowAggregateRow struct {
	aggs []WindowAggregate
}

func newWindowAggregateRow(specs []AggregateSpec) (*WindowAggregateRow, error) {
	aggs := make([]WindowAggregate, len(specs))
	for i, spec := range specs {
		agg, err := newAggregate(spec.Kind)
		if err != nil {
			return nil, err
		}
		aggs[i] = agg
	}
	return &WindowAggregateRow{aggs: aggs}, nil
}

func (r *WindowAggregateRow) needsLookahead() bool {
	for _, a := range r.aggs {
		if a.NeedsLookahead() {
			return true
		}
	}
	return false
}

func (r *WindowAggregateRow) lookaheadOneRow(argsPerAgg [][]types.NValue) error {
	for i, a := range r.aggs {
		if !a.NeedsLookahead() {
			continue
		}
		if err := a.LookaheadOneRow(argsPerAgg[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *WindowAggregateRow) lookaheadNextGroup(groupSize int64) {
	for _, a := range r.aggs {
		a.LookaheadNextGroup(groupSize)
	}
}

func (r *WindowAggregateRow) endGroup() {
	for _, a := range r.aggs {
		a.EndGroup()
	}
}

func (r *WindowAggregateRow) finalize() ([]types.NValue, error) {
	out := make([]types.NValue, len(r.aggs))
	for i, a := range r.aggs {
		v, err := a.Finalize()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r *WindowAggregateRow) resetAgg() {
	for _, a := range r.aggs {
		a.ResetAgg()
	}
}
