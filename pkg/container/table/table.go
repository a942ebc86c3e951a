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

// Package table implements the Table/TableIterator model: persistent
// tables (durable, indexed, possibly replicated) and temp tables
// (per-executor scratch, bounded by TempTableLimits), both exposing a
// common iteration and scratch-tuple contract. Storage is block-based, the
// way matrixone's container/batch groups rows into reusable chunks,
// generalized here to a row-major layout.
package table

import (
	"github.com/sitecore/qexec/pkg/container/tuple"
	"github.com/sitecore/qexec/pkg/container/types"
)

const blockRowCapacity = 1024

// block is a contiguous run of rows sharing one schema's fixed width.
type block struct {
	rows [][]byte
}

// Table is the common surface persistent and temp tables share.
type Table interface {
	Iterator() *Iterator
	IteratorDeletingAsWeGo() *Iterator
	ColumnCount() int
	Schema() *types.TupleSchema
	TempTuple() tuple.Tuple
	InsertTempTuple(tuple.Tuple) error
	RowCount() int
}

// base holds the block storage shared by TempTable and PersistentTable.
type base struct {
	schema *types.TupleSchema
	blocks []*block
	name   string
}

func newBase(name string, schema *types.TupleSchema) base {
	return base{name: name, schema: schema}
}

func (b *base) ColumnCount() int { return b.schema.ColumnCount() }

func (b *base) Schema() *types.TupleSchema { return b.schema }

func (b *base) RowCount() int {
	n := 0
	for _, blk := range b.blocks {
		n += len(blk.rows)
	}
	return n
}

// TempTuple returns a scratch row sharing the table's schema but backed by
// its own storage, not yet part of the table — callers fill it in and pass
// it to InsertTempTuple.
func (b *base) TempTuple() tuple.Tuple {
	return tuple.New(b.schema, make([]byte, b.schema.TupleLength()))
}

func (b *base) insert(row []byte) error {
	if len(b.blocks) == 0 || len(b.blocks[len(b.blocks)-1].rows) >= blockRowCapacity {
		b.blocks = append(b.blocks, &block{})
	}
	blk := b.blocks[len(b.blocks)-1]
	owned := make([]byte, len(row))
	copy(owned, row)
	blk.rows = append(blk.rows, owned)
	return nil
}

func (b *base) iterator(deleteAsWeGo bool) *Iterator {
	return &Iterator{owner: b, deleteAsWeGo: deleteAsWeGo, blockIdx: -1}
}

// Iterator is the mutable forward cursor: HasNext/Next/GetLocation, with
// an optional deleting-as-we-go mode that drops fully scanned blocks to
// bound memory on streaming temp sources.
type Iterator struct {
	owner        *base
	blockIdx     int
	rowIdx       int
	location     int
	deleteAsWeGo bool
}

// HasNext reports whether another row remains.
func (it *Iterator) HasNext() bool {
	bi, ri := it.blockIdx, it.rowIdx
	if bi < 0 {
		bi, ri = 0, 0
	} else {
		ri++
	}
	for bi < len(it.owner.blocks) {
		blk := it.owner.blocks[bi]
		if blk != nil && ri < len(blk.rows) {
			return true
		}
		bi++
		ri = 0
	}
	return false
}

// Next advances the cursor and writes the next row into out, which must
// share the iterated table's schema. Returns false once exhausted.
func (it *Iterator) Next(out tuple.Tuple) (bool, error) {
	if it.blockIdx < 0 {
		it.blockIdx, it.rowIdx = 0, 0
	} else {
		it.rowIdx++
	}
	for it.blockIdx < len(it.owner.blocks) {
		blk := it.owner.blocks[it.blockIdx]
		if blk != nil && it.rowIdx < len(blk.rows) {
			row := blk.rows[it.rowIdx]
			if err := out.CopyFrom(tuple.New(it.owner.schema, row)); err != nil {
				return false, err
			}
			it.location++
			if it.deleteAsWeGo && it.rowIdx == len(blk.rows)-1 {
				it.owner.blocks[it.blockIdx] = nil
			}
			return true, nil
		}
		it.blockIdx++
		it.rowIdx = 0
	}
	return false, nil
}

// GetLocation returns how many rows this cursor has yielded so far, used by
// the window executor's middle-never-passes-leading invariant.
func (it *Iterator) GetLocation() int { return it.location }

// Equal reports whether two iterators are positioned identically.
func (it *Iterator) Equal(o *Iterator) bool {
	return it.owner == o.owner && it.blockIdx == o.blockIdx && it.rowIdx == o.rowIdx
}
