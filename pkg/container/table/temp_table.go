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

package table

import (
	"github.com/sitecore/qexec/internal/qerr"
	"github.com/sitecore/qexec/pkg/container/tuple"
	"github.com/sitecore/qexec/pkg/container/types"
)

// Limits bounds a TempTable's row count and byte size.
type Limits struct {
	MaxRows  int64
	MaxBytes int64
}

// TempTable is per-executor scratch storage: every temp output table in
// this core is one of these, owned by the executor that created it and
// released by the dispatcher's cleanup path on failure.
type TempTable struct {
	base
	limits Limits
	bytes  int64
}

// NewTempTable creates an empty scratch table bounded by limits.
func NewTempTable(name string, schema *types.TupleSchema, limits Limits) *TempTable {
	return &TempTable{base: newBase(name, schema), limits: limits}
}

func (t *TempTable) Iterator() *Iterator                { return t.iterator(false) }
func (t *TempTable) IteratorDeletingAsWeGo() *Iterator   { return t.iterator(true) }
func (t *TempTable) TempTuple() tuple.Tuple              { return t.base.TempTuple() }

// InsertTempTuple appends row to the table, enforcing TempTableLimits.
func (t *TempTable) InsertTempTuple(row tuple.Tuple) error {
	if row.IsNull() {
		return qerr.NewNullTuple("InsertTempTuple: null tuple")
	}
	if t.limits.MaxRows > 0 && int64(t.RowCount()) >= t.limits.MaxRows {
		return qerr.NewTempTableLimit("temp table %q exceeds max row count %d", t.name, t.limits.MaxRows)
	}
	width := int64(t.schema.TupleLength())
	if t.limits.MaxBytes > 0 && t.bytes+width > t.limits.MaxBytes {
		return qerr.NewTempTableLimit("temp table %q exceeds max byte size %d", t.name, t.limits.MaxBytes)
	}
	if err := t.insert(row.Address()); err != nil {
		return err
	}
	t.bytes += width
	return nil
}

// Truncate empties the table without deallocating the owning struct, so
// temp table objects can be reused across executor re-Prepares within the
// same process.
func (t *TempTable) Truncate() {
	t.blocks = nil
	t.bytes = 0
}

// IsEmpty reports whether the table has zero rows.
func (t *TempTable) IsEmpty() bool { return t.RowCount() == 0 }
