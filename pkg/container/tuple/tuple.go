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

// Package tuple implements a fixed-width, non-owning row view: a Tuple is
// a typed window into some arena or table slab. A tuple is null when its
// backing storage is nil.
package tuple

import (
	"github.com/sitecore/qexec/internal/qerr"
	"github.com/sitecore/qexec/pkg/container/types"
)

// Tuple is a non-owning view over a schema-typed row. Two Tuples with the
// same schema and the same backing slice header refer to the same row;
// copying a Tuple copies the view, not the row.
type Tuple struct {
	schema *types.TupleSchema
	data   []byte
}

// New wraps data (len(data) >= schema.TupleLength()) as a Tuple. Passing a
// nil data slice constructs a null tuple.
func New(schema *types.TupleSchema, data []byte) Tuple {
	return Tuple{schema: schema, data: data}
}

// Null returns the null tuple for schema: an address-less view, a tuple
// is null exactly when its address is null.
func Null(schema *types.TupleSchema) Tuple {
	return Tuple{schema: schema}
}

func (t Tuple) IsNull() bool { return t.data == nil }

func (t Tuple) Schema() *types.TupleSchema { return t.schema }

// Address exposes the backing slice; tables copy a row's bytes from it on
// insert.
func (t Tuple) Address() []byte { return t.data }

// GetValue decodes column i into an NValue. Decoding happens on demand
// rather than eagerly for every column, since most executors only touch a
// handful of an input row's columns per call.
func (t Tuple) GetValue(i int) (types.NValue, error) {
	if t.IsNull() {
		return types.NValue{}, qerr.NewNullTuple("GetValue on null tuple")
	}
	if i < 0 || i >= t.schema.ColumnCount() {
		return types.NValue{}, qerr.NewInvariant("column index %d out of range [0,%d)", i, t.schema.ColumnCount())
	}
	col := t.schema.ColumnInfo(i)
	off := t.schema.Offset(i)
	return decode(col, t.data[off:])
}

// SetValue encodes v into column i of the tuple's backing storage. Used by
// executors writing into a scratch tuple (temp output row, key tuple).
func (t Tuple) SetValue(i int, v types.NValue) error {
	if t.IsNull() {
		return qerr.NewNullTuple("SetValue on null tuple")
	}
	col := t.schema.ColumnInfo(i)
	if col.Type != v.Type() && !v.IsNull() {
		return qerr.NewTypeMismatch("column %d expects %s, got %s", i, col.Type, v.Type())
	}
	off := t.schema.Offset(i)
	return encode(col, t.data[off:], v)
}

// CopyFrom overwrites every column of t with the corresponding column of
// src, which must share t's schema. Used by table iterators to copy each
// stored row into the caller's scratch tuple.
func (t Tuple) CopyFrom(src Tuple) error {
	if t.IsNull() || src.IsNull() {
		return qerr.NewNullTuple("CopyFrom null tuple")
	}
	if !t.schema.Equal(src.schema) {
		return qerr.NewSchemaSize("CopyFrom schema mismatch")
	}
	n := copy(t.data, src.data[:t.schema.TupleLength()])
	if n != t.schema.TupleLength() {
		return qerr.NewInvariant("CopyFrom short copy: %d of %d bytes", n, t.schema.TupleLength())
	}
	return nil
}

// Equal reports whether two tuples of the same schema hold equal values
// column-by-column, comparing each pair with NValue.Compare.
func (t Tuple) Equal(o Tuple) (bool, error) {
	if t.IsNull() != o.IsNull() {
		return false, nil
	}
	if t.IsNull() {
		return true, nil
	}
	if !t.schema.Equal(o.schema) {
		return false, qerr.NewSchemaSize("Equal schema mismatch")
	}
	for i := 0; i < t.schema.ColumnCount(); i++ {
		a, err := t.GetValue(i)
		if err != nil {
			return false, err
		}
		b, err := o.GetValue(i)
		if err != nil {
			return false, err
		}
		c, err := a.Compare(b)
		if err != nil {
			return false, err
		}
		if c != 0 {
			return false, nil
		}
	}
	return true, nil
}
