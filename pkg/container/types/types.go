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

// Package types defines the scalar type system of the query execution
// core: ValueType, the typed scalar cell NValue, and the ordered,
// immutable TupleSchema that describes a row's layout.
package types

import (
	"fmt"
)

// ValueType enumerates the scalar types a column may hold.
type ValueType uint8

const (
	Invalid ValueType = iota
	TinyInt
	SmallInt
	Integer
	BigInt
	Double
	Varchar
	Timestamp
)

func (t ValueType) String() string {
	switch t {
	case TinyInt:
		return "TINYINT"
	case SmallInt:
		return "SMALLINT"
	case Integer:
		return "INTEGER"
	case BigInt:
		return "BIGINT"
	case Double:
		return "DOUBLE"
	case Varchar:
		return "VARCHAR"
	case Timestamp:
		return "TIMESTAMP"
	default:
		return "INVALID"
	}
}

// FixedSize returns the in-line storage width of t in bytes. Varchar values
// are also stored in-line: a column with InBytes set is Size bytes wide,
// otherwise it gets the 8-byte slot returned here.
func (t ValueType) FixedSize() int {
	switch t {
	case TinyInt:
		return 1
	case SmallInt:
		return 2
	case Integer:
		return 4
	case BigInt, Double, Timestamp:
		return 8
	case Varchar:
		return 8 // default slot when the column does not set InBytes
	default:
		return 0
	}
}

// ColumnInfo is one (ValueType, sizeBytes, nullable, inBytes) entry of a
// TupleSchema.
type ColumnInfo struct {
	Type     ValueType
	Size     int  // declared width in bytes; a Varchar value needs its length plus a 5-byte header
	Nullable bool
	InBytes  bool // true: the column is Size bytes wide; false: it is Type.FixedSize() bytes wide
}

// TupleSchema is an ordered, immutable list of columns. It is constructed
// once by its owner and explicitly Free'd: immutable once constructed,
// freed explicitly by its owner.
type TupleSchema struct {
	columns []ColumnInfo
	offsets []int
	width   int
	freed   bool
}

// NewTupleSchema builds an immutable schema from an ordered column list,
// computing each column's byte offset within the tuple's fixed-width row.
func NewTupleSchema(columns []ColumnInfo) *TupleSchema {
	s := &TupleSchema{columns: append([]ColumnInfo(nil), columns...)}
	s.offsets = make([]int, len(s.columns))
	off := 0
	for i, c := range s.columns {
		s.offsets[i] = off
		if c.InBytes {
			off += c.Size
		} else {
			off += c.Type.FixedSize()
		}
	}
	s.width = off
	return s
}

// ColumnCount returns the number of columns.
func (s *TupleSchema) ColumnCount() int { return len(s.columns) }

// ColumnInfo returns the i'th column's descriptor.
func (s *TupleSchema) ColumnInfo(i int) ColumnInfo { return s.columns[i] }

// Offset returns the byte offset of column i within a row of this schema.
func (s *TupleSchema) Offset(i int) int { return s.offsets[i] }

// TupleLength returns the fixed row width in bytes.
func (s *TupleSchema) TupleLength() int { return s.width }

// Free marks the schema as released. Subsequent use is a programming
// error; detecting use-after-free is left to callers (there is no live
// tuple scan here to assert against without adding overhead on every
// access).
func (s *TupleSchema) Free() { s.freed = true }

// Freed reports whether Free has been called.
func (s *TupleSchema) Freed() bool { return s.freed }

// Equal reports whether two schemas describe identical column layouts,
// used by Tuple.CopyFrom and Tuple.Equal to reject mismatched rows.
func (s *TupleSchema) Equal(o *TupleSchema) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil || len(s.columns) != len(o.columns) {
		return false
	}
	for i := range s.columns {
		if s.columns[i] != o.columns[i] {
			return false
		}
	}
	return true
}

func (s *TupleSchema) String() string {
	return fmt.Sprintf("TupleSchema(%d cols, %d bytes)", len(s.columns), s.width)
}
