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

package types

import (
	"strings"

	"github.com/sitecore/qexec/internal/qerr"
)

// NValue is a typed scalar cell. It carries its own ValueType so that
// comparisons and casts can be checked dynamically: values have a total
// order within each type, and cross-type comparison is a type error.
type NValue struct {
	typ    ValueType
	isNull bool
	i      int64
	f      float64
	s      string
}

// Null constructs a null value of the given type. Its type is preserved so
// that, e.g., a null BigInt can still be compared against another BigInt;
// Compare orders a null before every non-null value of its type.
func Null(t ValueType) NValue { return NValue{typ: t, isNull: true} }

func GetBigIntValue(v int64) NValue    { return NValue{typ: BigInt, i: v} }
func GetIntegerValue(v int32) NValue   { return NValue{typ: Integer, i: int64(v)} }
func GetSmallIntValue(v int16) NValue  { return NValue{typ: SmallInt, i: int64(v)} }
func GetTinyIntValue(v int8) NValue    { return NValue{typ: TinyInt, i: int64(v)} }
func GetDoubleValue(v float64) NValue  { return NValue{typ: Double, f: v} }
func GetVarcharValue(v string) NValue  { return NValue{typ: Varchar, s: v} }
func GetTimestampValue(v int64) NValue { return NValue{typ: Timestamp, i: v} }

func (v NValue) Type() ValueType { return v.typ }
func (v NValue) IsNull() bool    { return v.isNull }

// Int64 returns the integer payload of an integral NValue. Callers must
// check Type()/IsNull() first; this does not itself validate.
func (v NValue) Int64() int64 { return v.i }

// Float64 returns the float payload of a Double NValue.
func (v NValue) Float64() float64 { return v.f }

// Str returns the string payload of a Varchar NValue.
func (v NValue) Str() string { return v.s }

// Compare implements NValue's total order within a type; comparing across
// types (other than via an explicit CastAs) is a type error. Null sorts
// before every non-null value of the same type, and two nulls of the same
// type compare equal — the ordering SQL window functions need to group
// NULL order-by keys into one peer group.
func (v NValue) Compare(o NValue) (int, error) {
	if v.typ != o.typ {
		return 0, qerr.NewTypeMismatch("cannot compare %s to %s", v.typ, o.typ)
	}
	if v.isNull || o.isNull {
		switch {
		case v.isNull && o.isNull:
			return 0, nil
		case v.isNull:
			return -1, nil
		default:
			return 1, nil
		}
	}
	switch v.typ {
	case TinyInt, SmallInt, Integer, BigInt, Timestamp:
		switch {
		case v.i < o.i:
			return -1, nil
		case v.i > o.i:
			return 1, nil
		default:
			return 0, nil
		}
	case Double:
		switch {
		case v.f < o.f:
			return -1, nil
		case v.f > o.f:
			return 1, nil
		default:
			return 0, nil
		}
	case Varchar:
		return strings.Compare(v.s, o.s), nil
	default:
		return 0, qerr.NewTypeMismatch("unsupported comparison type %s", v.typ)
	}
}

// OpAdd adds two NValues of the same numeric type, producing a third. Used
// by RankAgg/DenseRankAgg-adjacent expression evaluation, not by the
// aggregates themselves (those track their own int64 counters).
func (v NValue) OpAdd(o NValue) (NValue, error) {
	if v.isNull || o.isNull {
		return Null(v.typ), nil
	}
	if v.typ != o.typ {
		return NValue{}, qerr.NewTypeMismatch("cannot add %s to %s", o.typ, v.typ)
	}
	switch v.typ {
	case TinyInt, SmallInt, Integer, BigInt:
		return NValue{typ: v.typ, i: v.i + o.i}, nil
	case Double:
		return NValue{typ: Double, f: v.f + o.f}, nil
	default:
		return NValue{}, qerr.NewTypeMismatch("type %s does not support addition", v.typ)
	}
}

// CastAs converts v to the requested type, the way VoltDB's NValue::castAs
// narrows/widens scalars for output-column type coercion.
func (v NValue) CastAs(t ValueType) (NValue, error) {
	if v.isNull {
		return Null(t), nil
	}
	if v.typ == t {
		return v, nil
	}
	switch t {
	case TinyInt, SmallInt, Integer, BigInt, Timestamp:
		switch v.typ {
		case TinyInt, SmallInt, Integer, BigInt, Timestamp:
			return NValue{typ: t, i: v.i}, nil
		case Double:
			return NValue{typ: t, i: int64(v.f)}, nil
		}
	case Double:
		switch v.typ {
		case TinyInt, SmallInt, Integer, BigInt, Timestamp:
			return NValue{typ: Double, f: float64(v.i)}, nil
		case Double:
			return NValue{typ: Double, f: v.f}, nil
		}
	case Varchar:
		return NValue{typ: Varchar, s: v.s}, nil
	}
	return NValue{}, qerr.NewTypeMismatch("cannot cast %s to %s", v.typ, t)
}
