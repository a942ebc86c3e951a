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

package tuple

import (
	"encoding/binary"
	"math"

	"github.com/sitecore/qexec/internal/qerr"
	"github.com/sitecore/qexec/pkg/container/types"
)

// nullMarker precedes the Varchar payload to distinguish a zero-length
// string from a null one, since both would otherwise encode to zero bytes.
const nullMarker = 0xFF
const notNullMarker = 0x00

func decode(col types.ColumnInfo, buf []byte) (types.NValue, error) {
	switch col.Type {
	case types.TinyInt:
		return types.GetTinyIntValue(int8(buf[0])), nil
	case types.SmallInt:
		return types.GetSmallIntValue(int16(binary.LittleEndian.Uint16(buf))), nil
	case types.Integer:
		return types.GetIntegerValue(int32(binary.LittleEndian.Uint32(buf))), nil
	case types.BigInt:
		return types.GetBigIntValue(int64(binary.LittleEndian.Uint64(buf))), nil
	case types.Timestamp:
		return types.GetTimestampValue(int64(binary.LittleEndian.Uint64(buf))), nil
	case types.Double:
		return types.GetDoubleValue(math.Float64frombits(binary.LittleEndian.Uint64(buf))), nil
	case types.Varchar:
		if buf[0] == nullMarker {
			return types.Null(types.Varchar), nil
		}
		n := int(binary.LittleEndian.Uint32(buf[1:5]))
		return types.GetVarcharValue(string(buf[5 : 5+n])), nil
	default:
		return types.NValue{}, qerr.NewInvariant("decode: unsupported column type %s", col.Type)
	}
}

func encode(col types.ColumnInfo, buf []byte, v types.NValue) error {
	if v.IsNull() {
		if !col.Nullable {
			return qerr.NewConstraintViolation("column type %s is not nullable", col.Type)
		}
		if col.Type == types.Varchar {
			buf[0] = nullMarker
			return nil
		}
		for i := range buf[:col.Type.FixedSize()] {
			buf[i] = 0
		}
		return nil
	}
	switch col.Type {
	case types.TinyInt:
		buf[0] = byte(v.Int64())
	case types.SmallInt:
		binary.LittleEndian.PutUint16(buf, uint16(v.Int64()))
	case types.Integer:
		binary.LittleEndian.PutUint32(buf, uint32(v.Int64()))
	case types.BigInt, types.Timestamp:
		binary.LittleEndian.PutUint64(buf, uint64(v.Int64()))
	case types.Double:
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v.Float64()))
	case types.Varchar:
		s := v.Str()
		if len(s)+5 > col.Size {
			return qerr.NewConstraintViolation("varchar value of %d bytes exceeds column width %d", len(s), col.Size)
		}
		buf[0] = notNullMarker
		binary.LittleEndian.PutUint32(buf[1:5], uint32(len(s)))
		copy(buf[5:5+len(s)], s)
	default:
		return qerr.NewInvariant("encode: unsupported column type %s", col.Type)
	}
	return nil
}
