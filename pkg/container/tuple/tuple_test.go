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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sitecore/qexec/pkg/container/types"
)

func testSchema() *types.TupleSchema {
	return types.NewTupleSchema([]types.ColumnInfo{
		{Type: types.Integer},
		{Type: types.BigInt},
		{Type: types.Varchar, Size: 32, InBytes: true, Nullable: true},
	})
}

func TestSetValueGetValueRoundTrip(t *testing.T) {
	schema := testSchema()
	row := New(schema, make([]byte, schema.TupleLength()))

	require.NoError(t, row.SetValue(0, types.GetIntegerValue(7)))
	require.NoError(t, row.SetValue(1, types.GetBigIntValue(99)))
	require.NoError(t, row.SetValue(2, types.GetVarcharValue("hello")))

	v0, err := row.GetValue(0)
	require.NoError(t, err)
	require.Equal(t, int64(7), v0.Int64())

	v1, err := row.GetValue(1)
	require.NoError(t, err)
	require.Equal(t, int64(99), v1.Int64())

	v2, err := row.GetValue(2)
	require.NoError(t, err)
	require.Equal(t, "hello", v2.Str())
}

func TestSetValueRejectsTypeMismatch(t *testing.T) {
	schema := testSchema()
	row := New(schema, make([]byte, schema.TupleLength()))
	require.Error(t, row.SetValue(0, types.GetBigIntValue(1)))
}

func TestSetValueNullRequiresNullableColumn(t *testing.T) {
	schema := testSchema()
	row := New(schema, make([]byte, schema.TupleLength()))
	require.Error(t, row.SetValue(0, types.Null(types.Integer)))
	require.NoError(t, row.SetValue(2, types.Null(types.Varchar)))

	v, err := row.GetValue(2)
	require.NoError(t, err)
	require.True(t, v.IsNull())
}

func TestNullTupleOperationsFail(t *testing.T) {
	schema := testSchema()
	n := Null(schema)
	require.True(t, n.IsNull())

	_, err := n.GetValue(0)
	require.Error(t, err)
	require.Error(t, n.SetValue(0, types.GetIntegerValue(1)))
}

func TestCopyFromCopiesAllColumns(t *testing.T) {
	schema := testSchema()
	src := New(schema, make([]byte, schema.TupleLength()))
	require.NoError(t, src.SetValue(0, types.GetIntegerValue(5)))
	require.NoError(t, src.SetValue(1, types.GetBigIntValue(6)))
	require.NoError(t, src.SetValue(2, types.GetVarcharValue("x")))

	dst := New(schema, make([]byte, schema.TupleLength()))
	require.NoError(t, dst.CopyFrom(src))

	eq, err := dst.Equal(src)
	require.NoError(t, err)
	require.True(t, eq)
}

func TestCopyFromRejectsSchemaMismatch(t *testing.T) {
	a := types.NewTupleSchema([]types.ColumnInfo{{Type: types.Integer}})
	b := types.NewTupleSchema([]types.ColumnInfo{{Type: types.BigInt}})
	src := New(a, make([]byte, a.TupleLength()))
	dst := New(b, make([]byte, b.TupleLength()))
	require.Error(t, dst.CopyFrom(src))
}

func TestEqualDetectsDifference(t *testing.T) {
	schema := testSchema()
	a := New(schema, make([]byte, schema.TupleLength()))
	b := New(schema, make([]byte, schema.TupleLength()))
	require.NoError(t, a.SetValue(0, types.GetIntegerValue(1)))
	require.NoError(t, b.SetValue(0, types.GetIntegerValue(2)))

	eq, err := a.Equal(b)
	require.NoError(t, err)
	require.False(t, eq)
}
