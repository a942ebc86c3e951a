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

package qerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewVariantsCarryCode(t *testing.T) {
	cases := []struct {
		err  error
		code Code
	}{
		{NewInternal("x"), ErrInternal},
		{NewInvalidInput("x"), ErrInvalidInput},
		{NewExpressionEval("x"), ErrExpressionEval},
		{NewTypeMismatch("x"), ErrTypeMismatch},
		{NewTempTableLimit("x"), ErrTempTableLimit},
		{NewConstraintViolation("x"), ErrConstraintViolation},
		{NewUnsupportedAggregate("x"), ErrUnsupportedAggregate},
		{NewInvariant("x"), ErrInvariant},
		{NewNullTuple("x"), ErrNullTuple},
		{NewSchemaSize("x"), ErrSchemaSize},
	}
	for _, c := range cases {
		require.True(t, Is(c.err, c.code))
		require.Equal(t, c.code, Code_(c.err))
	}
}

func TestCodeOfNonQerrIsInternal(t *testing.T) {
	require.Equal(t, ErrInternal, Code_(errors.New("plain error")))
}

func TestErrorMessageIncludesCodeAndFrame(t *testing.T) {
	err := NewInvalidInput("bad value %d", 7)
	msg := err.Error()
	require.Contains(t, msg, "ErrInvalidInput")
	require.Contains(t, msg, "bad value 7")
	require.Contains(t, msg, "qerr_test.go")
}

func TestIsRejectsWrongCode(t *testing.T) {
	err := NewInternal("boom")
	require.False(t, Is(err, ErrTypeMismatch))
}

func TestCodeStringUnknown(t *testing.T) {
	require.Equal(t, "ErrUnknown", Code(9999).String())
}
