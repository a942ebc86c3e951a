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

package qlog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitIsSafeToCallTwice(t *testing.T) {
	Init(true, FileConfig{})
	first := Base()
	Init(false, FileConfig{}) // no-op: started is already true
	require.Same(t, first, Base())
}

func TestForSiteAddsFields(t *testing.T) {
	l := ForSite(3, 7)
	require.NotNil(t, l)
}

func TestOrDefault(t *testing.T) {
	require.Equal(t, 5, orDefault(0, 5))
	require.Equal(t, 9, orDefault(9, 5))
}
