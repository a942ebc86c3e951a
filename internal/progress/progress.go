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

// Package progress exposes a progress-reporting collaborator surface: a
// long-running executor reports rows processed so far; the host engine
// decides what, if anything, to do with that (external interruption,
// metrics). This layer never polls for cancellation itself.
package progress

// Monitor receives periodic progress counts from an executing operator.
type Monitor interface {
	// CountdownProgress reports that n additional rows have been processed
	// since the last call.
	CountdownProgress(n int)
}

type noop struct{}

func (noop) CountdownProgress(int) {}

// Noop is the default monitor wired by the dispatcher when the host does
// not supply one.
var Noop Monitor = noop{}

// Counting is a test double that accumulates the total reported.
type Counting struct {
	Total int
}

func (c *Counting) CountdownProgress(n int) { c.Total += n }
