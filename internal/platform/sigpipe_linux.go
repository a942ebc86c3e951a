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

//go:build linux

package platform

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"
)

// ignoreBrokenPipe mirrors the engine's habit of not dying to a broken
// replication socket mid-flush; the DR stream collaborator owns retry, not
// the process's default SIGPIPE disposition.
func ignoreBrokenPipe() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, unix.SIGPIPE)
	go func() {
		for range c {
			// drained and discarded; see doc comment.
		}
	}()
}
