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

// Package platform performs one-time, process-wide environment tuning:
// pinning TZ and locale, setting the Go GC target as this runtime's
// stand-in for allocator-return tuning, and (on Linux) ignoring SIGPIPE.
package platform

import (
	"os"
	"runtime/debug"
	"sync"
)

var once sync.Once

// Bootstrap runs the one-time per-process tuning. Safe to call from every
// site's init path; only the first call has effect.
func Bootstrap() {
	once.Do(func() {
		pinTimezone()
		pinLocale()
		tuneAllocator()
		ignoreBrokenPipe()
	})
}

func pinTimezone() {
	if os.Getenv("TZ") == "" {
		_ = os.Setenv("TZ", "UTC")
	}
}

func pinLocale() {
	// The original engine pins the C locale; Go's standard library does not
	// consult the process locale for number/string formatting, so this is
	// only meaningful for cgo-linked components. Kept for any such
	// component's benefit; otherwise a no-op.
	if os.Getenv("LC_ALL") == "" {
		_ = os.Setenv("LC_ALL", "C")
	}
}

// tuneAllocator is the Go-runtime analog of the original's glibc mallopt
// tuning. Go does not use glibc malloc for heap allocation, so there are no
// fastbin/trim/mmap thresholds to set; GOGC/soft-memory-limit are this
// runtime's equivalent RSS-return knobs. See DESIGN.md for why this is
// standard-library rather than a wired dependency.
func tuneAllocator() {
	debug.SetGCPercent(100)
}
