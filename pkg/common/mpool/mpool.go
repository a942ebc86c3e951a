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

// Package mpool implements a bump-allocated arena pool: allocate,
// allocateZeroes, and purge, with no per-object free. Per-executor scratch
// state lives entirely in one such pool per invocation.
package mpool

import (
	"sync/atomic"

	"github.com/sitecore/qexec/internal/qerr"
)

const defaultChunkSize = 1 << 20 // 1 MiB

// Pool is a bump arena. It is not safe for concurrent use — the core's
// single-thread-per-site model means every pool is owned by exactly one
// goroutine for its whole lifetime.
type Pool struct {
	name      string
	chunkSize int
	chunks    [][]byte
	cur       []byte
	allocated int64 // atomic, for diagnostics only
}

// New creates a pool. chunkSize <= 0 uses the 1 MiB default.
func New(name string, chunkSize int) *Pool {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Pool{name: name, chunkSize: chunkSize}
}

// Allocate returns n uninitialized bytes carved out of the arena. The
// returned slice's address is stable until Purge.
func (p *Pool) Allocate(n int) ([]byte, error) {
	if n < 0 {
		return nil, qerr.NewInvalidInput("mpool %s: negative allocation size %d", p.name, n)
	}
	if n == 0 {
		return nil, nil
	}
	if len(p.cur) < n {
		size := p.chunkSize
		if n > size {
			size = n
		}
		p.chunks = append(p.chunks, make([]byte, size))
		p.cur = p.chunks[len(p.chunks)-1]
	}
	b := p.cur[:n:n]
	p.cur = p.cur[n:]
	atomic.AddInt64(&p.allocated, int64(n))
	return b, nil
}

// AllocateZeroes is Allocate with the guarantee the bytes are zero; Go slices
// from make() are already zeroed, so this is Allocate plus documentation of
// intent at call sites that rely on zero-initialization.
func (p *Pool) AllocateZeroes(n int) ([]byte, error) {
	return p.Allocate(n)
}

// Purge releases every chunk at once. Callers must not touch memory handed
// out by a prior Allocate/AllocateZeroes after this returns.
func (p *Pool) Purge() {
	p.chunks = nil
	p.cur = nil
	atomic.StoreInt64(&p.allocated, 0)
}

// Allocated reports the cumulative number of bytes handed out since the last
// Purge, for diagnostics/tests.
func (p *Pool) Allocated() int64 {
	return atomic.LoadInt64(&p.allocated)
}

// Name returns the pool's diagnostic name.
func (p *Pool) Name() string { return p.name }
