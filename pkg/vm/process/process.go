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

// Package process holds the per-site, per-thread bundle of collaborators
// the ExecutorContext is built from and the narrow interfaces the core
// borrows from the host engine: the DR stream, the undo quantum, and site
// identity. None of these are owned here — they are passed through from
// the host.
package process

import (
	"github.com/sitecore/qexec/internal/config"
	"github.com/sitecore/qexec/pkg/common/mpool"
)

// DRStream is the AbstractDRTupleStream collaborator: a durability
// replication log-tailing sink. The core only rotates and flushes it; it
// never writes to it directly.
type DRStream interface {
	PeriodicFlush(spHandleLow, spHandleHigh int64)
	SetLastCommittedSequenceNumber(n int64)
	CommittedSequenceNumber() int64
	OpenSpHandle() int64
}

// UndoQuantum is an opaque passthrough collaborator: the core threads it
// to operators that need to register undo actions but never interprets it
// itself.
type UndoQuantum struct {
	TxnID int64
}

// Locals is the EngineLocals bundle a site's ExecutorContext is built
// from: SiteID/PartitionID/HostID identify the site; Pool is that site's
// arena. Nothing in this repo swaps a Locals onto another site's goroutine.
type Locals struct {
	SiteID      int32
	PartitionID int32
	HostID      int32
	Pool        *mpool.Pool
}

// NewLocals builds a Locals bundle for a freshly configured site.
func NewLocals(cfg config.SiteConfig) Locals {
	return Locals{
		SiteID:      cfg.SiteID,
		PartitionID: cfg.PartitionID,
		HostID:      cfg.HostID,
		Pool:        mpool.New("site-thread-local", int(cfg.PoolChunkSize)),
	}
}
