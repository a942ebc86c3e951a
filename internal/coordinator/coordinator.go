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

// Package coordinator implements the host-scoped replicated-write
// coordination state: a single object, shared by every site on a host,
// gating which site actually performs a replicated INSERT and releasing
// the others once it has. It is constructed once at host startup and
// never torn down.
package coordinator

import (
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/sitecore/qexec/internal/platform"
	"github.com/sitecore/qexec/internal/qerr"
	"github.com/sitecore/qexec/internal/qlog"
)

// Coordinator is the per-host replicated-write gate. Exactly one instance
// exists per host process; every site holds a shared reference to it.
type Coordinator struct {
	sitesPerHost int32

	mu     sync.Mutex
	latch  int32 // globalTxnStartCountdownLatch
	gen    int64 // bumped once per completed round; waiters block until it advances past the value they observed at entry
	cond   *sync.Cond
	logger *zap.Logger
	pool   *ants.Pool
}

// New constructs a host coordinator for sitesPerHost sites, running the
// one-time process tuning the first time any host coordinator is built.
func New(sitesPerHost int32) (*Coordinator, error) {
	platform.Bootstrap()

	pool, err := ants.NewPool(int(sitesPerHost)+1, ants.WithNonblocking(false))
	if err != nil {
		return nil, qerr.NewInternal("coordinator: creating worker pool: %v", err)
	}

	c := &Coordinator{
		sitesPerHost: sitesPerHost,
		latch:        sitesPerHost,
		logger:       qlog.Base().Named("coordinator"),
		pool:         pool,
	}
	c.cond = sync.NewCond(&c.mu)
	return c, nil
}

// Close releases the coordinator's worker pool. Hosts are expected to call
// this once at shutdown; there is no mid-life teardown of the latch state.
func (c *Coordinator) Close() {
	c.pool.Release()
}

// CoordinateReplicatedWrite implements the replicated-insert protocol:
// every site reaching a replicated INSERT calls this with the action that
// performs the write. Exactly one caller across the host becomes the
// driver (runs action); every other caller blocks until the driver
// finishes, then returns without running action itself.
//
// Each waiter captures the round generation in the same critical section
// as its latch decrement, then blocks until gen advances past that value.
// gen only ever increases, so a waiter can never observe a stale
// completion signal left over from a previous round: unlike a reusable
// "done" flag, there is nothing for the driver to reset before the round
// starts.
//
// If action fails, the driver still resets the latch and bumps gen before
// returning the error, so waiters never deadlock on a failed write.
func (c *Coordinator) CoordinateReplicatedWrite(action func() error) (isDriver bool, err error) {
	c.mu.Lock()
	startGen := c.gen
	c.latch--
	isDriver = c.latch == 0
	c.mu.Unlock()

	if !isDriver {
		c.mu.Lock()
		for c.gen == startGen {
			c.cond.Wait()
		}
		c.mu.Unlock()
		return false, nil
	}

	runErr := action()

	c.mu.Lock()
	c.latch = c.sitesPerHost
	c.gen++
	c.cond.Broadcast()
	c.mu.Unlock()

	if runErr != nil {
		c.logger.Error("replicated write driver failed", zap.Error(runErr))
		return true, runErr
	}
	return true, nil
}

// Submit runs fn on the coordinator's bounded worker pool, the way the
// teacher dispatches bounded background work through ants.Pool rather than
// spawning unbounded goroutines.
func (c *Coordinator) Submit(fn func()) error {
	return c.pool.Submit(fn)
}
