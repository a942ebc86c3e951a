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

package vm

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sitecore/qexec/internal/qerr"
	"github.com/sitecore/qexec/internal/qlog"
	"github.com/sitecore/qexec/internal/progress"
	"github.com/sitecore/qexec/pkg/common/mpool"
	"github.com/sitecore/qexec/pkg/container/table"
	"github.com/sitecore/qexec/pkg/container/types"
	"github.com/sitecore/qexec/pkg/vm/process"
)

// ReplicatedWriteCoordinator is the narrow surface ExecutorContext needs
// from internal/coordinator.Coordinator. Defined here rather than imported
// so that vm — a low-level leaf package other executors depend on — never
// imports the host-scoped coordination package; the dispatcher is handed a
// Coordinator value that satisfies this interface at construction time.
type ReplicatedWriteCoordinator interface {
	CoordinateReplicatedWrite(action func() error) (isDriver bool, err error)
}

// ReplicatedInsertTarget is implemented by any Operator whose Call performs
// an INSERT into a replicated persistent table. ExecuteExecutorList type-
// asserts each executor against this interface to decide whether
// replicated-write coordination applies.
type ReplicatedInsertTarget interface {
	Operator
	TargetTable() *table.PersistentTable
}

// Engine is the narrow callback surface this core needs from VoltDBEngine:
// only the modified-tuple tally executors like swap-tables report to.
// Driver-selection bookkeeping lives in the ReplicatedWriteCoordinator.
type Engine interface {
	table.Engine
}

// SubqueryState is the per-subquery bookkeeping executeExecutors tracks:
// its executor list and its last output table.
type SubqueryState struct {
	List   []Operator
	Output table.Table
}

// ExecutorContext is the per-site, per-thread object: the shared
// parameter vector, the replication/undo collaborators, and the map from
// subquery ID to the executor list that answers it.
type ExecutorContext struct {
	SiteID      int32
	PartitionID int32
	HostID      int32

	Params      []types.NValue
	UndoQuantum *process.UndoQuantum
	// TempStringPool backs short-lived string materialization during
	// expression evaluation (e.g. Varchar concatenation results); it is a
	// plain arena like the executor pools, scoped to the whole context
	// rather than one executor.
	TempStringPool *mpool.Pool

	DRStream           process.DRStream
	DRReplicatedStream process.DRStream

	Engine      Engine
	Coordinator ReplicatedWriteCoordinator

	// Progress receives periodic row-count callbacks from long-running
	// executors (window, projection). Defaults to progress.Noop.
	Progress progress.Monitor

	executorsMap       map[int64]*SubqueryState
	subqueryContextMap map[int64]interface{}

	log *zap.Logger
}

// NewExecutorContext builds a context for one transaction batch, bound to
// the current goroutine by the caller via Bind.
func NewExecutorContext(locals process.Locals, params []types.NValue, engine Engine, coord ReplicatedWriteCoordinator) *ExecutorContext {
	return &ExecutorContext{
		SiteID:             locals.SiteID,
		PartitionID:        locals.PartitionID,
		HostID:             locals.HostID,
		Params:             params,
		Engine:             engine,
		Coordinator:        coord,
		Progress:           progress.Noop,
		TempStringPool:     mpool.New("temp-string-pool", 0),
		executorsMap:       make(map[int64]*SubqueryState),
		subqueryContextMap: make(map[int64]interface{}),
		log:                qlog.ForSite(locals.SiteID, locals.PartitionID),
	}
}

// RegisterExecutorList installs the executor list for a subquery. The host
// calls this once per subquery after plan compilation, before any
// ExecuteExecutors(subqueryId) call — establishing the topological
// ordering of list is the caller's responsibility.
func (ctx *ExecutorContext) RegisterExecutorList(subqueryID int64, list []Operator) {
	ctx.executorsMap[subqueryID] = &SubqueryState{List: list}
}

// ExecuteExecutors looks up subqueryID's executor list and runs it.
func (ctx *ExecutorContext) ExecuteExecutors(subqueryID int64) (table.Table, error) {
	state, ok := ctx.executorsMap[subqueryID]
	if !ok {
		return nil, qerr.NewInvalidInput("no executor list registered for subquery %d", subqueryID)
	}
	return ctx.ExecuteExecutorList(state.List, subqueryID)
}

// ExecuteExecutorList runs list in order, passing the shared parameter
// array, and returns the last executor's output table. On failure it runs
// the full cleanup sequence on every executor in list before returning
// the error.
func (ctx *ExecutorContext) ExecuteExecutorList(list []Operator, subqueryID int64) (out table.Table, err error) {
	for i, op := range list {
		if prepErr := op.Prepare(ctx); prepErr != nil {
			ctx.log.Error("executor prepare failed", zap.Int("index", i), zap.Error(prepErr))
			ctx.failAndCleanup(list)
			return nil, prepErr
		}

		result, callErr := ctx.callWithReplicationGate(op)
		if callErr != nil {
			ctx.log.Error("executor call failed", zap.Int("index", i), zap.Error(callErr))
			ctx.failAndCleanup(list)
			return nil, callErr
		}
		out = result.OutputTable
	}

	if state, ok := ctx.executorsMap[subqueryID]; ok {
		state.Output = out
	} else {
		ctx.executorsMap[subqueryID] = &SubqueryState{List: list, Output: out}
	}
	return out, nil
}

// callWithReplicationGate runs op.Call, routing it through the host
// coordinator first when op targets a replicated table: the driver
// executes it once; waiters skip straight past.
func (ctx *ExecutorContext) callWithReplicationGate(op Operator) (ExecResult, error) {
	target, isReplicated := op.(ReplicatedInsertTarget)
	if !isReplicated || target.TargetTable() == nil || !target.TargetTable().Replicated() || ctx.Coordinator == nil {
		return op.Call(ctx)
	}

	var result ExecResult
	var callErr error
	_, coordErr := ctx.Coordinator.CoordinateReplicatedWrite(func() error {
		result, callErr = op.Call(ctx)
		if callErr != nil {
			return callErr
		}
		if result.Status == ExecFailed {
			return qerr.NewInternal("replicated insert executor reported failure")
		}
		return nil
	})
	if coordErr != nil {
		return ExecResult{Status: ExecFailed}, coordErr
	}
	if callErr != nil {
		return ExecResult{Status: ExecFailed}, callErr
	}
	// Waiters (isDriver == false, coordErr == nil) never ran op.Call, so
	// they report op.OutputTable(): the table this site's op set up in
	// Prepare, not an output produced by the driver's insert.
	if result.OutputTable == nil {
		result.OutputTable = op.OutputTable()
	}
	return result, nil
}

func (ctx *ExecutorContext) failAndCleanup(list []Operator) {
	for _, op := range list {
		op.CleanupTempOutputTable()
		op.CleanupMemoryPool()
		for _, child := range op.Children() {
			child.CleanupMemoryPool()
		}
	}
}

// SetSubqueryContext stashes arbitrary per-subquery state (e.g. a
// compiled-expression cache) keyed by subquery ID. This core does not
// populate it itself; it exists for host-side callers that need a place
// to keep subquery-scoped state alongside the executor list.
func (ctx *ExecutorContext) SetSubqueryContext(subqueryID int64, v interface{}) {
	ctx.subqueryContextMap[subqueryID] = v
}

// GetSubqueryContext retrieves state stashed by SetSubqueryContext.
func (ctx *ExecutorContext) GetSubqueryContext(subqueryID int64) (interface{}, bool) {
	v, ok := ctx.subqueryContextMap[subqueryID]
	return v, ok
}

// GetSubqueryOutputTable returns the last output table for subqueryID
// without executing anything.
func (ctx *ExecutorContext) GetSubqueryOutputTable(subqueryID int64) table.Table {
	if state, ok := ctx.executorsMap[subqueryID]; ok {
		return state.Output
	}
	return nil
}

// CleanupAllExecutors releases every registered subquery's temp output
// tables. Idempotent: a second call finds nothing left to release.
func (ctx *ExecutorContext) CleanupAllExecutors() {
	for _, state := range ctx.executorsMap {
		for _, op := range state.List {
			op.CleanupTempOutputTable()
		}
		state.Output = nil
	}
}

// CleanupExecutorsForSubquery releases one subquery's temp output tables.
func (ctx *ExecutorContext) CleanupExecutorsForSubquery(subqueryID int64) {
	state, ok := ctx.executorsMap[subqueryID]
	if !ok {
		return
	}
	for _, op := range state.List {
		op.CleanupTempOutputTable()
	}
	state.Output = nil
}

// AllOutputTempTablesAreEmpty reports whether every registered subquery's
// output table currently has zero rows.
func (ctx *ExecutorContext) AllOutputTempTablesAreEmpty() bool {
	for _, state := range ctx.executorsMap {
		if state.Output != nil && state.Output.RowCount() > 0 {
			return false
		}
	}
	return true
}

// SetDrStream rotates the primary DR stream: flushes the old stream up to
// max(lastCommittedSpHandle, new.openSpHandle), then carries the old
// committedSequenceNumber onto the new stream so that
// committedSequenceNumber stays monotonically non-decreasing across
// rotations.
func (ctx *ExecutorContext) SetDrStream(lastCommittedSpHandle int64, newStream process.DRStream) error {
	rotated, err := rotateDrStream(ctx.DRStream, newStream, lastCommittedSpHandle)
	if err != nil {
		return err
	}
	ctx.DRStream = rotated
	return nil
}

// SetDrReplicatedStream is SetDrStream's counterpart for the replicated DR
// stream.
func (ctx *ExecutorContext) SetDrReplicatedStream(lastCommittedSpHandle int64, newStream process.DRStream) error {
	rotated, err := rotateDrStream(ctx.DRReplicatedStream, newStream, lastCommittedSpHandle)
	if err != nil {
		return err
	}
	ctx.DRReplicatedStream = rotated
	return nil
}

func rotateDrStream(old, newStream process.DRStream, lastCommittedSpHandle int64) (process.DRStream, error) {
	if newStream == nil {
		return nil, qerr.NewInvalidInput("rotateDrStream: new stream is nil")
	}
	if old == nil {
		return newStream, nil
	}
	if old.CommittedSequenceNumber() < newStream.CommittedSequenceNumber() {
		return nil, qerr.NewInvariant(
			"rotateDrStream precondition violated: old.committedSequenceNumber(%d) < new.committedSequenceNumber(%d)",
			old.CommittedSequenceNumber(), newStream.CommittedSequenceNumber())
	}

	flushHigh := lastCommittedSpHandle
	if newStream.OpenSpHandle() > flushHigh {
		flushHigh = newStream.OpenSpHandle()
	}
	old.PeriodicFlush(0, flushHigh)
	newStream.SetLastCommittedSequenceNumber(old.CommittedSequenceNumber())
	return newStream, nil
}

// --- context binding: Go has no implicit thread-local storage, so this
// binding is one process-wide atomic.Value slot rather than per-thread or
// per-goroutine state; see DESIGN.md Open Question 1.

var boundContext atomic.Value // holds *ExecutorContext

// Bind stores ctx in the process-wide slot for callers that cannot thread
// it explicitly, matching VoltDB's getExecutorContext statics. A later Bind
// from any goroutine replaces it. Every executor in this repo receives ctx
// as an explicit parameter instead; Bind/Current exist only for that
// literal compat surface.
func Bind(ctx *ExecutorContext) { boundContext.Store(ctx) }

// Current returns the most recently Bind-ed context, or nil if none.
func Current() *ExecutorContext {
	v := boundContext.Load()
	if v == nil {
		return nil
	}
	return v.(*ExecutorContext)
}

// AssignThreadLocals is Bind under VoltDB's assignThreadLocals name: it
// replaces the bound context with ctx. The replicated-write path
// (callWithReplicationGate) does not call it; the driver runs the insert
// under its own context, without switching to another site's locals.
func AssignThreadLocals(ctx *ExecutorContext) { Bind(ctx) }
