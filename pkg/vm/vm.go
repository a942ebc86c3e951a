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

// Package vm defines the abstract executor contract and the
// ExecutorContext dispatcher, the way matrixone's pkg/vm defines Operator
// alongside the Prepare/Run dispatch loop over an Instructions list.
package vm

import (
	"bytes"

	"github.com/sitecore/qexec/pkg/container/table"
)

// ExecStatus reports what Call did on this invocation.
type ExecStatus int

const (
	// ExecDone means the operator produced its output table and has
	// nothing further to do.
	ExecDone ExecStatus = iota
	// ExecFailed means the operator's per-row work failed; the dispatcher
	// must run cleanup and propagate the error.
	ExecFailed
)

// ExecResult is the outcome of one Operator.Call.
type ExecResult struct {
	Status      ExecStatus
	OutputTable table.Table
}

// Operator is the contract every plan-node executor satisfies, naming the
// p_init/p_execute/cleanupTempOutputTable/cleanupMemoryPool lifecycle the
// way matrixone's vm.Operator names Prepare/Call/Free/Reset.
type Operator interface {
	// Prepare performs one-time setup for this executor invocation
	// (VoltDB's p_init): building expression arrays, allocating temp
	// output tables.
	Prepare(ctx *ExecutorContext) error

	// Call runs the executor to completion (VoltDB's p_execute): reads its
	// input table(s), writes its temp output table, and returns once done.
	// Unlike matrixone's streaming operators (one Call per pipeline
	// batch), this core's executors finish their whole plan node in a
	// single Call, matching VoltDB's p_execute contract.
	Call(ctx *ExecutorContext) (ExecResult, error)

	// CleanupTempOutputTable releases this executor's temp output table.
	// Externally callable so the dispatcher can invoke it on every
	// executor in a failed list, even ones that never ran.
	CleanupTempOutputTable()

	// CleanupMemoryPool releases this executor's arena. Externally
	// callable for the same reason as CleanupTempOutputTable.
	CleanupMemoryPool()

	// OutputTable returns the last table this executor produced, or nil
	// if it has not run.
	OutputTable() table.Table

	// Children returns the child plan-node executors. The dispatcher uses
	// it to release each child's memory pool on failure; it does not check
	// that children precede their parent in the executor list.
	Children() []Operator

	String(buf *bytes.Buffer)
}

// Base implements the bookkeeping every Operator shares: its children and
// its last output table, the way matrixone's OperatorBase centralizes
// child tracking across every vm.Operator implementation.
type Base struct {
	children []Operator
	output   table.Table
}

func (b *Base) Children() []Operator        { return b.children }
func (b *Base) AppendChild(child Operator)   { b.children = append(b.children, child) }
func (b *Base) SetChildren(c []Operator)     { b.children = c }
func (b *Base) OutputTable() table.Table     { return b.output }
func (b *Base) SetOutputTable(t table.Table) { b.output = t }
