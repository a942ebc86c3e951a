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

package table

import (
	"github.com/google/btree"

	"github.com/sitecore/qexec/internal/qerr"
	"github.com/sitecore/qexec/pkg/container/tuple"
	"github.com/sitecore/qexec/pkg/container/types"
)

// indexEntry is one row of a PersistentTable's primary ordering index. The
// index itself carries no semantics here beyond "a structure SwapTable must
// exchange along with storage"; query planning that would use it for seeks
// is out of scope.
type indexEntry struct {
	key int64
	row []byte
}

func (e indexEntry) Less(other btree.Item) bool {
	return e.key < other.(indexEntry).key
}

// Engine is the narrow collaborator surface SwapTable reports modified-row
// counts through: the full storage engine is out of scope here, and this
// is the one callback the swap-tables executor needs from it.
type Engine interface {
	AddToTuplesModified(n int64)
}

// PersistentTable is durable, indexed, and may be replicated across sites.
// "Durable" here means "owned by the host for the lifetime of the site,"
// not that this package performs disk I/O — on-disk storage is an
// out-of-scope collaborator.
type PersistentTable struct {
	base
	replicated bool
	index      *btree.BTree
	nextKey    int64
	views      []string // materialized-view names bound to this table, exchanged by SwapTable
}

// NewPersistentTable creates a named, indexed persistent table.
func NewPersistentTable(name string, schema *types.TupleSchema, replicated bool) *PersistentTable {
	return &PersistentTable{
		base:       newBase(name, schema),
		replicated: replicated,
		index:      btree.New(32),
	}
}

func (t *PersistentTable) Iterator() *Iterator              { return t.iterator(false) }
func (t *PersistentTable) IteratorDeletingAsWeGo() *Iterator { return t.iterator(true) }
func (t *PersistentTable) TempTuple() tuple.Tuple            { return t.base.TempTuple() }
func (t *PersistentTable) Name() string                      { return t.name }
func (t *PersistentTable) Replicated() bool                   { return t.replicated }
func (t *PersistentTable) VisibleRowCount() int               { return t.RowCount() }

// InsertTempTuple appends a row and indexes it. "TempTuple" is the name the
// Table interface uses for "a scratch row sharing this table's schema";
// persistent tables accept inserts through the same call temp tables do,
// since both satisfy the same Table contract.
func (t *PersistentTable) InsertTempTuple(row tuple.Tuple) error {
	if row.IsNull() {
		return qerr.NewNullTuple("InsertTempTuple: null tuple")
	}
	if err := t.insert(row.Address()); err != nil {
		return err
	}
	t.index.ReplaceOrInsert(indexEntry{key: t.nextKey, row: row.Address()})
	t.nextKey++
	return nil
}

// SwapTable atomically exchanges storage, index, and view bindings between
// t and other. It reports the combined pre-swap visible row count to
// engine's modified-tuple tally and returns that count for the executor's
// one-row DML-count output.
func (t *PersistentTable) SwapTable(other *PersistentTable, engine Engine) (int64, error) {
	if t.schema.ColumnCount() != other.schema.ColumnCount() {
		return 0, qerr.NewInvariant("swapTable: column count mismatch between %q and %q", t.name, other.name)
	}
	before := int64(t.VisibleRowCount() + other.VisibleRowCount())

	t.blocks, other.blocks = other.blocks, t.blocks
	t.index, other.index = other.index, t.index
	t.nextKey, other.nextKey = other.nextKey, t.nextKey
	t.views, other.views = other.views, t.views

	if engine != nil {
		engine.AddToTuplesModified(before)
	}
	return before, nil
}

// Index exposes the table's ordering index, for tests asserting that
// SwapTable exchanged index identity rather than copying entries.
func (t *PersistentTable) Index() *btree.BTree { return t.index }
