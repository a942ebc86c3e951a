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

// Command sitesim is an example host harness: it launches a handful of
// simulated sites on one process, each with its own ExecutorContext, and
// drives a small plan through each one — a replicated INSERT gated by the
// shared coordinator, then a projection and a window-function pass over
// per-site data — to exercise the core end to end the way a real host's
// per-site dispatch loop would.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/sitecore/qexec/internal/config"
	"github.com/sitecore/qexec/internal/coordinator"
	"github.com/sitecore/qexec/internal/progress"
	"github.com/sitecore/qexec/internal/qlog"
	"github.com/sitecore/qexec/pkg/container/table"
	"github.com/sitecore/qexec/pkg/container/tuple"
	"github.com/sitecore/qexec/pkg/container/types"
	"github.com/sitecore/qexec/pkg/sql/colexec/projection"
	"github.com/sitecore/qexec/pkg/sql/colexec/window"
	"github.com/sitecore/qexec/pkg/vm"
	"github.com/sitecore/qexec/pkg/vm/process"
)

func main() {
	cfgPath := flag.String("config", "", "path to a site TOML config; defaults to config.DefaultSiteConfig()")
	sites := flag.Int("sites", 4, "number of simulated sites on this host")
	debug := flag.Bool("debug", false, "enable debug-level logging")
	flag.Parse()

	cfg := config.DefaultSiteConfig()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.SitesPerHost = int32(*sites)
	cfg.LogDebug = cfg.LogDebug || *debug

	qlog.Init(cfg.LogDebug, qlog.FileConfig{Path: cfg.LogPath})
	log := qlog.Base().Named("sitesim")

	coord, err := coordinator.New(cfg.SitesPerHost)
	if err != nil {
		log.Fatal("building host coordinator", zap.Error(err))
	}
	defer coord.Close()

	// A replicated order-counter table shared across every site: each site
	// races to INSERT its own row, but CoordinateReplicatedWrite ensures the
	// write actually runs once, on whichever site reaches the latch last.
	repSchema := types.NewTupleSchema([]types.ColumnInfo{
		{Type: types.BigInt}, // site that drove the write
	})
	replicated := table.NewPersistentTable("order_counter", repSchema, true)
	var tuplesModified int64
	engine := countingEngine{modified: &tuplesModified}

	var wg sync.WaitGroup
	var errMu sync.Mutex
	var siteErr error
	for i := int32(0); i < cfg.SitesPerHost; i++ {
		siteCfg := cfg
		siteCfg.SiteID = i
		siteCfg.PartitionID = i
		siteCfg.HostID = 0

		wg.Add(1)
		go func(siteCfg config.SiteConfig) {
			defer wg.Done()
			if err := runSite(siteCfg, coord, engine, replicated, log); err != nil {
				errMu.Lock()
				if siteErr == nil {
					siteErr = err
				}
				errMu.Unlock()
			}
		}(siteCfg)
	}
	wg.Wait()

	if siteErr != nil {
		log.Fatal("site run failed", zap.Error(siteErr))
	}

	log.Info("host run complete",
		zap.Int64("replicated_rows", int64(replicated.VisibleRowCount())),
		zap.Int64("tuples_modified", atomic.LoadInt64(&tuplesModified)))
}

// countingEngine is the narrow table.Engine this harness needs: a tally of
// rows affected by replicated writes, reported back to the host the way a
// real storage engine's statistics counters would be.
type countingEngine struct {
	modified *int64
}

func (e countingEngine) AddToTuplesModified(n int64) {
	atomic.AddInt64(e.modified, n)
}

// runSite drives one simulated site's ExecutorContext through a
// replicated insert, a projection, and a window-function pass.
func runSite(cfg config.SiteConfig, coord *coordinator.Coordinator, engine countingEngine, replicated *table.PersistentTable, log *zap.Logger) error {
	locals := process.NewLocals(cfg)
	monitor := &progress.Counting{}
	ctx := vm.NewExecutorContext(locals, nil, engine, coord)
	ctx.Progress = monitor
	vm.Bind(ctx)

	if err := insertReplicatedRow(ctx, engine, replicated, cfg.SiteID); err != nil {
		return err
	}

	out, err := runOrdersPipeline(ctx, cfg.SiteID)
	if err != nil {
		return err
	}

	log.Info("site pipeline complete",
		zap.Int32("siteId", cfg.SiteID),
		zap.Int("outputRows", out.RowCount()),
		zap.Int("rowsReported", monitor.Total))
	return nil
}

// insertReplicatedRow performs the one INSERT every site attempts against
// the shared replicated table, gated by the host coordinator so only one
// site's attempt actually runs.
func insertReplicatedRow(ctx *vm.ExecutorContext, engine countingEngine, replicated *table.PersistentTable, siteID int32) error {
	isDriver, err := coordinateInsert(ctx, replicated, siteID)
	if err == nil && isDriver {
		engine.AddToTuplesModified(1)
	}
	return err
}

func coordinateInsert(ctx *vm.ExecutorContext, replicated *table.PersistentTable, siteID int32) (isDriver bool, err error) {
	return ctx.Coordinator.CoordinateReplicatedWrite(func() error {
		row := replicated.TempTuple()
		if err := row.SetValue(0, types.GetBigIntValue(int64(siteID))); err != nil {
			return err
		}
		return replicated.InsertTempTuple(row)
	})
}

// ordersColumn identifies each input column this demo pipeline projects or
// partitions on, a bare index-based Expr matching the shape the window
// package's own tests use.
type ordersColumn int

func (c ordersColumn) Eval(row tuple.Tuple, _ []types.NValue) (types.NValue, error) {
	return row.GetValue(int(c))
}

func (c ordersColumn) AsTupleColumn() (int, bool) { return int(c), true }
func (c ordersColumn) AsParam() (int, bool)       { return 0, false }

// runOrdersPipeline builds a small per-site orders table (customer,
// amount), projects it through an identity projection, then ranks orders
// within each customer's partition by amount.
func runOrdersPipeline(ctx *vm.ExecutorContext, siteID int32) (table.Table, error) {
	ordersSchema := types.NewTupleSchema([]types.ColumnInfo{
		{Type: types.Integer}, // customer
		{Type: types.BigInt},  // amount
	})
	orders := table.NewTempTable("orders", ordersSchema, table.Limits{MaxRows: 10_000})
	for _, r := range sampleOrders(siteID) {
		row := orders.TempTuple()
		if err := row.SetValue(0, types.GetIntegerValue(r.customer)); err != nil {
			return nil, err
		}
		if err := row.SetValue(1, types.GetBigIntValue(r.amount)); err != nil {
			return nil, err
		}
		if err := orders.InsertTempTuple(row); err != nil {
			return nil, err
		}
	}

	proj := &projection.Argument{
		Expressions: []projection.Expr{ordersColumn(0), ordersColumn(1)},
		Input:       orders,
		TempLimits:  table.Limits{MaxRows: 10_000},
		OutputName:  "orders_proj",
	}
	if err := proj.Prepare(ctx); err != nil {
		return nil, err
	}
	projResult, err := proj.Call(ctx)
	if err != nil {
		return nil, err
	}

	winOutSchema := types.NewTupleSchema([]types.ColumnInfo{
		{Type: types.BigInt},  // rank
		{Type: types.BigInt},  // dense_rank
		{Type: types.BigInt},  // count
		{Type: types.Integer}, // customer (pass-through)
	})
	win := &window.Argument{
		PartitionBy: []window.Expr{ordersColumn(0)},
		OrderBy:     []window.Expr{ordersColumn(1)},
		Aggregates: []window.AggregateSpec{
			{Kind: window.KindRank, OutputType: types.BigInt},
			{Kind: window.KindDenseRank, OutputType: types.BigInt},
			{Kind: window.KindCount, OutputType: types.BigInt},
		},
		PassThrough: []window.Expr{ordersColumn(0)},
		Input:       projResult.OutputTable,
		OutputSchema: winOutSchema,
		OutputName:   "orders_ranked",
	}
	if err := win.Prepare(ctx); err != nil {
		return nil, err
	}
	winResult, err := win.Call(ctx)
	if err != nil {
		return nil, err
	}
	return winResult.OutputTable, nil
}

type sampleOrder struct {
	customer int32
	amount   int64
}

// sampleOrders synthesizes a small, deterministic order set per site so the
// demo needs no external input: two customers, a handful of orders apiece.
func sampleOrders(siteID int32) []sampleOrder {
	base := int64(siteID) * 100
	return []sampleOrder{
		{customer: 1, amount: base + 10},
		{customer: 1, amount: base + 20},
		{customer: 1, amount: base + 20},
		{customer: 2, amount: base + 5},
		{customer: 2, amount: base + 15},
	}
}
