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

// Package qlog wires the core's structured logging onto zap, with optional
// lumberjack-backed file rotation, the way pkg/logutil wraps zap for the
// rest of the engine.
package qlog

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.Mutex
	base    = zap.NewNop()
	started bool
)

// FileConfig rotates the log through lumberjack when Path is non-empty.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init constructs the process-wide base logger. Safe to call once at
// startup; subsequent calls are no-ops so tests and the host harness can
// both call it without coordinating.
func Init(debug bool, file FileConfig) {
	mu.Lock()
	defer mu.Unlock()
	if started {
		return
	}
	started = true

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var cores []zapcore.Core
	cores = append(cores, zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.Lock(zapcore.AddSync(os.Stderr)),
		level,
	))

	if file.Path != "" {
		w := &lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    orDefault(file.MaxSizeMB, 128),
			MaxBackups: orDefault(file.MaxBackups, 8),
			MaxAge:     orDefault(file.MaxAgeDays, 14),
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), level))
	}

	base = zap.New(zapcore.NewTee(cores...))
}

func orDefault(v, d int) int {
	if v <= 0 {
		return d
	}
	return v
}

// ForSite returns a logger scoped to a site, the way a request-scoped
// logger carries trace IDs in a multi-tenant service.
func ForSite(siteID, partitionID int32) *zap.Logger {
	return base.With(zap.Int32("siteId", siteID), zap.Int32("partitionId", partitionID))
}

// Base returns the process-wide logger for callers with no site context yet
// (coordinator bootstrap, cmd/sitesim startup).
func Base() *zap.Logger {
	return base
}
