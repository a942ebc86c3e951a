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

// Package config loads the per-site TOML configuration the host hands to
// the query execution core at startup.
package config

import (
	"github.com/BurntSushi/toml"

	"github.com/sitecore/qexec/internal/qerr"
)

// TempTableLimits bounds the scratch tables an executor may allocate.
type TempTableLimits struct {
	MaxRows  int64 `toml:"max_rows"`
	MaxBytes int64 `toml:"max_bytes"`
}

// SiteConfig is this site's slice of the host-wide launch configuration.
type SiteConfig struct {
	SiteID        int32           `toml:"site_id"`
	PartitionID   int32           `toml:"partition_id"`
	HostID        int32           `toml:"host_id"`
	SitesPerHost  int32           `toml:"sites_per_host"`
	TempTables    TempTableLimits `toml:"temp_tables"`
	LogPath       string          `toml:"log_path"`
	LogDebug      bool            `toml:"log_debug"`
	PoolChunkSize int64           `toml:"pool_chunk_bytes"`
}

// DefaultSiteConfig ships a usable zero-config default rather than
// requiring every field to be set explicitly.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		SitesPerHost: 1,
		TempTables: TempTableLimits{
			MaxRows:  1_000_000,
			MaxBytes: 256 << 20,
		},
		PoolChunkSize: 1 << 20,
	}
}

// Load parses a TOML site configuration file, starting from the defaults so
// unset fields keep sane values.
func Load(path string) (SiteConfig, error) {
	cfg := DefaultSiteConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, qerr.NewInvalidInput("loading site config %q: %v", path, err)
	}
	if cfg.SitesPerHost <= 0 {
		return cfg, qerr.NewInvalidInput("sites_per_host must be positive, got %d", cfg.SitesPerHost)
	}
	return cfg, nil
}
