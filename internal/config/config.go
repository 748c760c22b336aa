// Package config loads the engine's tuning knobs — the ambient
// configuration surface the teacher repo has no analogue for. Grounded on
// 0xtitan6-polymarket-mm's use of github.com/spf13/viper, the pack's only
// example of a Go config loader for a trading system.
package config

import (
	"github.com/spf13/viper"

	"marketcore/internal/orderbook"
	"marketcore/internal/persistence"
)

// EngineConfig holds the handful of tunables the core cares about; the
// rest of the process's configuration (HTTP ports, database DSNs, chain
// RPC endpoints) belongs to the out-of-scope collaborators from §1.
type EngineConfig struct {
	SnapshotDepth        int `mapstructure:"snapshot_depth"`
	PersistenceRetention int `mapstructure:"persistence_retention"`
}

// Default returns the engine's built-in defaults (§3 K=25, §6 retention ≈ 1000).
func Default() EngineConfig {
	return EngineConfig{
		SnapshotDepth:        orderbook.DefaultSnapshotDepth,
		PersistenceRetention: persistence.DefaultRetentionLimit,
	}
}

// Load reads an EngineConfig from path, falling back to Default() for any
// key the file does not set.
func Load(path string) (EngineConfig, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("snapshot_depth", cfg.SnapshotDepth)
	v.SetDefault("persistence_retention", cfg.PersistenceRetention)

	if err := v.ReadInConfig(); err != nil {
		return EngineConfig{}, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}
