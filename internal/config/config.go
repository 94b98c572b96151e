// Package config loads the daemon configuration from YAML with
// environment variable overrides.
package config

import (
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		HTTPAddr    string `yaml:"http_addr"`
		MetricsAddr string `yaml:"metrics_addr"`
	} `yaml:"server"`
	Database struct {
		PostgresDSN   string `yaml:"postgres_dsn"`
		ClickhouseDSN string `yaml:"clickhouse_dsn"`
		UseMemory     bool   `yaml:"use_memory"`
	} `yaml:"database"`
	Epoch struct {
		LengthSeconds int64 `yaml:"length_seconds"`
	} `yaml:"epoch"`
	Staking struct {
		CoordinatorAddress      string `yaml:"coordinator_address"`
		WarmupEpochs            uint64 `yaml:"warmup_epochs"`
		CooldownEpochs          uint64 `yaml:"cooldown_epochs"`
		WithdrawalWindowSeconds int64  `yaml:"withdrawal_window_seconds"`
	} `yaml:"staking"`
	Reserve struct {
		Enabled          bool   `yaml:"enabled"`
		Address          string `yaml:"address"`
		FeeBasisPoints   uint64 `yaml:"fee_basis_points"`
		MinimumLiquidity string `yaml:"minimum_liquidity"`
	} `yaml:"reserve"`
	Pool struct {
		Address            string `yaml:"address"`
		CycleLengthSeconds int64  `yaml:"cycle_length_seconds"`
	} `yaml:"pool"`
	Schedule struct {
		RebaseCron     string `yaml:"rebase_cron"`
		WithdrawalCron string `yaml:"withdrawal_cron"`
		SnapshotCron   string `yaml:"snapshot_cron"`
	} `yaml:"schedule"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.Server.HTTPAddr = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Server.MetricsAddr = v
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Database.PostgresDSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		cfg.Database.ClickhouseDSN = v
	}
	if v := os.Getenv("USE_MEMORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Database.UseMemory = b
		}
	}
	if v := os.Getenv("EPOCH_LENGTH_SECONDS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Epoch.LengthSeconds = n
		}
	}
	if v := os.Getenv("WARMUP_EPOCHS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Staking.WarmupEpochs = n
		}
	}
	if v := os.Getenv("COOLDOWN_EPOCHS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Staking.CooldownEpochs = n
		}
	}
	if v := os.Getenv("RESERVE_FEE_BPS"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Reserve.FeeBasisPoints = n
		}
	}

	// Defaults
	if cfg.Server.HTTPAddr == "" {
		cfg.Server.HTTPAddr = ":8080"
	}
	if cfg.Server.MetricsAddr == "" {
		cfg.Server.MetricsAddr = ":9090"
	}
	if cfg.Epoch.LengthSeconds == 0 {
		cfg.Epoch.LengthSeconds = int64((8 * time.Hour) / time.Second)
	}
	if cfg.Staking.CoordinatorAddress == "" {
		cfg.Staking.CoordinatorAddress = "vault-coordinator"
	}
	if cfg.Staking.WithdrawalWindowSeconds == 0 {
		cfg.Staking.WithdrawalWindowSeconds = int64((24 * time.Hour) / time.Second)
	}
	if cfg.Reserve.Address == "" {
		cfg.Reserve.Address = "vault-reserve"
	}
	if cfg.Reserve.MinimumLiquidity == "" {
		cfg.Reserve.MinimumLiquidity = "1000000"
	}
	if cfg.Pool.Address == "" {
		cfg.Pool.Address = "yield-pool"
	}
	if cfg.Pool.CycleLengthSeconds == 0 {
		cfg.Pool.CycleLengthSeconds = int64((7 * 24 * time.Hour) / time.Second)
	}
	if cfg.Schedule.RebaseCron == "" {
		cfg.Schedule.RebaseCron = "0 * * * * *"
	}
	if cfg.Schedule.WithdrawalCron == "" {
		cfg.Schedule.WithdrawalCron = "0 */5 * * * *"
	}
	if cfg.Schedule.SnapshotCron == "" {
		cfg.Schedule.SnapshotCron = "30 */5 * * * *"
	}

	return cfg, nil
}

// Validate checks that all required fields are set and well-formed.
func (c *Config) Validate() error {
	if !c.Database.UseMemory && (c.Database.PostgresDSN == "" || c.Database.ClickhouseDSN == "") {
		return fmt.Errorf("database.postgres_dsn and database.clickhouse_dsn are required (or set database.use_memory)")
	}
	if c.Epoch.LengthSeconds <= 0 {
		return fmt.Errorf("epoch.length_seconds must be positive")
	}
	if c.Reserve.FeeBasisPoints > 10000 {
		return fmt.Errorf("reserve.fee_basis_points must not exceed 10000")
	}
	if _, ok := new(big.Int).SetString(c.Reserve.MinimumLiquidity, 10); !ok {
		return fmt.Errorf("reserve.minimum_liquidity is not a decimal integer: %q", c.Reserve.MinimumLiquidity)
	}
	return nil
}

// EpochLength returns the configured epoch length as a duration.
func (c *Config) EpochLength() time.Duration {
	return time.Duration(c.Epoch.LengthSeconds) * time.Second
}

// WithdrawalWindow returns the configured submission window as a duration.
func (c *Config) WithdrawalWindow() time.Duration {
	return time.Duration(c.Staking.WithdrawalWindowSeconds) * time.Second
}

// PoolCycleLength returns the configured pool cycle length as a duration.
func (c *Config) PoolCycleLength() time.Duration {
	return time.Duration(c.Pool.CycleLengthSeconds) * time.Second
}

// ReserveMinimumLiquidity returns the parsed minimum seed amount.
// Validate must pass before calling.
func (c *Config) ReserveMinimumLiquidity() *big.Int {
	n, _ := new(big.Int).SetString(c.Reserve.MinimumLiquidity, 10)
	return n
}
