package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// maxSumTolerance is the widest distribution tolerance the engine accepts
const maxSumTolerance = 0.01

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Billing  BillingConfig  `mapstructure:"billing"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// BillingConfig holds the configurable billing rules
type BillingConfig struct {
	ApproverRoles []string `mapstructure:"approver_roles"`
	SumTolerance  float64  `mapstructure:"sum_tolerance"`
	// BalancePolicy is "warn" or "block" for bills over the contract balance
	BalancePolicy string `mapstructure:"balance_policy"`
}

// Tolerance returns the sum tolerance as a decimal
func (b BillingConfig) Tolerance() decimal.Decimal {
	return decimal.NewFromFloat(b.SumTolerance)
}

// Load loads configuration from an optional YAML file, a .env file next to
// the working directory, and SOV_ prefixed environment variables
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SOV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Billing.ApproverRoles = splitList(strings.Join(cfg.Billing.ApproverRoles, ","))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_upload_bytes", 10<<20)

	v.SetDefault("database.path", "data/sov_billing.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 0)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("billing.approver_roles", []string{"admin", "controller", "company_admin", "super_admin"})
	v.SetDefault("billing.sum_tolerance", maxSumTolerance)
	v.SetDefault("billing.balance_policy", "warn")
}

// splitList trims roles and accepts the comma separated form an
// environment variable carries
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if len(c.Billing.ApproverRoles) == 0 {
		return fmt.Errorf("billing.approver_roles must name at least one role")
	}
	if c.Billing.SumTolerance <= 0 || c.Billing.SumTolerance > maxSumTolerance {
		return fmt.Errorf("billing.sum_tolerance must be in (0, %.2f], got %v", maxSumTolerance, c.Billing.SumTolerance)
	}
	switch c.Billing.BalancePolicy {
	case "warn", "block":
	default:
		return fmt.Errorf("billing.balance_policy must be warn or block, got %q", c.Billing.BalancePolicy)
	}
	return nil
}
