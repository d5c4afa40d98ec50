// Package container provides dependency injection and lifecycle management
// for the SOV billing service
package container

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the Container
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Server configuration
	Server ServerConfig

	// Billing rules
	Billing BillingConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// MaxUploadBytes caps SOV import uploads
	MaxUploadBytes int64
}

// BillingConfig holds the billing policy
type BillingConfig struct {
	ApproverRoles []string
	SumTolerance  decimal.Decimal

	// BalancePolicy is "warn" or "block"
	BalancePolicy string
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         "data/sov_billing.db",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  10 << 20,
		},
		Billing: BillingConfig{
			ApproverRoles: []string{"admin", "controller", "company_admin", "super_admin"},
			SumTolerance:  decimal.RequireFromString("0.01"),
			BalancePolicy: "warn",
		},
	}
}

// Validate checks that required configuration values are present
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if len(c.Billing.ApproverRoles) == 0 {
		return fmt.Errorf("billing.approver_roles is required")
	}
	if c.Billing.BalancePolicy != "warn" && c.Billing.BalancePolicy != "block" {
		return fmt.Errorf("billing.balance_policy must be warn or block")
	}
	return nil
}
