package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/sov_billing.db", cfg.Database.Path)
	assert.Equal(t, []string{"admin", "controller", "company_admin", "super_admin"}, cfg.Billing.ApproverRoles)
	assert.Equal(t, "warn", cfg.Billing.BalancePolicy)
	assert.Equal(t, "0.01", cfg.Billing.Tolerance().String())
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
billing:
  balance_policy: block
  sum_tolerance: 0.005
`), 0644))
	t.Setenv("SOV_DATABASE_PATH", "/tmp/other.db")
	t.Setenv("SOV_BILLING_APPROVER_ROLES", "controller, project_manager")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
	assert.Equal(t, "block", cfg.Billing.BalancePolicy)
	assert.Equal(t, "0.005", cfg.Billing.Tolerance().String())
	assert.Equal(t, []string{"controller", "project_manager"}, cfg.Billing.ApproverRoles)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SOV_SERVER_PORT=7070\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("SOV_SERVER_PORT") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server:   ServerConfig{Port: 8080, MaxUploadBytes: 1024},
			Database: DatabaseConfig{Path: "x.db"},
			Billing: BillingConfig{
				ApproverRoles: []string{"admin"},
				SumTolerance:  0.01,
				BalancePolicy: "warn",
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"valid", func(c *Config) {}, ""},
		{"tolerance too wide", func(c *Config) { c.Billing.SumTolerance = 0.05 }, "billing.sum_tolerance"},
		{"tolerance zero", func(c *Config) { c.Billing.SumTolerance = 0 }, "billing.sum_tolerance"},
		{"unknown policy", func(c *Config) { c.Billing.BalancePolicy = "ignore" }, "billing.balance_policy"},
		{"no roles", func(c *Config) { c.Billing.ApproverRoles = nil }, "billing.approver_roles"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"no database", func(c *Config) { c.Database.Path = "" }, "database.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
