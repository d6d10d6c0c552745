package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/nifbatch/internal/config"
	"github.com/backmassage/nifbatch/internal/report"
)

func preflightConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	driver := filepath.Join(dir, "driver.py")
	require.NoError(t, os.WriteFile(driver, nil, 0o644))

	cfg := config.DefaultConfig()
	cfg.Input = dir
	cfg.Driver = driver
	cfg.Host = os.Args[0]
	return cfg
}

func TestPreflight(t *testing.T) {
	missingInput := filepath.Join(t.TempDir(), "missing")

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   int
	}{
		{"all present", func(*config.Config) {}, report.ExitOK},
		{"host missing", func(c *config.Config) { c.Host = "/nonexistent/blender" }, report.ExitUsage},
		{"input missing", func(c *config.Config) { c.Input = missingInput }, report.ExitInputNotFound},
		{"input and host missing", func(c *config.Config) {
			c.Input = missingInput
			c.Host = "/nonexistent/blender"
		}, report.ExitInputNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := preflightConfig(t)
			tt.mutate(&cfg)
			assert.Equal(t, tt.want, report.ExitCodeFor(preflight(&cfg)))
		})
	}
}
