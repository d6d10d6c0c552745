package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/backmassage/nifbatch/internal/device"
)

// Environment variables read by [LoadEnv]. Flags override all of them.
const (
	EnvHost         = "NIFBATCH_HOST"
	EnvDriver       = "NIFBATCH_DRIVER"
	EnvRenderDriver = "NIFBATCH_RENDER_DRIVER"
	EnvBrickDB      = "NIFBATCH_BRICKDB"
	EnvDevice       = "NIFBATCH_DEVICE"
	EnvJobs         = "NIFBATCH_JOBS"
	EnvTimeout      = "NIFBATCH_TIMEOUT"
	EnvWorkDirRoot  = "NIFBATCH_WORKDIR_ROOT"
)

// LoadEnv loads envFile (when it exists) into the process environment and
// then applies NIFBATCH_* variables on top of cfg. Variables already set in
// the environment win over the file. A missing envFile is not an error.
func LoadEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return &UsageError{Err: fmt.Errorf("load %s: %w", envFile, err)}
		}
	}

	cfg.Host = getEnv(EnvHost, cfg.Host)
	cfg.Driver = getEnv(EnvDriver, cfg.Driver)
	cfg.RenderDriver = getEnv(EnvRenderDriver, cfg.RenderDriver)
	cfg.BrickDB = getEnv(EnvBrickDB, cfg.BrickDB)
	cfg.WorkDirRoot = getEnv(EnvWorkDirRoot, cfg.WorkDirRoot)

	if v := getEnv(EnvDevice, ""); v != "" {
		r, err := device.Parse(v)
		if err != nil {
			return &UsageError{Err: fmt.Errorf("%s: %w", EnvDevice, err)}
		}
		cfg.Device = r
	}

	cfg.Jobs = getEnvInt(EnvJobs, cfg.Jobs)
	cfg.Timeout = getEnvDuration(EnvTimeout, cfg.Timeout)
	return nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("90s", "10m") or bare seconds ("120").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
