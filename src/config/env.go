package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override file values.
const (
	EnvOutputDir = "MAGNON_OUTPUT_DIR"
	EnvNSteps    = "MAGNON_NSTEPS"
	EnvDt        = "MAGNON_DT"
	EnvLogLevel  = "MAGNON_LOG_LEVEL"
	EnvHistory   = "MAGNON_HISTORY"
)

// LoadEnvFile loads variables from an optional .env file. Variables already
// set in the process environment win.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values from the environment.
func (c *Config) ApplyEnv() error {
	if dir := os.Getenv(EnvOutputDir); dir != "" {
		c.Output.Dir = dir
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = level
	}
	if path := os.Getenv(EnvHistory); path != "" {
		c.Output.History = path
	}
	if s := os.Getenv(EnvNSteps); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalid, EnvNSteps, s, err)
		}
		c.NSteps = n
	}
	if s := os.Getenv(EnvDt); s != "" {
		dt, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalid, EnvDt, s, err)
		}
		c.Dt = dt
	}
	return nil
}
