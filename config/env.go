package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Env holds the settings that may be overridden from the environment.
type Env struct {
	OutputPath          string `env:"STEPPER_OUTPUT_PATH"`
	CheckpointReadPath  string `env:"STEPPER_CHECKPOINT_READ_PATH"`
	CheckpointWritePath string `env:"STEPPER_CHECKPOINT_WRITE_PATH"`
	RestartTimestep     *int   `env:"STEPPER_RESTART_TIMESTEP"`
	MaxTimeSteps        *int   `env:"STEPPER_MAX_TIME_STEPS"`
	MonitorPort         int    `env:"STEPPER_MONITOR_PORT"`
	OTelEndpoint        string `env:"STEPPER_OTEL_ENDPOINT"`
}

// LoadEnv loads envFile into the process environment when it exists and
// parses the STEPPER_* variables.
func LoadEnv(envFile string) (Env, error) {
	e := Env{}

	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return e, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := env.Parse(&e); err != nil {
		return e, fmt.Errorf("parse env: %w", err)
	}

	return e, nil
}

// Apply returns a copy of m with the values set in e written over it.
func (e Env) Apply(m Map) Map {
	out := Map{}
	maps.Copy(out, m)

	if e.OutputPath != "" {
		out["outputPath"] = e.OutputPath
	}

	if e.CheckpointReadPath != "" {
		out["checkpointReadPath"] = e.CheckpointReadPath
	}

	if e.CheckpointWritePath != "" {
		out["checkpointWritePath"] = e.CheckpointWritePath
	}

	if e.RestartTimestep != nil {
		out["restartTimestep"] = *e.RestartTimestep
	}

	if e.MaxTimeSteps != nil {
		out["maxTimeSteps"] = *e.MaxTimeSteps
	}

	return out
}
