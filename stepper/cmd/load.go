package cmd

import (
	"github.com/sarchlab/stepper/config"
)

// loadDictionary reads the configuration file and overlays the STEPPER_*
// environment variables.
func loadDictionary(path, envFile string) (config.Map, config.Env, error) {
	dict, err := config.LoadYAML(path)
	if err != nil {
		return nil, config.Env{}, err
	}

	env, err := config.LoadEnv(envFile)
	if err != nil {
		return nil, config.Env{}, err
	}

	return env.Apply(dict), env, nil
}
