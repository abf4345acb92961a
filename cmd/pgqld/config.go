package main

import (
	"fmt"
	"os"

	"github.com/arcflow/pgql/pgqlconfig"
)

// loadConfig assembles the merged configuration the subcommands share:
// environment variables override file values, per pgqlconfig.Merge's
// documented precedence.
func loadConfig() (*pgqlconfig.Config, error) {
	envCfg, err := pgqlconfig.LoadEnv()
	if err != nil {
		return nil, fmt.Errorf("load environment config: %w", err)
	}

	if configPath == "" {
		return envCfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}
	fileCfg, err := pgqlconfig.LoadYAML(data)
	if err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
	}

	return pgqlconfig.Merge(fileCfg, envCfg), nil
}
