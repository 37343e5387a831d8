package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load fills cfg from environment variables according to its `env` and
// `envDefault` struct tags. Durations, slices (`envSeparator`) and nested
// structs are supported by the underlying parser.
func Load(cfg any) error {
	if err := env.ParseWithOptions(cfg, env.Options{UseFieldNameByDefault: false}); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
