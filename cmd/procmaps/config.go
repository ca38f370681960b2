package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds defaults for the output flags, read from the environment
type Config struct {
	JSON          bool `env:"PROCMAPS_JSON"           envDefault:"false"`
	Human         bool `env:"PROCMAPS_HUMAN"          envDefault:"false"`
	ShowAnonymous bool `env:"PROCMAPS_SHOW_ANONYMOUS" envDefault:"true"`
}

func ParseConfig() (Config, error) {
	config, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return config, nil
}
