// Package config loads environment-backed configuration structs. A .env file
// is read once if present; after that caarlos0/env parses the struct tags.
package config

import (
	"errors"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	ErrNilPointer    = errors.New("config target must be a non-nil pointer")
	ErrParsingConfig = errors.New("failed to parse config from env")
)

var loadDotEnv sync.Once

// Load fills v from environment variables according to its `env` tags.
func Load[T any](v *T) error {
	loadDotEnv.Do(func() {
		// Missing .env files are fine; real env vars still apply.
		_ = godotenv.Load()
	})

	if v == nil {
		return ErrNilPointer
	}
	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

// MustLoad is Load for configuration the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(err)
	}
}
