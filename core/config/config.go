// Package config provides type-safe environment variable loading with
// per-type caching. Each configuration struct type is parsed once per
// process and cached for subsequent calls; `.env` files are loaded
// automatically on first use.
//
//	type RedisConfig struct {
//		URL string `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"`
//	}
//
//	var cfg RedisConfig
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	dotenvOnce sync.Once
	loaded     sync.Map // reflect.Type -> parsed value
)

// Load parses environment variables into cfg. The first call for a given
// struct type does the parsing; later calls return the cached value, so two
// loads of the same type always agree.
func Load[T any](cfg *T) error {
	dotenvOnce.Do(func() {
		_ = godotenv.Load() // missing .env is not an error
	})

	typ := reflect.TypeOf(*cfg)
	if v, ok := loaded.Load(typ); ok {
		*cfg = v.(T)
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", typ, err)
	}

	v, _ := loaded.LoadOrStore(typ, *cfg)
	*cfg = v.(T)
	return nil
}

// MustLoad is Load that panics on failure, for use during startup.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}
