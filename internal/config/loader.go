package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names read by Load.
const (
	EnvPrefix  = "RECOVERY_"
	EnvConfig  = EnvPrefix + "CONFIG"
	EnvEnvFile = EnvPrefix + "ENV_FILE"

	defaultEnvFile = ".env"
)

// Load builds a Config by layering defaults, dotenv, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. dotenv file (.env, or RECOVERY_ENV_FILE) if present
//  3. file (YAML) if RECOVERY_CONFIG is set
//  4. env (prefix RECOVERY_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New(ctx)

	k := koanf.New(".")

	dotenv, err := readDotenv()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	for key, val := range dotenv {
		if !strings.HasPrefix(key, EnvPrefix) || key == EnvConfig || key == EnvEnvFile {
			continue
		}
		if err := k.Set(envKey(key), val); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Load from file if provided; the process environment wins over dotenv.
	path := os.Getenv(EnvConfig)
	if path == "" {
		path = dotenv[EnvConfig]
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: RECOVERY_ADDR, RECOVERY_BASE_TAU_HOURS, ...
	// Preserve underscores to match koanf tags on the struct.
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(ctx); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
}

// readDotenv parses the dotenv file without touching the process
// environment. A missing file yields an empty map.
func readDotenv() (map[string]string, error) {
	path := os.Getenv(EnvEnvFile)
	if path == "" {
		path = defaultEnvFile
	}
	vals, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	return vals, err
}
