package config

import (
	"errors"
	"io/fs"
	"maps"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/xchange-erasmus/xchange-api/internal/flagx"
)

const defaultEnvFile = ".env"

// parseEnv overlays config with environment variables. Values from a .env
// file (-env-file, or ./.env when present) are visible too, but real
// environment variables win over them. The process environment is never
// modified.
func parseEnv(config *Config) {
	vars, err := readEnvFile(flagx.EnvFileFlag())
	if err != nil {
		panic(err)
	}

	maps.Copy(vars, env.ToMap(os.Environ()))

	if err := env.ParseWithOptions(config, env.Options{Environment: vars}); err != nil {
		panic(err)
	}
}

// readEnvFile loads path, or the default .env file when path is empty.
// A missing default file is not an error; a missing explicit one is.
func readEnvFile(path string) (map[string]string, error) {
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return vars, nil
}
