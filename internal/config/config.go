// Package config loads service settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/njchilds90/goquad"
	"github.com/njchilds90/goquad/internal/logging"
	"gopkg.in/yaml.v2"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "QUAD_CONFIG_FILE"

	ENV_PORT           = "QUAD_PORT"
	ENV_GIN_DEBUG_MODE = "QUAD_GIN_DEBUG"
	ENV_ALLOW_ORIGINS  = "QUAD_ALLOW_ORIGINS"
	ENV_STORE_PATH     = "QUAD_STORE_PATH"
	ENV_MAX_N          = "QUAD_MAX_N"

	ENV_LOG_LEVEL   = "QUAD_LOG_LEVEL"
	ENV_LOG_TO_FILE = "QUAD_LOG_TO_FILE"
	ENV_LOG_FILE    = "QUAD_LOG_FILENAME"
)

const (
	DefaultPort = "8080"
	DefaultMaxN = 10_000_000
)

type Config struct {
	// Gin configs
	Port         string   `yaml:"port"`
	GinDebugMode bool     `yaml:"gin_debug_mode"`
	AllowOrigins []string `yaml:"allow_origins"`

	// Quadrature configs
	StorePath string `yaml:"store_path"`
	MaxN      int    `yaml:"max_n"`

	Logging logging.Config `yaml:"logging"`
}

func Default() Config {
	return Config{
		Port:         DefaultPort,
		AllowOrigins: []string{"*"},
		StorePath:    goquad.DefaultStorePath,
		MaxN:         DefaultMaxN,
		Logging:      logging.Config{LogLevel: "info", MaxSize: 10, MaxAge: 28, MaxBackups: 3},
	}
}

// Load reads the YAML file at path (skipped when path is empty) over the
// defaults, then applies environment overrides.
func Load(path string) (Config, error) {
	conf := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.UnmarshalStrict(data, &conf); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	if err := applyEnv(&conf); err != nil {
		return Config{}, err
	}
	if conf.MaxN < 0 {
		return Config{}, fmt.Errorf("config: max_n must not be negative, got %d", conf.MaxN)
	}
	return conf, nil
}

// FromEnv loads the file named by QUAD_CONFIG_FILE, if set. A missing file
// at that path is an error; an unset variable is not.
func FromEnv() (Config, error) {
	conf, err := Load(os.Getenv(ENV_CONFIG_FILE_PATH))
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: %s points to a missing file: %w", ENV_CONFIG_FILE_PATH, err)
	}
	return conf, err
}

func applyEnv(conf *Config) error {
	if v, ok := os.LookupEnv(ENV_PORT); ok && v != "" {
		conf.Port = v
	}
	if v, ok := os.LookupEnv(ENV_GIN_DEBUG_MODE); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", ENV_GIN_DEBUG_MODE, err)
		}
		conf.GinDebugMode = b
	}
	if v, ok := os.LookupEnv(ENV_ALLOW_ORIGINS); ok && v != "" {
		conf.AllowOrigins = splitList(v)
	}
	if v, ok := os.LookupEnv(ENV_STORE_PATH); ok && v != "" {
		conf.StorePath = v
	}
	if v, ok := os.LookupEnv(ENV_MAX_N); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", ENV_MAX_N, err)
		}
		conf.MaxN = n
	}
	if v, ok := os.LookupEnv(ENV_LOG_LEVEL); ok && v != "" {
		conf.Logging.LogLevel = v
	}
	if v, ok := os.LookupEnv(ENV_LOG_TO_FILE); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", ENV_LOG_TO_FILE, err)
		}
		conf.Logging.LogToFile = b
	}
	if v, ok := os.LookupEnv(ENV_LOG_FILE); ok && v != "" {
		conf.Logging.Filename = v
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
