package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	conf, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf.Port != DefaultPort || conf.MaxN != DefaultMaxN || conf.StorePath != "graphics_info.csv" {
		t.Errorf("unexpected defaults: %+v", conf)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
port: "9090"
gin_debug_mode: true
allow_origins: ["http://localhost:3000"]
store_path: /tmp/samples.csv
max_n: 5000
logging:
  log_level: debug
  include_src: true
`)
	conf, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf.Port != "9090" || !conf.GinDebugMode || conf.MaxN != 5000 {
		t.Errorf("file values not applied: %+v", conf)
	}
	if !reflect.DeepEqual(conf.AllowOrigins, []string{"http://localhost:3000"}) {
		t.Errorf("allow_origins = %v", conf.AllowOrigins)
	}
	if conf.Logging.LogLevel != "debug" || !conf.Logging.IncludeSrc {
		t.Errorf("logging section not applied: %+v", conf.Logging)
	}
	// untouched keys keep their defaults
	if conf.Logging.MaxBackups != 3 {
		t.Errorf("want default max_backups 3, got %d", conf.Logging.MaxBackups)
	}
}

func TestLoad_UnknownKeyIsError(t *testing.T) {
	path := writeConfig(t, "prot: 1234\n")
	if _, err := Load(path); err == nil {
		t.Error("expected strict unmarshal to reject unknown key")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "port: \"9090\"\nmax_n: 10\n")
	t.Setenv(ENV_PORT, "7070")
	t.Setenv(ENV_MAX_N, "250")
	t.Setenv(ENV_STORE_PATH, "out.csv")
	t.Setenv(ENV_ALLOW_ORIGINS, "http://a.test, http://b.test")
	t.Setenv(ENV_LOG_LEVEL, "error")

	conf, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf.Port != "7070" || conf.MaxN != 250 || conf.StorePath != "out.csv" {
		t.Errorf("env overrides not applied: %+v", conf)
	}
	if !reflect.DeepEqual(conf.AllowOrigins, []string{"http://a.test", "http://b.test"}) {
		t.Errorf("allow origins = %v", conf.AllowOrigins)
	}
	if conf.Logging.LogLevel != "error" {
		t.Errorf("log level = %q", conf.Logging.LogLevel)
	}
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv(ENV_MAX_N, "lots")
	if _, err := Load(""); err == nil {
		t.Error("expected error for non-numeric max_n")
	}
}

func TestLoad_LogToFileBool(t *testing.T) {
	for _, v := range []string{"1", "TRUE", "true", "t"} {
		t.Setenv(ENV_LOG_TO_FILE, v)
		conf, err := Load("")
		if err != nil {
			t.Fatalf("%s=%s: unexpected error: %v", ENV_LOG_TO_FILE, v, err)
		}
		if !conf.Logging.LogToFile {
			t.Errorf("%s=%s should enable file logging", ENV_LOG_TO_FILE, v)
		}
	}
	t.Setenv(ENV_LOG_TO_FILE, "0")
	if conf, err := Load(""); err != nil || conf.Logging.LogToFile {
		t.Errorf("%s=0 should disable file logging, got %v, %v", ENV_LOG_TO_FILE, conf.Logging.LogToFile, err)
	}
	t.Setenv(ENV_LOG_TO_FILE, "yes please")
	if _, err := Load(""); err == nil {
		t.Errorf("expected error for non-boolean %s", ENV_LOG_TO_FILE)
	}
}

func TestLoad_NegativeMaxN(t *testing.T) {
	t.Setenv(ENV_MAX_N, "-1")
	if _, err := Load(""); err == nil {
		t.Error("expected error for negative max_n")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(ENV_CONFIG_FILE_PATH, writeConfig(t, "store_path: env.csv\n"))
	conf, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf.StorePath != "env.csv" {
		t.Errorf("store path = %q", conf.StorePath)
	}

	t.Setenv(ENV_CONFIG_FILE_PATH, filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := FromEnv(); err == nil {
		t.Error("expected error when the config file is missing")
	}
}
