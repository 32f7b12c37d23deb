package config

import (
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// DefaultEnvFiles are loaded, when present, before the environment is parsed.
var DefaultEnvFiles = []string{".env", ".env.local"}

// Config is the process configuration, read from the environment.
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	Import  ImportOptions  `envPrefix:"IMPORT_"`
	Metrics MetricsOptions `envPrefix:"METRICS_"`
	Storage StorageOptions `envPrefix:"STORAGE_"`
}

// ImportOptions bound the work done per import.
type ImportOptions struct {
	SampleSize int   `env:"SAMPLE_SIZE" envDefault:"5"`
	MaxBytes   int64 `env:"MAX_BYTES" envDefault:"33554432"`
	Workers    int   `env:"WORKERS" envDefault:"4"`
}

// MetricsOptions select the metrics backend: "none", "prometheus" or
// "datadog".
type MetricsOptions struct {
	Backend        string   `env:"BACKEND" envDefault:"none"`
	Job            string   `env:"JOB" envDefault:"dataimport"`
	PushgatewayURL string   `env:"PUSHGATEWAY_URL"`
	DatadogAddr    string   `env:"DATADOG_ADDR" envDefault:"127.0.0.1:8125"`
	DatadogTags    []string `env:"DATADOG_TAGS" envSeparator:","`
}

// StorageOptions configure the default sink used when a job names none.
type StorageOptions struct {
	Kind  string `env:"KIND"`
	DSN   string `env:"DSN"`
	Table string `env:"TABLE" envDefault:"imported_documents"`
}

// LoadEnv loads the env files that exist and reports how many were loaded.
// Variables already set in the process win over file values.
func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads envFiles (DefaultEnvFiles when none are given) and parses the
// environment into a Config.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = DefaultEnvFiles
	}
	if _, err := LoadEnv(envFiles); err != nil {
		return Config{}, errors.Wrap(err, "load env files")
	}
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, errors.Wrap(err, "parse environment")
	}
	if c.Import.SampleSize <= 0 {
		return Config{}, errors.Errorf("IMPORT_SAMPLE_SIZE must be positive, got %d", c.Import.SampleSize)
	}
	if c.Import.Workers <= 0 {
		return Config{}, errors.Errorf("IMPORT_WORKERS must be positive, got %d", c.Import.Workers)
	}
	return c, nil
}
