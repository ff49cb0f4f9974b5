// Package config holds the settings of a graph build and their command-line
// definitions.
package config

import (
	"strings"
	"unicode/utf8"

	"github.com/spf13/pflag"

	"graphetl/internal/errors"
	"graphetl/internal/probe"
	"graphetl/internal/storage"
)

const (
	FormatParquet  = "parquet"
	FormatArrow    = "arrow"
	FormatSQLite   = "sqlite"
	FormatPostgres = "postgres"
	FormatMSSQL    = "mssql"

	IntegrityAbort = "abort"
	IntegritySkip  = "skip"

	MetricsNone        = "none"
	MetricsDatadog     = "datadog"
	MetricsPushgateway = "pushgateway"
)

// Config is the full set of options for one build.
type Config struct {
	Input  string
	Output string
	Format string

	DSN      string
	DBSchema string

	Delimiter        string
	NullValues       []string
	OnIntegrityError string

	LogLevel  string
	LogFormat string

	MetricsBackend string
	PushgatewayURL string
	MetricsTags    string
	Job            string
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Format:           FormatParquet,
		Delimiter:        "|",
		NullValues:       append([]string(nil), probe.DefaultNullValues...),
		OnIntegrityError: IntegrityAbort,
		LogLevel:         "info",
		LogFormat:        "text",
		MetricsBackend:   MetricsNone,
		PushgatewayURL:   "http://localhost:9091",
		Job:              "graphetl",
	}
}

// BindFlags defines one flag per option on fs, writing into c. Current field
// values become the flag defaults.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.Input, "input", "i", c.Input, "Root directory of delimited node and relationship files.")
	fs.StringVarP(&c.Output, "output", "o", c.Output, "Output directory for file formats.")
	fs.StringVarP(&c.Format, "format", "f", c.Format, "Dataset format: parquet, arrow, sqlite, postgres or mssql.")
	fs.StringVar(&c.DSN, "dsn", c.DSN, "Database connection string for sqlite, postgres and mssql.")
	fs.StringVar(&c.DBSchema, "db-schema", c.DBSchema, "Database schema for postgres (default public) and mssql (default dbo).")
	fs.StringVarP(&c.Delimiter, "delimiter", "d", c.Delimiter, "Field delimiter of the input files.")
	fs.StringSliceVar(&c.NullValues, "null-values", c.NullValues, "Cell values read as null.")
	fs.StringVar(&c.OnIntegrityError, "on-integrity-error", c.OnIntegrityError, "abort or skip a table that fails data-integrity checks.")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error.")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "text or json.")
	fs.StringVar(&c.MetricsBackend, "metrics-backend", c.MetricsBackend, "none, datadog or pushgateway.")
	fs.StringVar(&c.PushgatewayURL, "pushgateway-url", c.PushgatewayURL, "Prometheus Pushgateway URL.")
	fs.StringVar(&c.MetricsTags, "metrics-tags", c.MetricsTags, "Extra Datadog tags, comma separated.")
	fs.StringVar(&c.Job, "job", c.Job, "Job name attached to metrics.")
}

// Validate reports the first invalid option as an InvalidConfig error.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Input) == "" {
		return errors.New(errors.ErrInvalidConfig, "missing --input")
	}
	switch c.Format {
	case FormatParquet, FormatArrow:
		if strings.TrimSpace(c.Output) == "" {
			return errors.Newf(errors.ErrInvalidConfig, "--output is required for format %s", c.Format)
		}
	case FormatSQLite, FormatPostgres, FormatMSSQL:
		if strings.TrimSpace(c.DSN) == "" {
			return errors.Newf(errors.ErrInvalidConfig, "--dsn is required for format %s", c.Format)
		}
	default:
		return errors.Newf(errors.ErrInvalidConfig, "unknown format %q", c.Format)
	}
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return errors.Newf(errors.ErrInvalidConfig, "delimiter must be a single character, got %q", c.Delimiter)
	}
	if r := c.Comma(); r == '\n' || r == '\r' || r == '"' || r == utf8.RuneError {
		return errors.Newf(errors.ErrInvalidConfig, "invalid delimiter %q", c.Delimiter)
	}
	switch c.OnIntegrityError {
	case IntegrityAbort, IntegritySkip:
	default:
		return errors.Newf(errors.ErrInvalidConfig, "--on-integrity-error must be abort or skip, got %q", c.OnIntegrityError)
	}
	switch c.MetricsBackend {
	case "", MetricsNone, MetricsDatadog:
	case MetricsPushgateway:
		if strings.TrimSpace(c.PushgatewayURL) == "" {
			return errors.New(errors.ErrInvalidConfig, "--pushgateway-url is required for the pushgateway backend")
		}
	default:
		return errors.Newf(errors.ErrInvalidConfig, "unknown metrics backend %q", c.MetricsBackend)
	}
	return nil
}

// Comma returns the delimiter rune.
func (c Config) Comma() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

// SkipIntegrityErrors reports whether integrity failures skip the table
// instead of aborting the run.
func (c Config) SkipIntegrityErrors() bool {
	return c.OnIntegrityError == IntegritySkip
}

// Storage returns the storage backend configuration.
func (c Config) Storage() storage.Config {
	return storage.Config{Kind: c.Format, Dir: c.Output, DSN: c.DSN, Schema: c.DBSchema}
}
