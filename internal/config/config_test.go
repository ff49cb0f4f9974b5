package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphetl/internal/errors"
)

func valid() Config {
	c := Default()
	c.Input = "in"
	c.Output = "out"
	return c
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "missing input", mutate: func(c *Config) { c.Input = "" }, wantErr: "missing --input"},
		{name: "missing output", mutate: func(c *Config) { c.Output = " " }, wantErr: "--output is required"},
		{name: "sqlite needs dsn", mutate: func(c *Config) { c.Format = FormatSQLite }, wantErr: "--dsn is required"},
		{name: "sqlite with dsn", mutate: func(c *Config) { c.Format = FormatSQLite; c.DSN = "file:x.db"; c.Output = "" }},
		{name: "unknown format", mutate: func(c *Config) { c.Format = "csv" }, wantErr: `unknown format "csv"`},
		{name: "long delimiter", mutate: func(c *Config) { c.Delimiter = "||" }, wantErr: "single character"},
		{name: "quote delimiter", mutate: func(c *Config) { c.Delimiter = `"` }, wantErr: "invalid delimiter"},
		{name: "tab delimiter", mutate: func(c *Config) { c.Delimiter = "\t" }},
		{name: "bad policy", mutate: func(c *Config) { c.OnIntegrityError = "ignore" }, wantErr: "abort or skip"},
		{name: "bad metrics", mutate: func(c *Config) { c.MetricsBackend = "statsd" }, wantErr: "unknown metrics backend"},
		{name: "pushgateway needs url", mutate: func(c *Config) { c.MetricsBackend = MetricsPushgateway; c.PushgatewayURL = "" }, wantErr: "--pushgateway-url"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := valid()
			tc.mutate(&c)
			err := c.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidConfig))
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestBindFlags(t *testing.T) {
	t.Parallel()

	c := Default()
	fs := pflag.NewFlagSet("build", pflag.ContinueOnError)
	c.BindFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"-i", "data", "--format", "arrow", "-o", "out",
		"--delimiter", ",", "--null-values", "NA,", "--on-integrity-error", "skip",
	}))

	assert.Equal(t, "data", c.Input)
	assert.Equal(t, FormatArrow, c.Format)
	assert.Equal(t, ',', c.Comma())
	assert.Equal(t, []string{"NA", ""}, c.NullValues)
	assert.True(t, c.SkipIntegrityErrors())
	assert.Equal(t, "graphetl", c.Job)

	sc := c.Storage()
	assert.Equal(t, "arrow", sc.Kind)
	assert.Equal(t, "out", sc.Dir)
}
