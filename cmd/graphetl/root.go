package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "GRAPHETL"

// usageError marks command-line mistakes so main can exit with status 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	rc := &cobra.Command{
		Use:   "graphetl",
		Short: "Build property-graph datasets from delimited node and relationship files.",
		Long: `graphetl reads a directory of pipe-delimited files, one table per file,
and writes one dataset per node label and one per relationship type.

Node files start with an "id" column. Relationship files start with two
"<Label>.<field>" columns naming their source and destination labels.
Every option can also be set through a GRAPHETL_<OPTION> environment
variable or a TOML file given with --config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setAllConfig(viper.New(), cmd.Flags()); err != nil {
				return usageError{err}
			}
			return nil
		},
	}
	rc.PersistentFlags().StringP("config", "c", "", "Configuration file to read from.")
	rc.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	rc.AddCommand(newBuildCommand(stdin, stdout, stderr))
	rc.AddCommand(newInspectCommand(stdin, stdout, stderr))

	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// setAllConfig fills every flag the user did not set from, in order of
// priority, the environment (GRAPHETL_ plus the upper-cased flag name with
// dashes as underscores) and the TOML file named by --config.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if c := v.GetString("config"); c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading configuration file '%s': %v", c, err)
		}

		valid := make(map[string]bool)
		flags.VisitAll(func(f *pflag.Flag) { valid[f.Name] = true })
		for _, key := range v.AllKeys() {
			if !valid[key] {
				return fmt.Errorf("invalid option in configuration file: %v", key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			return
		}
		// A TOML array reads back from GetString as "", so slices are
		// replaced wholesale.
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			flagErr = sv.Replace(v.GetStringSlice(f.Name))
			return
		}
		value := v.GetString(f.Name)
		flagErr = f.Value.Set(value)
	})
	return flagErr
}
