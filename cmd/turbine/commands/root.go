// Package commands implements the turbine command line.
package commands

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/matthewbaird/turbine/internal/config"
	"github.com/matthewbaird/turbine/internal/errors"
	"github.com/matthewbaird/turbine/internal/logger"
)

type ctxKey struct{}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "turbine",
		Short: "Compile a declarative project spec into a runnable scaffold",
		Long: `turbine reads a project specification (YAML, JSON, TOML or CUE) and
generates a backend, storage schema, API contract, frontend, CI and
container setup from it.

Examples:
  turbine validate app.yaml            # check a spec without generating
  turbine generate app.yaml -o ./app   # write the scaffold
  turbine generate app.yaml --watch    # regenerate on every save
  turbine serve                        # run the compile service`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.New(configPath)
			if err != nil {
				return err
			}
			bindFlag(v, cmd, "log.level", "log-level")
			bindFlag(v, cmd, "log.json", "log-json")
			bindFlag(v, cmd, "generate.out", "out")
			bindFlag(v, cmd, "generate.watch_debounce", "debounce")
			bindFlag(v, cmd, "server.addr", "addr")
			bindFlag(v, cmd, "store.driver", "store")
			bindFlag(v, cmd, "store.dsn", "dsn")

			cfg, err := config.FromViper(v)
			if err != nil {
				return err
			}
			if err := logger.Initialize(cfg.Log.JSON, cfg.Log.Level); err != nil {
				return errors.Wrap(err, "failed to initialize logger")
			}
			cmd.SetContext(context.WithValue(cmd.Context(), ctxKey{}, cfg))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: nearest "+config.FileName+")")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().Bool("log-json", false, "log as JSON")

	root.AddCommand(newValidateCmd(), newGenerateCmd(), newServeCmd(), newRunsCmd(), newVersionCmd())
	return root
}

// bindFlag lets an explicitly set flag override the config key.
func bindFlag(v *viper.Viper, cmd *cobra.Command, key, flag string) {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		v.Set(key, f.Value.String())
	}
}

func configFrom(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(ctxKey{}).(*config.Config); ok {
		return cfg
	}
	cfg, _ := config.Load("")
	return cfg
}
