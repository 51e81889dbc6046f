package commands

import (
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/matthewbaird/turbine/internal/compiler"
	"github.com/matthewbaird/turbine/internal/emit"
	"github.com/matthewbaird/turbine/internal/event"
	"github.com/matthewbaird/turbine/internal/eventbus"
	"github.com/matthewbaird/turbine/internal/server"
	"github.com/matthewbaird/turbine/internal/store"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server"},
		Short:   "Run the compile service over HTTP and WebSocket",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			s, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
			if err != nil {
				return err
			}
			defer s.Close()

			bus := eventbus.New(cfg.Events.Buffer)
			fanout := eventbus.NewFanout()
			bus.Subscribe("log", eventbus.NewLogConsumer())
			bus.Subscribe("fanout", fanout)
			bus.Start(ctx)
			defer bus.Stop()

			rec := event.NewStoreRecorder(s)
			rec.SetPublisher(bus)
			engine := emit.NewEngine()
			c := compiler.New(
				compiler.WithEngine(engine),
				compiler.WithRecorder(rec),
				compiler.WithPublisher(bus),
			)

			pterm.DefaultBox.WithTitle("turbine").Printfln(
				"listening on %s\nstore: %s\nrules: %d", cfg.Server.Addr, cfg.Store.Driver, len(engine.Rules()))

			return server.Run(ctx, server.Config{
				Addr:        cfg.Server.Addr,
				ReadTimeout: cfg.Server.ReadTimeout,
				Compiler:    c,
				Store:       s,
				Fanout:      fanout,
				Rules:       engine.Rules(),
			})
		},
	}
	cmd.Flags().String("addr", "", "listen address (default from config, \":8080\")")
	cmd.Flags().String("store", "", "run store driver: memory or sqlite")
	cmd.Flags().String("dsn", "", "sqlite DSN for the run store")
	return cmd
}
