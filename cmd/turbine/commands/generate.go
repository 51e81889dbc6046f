package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/matthewbaird/turbine/internal/compiler"
	"github.com/matthewbaird/turbine/internal/config"
	"github.com/matthewbaird/turbine/internal/emit"
	"github.com/matthewbaird/turbine/internal/errors"
	"github.com/matthewbaird/turbine/internal/event"
	"github.com/matthewbaird/turbine/internal/store"
	"github.com/matthewbaird/turbine/internal/watch"
)

type generateOptions struct {
	dryRun   bool
	watch    bool
	parallel int
	verbose  bool
}

func newGenerateCmd() *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:     "generate <spec>",
		Aliases: []string{"gen"},
		Short:   "Generate the scaffold described by a specification",
		Long: `Generate compiles the specification and writes every artifact under the
output directory. Files whose content is unchanged are not rewritten.

With --watch the specification is recompiled on every save until
interrupted. When the configured store driver is sqlite, each run is
recorded and can be listed with "turbine runs".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			return runGenerate(cmd.Context(), cfg, args[0], opts)
		},
	}
	cmd.Flags().StringP("out", "o", "", "output directory (default from config, \".\")")
	cmd.Flags().Duration("debounce", 0, "quiet period before a watched change recompiles")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "list artifacts without writing them")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "regenerate whenever the spec changes")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 0, "rules rendered concurrently (default GOMAXPROCS)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "list every artifact")
	return cmd
}

func runGenerate(ctx context.Context, cfg *config.Config, path string, opts generateOptions) error {
	var copts []compiler.Option
	if opts.parallel > 0 {
		copts = append(copts, compiler.WithEngine(emit.NewEngine(emit.WithParallelism(opts.parallel))))
	}
	if cfg.Store.Driver == "sqlite" {
		s, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return err
		}
		defer s.Close()
		copts = append(copts, compiler.WithRecorder(event.NewStoreRecorder(s)))
	}
	c := compiler.New(copts...)

	once := func(ctx context.Context) error {
		data, format, err := readSpec(path)
		if err != nil {
			pterm.Error.Println(err.Error())
			return err
		}
		run, err := c.GenerateDocument(ctx, data, format)
		if err != nil && run == nil {
			printCompileError(err)
			return err
		}
		if cerr := run.Err(); cerr != nil {
			for _, e := range run.Result.Errors {
				printCompileError(e)
			}
			return cerr
		}
		if err != nil {
			pterm.Warning.Printfln("run not recorded: %v", err)
		}
		if opts.dryRun {
			printRun(run, compiler.WriteStats{}, cfg.Generate.Out, true)
			return nil
		}
		st, err := compiler.WriteTree(cfg.Generate.Out, run.Result.Artifacts)
		if err != nil {
			pterm.Error.Println(err.Error())
			return err
		}
		printRun(run, st, cfg.Generate.Out, opts.verbose)
		return nil
	}

	if !opts.watch {
		return once(ctx)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = once(ctx)
	w, err := watch.New(path, cfg.Generate.WatchDebounce, func(ctx context.Context) {
		pterm.Info.Printfln("%s changed at %s, regenerating", path, time.Now().Format("15:04:05"))
		_ = once(ctx)
	})
	if err != nil {
		return err
	}
	pterm.Info.Printfln("watching %s (ctrl-c to stop)", path)
	return errors.Wrap(w.Run(ctx), "watch")
}
