package commands

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/matthewbaird/turbine/internal/store"
)

func newRunsCmd() *cobra.Command {
	var (
		opts   store.ListOptions
		status string
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs (requires the sqlite store)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd)
			if cfg.Store.Driver != "sqlite" {
				pterm.Info.Println("the memory store keeps no history across processes; set store.driver = \"sqlite\"")
				return nil
			}
			s, err := store.Open(cmd.Context(), cfg.Store.Driver, cfg.Store.DSN)
			if err != nil {
				return err
			}
			defer s.Close()

			opts.Status = store.Status(status)
			runs, _, total, err := s.ListRuns(cmd.Context(), opts)
			if err != nil {
				return err
			}
			data := pterm.TableData{{"ID", "Project", "Status", "Started", "Artifacts", "Gaps"}}
			for _, r := range runs {
				data = append(data, []string{
					r.ID, r.Project, string(r.Status),
					r.StartedAt.Local().Format("2006-01-02 15:04:05"),
					strconv.Itoa(r.ArtifactCount), strconv.Itoa(len(r.Gaps)),
				})
			}
			if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
				return err
			}
			pterm.Info.Printfln("%d of %d runs", len(runs), total)
			return nil
		},
	}
	cmd.Flags().String("store", "", "run store driver: memory or sqlite")
	cmd.Flags().String("dsn", "", "sqlite DSN for the run store")
	cmd.Flags().StringVar(&opts.Project, "project", "", "only runs of this project")
	cmd.Flags().StringVar(&status, "status", "", "succeeded or failed")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "number of runs")
	return cmd
}
