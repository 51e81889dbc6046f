package commands

import (
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/matthewbaird/turbine/internal/compiler"
	"github.com/matthewbaird/turbine/internal/errors"
	"github.com/matthewbaird/turbine/internal/resolve"
	"github.com/matthewbaird/turbine/internal/spec"
)

// printCompileError renders err with its diagnostics.
func printCompileError(err error) {
	var (
		verr  *spec.ValidationError
		cycle *resolve.CycleError
	)
	switch {
	case errors.As(err, &verr):
		pterm.Error.Printfln("specification has %d problem(s)", len(verr.Issues))
		items := make([]pterm.BulletListItem, len(verr.Issues))
		for i, is := range verr.Issues {
			items[i] = pterm.BulletListItem{Level: 0, Text: is.String()}
		}
		_ = pterm.DefaultBulletList.WithItems(items).Render()
	case errors.As(err, &cycle):
		pterm.Error.Printfln("%v: %s", err, strings.Join(cycle.Cycle, " -> "))
	default:
		pterm.Error.Println(err.Error())
	}
	for _, hint := range errors.GetAllHints(err) {
		pterm.Info.Println(hint)
	}
}

// printRun summarizes a finished run.
func printRun(run *compiler.Run, st compiler.WriteStats, out string, verbose bool) {
	if verbose {
		data := pterm.TableData{{"Path", "Rule", "Gaps"}}
		for _, a := range run.Result.Artifacts {
			gap := ""
			if a.HasGaps {
				gap = "yes"
			}
			data = append(data, []string{a.Path, a.Rule, gap})
		}
		_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}
	pterm.Success.Printfln("generated %d artifacts into %s (%d written, %d unchanged) in %s",
		len(run.Result.Artifacts), out, st.Written, st.Unchanged,
		run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	if len(run.Result.Gaps) > 0 {
		pterm.Warning.Printfln("%d file(s) need completion:", len(run.Result.Gaps))
		items := make([]pterm.BulletListItem, len(run.Result.Gaps))
		for i, g := range run.Result.Gaps {
			items[i] = pterm.BulletListItem{Level: 0, Text: g}
		}
		_ = pterm.DefaultBulletList.WithItems(items).Render()
	}
}
