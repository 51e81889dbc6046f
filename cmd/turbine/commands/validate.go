package commands

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/matthewbaird/turbine/internal/compiler"
	"github.com/matthewbaird/turbine/internal/errors"
	"github.com/matthewbaird/turbine/internal/spec"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <spec>",
		Short: "Check a specification without generating anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, format, err := readSpec(args[0])
			if err != nil {
				return err
			}
			s, err := compiler.New().Validate(data, format)
			if err != nil {
				printCompileError(err)
				return err
			}
			pterm.Success.Printfln("%s %s is valid (%d entities)", s.Project.Name, s.Project.Version, len(s.Entities))
			return nil
		},
	}
}

func readSpec(path string) ([]byte, spec.Format, error) {
	format, err := spec.FormatFromPath(path)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", errors.Wrapf(err, "read %s", path)
	}
	return data, format, nil
}
