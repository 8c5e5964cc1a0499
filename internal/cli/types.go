package cli

import (
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/models"
)

// NewTypesCommand creates the types command.
func NewTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the vehicle types and their accepted names",
		RunE: func(cmd *cobra.Command, _ []string) error {
			renderTypes(cmd.OutOrStdout())
			return nil
		},
	}
}

func renderTypes(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Vehicle type", "Accepted names"})
	for _, vt := range models.AllVehicleTypes {
		aliases := models.VehicleTypeAliases(vt)
		sort.Strings(aliases)
		t.AppendRow(table.Row{vt.String(), strings.Join(aliases, ", ")})
	}
	t.Render()
}
