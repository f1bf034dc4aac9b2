package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"weeklysummary/internal/source"
)

// NewSourcesCommand creates the sources command.
func NewSourcesCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the source names accepted in the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"Name", "Data", "Description"})
			for _, name := range root.Registry.Names() {
				data := "live"
				if source.IsMock(name) {
					data = "canned"
				}
				tw.AppendRow(table.Row{name, data, root.Registry.Description(name)})
			}
			tw.Render()
			return nil
		},
	}
}
