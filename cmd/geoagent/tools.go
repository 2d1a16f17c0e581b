package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func toolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools bound to the agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := initTools()
			if err != nil {
				return err
			}
			defer app.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, tool := range app.Registry.GetAllTools() {
				fmt.Fprintf(w, "%s\t%s\n", tool.Name(), tool.Description())
			}
			return w.Flush()
		},
	}
}
