package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"geoagent/internal/ai"
)

func askCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Run the agent once and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := initApp()
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.Agent.Run(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				var gatewayErr *ai.GatewayError
				if errors.As(err, &gatewayErr) {
					return fmt.Errorf("model call %d failed: %w", gatewayErr.Iteration, gatewayErr.Err)
				}
				return err
			}

			out := cmd.OutOrStdout()
			if verbose {
				for _, msg := range res.Conversation.Messages() {
					for _, call := range msg.ToolCalls {
						fmt.Fprintf(out, "-> %s %s\n", call.Name, call.Arguments)
					}
				}
				fmt.Fprintf(out, "(%d model calls, %d tool calls)\n\n", res.Iterations, res.ToolCalls)
			}
			fmt.Fprintln(out, res.Answer)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the tool calls made along the way")
	return cmd
}
