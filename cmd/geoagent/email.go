package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"geoagent/internal/marketing"
)

func emailCmd() *cobra.Command {
	var topic, recipient string

	cmd := &cobra.Command{
		Use:   "email FILE...",
		Short: "Draft a marketing email from company documents",
		Long: `Runs the research, strategy and writer stages over the given PDF, text
or HTML files and prints the drafted email.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([]marketing.File, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				files = append(files, marketing.File{Name: filepath.Base(path), Data: data})
			}

			app, err := initApp()
			if err != nil {
				return err
			}
			defer app.Close()

			state, err := app.Pipeline.Run(cmd.Context(), files, topic, recipient)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), state.FinalEmail)
			return nil
		},
	}

	cmd.Flags().StringVar(&topic, "topic", "", "What the email should be about")
	cmd.Flags().StringVar(&recipient, "recipient", "", "Recipient type, e.g. enterprise or startup")
	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("recipient")
	return cmd
}
