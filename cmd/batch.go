package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/lead-qualifier/internal/batch"
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Qualify a newline-delimited file of addresses",
	Long:  "Reads one \"street, city, STATE zip\" address per line and prints a report for each, up to server.max_searches addresses.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		_, err = batch.New(env.Pipeline, cfg.Server.MaxSearches, cmd.OutOrStdout()).RunFile(ctx, args[0])
		return err
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
}
