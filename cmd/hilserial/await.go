/*
Copyright © 2026 Rigtools <dev@rigtools.io>
*/
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rigtools/hilserial/driver"
)

// awaitCmd represents the await command
var awaitCmd = &cobra.Command{
	Use:   "await",
	Short: "Wait for a test-run summary on the console",
	Long: `Scan the serial console for a test-run completion marker of the
form "[PASSED] <N> test(s)." or "[FAILED] <N> test(s).".

The exit code reflects the result: 0 for passed, 1 for failed, 2 when the
deadline elapsed without a summary.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		t, err := openTransport(logger)
		if err != nil {
			return err
		}
		defer t.Close()

		deadline, _ := cmd.Flags().GetDuration("deadline")

		summary, err := driver.AwaitSummary(cmd.Context(), t, deadline)
		if err != nil {
			return err
		}

		// os.Exit below skips the deferred teardown.
		t.Close()
		logger.Sync()

		switch summary.Outcome {
		case driver.OutcomePassed:
			fmt.Printf("passed: %d test(s)\n", summary.Tests)
		case driver.OutcomeFailed:
			fmt.Printf("failed: %d test(s)\n", summary.Tests)
			os.Exit(1)
		default:
			fmt.Println("no summary before deadline")
			os.Exit(2)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(awaitCmd)

	awaitCmd.Flags().Duration("deadline", 5*time.Minute, "overall deadline (0 scans forever)")
}
