/*
Copyright © 2026 Rigtools <dev@rigtools.io>
*/
package main

import (
	"fmt"
	"regexp"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rigtools/hilserial/driver"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <pattern>",
	Short: "Wait for a line matching a pattern on the console",
	Long: `Watch the serial console until a line matches the given regular
expression. An optional agitator string is written periodically to provoke
output from a silent device, and a heartbeat reports progress while the
watch runs.

Example usage:
  hilserial watch 'LINUX\s+Distribution\s+(\d+\.\d+)' --deadline 2m
  hilserial watch 'login:' --agitate ' ' --agitate-every 3s`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern, err := regexp.Compile(args[0])
		if err != nil {
			return fmt.Errorf("bad pattern: %w", err)
		}

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

		agitate, _ := cmd.Flags().GetString("agitate")
		agitateEvery, _ := cmd.Flags().GetDuration("agitate-every")
		beatEvery, _ := cmd.Flags().GetDuration("heartbeat-every")
		deadline, _ := cmd.Flags().GetDuration("deadline")

		w := &driver.Watch{
			Conn:         t,
			Pattern:      pattern,
			Agitate:      agitate,
			AgitateEvery: agitateEvery,
			BeatEvery:    beatEvery,
			Timeout:      deadline,
			Logger:       logger,
			OnBeat: func(elapsed time.Duration) {
				logger.Info("still watching", zap.Duration("elapsed", elapsed.Round(time.Second)))
			},
		}

		match, err := w.Run(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println(match.Line.Text)
		for i, group := range match.Groups[1:] {
			fmt.Printf("group %d: %s\n", i+1, group)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().String("agitate", "", "string to write periodically to provoke output")
	watchCmd.Flags().Duration("agitate-every", 5*time.Second, "agitator interval")
	watchCmd.Flags().Duration("heartbeat-every", 10*time.Second, "progress heartbeat interval")
	watchCmd.Flags().Duration("deadline", 0, "overall deadline (0 runs until matched)")
}
