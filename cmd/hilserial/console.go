/*
Copyright © 2026 Rigtools <dev@rigtools.io>
*/
package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rigtools/hilserial/internal/tui"
)

// consoleCmd represents the console command
var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Watch device output in a live terminal view",
	Long: `Console opens the serial device and shows received lines as they
arrive, with the session-relative receive time of each line.

Scroll with the arrow keys or page up/down, press c to clear, q to quit.`,
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

		timestamps, _ := cmd.Flags().GetBool("timestamps")
		model := tui.NewConsole(viper.GetString("port"), timestamps, t.Dropped)
		p := tea.NewProgram(model, tea.WithAltScreen())

		go func() {
			for {
				line, err := t.GetLine(context.Background(), 0)
				if err != nil {
					p.Send(tui.DisconnectMsg{Err: err})
					return
				}
				p.Send(tui.LineMsg{Line: line})
			}
		}()

		if _, err := p.Run(); err != nil {
			return fmt.Errorf("console: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)

	consoleCmd.Flags().Bool("timestamps", false, "prefix each line with its receive time")
}
