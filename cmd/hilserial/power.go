/*
Copyright © 2026 Rigtools <dev@rigtools.io>
*/
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rigtools/hilserial/driver"
)

// powerCmd represents the power command
var powerCmd = &cobra.Command{
	Use:   "power <" + strings.Join(driver.Tokens(), "|") + ">",
	Short: "Control a bench power supply",
	Long: `Control a serial-attached bench power supply through its
command/response protocol.

Example usage:
  hilserial power on --port /dev/ttyUSB1 --eol $'\r'
  hilserial power status
  hilserial power on --wait-above 4.9 --wait-timeout 10s`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token := args[0]

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

		ctx := cmd.Context()
		psu := driver.NewPowerSupply(t, viper.GetDuration("timeout"), logger)

		if token == "status" {
			display, err := psu.GetDisplay(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%.2f V  %.2f A  status %d\n", display.Volts, display.Amps, display.Status)
			return nil
		}

		if err := psu.SendCommand(ctx, token); err != nil {
			return err
		}

		waitAbove, _ := cmd.Flags().GetFloat64("wait-above")
		waitBelow, _ := cmd.Flags().GetFloat64("wait-below")
		waitTimeout, _ := cmd.Flags().GetDuration("wait-timeout")

		if waitAbove > 0 || waitBelow > 0 {
			wctx := ctx
			if waitTimeout > 0 {
				var cancel context.CancelFunc
				wctx, cancel = context.WithTimeout(ctx, waitTimeout)
				defer cancel()
			}

			isMinimum := waitAbove > 0
			threshold := waitAbove
			if !isMinimum {
				threshold = waitBelow
			}
			display, err := psu.WaitForVoltage(wctx, isMinimum, threshold)
			if err != nil {
				return err
			}
			fmt.Printf("settled at %.2f V\n", display.Volts)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(powerCmd)

	powerCmd.Flags().Float64("wait-above", 0, "after the command, poll until voltage rises past this value")
	powerCmd.Flags().Float64("wait-below", 0, "after the command, poll until voltage falls past this value")
	powerCmd.Flags().Duration("wait-timeout", 0, "bound on the voltage wait (0 waits forever)")
}
