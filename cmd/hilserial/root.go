/*
Copyright © 2026 Rigtools <dev@rigtools.io>
*/
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rigtools/hilserial"
	"github.com/rigtools/hilserial/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hilserial",
	Short: "Automate serial test instruments",
	Long: `hilserial drives serial-attached lab instruments for
hardware-in-the-loop test execution: bench power supplies, device consoles,
and streamed test logs.

Connection settings resolve through a flat configuration namespace: flags
override environment variables (HILSERIAL_*), which override the config
file.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.hilserial.yaml)")
	rootCmd.PersistentFlags().StringP("port", "p", "/dev/ttyUSB0", "serial device path")
	rootCmd.PersistentFlags().IntP("baud", "b", 9600, "baud rate")
	rootCmd.PersistentFlags().String("eol", "\n", "line terminator")
	rootCmd.PersistentFlags().Bool("echo", false, "log transmitted lines")
	rootCmd.PersistentFlags().Duration("timeout", 2*time.Second, "per-exchange timeout")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "console", "log format: console, json")
	rootCmd.PersistentFlags().String("log-file", "", "also log to this file, with rotation")

	for _, key := range []string{"port", "baud", "eol", "echo", "timeout", "log-level", "log-format", "log-file"} {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".hilserial")
	}

	viper.SetEnvPrefix("HILSERIAL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger from the resolved configuration.
func newLogger() (*zap.Logger, error) {
	return logging.New(logging.Config{
		Level:  viper.GetString("log-level"),
		Format: viper.GetString("log-format"),
		File:   viper.GetString("log-file"),
	})
}

// openTransport opens a transport session from the resolved configuration.
func openTransport(logger *zap.Logger) (*hilserial.Transport, error) {
	return hilserial.Open(viper.GetString("port"),
		hilserial.WithBaudRate(viper.GetInt("baud")),
		hilserial.WithEOL(viper.GetString("eol")),
		hilserial.WithEcho(viper.GetBool("echo")),
		hilserial.WithLogger(logger),
	)
}
