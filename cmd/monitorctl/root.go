/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package main

import (
	"context"
	"fmt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/traas-stack/hostmonitor/pkg/client"
	"os"
)

const (
	defaultSocketPath = "/var/run/lkmonitor.sock"
)

var rootCmd = &cobra.Command{
	Use:   "monitorctl",
	Short: "monitorctl controls a running host monitor",
	Long: `monitorctl sends one control line to the monitor socket and prints every result on its own line.

Examples:
  monitorctl list --state running
  monitorctl start --metric cpu --rate 2
  monitorctl set --metric io --enabled=false
  monitorctl store`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("socket", defaultSocketPath, "control socket of the monitor")
	rootCmd.PersistentFlags().Duration("timeout", 0, "timeout of one request, 0 waits for the monitor however long a stop takes")

	_ = viper.BindPFlag("socket", rootCmd.PersistentFlags().Lookup("socket"))
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))

	// HM_SOCKET_PATH is shared with the daemon
	viper.SetEnvPrefix("hm")
	_ = viper.BindEnv("socket", "HM_SOCKET_PATH")
	viper.AutomaticEnv()

	rootCmd.AddCommand(listCmd, startCmd, stopCmd, setCmd, storeCmd)
}

// send delivers line and prints the results.
func send(cmd *cobra.Command, line string) error {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout := viper.GetDuration("timeout"); timeout > 0 {
		ctx, cancel = context.WithTimeout(cmd.Context(), timeout)
	} else {
		ctx, cancel = context.WithCancel(cmd.Context())
	}
	defer cancel()

	lines, err := client.Send(ctx, viper.GetString("socket"), line)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, l := range lines {
		fmt.Fprintln(out, l)
	}
	return nil
}
