/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package main

import (
	"fmt"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/traas-stack/hostmonitor/pkg/metric"
	"strings"
)

var (
	errRateWithoutMetric = errors.New("--rate requires --metric")
	errNothingToSet      = errors.New("set requires --rate or --enabled")
	errMetricAndState    = errors.New("--metric and --state are exclusive")
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List metric states",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("metric")
		state, _ := cmd.Flags().GetString("state")
		line, err := listLine(name, state)
		if err != nil {
			return err
		}
		return send(cmd, line)
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start one metric, or all of them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("metric")
		var rate *uint8
		if cmd.Flags().Changed("rate") {
			r, _ := cmd.Flags().GetUint8("rate")
			rate = &r
		}
		line, err := startLine(name, rate)
		if err != nil {
			return err
		}
		return send(cmd, line)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop one metric, or all of them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("metric")
		line, err := stopLine(name)
		if err != nil {
			return err
		}
		return send(cmd, line)
	},
}

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the refresh rate or the enabled flag of a metric",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("metric")
		var rate *uint8
		if cmd.Flags().Changed("rate") {
			r, _ := cmd.Flags().GetUint8("rate")
			rate = &r
		}
		var enabled *bool
		if cmd.Flags().Changed("enabled") {
			e, _ := cmd.Flags().GetBool("enabled")
			enabled = &e
		}
		line, err := setLine(name, rate, enabled)
		if err != nil {
			return err
		}
		return send(cmd, line)
	},
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Persist the current metric config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return send(cmd, "store")
	},
}

func init() {
	listCmd.Flags().String("metric", "", "only this metric (cpu, memory, io)")
	listCmd.Flags().String("state", "", "only metrics in this state (initialized, running, stopped, disabled)")

	startCmd.Flags().String("metric", "", "metric to start, all when empty")
	startCmd.Flags().Uint8("rate", 0, "refresh rate in seconds")

	stopCmd.Flags().String("metric", "", "metric to stop, all when empty")

	setCmd.Flags().String("metric", "", "metric to change")
	setCmd.Flags().Uint8("rate", 0, "refresh rate in seconds")
	setCmd.Flags().Bool("enabled", true, "enable or disable the metric")
	_ = setCmd.MarkFlagRequired("metric")
}

func listLine(name, state string) (string, error) {
	switch {
	case name != "" && state != "":
		return "", errMetricAndState
	case name != "":
		if err := validMetric(name); err != nil {
			return "", err
		}
		return "list " + name, nil
	case state != "":
		if _, ok := metric.ParseState(state); !ok {
			return "", fmt.Errorf("invalid state '%s'", state)
		}
		return "list " + state, nil
	}
	return "list", nil
}

func startLine(name string, rate *uint8) (string, error) {
	if name == "" {
		if rate != nil {
			return "", errRateWithoutMetric
		}
		return "start", nil
	}
	if err := validMetric(name); err != nil {
		return "", err
	}
	parts := []string{"start", name}
	if rate != nil {
		if *rate == 0 {
			return "", errors.New("--rate must be at least 1")
		}
		parts = append(parts, fmt.Sprint(*rate))
	}
	return strings.Join(parts, " "), nil
}

func stopLine(name string) (string, error) {
	if name == "" {
		return "stop", nil
	}
	if err := validMetric(name); err != nil {
		return "", err
	}
	return "stop " + name, nil
}

func setLine(name string, rate *uint8, enabled *bool) (string, error) {
	if err := validMetric(name); err != nil {
		return "", err
	}
	if rate == nil && enabled == nil {
		return "", errNothingToSet
	}
	parts := []string{"set", name}
	if rate != nil {
		if *rate == 0 {
			return "", errors.New("--rate must be at least 1")
		}
		parts = append(parts, fmt.Sprint(*rate))
	}
	if enabled != nil {
		parts = append(parts, fmt.Sprint(*enabled))
	}
	return strings.Join(parts, " "), nil
}

func validMetric(name string) error {
	if _, ok := metric.ParseKind(name); !ok {
		return fmt.Errorf("invalid metric '%s'", name)
	}
	return nil
}
