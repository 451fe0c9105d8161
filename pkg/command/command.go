/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

// Package command turns one control line into an ordered batch of commands.
//
// Grammar (whitespace separated):
//
//	start [metric] [rate]
//	stop [metric]
//	list [metric|state]
//	set metric [rate|enabled] [rate|enabled]
//	store
//
// An unknown first token yields an empty batch.
package command

import (
	"errors"
	"fmt"
	"github.com/traas-stack/hostmonitor/pkg/metric"
	"strconv"
	"strings"
)

const (
	Start Type = iota
	Stop
	List
	Set
	Store
)

var (
	ErrMissingMetric   = errors.New("Error: metric is required")
	ErrMissingSetValue = errors.New("Error: rate or enabled is required")
)

type (
	Type int

	// Command is one parsed control directive. Nil fields were not given.
	Command struct {
		Type    Type
		Kind    *metric.Kind
		Rate    *uint8
		Enabled *bool
		State   *metric.State
	}
)

var typeNames = map[string]Type{
	"start": Start,
	"stop":  Stop,
	"list":  List,
	"set":   Set,
	"store": Store,
}

func (t Type) String() string {
	for name, x := range typeNames {
		if x == t {
			return name
		}
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// Parse expands line into a batch. Commands that apply to every kind are expanded in registry order.
// A returned error is meant to be sent back to the client as is.
func Parse(line string) ([]Command, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return nil, nil
	}
	t, ok := typeNames[tokens[0]]
	if !ok {
		return nil, nil
	}
	args := tokens[1:]

	switch t {
	case Start:
		return parseStart(args)
	case Stop:
		return parseStop(args)
	case List:
		return parseList(args), nil
	case Set:
		return parseSet(args)
	default:
		return []Command{{Type: Store}}, nil
	}
}

func parseStart(args []string) ([]Command, error) {
	var rate *uint8
	if len(args) > 1 {
		r, ok := ParseRate(args[1])
		if !ok {
			return nil, fmt.Errorf("Error: invalid rate '%s'", args[1])
		}
		rate = &r
	}
	if len(args) > 0 {
		k, err := parseKind(args[0])
		if err != nil {
			return nil, err
		}
		return []Command{{Type: Start, Kind: &k, Rate: rate}}, nil
	}
	return forEachKind(func(k metric.Kind) Command {
		return Command{Type: Start, Kind: &k, Rate: rate}
	}), nil
}

func parseStop(args []string) ([]Command, error) {
	if len(args) > 0 {
		k, err := parseKind(args[0])
		if err != nil {
			return nil, err
		}
		return []Command{{Type: Stop, Kind: &k}}, nil
	}
	return forEachKind(func(k metric.Kind) Command {
		return Command{Type: Stop, Kind: &k}
	}), nil
}

// parseList narrows to one kind or one state. Any other token lists every kind.
func parseList(args []string) []Command {
	if len(args) > 0 {
		if k, ok := metric.ParseKind(args[0]); ok {
			return []Command{{Type: List, Kind: &k}}
		}
		if st, ok := metric.ParseState(args[0]); ok {
			return []Command{{Type: List, State: &st}}
		}
	}
	return forEachKind(func(k metric.Kind) Command {
		return Command{Type: List, Kind: &k}
	})
}

// parseSet types the optional tokens by parse success: rate first, then bool.
// Two tokens of the same type overwrite each other, the later one wins.
func parseSet(args []string) ([]Command, error) {
	if len(args) == 0 {
		return nil, ErrMissingMetric
	}
	k, err := parseKind(args[0])
	if err != nil {
		return nil, err
	}

	c := Command{Type: Set, Kind: &k}
	for _, arg := range args[1:min(len(args), 3)] {
		if r, ok := ParseRate(arg); ok {
			c.Rate = &r
		} else if b, ok := ParseBool(arg); ok {
			c.Enabled = &b
		}
	}
	if c.Rate == nil && c.Enabled == nil {
		return nil, ErrMissingSetValue
	}
	return []Command{c}, nil
}

// ParseRate accepts 1-255.
func ParseRate(s string) (uint8, bool) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint8(v), true
}

func ParseBool(s string) (bool, bool) {
	switch s {
	case "true":
		return true, true
	case "false":
		return false, true
	default:
		return false, false
	}
}

func parseKind(s string) (metric.Kind, error) {
	k, ok := metric.ParseKind(s)
	if !ok {
		return 0, fmt.Errorf("Error: invalid metric '%s'", s)
	}
	return k, nil
}

func forEachKind(f func(k metric.Kind) Command) []Command {
	kinds := metric.Kinds()
	ret := make([]Command, 0, len(kinds))
	for _, k := range kinds {
		ret = append(ret, f(k))
	}
	return ret
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
