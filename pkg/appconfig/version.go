/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package appconfig

import (
	"runtime"
	"time"
)

// set by -ldflags
var (
	monitorVersion   string
	monitorBuildTime string
	gitcommit        string
)

var uptime = time.Now()

// BuildInfo describes the running binary.
func BuildInfo() map[string]interface{} {
	return map[string]interface{}{
		"goversion": runtime.Version(),
		"version":   monitorVersion,
		"buildTime": monitorBuildTime,
		"commit":    gitcommit,
		"uptime":    uptime.Format(time.RFC3339),
	}
}
