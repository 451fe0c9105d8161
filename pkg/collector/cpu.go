/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package collector

import (
	"context"
	"fmt"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/traas-stack/hostmonitor/pkg/metric"
	"strings"
)

type (
	cpuCollector struct{}
	CpuLoad      struct {
		Name string
		Load float64
	}
	CpuInfo struct {
		Cpus []CpuLoad
	}
)

func init() {
	Register(metric.CPU, func() Collector {
		return &cpuCollector{}
	})
}

func (i *CpuInfo) String() string {
	sb := strings.Builder{}
	for _, c := range i.Cpus {
		fmt.Fprintf(&sb, " %s: Load: %.2f%%\n", c.Name, c.Load)
	}
	return sb.String()
}

// Collect reports per-cpu usage since the previous call.
func (c *cpuCollector) Collect(ctx context.Context) (fmt.Stringer, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return nil, err
	}
	info := &CpuInfo{Cpus: make([]CpuLoad, 0, len(percents))}
	for i, p := range percents {
		info.Cpus = append(info.Cpus, CpuLoad{Name: fmt.Sprintf("cpu%d", i), Load: p})
	}
	return info, nil
}
