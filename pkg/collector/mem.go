/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package collector

import (
	"context"
	"fmt"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/traas-stack/hostmonitor/pkg/metric"
)

type (
	memCollector struct{}
	// MemoryInfo values are in MB.
	MemoryInfo struct {
		Total     uint64
		Used      uint64
		Free      uint64
		Available uint64
		Util      float64
	}
)

func init() {
	Register(metric.Memory, func() Collector {
		return &memCollector{}
	})
}

func (i *MemoryInfo) String() string {
	return fmt.Sprintf("Total memory: %d MB, Used: %d MB, Free: %d MB, Available: %d MB, Util: %.2f%%\n",
		i.Total, i.Used, i.Free, i.Available, i.Util)
}

func (c *memCollector) Collect(ctx context.Context) (fmt.Stringer, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}
	return &MemoryInfo{
		Total:     vm.Total / mb,
		Used:      vm.Used / mb,
		Free:      vm.Free / mb,
		Available: vm.Available / mb,
		Util:      vm.UsedPercent,
	}, nil
}
