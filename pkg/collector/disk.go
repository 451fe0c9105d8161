/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package collector

import (
	"context"
	"fmt"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/traas-stack/hostmonitor/pkg/logger"
	"github.com/traas-stack/hostmonitor/pkg/metric"
	"go.uber.org/zap"
	"path/filepath"
	"sort"
	"strings"
)

type (
	diskCollector struct{}
	DiskInfo      struct {
		Name       string
		MountPoint string
		// Total and Available are in MB
		Total      uint64
		Available  uint64
		ReadBytes  uint64
		WriteBytes uint64
	}
	IOInfo struct {
		Disks []DiskInfo
	}
)

func init() {
	Register(metric.IO, func() Collector {
		return &diskCollector{}
	})
}

func (i *IOInfo) String() string {
	sb := strings.Builder{}
	for _, d := range i.Disks {
		fmt.Fprintf(&sb, "name: %s, mount_point: %s, total_space: %d MB, available_space: %d MB, read: %d B, write: %d B\n",
			d.Name, d.MountPoint, d.Total, d.Available, d.ReadBytes, d.WriteBytes)
	}
	return sb.String()
}

func (c *diskCollector) Collect(ctx context.Context) (fmt.Stringer, error) {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}

	counters, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		// usage is still worth reporting
		logger.Debugz("[collector] [io] read io counters error", zap.Error(err))
		counters = nil
	}

	info := &IOInfo{}
	for i := range partitions {
		p := &partitions[i]
		u, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			logger.Debugz("[collector] [io] get usage error", zap.String("mountpoint", p.Mountpoint), zap.Error(err))
			continue
		}
		d := DiskInfo{
			Name:       p.Device,
			MountPoint: p.Mountpoint,
			Total:      u.Total / mb,
			Available:  u.Free / mb,
		}
		if ioc, ok := counters[filepath.Base(p.Device)]; ok {
			d.ReadBytes = ioc.ReadBytes
			d.WriteBytes = ioc.WriteBytes
		}
		info.Disks = append(info.Disks, d)
	}
	sort.Slice(info.Disks, func(i, j int) bool {
		return info.Disks[i].MountPoint < info.Disks[j].MountPoint
	})
	return info, nil
}
