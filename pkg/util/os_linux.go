//go:build linux

/*
 * Copyright 2022 Holoinsight Project Authors. Licensed under Apache-2.0.
 */

package util

import (
	"errors"
	"golang.org/x/sys/unix"
	"os"
)

// OpenFileReadonly opens file without updating its access time.
// O_NOATIME is only allowed for the owner of the file, other callers fall back to a plain read-only open.
func OpenFileReadonly(file string) (*os.File, error) {
	f, err := os.OpenFile(file, os.O_RDONLY|unix.O_NOATIME, 0)
	if err != nil && errors.Is(err, unix.EPERM) {
		return os.OpenFile(file, os.O_RDONLY, 0)
	}
	return f, err
}
