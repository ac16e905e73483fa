//go:build unix

package fsutil

import "golang.org/x/sys/unix"

func unixDevNumbers(rdev uint64) (major, minor uint64) {
	return uint64(unix.Major(rdev)), uint64(unix.Minor(rdev))
}
