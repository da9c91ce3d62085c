//go:build linux

package platform

import "golang.org/x/sys/unix"

// TotalSystemMemory returns the total physical RAM in bytes, used by the
// BLOCKFILE sizing rule (SPEC_FULL.md §5) to derive a quarter-of-RAM
// default max_size.
func TotalSystemMemory() (uint64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, err
	}
	return info.Totalram * uint64(info.Unit), nil
}
