//go:build darwin

package platform

import "golang.org/x/sys/unix"

// TotalSystemMemory returns the total physical RAM in bytes, used by the
// BLOCKFILE sizing rule (SPEC_FULL.md §5) to derive a quarter-of-RAM
// default max_size. Darwin has no Sysinfo syscall; hw.memsize is the
// documented sysctl equivalent.
func TotalSystemMemory() (uint64, error) {
	return unix.SysctlUint64("hw.memsize")
}
