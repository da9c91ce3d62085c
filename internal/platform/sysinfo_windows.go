//go:build windows

package platform

import (
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// WindowsGlobalName prefixes a logical name with the Global\ kernel
// namespace, matching spec.md §6's Windows naming convention.
func WindowsGlobalName(logical string) string {
	return `Global\` + logical
}

// PageSize returns the OS allocation granularity, used by Create/Extend to
// round requested sizes up (spec.md §4.1 step 2, §4.6 step 1).
func PageSize() uint64 {
	var info windows.SystemInfo
	windows.GetSystemInfo(&info)
	return uint64(info.PageSize)
}

// PageAlign rounds n up to the next multiple of the page size.
func PageAlign(n uint64) uint64 {
	page := PageSize()
	return (n + page - 1) &^ (page - 1)
}

// FreeDiskSpace reports the number of free bytes on the volume backing
// path, used by Create to reject pool creation with ENOSPC (spec.md §4.1
// step 5).
func FreeDiskSpace(path string) (uint64, error) {
	dir := path
	ptr, err := syscall.UTF16PtrFromString(dir)
	if err != nil {
		return 0, fmt.Errorf("platform: FreeDiskSpace path %q: %w", path, err)
	}
	var freeAvail, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(ptr, &freeAvail, &total, &totalFree); err != nil {
		return 0, fmt.Errorf("platform: GetDiskFreeSpaceEx: %w", err)
	}
	return freeAvail, nil
}

// TotalSystemMemory returns the total physical RAM in bytes, used by the
// BLOCKFILE sizing rule (SPEC_FULL.md §5).
func TotalSystemMemory() (uint64, error) {
	var status windows.MemoryStatusEx
	status.Length = uint32(unsafe.Sizeof(status))
	if err := windows.GlobalMemoryStatusEx(&status); err != nil {
		return 0, fmt.Errorf("platform: GlobalMemoryStatusEx: %w", err)
	}
	return status.TotalPhys, nil
}
