//go:build linux || darwin

package platform

import "golang.org/x/sys/unix"

// PageSize returns the OS page size, used by Create/Extend to round
// requested sizes up (spec.md §4.1 step 2, §4.6 step 1).
func PageSize() uint64 {
	return uint64(unix.Getpagesize())
}

// PageAlign rounds n up to the next multiple of the page size.
func PageAlign(n uint64) uint64 {
	page := PageSize()
	return (n + page - 1) &^ (page - 1)
}

// FreeDiskSpace reports the number of free bytes on the filesystem backing
// path, used by Create to reject pool creation with ENOSPC before it
// truncates the backing object (spec.md §4.1 step 5).
func FreeDiskSpace(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Bavail) * uint64(st.Bsize), nil
}
