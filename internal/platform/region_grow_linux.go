//go:build linux

package platform

// growthSupported is true on Linux: ftruncate reliably grows a
// /dev/shm-backed file and a subsequent mmap sees the new length.
const growthSupported = true
