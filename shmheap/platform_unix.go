//go:build linux || darwin

package shmheap

import (
	"github.com/agentshm/shmheap/internal/platform"
	"github.com/agentshm/shmheap/internal/poolfmt"
)

func openMutex(names platform.Names) (*platform.Mutex, error) {
	return platform.OpenOrCreateMutex(names.Path(names.Lock))
}

// headerProbeSize bounds the attach-time header peek (spec.md §4.1 step 8):
// page-aligned so it never maps a short read even on an OS whose mmap
// rounds lengths up to a page internally, and always well within the
// smallest pool Initialize will ever produce.
var headerProbeSize = platform.PageAlign(uint64(poolfmt.SizeofPoolHeader))

func openRegion(names platform.Names, size uint64) (*platform.Region, bool, error) {
	return platform.CreateOrOpenRegion(names.Path(names.Region), names.Region, size, headerProbeSize, true)
}

func openGlobalSize(names platform.Names, size uint64) (*platform.GlobalSize, error) {
	return platform.OpenOrCreateGlobalSize(names.Path(names.GlobalSize), names.GlobalSize, size)
}

func unlinkAll(names platform.Names) {
	platform.UnlinkRegion(names.Path(names.Region))
	platform.UnlinkMutex(names.Path(names.Lock))
	platform.UnlinkRegion(names.Path(names.GlobalSize))
}
