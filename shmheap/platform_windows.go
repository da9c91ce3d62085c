//go:build windows

package shmheap

import (
	"github.com/agentshm/shmheap/internal/platform"
	"github.com/agentshm/shmheap/internal/poolfmt"
)

// headerProbeSize is unused by the Windows CreateOrOpenRegion (it learns
// the live size from the backing file's length instead), but is still
// passed through so both builds share one call shape.
var headerProbeSize = platform.PageAlign(uint64(poolfmt.SizeofPoolHeader))

func openMutex(names platform.Names) (*platform.Mutex, error) {
	return platform.OpenOrCreateMutex(platform.WindowsGlobalName(names.Lock))
}

func openRegion(names platform.Names, size uint64) (*platform.Region, bool, error) {
	return platform.CreateOrOpenRegion(names.Path(names.File), platform.WindowsGlobalName(names.Region), size, headerProbeSize, true)
}

func openGlobalSize(names platform.Names, size uint64) (*platform.GlobalSize, error) {
	// Backed directly by the system paging file, not the on-disk "_f"
	// file, matching shared.c's Windows naming (spec.md §6).
	return platform.OpenOrCreateGlobalSize("", platform.WindowsGlobalName(names.GlobalSize), size)
}

func unlinkAll(names platform.Names) {
	platform.UnlinkRegion(names.Path(names.File))
}
