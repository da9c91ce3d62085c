package platform

import (
	"errors"
	"fmt"
)

// ErrGrowthUnsupported is returned by Region.Resize on platforms where the
// backing object cannot be grown in place (spec.md §4.6 "Platform note":
// macOS's shm_open-backed objects do not support reliable ftruncate
// growth).
var ErrGrowthUnsupported = errors.New("platform: growing the backing region is not supported on this platform")

// GlobalSize is the tiny out-of-band shared word every attached process
// consults to detect that another process grew the pool (spec.md §4.2
// step 2, glossary "Global size"). It is backed by its own small named
// shared region so it survives independently of the main pool mapping.
type GlobalSize struct {
	region *Region
}

// OpenOrCreateGlobalSize creates or attaches to the global-size word at
// path/name and, if this call created it, initializes it to initial.
func OpenOrCreateGlobalSize(path, name string, initial uint64) (*GlobalSize, error) {
	region, created, err := CreateOrOpenRegion(path, name, 8, 8, false)
	if err != nil {
		return nil, fmt.Errorf("platform: open global-size word: %w", err)
	}
	g := &GlobalSize{region: region}
	if created {
		g.Write(initial)
	}
	return g, nil
}

// Read returns the currently published size.
func (g *GlobalSize) Read() uint64 {
	return loadUint64(g.region.Mem)
}

// Write publishes a new size for every other attached process to observe
// on their next lock acquisition.
func (g *GlobalSize) Write(size uint64) {
	storeUint64(g.region.Mem, size)
}

// Close releases this process's view of the global-size word without
// unlinking it.
func (g *GlobalSize) Close() error {
	return g.region.Close()
}
