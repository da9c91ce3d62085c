package shmheap

import (
	"unsafe"

	"github.com/agentshm/shmheap/internal/poolfmt"
)

// Free releases a pointer previously returned by Alloc/AllocWithGC/
// Realloc. A nil pointer and a double-free are both silently ignored
// (spec.md §4.4, §7).
func (h *Handle) Free(ptr unsafe.Pointer) error {
	if ptr == nil {
		return nil
	}
	if err := h.Lock(); err != nil {
		return err
	}
	defer h.Unlock()

	c := h.pool.ChunkFromPayload(ptr)
	if c.Used == 0 {
		return nil // double free: silently ignored
	}
	poolfmt.Free(h.pool, c)
	return nil
}
