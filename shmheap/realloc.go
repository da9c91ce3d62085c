package shmheap

import (
	"unsafe"

	"github.com/agentshm/shmheap/internal/poolfmt"
)

// Realloc resizes the block at ptr to newUserSize, preserving its
// contents up to the smaller of the old and new sizes (spec.md §4.5). A
// nil ptr behaves like Alloc; a zero newUserSize returns nil without
// freeing (matching the source's documented behavior literally).
func (h *Handle) Realloc(ptr unsafe.Pointer, newUserSize uint64) (unsafe.Pointer, error) {
	if ptr == nil {
		return h.Alloc(newUserSize)
	}
	if newUserSize == 0 {
		return nil, nil
	}

	if err := h.Lock(); err != nil {
		return nil, err
	}

	c := h.pool.ChunkFromPayload(ptr)
	need := poolfmt.AlignUp(newUserSize) + uint64(poolfmt.SizeofChunkHeader)
	if need <= c.Size {
		c.UserSize = newUserSize
		h.Unlock()
		return ptr, nil
	}
	oldUserSize := c.UserSize
	h.Unlock()

	newPtr, err := h.Alloc(newUserSize)
	if err != nil {
		return nil, err
	}
	if newPtr == nil {
		return nil, newError("Realloc", ENOMEM, nil)
	}

	copySize := oldUserSize
	if newUserSize < copySize {
		copySize = newUserSize
	}
	if copySize > 0 {
		src := unsafe.Slice((*byte)(ptr), int(copySize))
		dst := unsafe.Slice((*byte)(newPtr), int(copySize))
		copy(dst, src)
	}

	if err := h.Free(ptr); err != nil {
		return nil, err
	}
	return newPtr, nil
}
