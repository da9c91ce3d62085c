package shmheap

import (
	"unsafe"

	"github.com/agentshm/shmheap/internal/poolfmt"
)

// SetUserOffset stores a caller-supplied root offset into the pool header
// (spec.md §4.7). The offset is not validated.
func (h *Handle) SetUserOffset(off uint32) error {
	if err := h.Lock(); err != nil {
		return err
	}
	defer h.Unlock()
	h.pool.Header().UserOffset = off
	return nil
}

// GetUserPointer returns the in-process address corresponding to the
// stored user offset, or nil if none has been set.
func (h *Handle) GetUserPointer() (unsafe.Pointer, error) {
	if err := h.Lock(); err != nil {
		return nil, err
	}
	defer h.Unlock()
	off := poolfmt.Offset(h.pool.Header().UserOffset)
	if !off.Valid() {
		return nil, nil
	}
	return unsafe.Add(unsafe.Pointer(&h.pool.Bytes()[0]), int(off)), nil
}
