package shmheap

import (
	"unsafe"

	"github.com/agentshm/shmheap/internal/poolfmt"
)

// Alloc reserves userSize bytes from the pool and returns a pointer to
// them, or nil if userSize is zero (spec.md §4.3 edge case). On exhaustion
// it attempts Extend once before giving up.
func (h *Handle) Alloc(userSize uint64) (unsafe.Pointer, error) {
	return h.AllocWithGC(userSize, 0, nil)
}

// AllocWithGC is Alloc's GC-callback variant (spec.md §4.3 step 5): when
// no free chunk is large enough, gc (if non-nil) is invoked with id; if it
// reports bytes were reclaimed, allocation is retried once before falling
// back to Extend. The lock is released before invoking gc and
// re-acquired for the retry, the simpler of the two equally-correct
// strategies spec.md §9 describes, avoiding a same-goroutine re-entrant
// critical section.
func (h *Handle) AllocWithGC(userSize uint64, id uint64, gc func(id uint64) bool) (unsafe.Pointer, error) {
	if userSize == 0 {
		return nil, nil
	}

	if err := h.Lock(); err != nil {
		return nil, err
	}

	ptr, ok := h.tryAlloc(userSize)
	if ok {
		h.Unlock()
		return ptr, nil
	}
	h.Unlock()

	if gc != nil {
		if gc(id) {
			if err := h.Lock(); err != nil {
				return nil, err
			}
			ptr, ok := h.tryAlloc(userSize)
			h.Unlock()
			if ok {
				return ptr, nil
			}
		}
	}

	need := poolfmt.AlignUp(userSize) + uint64(poolfmt.SizeofChunkHeader)
	if err := h.Extend((h.localSize + need) * 2); err != nil {
		return nil, newError("AllocWithGC", ENOMEM, err)
	}

	if err := h.Lock(); err != nil {
		return nil, err
	}
	defer h.Unlock()
	ptr, ok = h.tryAlloc(userSize)
	if !ok {
		return nil, newError("AllocWithGC", ENOMEM, nil)
	}
	return ptr, nil
}

// tryAlloc must be called with the lock held.
func (h *Handle) tryAlloc(userSize uint64) (unsafe.Pointer, bool) {
	c := poolfmt.Alloc(h.pool, userSize)
	if c == nil {
		return nil, false
	}
	return h.pool.Payload(c), true
}
