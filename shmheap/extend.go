package shmheap

import (
	"fmt"

	"github.com/agentshm/shmheap/internal/platform"
	"github.com/agentshm/shmheap/internal/poolfmt"
)

// Extend grows the pool to a new total size of requestedUserSize plus the
// pool header, rounded up to a page, implementing spec.md §4.6. It refuses to grow past the pool's
// max_size and returns EOPNOTSUPP verbatim on platforms (Darwin) where
// growing the backing object is unsupported.
func (h *Handle) Extend(requestedUserSize uint64) error {
	if err := h.Lock(); err != nil {
		return err
	}
	defer h.Unlock()

	hdr := h.pool.Header()
	newSize := platform.PageAlign(requestedUserSize + uint64(poolfmt.SizeofPoolHeader))
	if newSize > hdr.MaxSize {
		newSize = hdr.MaxSize
	}
	if newSize <= hdr.Size {
		return newError("Extend", ENOMEM, fmt.Errorf("pool already at max_size %d", hdr.MaxSize))
	}

	oldSize := hdr.Size
	if err := h.region.Resize(newSize); err != nil {
		if err == platform.ErrGrowthUnsupported {
			return newError("Extend", EOPNOTSUPP, err)
		}
		return newError("Extend", EFAULT, err)
	}
	h.pool.Rebind(h.region.Mem)
	h.localSize = newSize

	// The freelist-bucket-on-grow decision (DESIGN.md): the tail chunk's
	// bucket membership is always fully recomputed via ReinsertFree,
	// even when the bucket would not have changed, rather than patched
	// in place.
	hdr = h.pool.Header()
	tail := h.pool.ChunkAt(poolfmt.Offset(hdr.ChainLast))
	grown := newSize - oldSize
	if tail.Used == 0 {
		poolfmt.ReinsertFree(h.pool, tail, func() {
			tail.Size += grown
		})
	} else {
		newTail := h.pool.ChunkAt(poolfmt.Offset(oldSize))
		*newTail = poolfmt.ChunkHeader{}
		newTail.Size = grown
		newTail.Used = 0
		poolfmt.InsertChunkAfter(h.pool, tail, newTail)
		poolfmt.AddToFreelist(h.pool, newTail)
	}

	hdr.Size = newSize
	h.globalSize.Write(newSize)
	return nil
}
