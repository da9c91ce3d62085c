package shmheap

import "github.com/agentshm/shmheap/internal/poolfmt"

// Info summarizes the pool's current state, used by diagnostics and by
// cmd/shmheap-bench's reporting.
type Info struct {
	Size       uint64
	MaxSize    uint64
	Open       int32
	FreeBytes  uint64
	UsedBytes  uint64
	UserOffset uint32
}

// Info returns a snapshot of the pool's header and freelist accounting.
// FreeBytes comes from poolfmt.Pool.VerifyFreelists, the SPEC_FULL.md §5
// restoration of shared.c's am_shm_freelist_info — not merely a sum over
// the header, but an actual walk that also checks list well-formedness.
func (h *Handle) Info() (Info, error) {
	if err := h.Lock(); err != nil {
		return Info{}, err
	}
	defer h.Unlock()

	hdr := h.pool.Header()
	free, err := h.pool.VerifyFreelists()
	if err != nil {
		return Info{}, newError("Info", ERROR, err)
	}
	return Info{
		Size:       hdr.Size,
		MaxSize:    hdr.MaxSize,
		Open:       hdr.Open,
		FreeBytes:  free,
		UsedBytes:  hdr.Size - uint64(poolfmt.SizeofPoolHeader) - free,
		UserOffset: hdr.UserOffset,
	}, nil
}
