package shmheap

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/agentshm/shmheap/internal/platform"
	"github.com/agentshm/shmheap/internal/poolfmt"
)

func checkPoolInvariants(t *testing.T, h *Handle) {
	t.Helper()
	if err := h.pool.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if _, err := h.pool.VerifyFreelists(); err != nil {
		t.Fatalf("VerifyFreelists: %v", err)
	}
}

// TestFreshRegionSizing is scenario 1 of spec.md §8: a 4096-byte request on
// a 4 KiB-page host rounds up to one page for the header plus one page of
// payload, landing the single free chunk in bucket 2.
func TestFreshRegionSizing(t *testing.T) {
	h := newTestHandle(t, 4096)
	hdr := h.pool.Header()

	page := platform.PageSize()
	wantSize := platform.PageAlign(4096 + uint64(poolfmt.SizeofPoolHeader))
	if hdr.Size != wantSize {
		t.Fatalf("pool.Size = %d, want %d (page=%d)", hdr.Size, wantSize, page)
	}
	if hdr.Open != 1 {
		t.Fatalf("Open = %d, want 1", hdr.Open)
	}

	first := h.pool.ChunkAt(poolfmt.Offset(hdr.ChainFirst))
	wantChunkSize := hdr.Size - uint64(poolfmt.SizeofPoolHeader)
	if first.Size != wantChunkSize {
		t.Fatalf("first chunk size = %d, want %d", first.Size, wantChunkSize)
	}
	if poolfmt.BucketOf(first.Size) != 2 {
		t.Fatal("fresh pool's single chunk should land in bucket 2")
	}
	checkPoolInvariants(t, h)
}

// TestSplitAndAllocate is scenario 2.
func TestSplitAndAllocate(t *testing.T) {
	h := newTestHandle(t, 4096)
	oldFree := h.pool.ChunkAt(poolfmt.Offset(h.pool.Header().ChainFirst)).Size

	ptr, err := h.Alloc(24)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if ptr == nil {
		t.Fatal("Alloc(24) returned nil")
	}
	if uintptr(ptr)%8 != 0 {
		t.Fatalf("payload pointer %p is not 8-byte aligned", ptr)
	}

	c := h.pool.ChunkFromPayload(ptr)
	wantChunkSize := poolfmt.AlignUp(24 + uint64(poolfmt.SizeofChunkHeader))
	if c.Size != wantChunkSize {
		t.Fatalf("allocated chunk size = %d, want %d", c.Size, wantChunkSize)
	}
	if c.Used != 1 {
		t.Fatal("allocated chunk not marked used")
	}

	hdr := h.pool.Header()
	remainder := h.pool.ChunkAt(poolfmt.Offset(hdr.ChainLast))
	if remainder.Size != oldFree-wantChunkSize {
		t.Fatalf("remainder size = %d, want %d", remainder.Size, oldFree-wantChunkSize)
	}
	if poolfmt.BucketOf(remainder.Size) != 2 {
		t.Fatal("remainder should still be in bucket 2")
	}
	checkPoolInvariants(t, h)
}

// TestCoalesceBothSidesAtHandleLevel is scenario 3.
func TestCoalesceBothSidesAtHandleLevel(t *testing.T) {
	h := newTestHandle(t, 4096)

	a, err := h.Alloc(32)
	if err != nil {
		t.Fatalf("Alloc a: %v", err)
	}
	b, err := h.Alloc(32)
	if err != nil {
		t.Fatalf("Alloc b: %v", err)
	}
	c, err := h.Alloc(32)
	if err != nil {
		t.Fatalf("Alloc c: %v", err)
	}

	if err := h.Free(a); err != nil {
		t.Fatalf("Free a: %v", err)
	}
	if err := h.Free(c); err != nil {
		t.Fatalf("Free c: %v", err)
	}
	if err := h.Free(b); err != nil {
		t.Fatalf("Free b: %v", err)
	}

	hdr := h.pool.Header()
	if hdr.ChainFirst != hdr.ChainLast {
		t.Fatalf("expected exactly one chunk spanning the payload, found a second at %d", hdr.ChainLast)
	}
	first := h.pool.ChunkAt(poolfmt.Offset(hdr.ChainFirst))
	if first.Used != 0 {
		t.Fatal("the single remaining chunk should be free")
	}
	checkPoolInvariants(t, h)
}

// Scenario 4 (size-class routing) is covered precisely at the byte-size
// level by internal/poolfmt's TestSizeClassRouting: routing is purely a
// function of poolfmt.BucketOf(size), independent of how Create's
// page-alignment sizes the pool a Handle ends up wrapping, so exercising
// it again through Create's page-granular sizing here would only assert
// BucketOf against itself.

// TestRejectOversizedRequest is scenario 7.
func TestRejectOversizedRequest(t *testing.T) {
	name := uniqueName(t)
	const maxSize = 64 << 10
	h, limited, err := Create(name, maxSize*2, WithMaxSize(maxSize))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer h.Destroy()

	if !limited {
		t.Fatal("expected limited == true")
	}
	info, err := h.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.MaxSize != maxSize {
		t.Fatalf("MaxSize = %d, want %d", info.MaxSize, maxSize)
	}
	if info.Size > maxSize {
		t.Fatalf("Size = %d, exceeds MaxSize %d", info.Size, maxSize)
	}

	_, err = h.Alloc(maxSize)
	if err == nil {
		t.Fatal("expected allocation beyond max_size to fail")
	}
	var herr *Error
	if !errors.As(err, &herr) || herr.Code != ENOMEM {
		t.Fatalf("error = %v, want an ENOMEM *Error", err)
	}
}

// TestRoundTripLawAtHandleLevel is the round-trip law: any sequence of
// alloc/free that returns the user count to zero leaves the freelist
// isomorphic to a freshly initialized pool.
func TestRoundTripLawAtHandleLevel(t *testing.T) {
	h := newTestHandle(t, 16<<10)

	var ptrs []unsafe.Pointer
	sizes := []uint64{8, 256, 40, 1200, 16}
	for _, sz := range sizes {
		ptr, err := h.Alloc(sz)
		if err != nil {
			t.Fatalf("Alloc(%d): %v", sz, err)
		}
		ptrs = append(ptrs, ptr)
	}
	for i := len(ptrs) - 1; i >= 0; i-- {
		if err := h.Free(ptrs[i]); err != nil {
			t.Fatalf("Free: %v", err)
		}
	}

	hdr := h.pool.Header()
	if hdr.ChainFirst != hdr.ChainLast {
		t.Fatal("expected exactly one chunk after returning to zero outstanding allocations")
	}
	only := h.pool.ChunkAt(poolfmt.Offset(hdr.ChainFirst))
	if only.Used != 0 {
		t.Fatal("the single remaining chunk should be free")
	}
	if only.Size != hdr.Size-uint64(poolfmt.SizeofPoolHeader) {
		t.Fatalf("chunk size = %d, want %d", only.Size, hdr.Size-uint64(poolfmt.SizeofPoolHeader))
	}
	checkPoolInvariants(t, h)
}
