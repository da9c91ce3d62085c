package poolfmt

import "testing"

func newTestPool(t *testing.T, size uint64) *Pool {
	t.Helper()
	mem := make([]byte, size)
	p, err := Initialize(mem, size, "1.0.0")
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return p
}

func checkInvariants(t *testing.T, p *Pool) {
	t.Helper()
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if _, err := p.VerifyFreelists(); err != nil {
		t.Fatalf("VerifyFreelists: %v", err)
	}
}

func TestInitializeFreshPool(t *testing.T) {
	p := newTestPool(t, 8192)
	hdr := p.Header()
	if hdr.Size != 8192 {
		t.Fatalf("Size = %d, want 8192", hdr.Size)
	}
	if hdr.Open != 0 {
		t.Fatalf("Open = %d, want 0", hdr.Open)
	}
	first := p.ChunkAt(Offset(hdr.ChainFirst))
	wantSize := uint64(8192) - uint64(SizeofPoolHeader)
	if first.Size != wantSize {
		t.Fatalf("first chunk size = %d, want %d", first.Size, wantSize)
	}
	if BucketOf(first.Size) != 2 {
		t.Fatalf("fresh pool's single chunk should land in bucket 2")
	}
	checkInvariants(t, p)
}

func TestAllocSplitsAndMarksUsed(t *testing.T) {
	p := newTestPool(t, 8192)
	before := p.ChunkAt(Offset(p.Header().ChainFirst)).Size

	c := Alloc(p, 24)
	if c == nil {
		t.Fatal("Alloc(24) returned nil")
	}
	if c.Used != 1 {
		t.Fatal("allocated chunk not marked used")
	}
	want := AlignUp(24 + uint64(SizeofChunkHeader))
	if c.Size != want {
		t.Fatalf("chunk size = %d, want %d", c.Size, want)
	}
	off := p.OffsetOf(c)
	if off%Alignment != 0 {
		t.Fatalf("chunk offset %d not 8-aligned", off)
	}
	payloadOff := p.PayloadOffset(off)
	if uint64(payloadOff)%Alignment != 0 {
		t.Fatalf("payload offset %d not 8-aligned", payloadOff)
	}

	remainder := p.NextChunk(c)
	if remainder == nil {
		t.Fatal("expected a split remainder chunk")
	}
	if remainder.Size != before-want {
		t.Fatalf("remainder size = %d, want %d", remainder.Size, before-want)
	}
	if BucketOf(remainder.Size) != 2 {
		t.Fatalf("large remainder should stay in bucket 2")
	}
	checkInvariants(t, p)
}

func TestCoalesceBothSides(t *testing.T) {
	p := newTestPool(t, 8192)
	a := Alloc(p, 32)
	b := Alloc(p, 32)
	c := Alloc(p, 32)
	if a == nil || b == nil || c == nil {
		t.Fatal("expected three successful allocations")
	}
	Free(p, a)
	Free(p, c)
	Free(p, b)

	checkInvariants(t, p)
	hdr := p.Header()
	first := p.ChunkAt(Offset(hdr.ChainFirst))
	if Offset(hdr.ChainLast) != Offset(hdr.ChainFirst) {
		t.Fatalf("expected a single chunk spanning the pool after full coalesce")
	}
	wantSize := hdr.Size - uint64(SizeofPoolHeader)
	if first.Size != wantSize {
		t.Fatalf("coalesced chunk size = %d, want %d", first.Size, wantSize)
	}
	if first.Used != 0 {
		t.Fatal("coalesced chunk should be free")
	}
}

func TestSizeClassRouting(t *testing.T) {
	cases := []struct {
		size   uint64
		bucket int
	}{
		{8, 0},
		{63, 0},
		{64, 1},
		{1023, 1},
		{1024, 2},
		{1 << 20, 2},
	}
	for _, tc := range cases {
		if got := BucketOf(tc.size); got != tc.bucket {
			t.Errorf("BucketOf(%d) = %d, want %d", tc.size, got, tc.bucket)
		}
	}
}

func TestRoundTripIsomorphicToFreshPool(t *testing.T) {
	p := newTestPool(t, 8192)
	freshFree, err := p.VerifyFreelists()
	if err != nil {
		t.Fatal(err)
	}

	ptrs := make([]*ChunkHeader, 0, 8)
	for i := 0; i < 8; i++ {
		c := Alloc(p, uint64(16*(i+1)))
		if c == nil {
			t.Fatalf("Alloc #%d failed", i)
		}
		ptrs = append(ptrs, c)
	}
	for _, c := range ptrs {
		Free(p, c)
	}

	checkInvariants(t, p)
	afterFree, err := p.VerifyFreelists()
	if err != nil {
		t.Fatal(err)
	}
	if afterFree != freshFree {
		t.Fatalf("free bytes after round trip = %d, want %d", afterFree, freshFree)
	}
	hdr := p.Header()
	if hdr.ChainFirst != hdr.ChainLast {
		t.Fatal("expected exactly one chunk spanning the pool after round trip")
	}
}
