package poolfmt

import (
	"fmt"
	"unsafe"
)

// Pool is a typed view over a mapped region's bytes. It never owns the
// backing memory; Rebind is called after every remap so a Pool always
// reads and writes through the current virtual address, the way every
// on-pool structure in this package must.
type Pool struct {
	mem []byte
}

// NewPool wraps mem, which must be at least SizeofPoolHeader bytes long.
func NewPool(mem []byte) *Pool {
	return &Pool{mem: mem}
}

// Rebind points the Pool at a new backing slice after a remap. The pool
// content itself is unchanged; only the process's view of it moved.
func (p *Pool) Rebind(mem []byte) {
	p.mem = mem
}

// Bytes returns the full backing slice.
func (p *Pool) Bytes() []byte {
	return p.mem
}

// Len is the current length of the backing slice, i.e. the mapped size.
func (p *Pool) Len() uint64 {
	return uint64(len(p.mem))
}

func (p *Pool) base() unsafe.Pointer {
	return unsafe.Pointer(&p.mem[0])
}

// Header returns the pool header at offset 0.
func (p *Pool) Header() *PoolHeader {
	return (*PoolHeader)(p.base())
}

// ChunkAt returns the chunk header located at off.
func (p *Pool) ChunkAt(off Offset) *ChunkHeader {
	return (*ChunkHeader)(unsafe.Add(p.base(), int(off)))
}

// OffsetOf returns c's offset from the pool base.
func (p *Pool) OffsetOf(c *ChunkHeader) Offset {
	return Offset(uintptr(unsafe.Pointer(c)) - uintptr(p.base()))
}

// Payload returns a pointer to c's payload bytes, immediately following its
// header.
func (p *Pool) Payload(c *ChunkHeader) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(c), int(SizeofChunkHeader))
}

// PayloadOffset returns the offset of the payload belonging to the chunk at
// off.
func (p *Pool) PayloadOffset(off Offset) Offset {
	return off + SizeofChunkHeader
}

// ChunkFromPayload recovers the chunk header owning a payload pointer
// previously handed to a caller by Alloc/AllocWithGC/Realloc.
func (p *Pool) ChunkFromPayload(ptr unsafe.Pointer) *ChunkHeader {
	return (*ChunkHeader)(unsafe.Add(ptr, -int(SizeofChunkHeader)))
}

// freeEntry returns the FreelistEntry overlaid on c's payload. Callers must
// only call this on chunks that are not Used.
func (p *Pool) freeEntry(c *ChunkHeader) *FreelistEntry {
	return (*FreelistEntry)(p.Payload(c))
}

// Initialize lays out a fresh pool across mem: a zeroed PoolHeader followed
// by one free chunk spanning the remainder of the region, threaded onto the
// appropriate free list and chain. mem's length becomes the pool's initial
// Size.
func Initialize(mem []byte, maxSize uint64, formatVersion string) (*Pool, error) {
	if uint64(len(mem)) < uint64(SizeofPoolHeader)+uint64(SizeofChunkHeader) {
		return nil, fmt.Errorf("poolfmt: region too small to hold a pool header and one chunk")
	}
	p := NewPool(mem)
	hdr := p.Header()
	*hdr = PoolHeader{}
	hdr.Size = uint64(len(mem))
	hdr.MaxSize = maxSize
	hdr.UserOffset = uint32(OffsetNone)
	hdr.Open = 0
	copy(hdr.FormatVersion[:], formatVersion)

	first := p.ChunkAt(SizeofPoolHeader)
	*first = ChunkHeader{}
	first.Size = uint64(len(mem)) - uint64(SizeofPoolHeader)
	first.Used = 0
	first.ChainPrev = uint32(OffsetNone)
	first.ChainNext = uint32(OffsetNone)

	hdr.ChainFirst = uint32(SizeofPoolHeader)
	hdr.ChainLast = uint32(SizeofPoolHeader)
	for i := range hdr.FreelistHeads {
		hdr.FreelistHeads[i] = uint32(OffsetNone)
	}
	AddToFreelist(p, first)
	return p, nil
}

// Validate walks the spatial chain checking the structural invariants from
// spec.md §8 (Testable Properties 1 and 2): chain links are consistent,
// chunk sizes sum to the pool size, and no two adjacent chunks are both
// free (which would indicate a missed coalesce).
func (p *Pool) Validate() error {
	hdr := p.Header()
	var total uint64
	var prevOff Offset
	var prevFree bool
	off := Offset(hdr.ChainFirst)
	seen := 0
	maxChunks := int(hdr.Size/uint64(SizeofChunkHeader)) + 1
	for off.Valid() {
		seen++
		if seen > maxChunks {
			return fmt.Errorf("poolfmt: chain longer than pool could hold, likely a cycle")
		}
		c := p.ChunkAt(off)
		if c.ChainPrev != uint32(prevOff) {
			return fmt.Errorf("poolfmt: chunk at %d has ChainPrev %d, want %d", off, c.ChainPrev, prevOff)
		}
		free := c.Used == 0
		if free && prevFree {
			return fmt.Errorf("poolfmt: adjacent free chunks at and before offset %d were not coalesced", off)
		}
		total += c.Size
		prevOff = off
		prevFree = free
		off = Offset(c.ChainNext)
	}
	if Offset(hdr.ChainLast) != prevOff {
		return fmt.Errorf("poolfmt: header ChainLast %d does not match walked last chunk %d", hdr.ChainLast, prevOff)
	}
	want := hdr.Size - uint64(SizeofPoolHeader)
	if total != want {
		return fmt.Errorf("poolfmt: chunk sizes sum to %d, want %d", total, want)
	}
	return nil
}

// VerifyFreelists walks all three free lists and returns the total free
// bytes they account for (chunk sizes, including headers), or an error if
// a listed chunk is not actually free or a list is cyclic. This is the
// SPEC_FULL.md §5 restoration of shared.c's verify_freelists /
// am_shm_freelist_info, and is the load-bearing implementation of
// Testable Property 3 (free bytes reported by Info match the sum of free
// chunks).
func (p *Pool) VerifyFreelists() (uint64, error) {
	hdr := p.Header()
	var total uint64
	for bucket := 0; bucket < BucketCount; bucket++ {
		off := Offset(hdr.FreelistHeads[bucket])
		var prevOff Offset
		seen := 0
		maxChunks := int(hdr.Size/uint64(SizeofChunkHeader)) + 1
		for off.Valid() {
			seen++
			if seen > maxChunks {
				return 0, fmt.Errorf("poolfmt: freelist bucket %d is cyclic", bucket)
			}
			c := p.ChunkAt(off)
			if c.Used != 0 {
				return 0, fmt.Errorf("poolfmt: chunk at %d is on freelist bucket %d but marked used", off, bucket)
			}
			if gotBucket := BucketOf(c.Size); gotBucket != bucket {
				return 0, fmt.Errorf("poolfmt: chunk at %d has size %d belonging in bucket %d, found in bucket %d", off, c.Size, gotBucket, bucket)
			}
			entry := p.freeEntry(c)
			if Offset(entry.Prev) != prevOff {
				return 0, fmt.Errorf("poolfmt: freelist bucket %d: chunk at %d has Prev %d, want %d", bucket, off, entry.Prev, prevOff)
			}
			total += c.Size
			prevOff = off
			off = Offset(entry.Next)
		}
	}
	return total, nil
}
