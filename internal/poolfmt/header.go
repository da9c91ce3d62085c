package poolfmt

import "unsafe"

// Alignment is the byte alignment every chunk size and offset in the pool
// is rounded up to, matching AM_ALIGNMENT in the original C allocator.
const Alignment = 8

// AlignUp rounds n up to the next multiple of Alignment.
func AlignUp(n uint64) uint64 {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// FormatVersionSize is the fixed width of the zero-padded semver string
// recorded in PoolHeader.FormatVersion at Create time.
const FormatVersionSize = 16

// PoolHeader sits at offset 0 of every pool and is the only structure every
// attached process locates without first resolving an offset. Field order
// matches spec.md §3 ("Pool header") up through ChainLast; FormatVersion is
// the SPEC_FULL.md §6 addition appended at the end so the original offset
// arithmetic is unaffected.
type PoolHeader struct {
	// Size is the current usable size of the pool, in bytes, including
	// this header. Updated by Extend under the cross-process lock.
	Size uint64

	// MaxSize is the ceiling Extend will never grow Size past.
	MaxSize uint64

	// UserOffset is the offset of the single user-designated root object,
	// or OffsetNone if SetUserOffset has never been called.
	UserOffset uint32

	// Open is the number of live Handles attached to this pool, used by
	// Shutdown/Destroy to decide whether to unlink the backing object.
	Open int32

	// FreelistHeads holds the head offset of each of the three segregated
	// free lists, bucketed by BucketOf.
	FreelistHeads [3]uint32

	// ChainFirst/ChainLast are the offsets of the spatially first and last
	// chunks in the pool, forming the doubly linked address-ordered chain.
	ChainFirst uint32
	ChainLast  uint32

	// FormatVersion is a zero-padded semver string written once at Create
	// time, e.g. "1.0.0\x00\x00...". Open never rewrites it.
	FormatVersion [FormatVersionSize]byte
}

// SizeofPoolHeader is the 8-byte-aligned size of PoolHeader; chunk storage
// begins at exactly this offset.
var SizeofPoolHeader = Offset(AlignUp(uint64(unsafe.Sizeof(PoolHeader{}))))

// ChunkHeader precedes every chunk's payload, whether the chunk is in use
// or free. When a chunk is free, its payload's first bytes are overlaid by
// a FreelistEntry; ChunkHeader itself never changes shape between the two
// states, mirroring am_chunk_t in shared.c.
type ChunkHeader struct {
	// Size is the total size of this chunk including SizeofChunkHeader,
	// always a multiple of Alignment.
	Size uint64

	// UserSize is the size the caller asked for; only meaningful while
	// Used is set, retained so Realloc can detect a no-op shrink/grow.
	UserSize uint64

	// Used is nonzero while the chunk is allocated to a caller.
	Used uint32

	// ChainPrev/ChainNext are the offsets of the spatially adjacent
	// chunks (not the free-list neighbors), used for coalescing and for
	// walking the whole pool in poolfmt.Pool.Validate.
	ChainPrev uint32
	ChainNext uint32

	_ uint32 // pad to keep SizeofChunkHeader a clean multiple of Alignment
}

// SizeofChunkHeader is the 8-byte-aligned size of ChunkHeader.
var SizeofChunkHeader = Offset(AlignUp(uint64(unsafe.Sizeof(ChunkHeader{}))))

// FreelistEntry is overlaid on the first bytes of a free chunk's payload.
// It is never written to a chunk that is Used.
type FreelistEntry struct {
	Prev uint32
	Next uint32
}

// SizeofFreelistEntry is the byte width a chunk's payload must have before
// it can be threaded onto a free list.
var SizeofFreelistEntry = uint64(unsafe.Sizeof(FreelistEntry{}))

// BucketCount is the number of segregated free lists (spec.md §3: small,
// medium, large).
const BucketCount = 3

// Bucket size-class boundaries, exclusive upper bound; the last bucket has
// no upper bound. Matches get_freelist_hdr_for in shared.c.
const (
	bucketSmallMax  = 64
	bucketMediumMax = 1024
)

// BucketOf returns the free-list index a chunk of the given total size
// belongs in.
func BucketOf(size uint64) int {
	switch {
	case size < bucketSmallMax:
		return 0
	case size < bucketMediumMax:
		return 1
	default:
		return 2
	}
}

// IsBlockfileName reports whether name uses the "BLOCKFILE" sizing
// convention described in SPEC_FULL.md §5.
func IsBlockfileName(name string) bool {
	const prefix = "BLOCKFILE"
	if len(name) < len(prefix) {
		return false
	}
	return name[:len(prefix)] == prefix
}
