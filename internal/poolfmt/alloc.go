package poolfmt

// Alloc finds, splits if worthwhile, and marks used a chunk able to hold
// userSize bytes, returning it. It returns nil if no free chunk is large
// enough; the caller (shmheap.Handle) decides whether to run a GC callback
// or Extend and retry. This is the core of am_shm_alloc_with_gc in
// shared.c with the GC/extend escalation stripped out, since that belongs
// to the handle layer which owns locking and growth.
func Alloc(p *Pool, userSize uint64) *ChunkHeader {
	need := AlignUp(userSize) + uint64(SizeofChunkHeader)
	c := FindFree(p, need)
	if c == nil {
		return nil
	}
	RemoveFromFreelist(p, c)
	splitIfWorthwhile(p, c, need)
	c.Used = 1
	c.UserSize = userSize
	return c
}

// splitIfWorthwhile carves a free remainder chunk off the tail of c when
// the leftover is large enough to be useful on its own, matching
// shared.c's split threshold: only split if the remainder strictly
// exceeds the smaller of 2*need and one chunk header. A remainder at or
// below that threshold is not worth the bookkeeping of a second chunk and
// is left attached to c as internal fragmentation.
func splitIfWorthwhile(p *Pool, c *ChunkHeader, need uint64) {
	remaining := c.Size - need
	threshold := 2 * need
	if uint64(SizeofChunkHeader) < threshold {
		threshold = uint64(SizeofChunkHeader)
	}
	if remaining <= threshold {
		return
	}

	tailOff := p.OffsetOf(c) + Offset(need)
	tail := p.ChunkAt(tailOff)
	*tail = ChunkHeader{}
	tail.Size = remaining
	tail.Used = 0

	c.Size = need
	InsertChunkAfter(p, c, tail)
	AddToFreelist(p, tail)
}

// Free marks c unused and coalesces it with its spatially adjacent
// neighbors if they are also free, in the order shared.c's am_shm_free
// uses: next neighbor first, then previous. The (possibly merged) chunk
// is left threaded onto the appropriate free list.
func Free(p *Pool, c *ChunkHeader) {
	c.Used = 0
	c.UserSize = 0

	if next := p.NextChunk(c); next != nil && next.Used == 0 {
		RemoveFromFreelist(p, next)
		RemoveChunkFromChain(p, next)
		c.Size += next.Size
	}
	if prev := p.PrevChunk(c); prev != nil && prev.Used == 0 {
		RemoveFromFreelist(p, prev)
		RemoveChunkFromChain(p, c)
		prev.Size += c.Size
		c = prev
	}
	AddToFreelist(p, c)
}
