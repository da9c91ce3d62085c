package poolfmt

// AddToFreelist threads c onto the head of the free list for its bucket.
// c.Size must already reflect the chunk's final size; callers must clear
// c.Used before calling this.
func AddToFreelist(p *Pool, c *ChunkHeader) {
	hdr := p.Header()
	bucket := BucketOf(c.Size)
	off := p.OffsetOf(c)
	headOff := Offset(hdr.FreelistHeads[bucket])

	entry := p.freeEntry(c)
	entry.Prev = uint32(OffsetNone)
	entry.Next = uint32(headOff)
	if headOff.Valid() {
		headEntry := p.freeEntry(p.ChunkAt(headOff))
		headEntry.Prev = uint32(off)
	}
	hdr.FreelistHeads[bucket] = uint32(off)
}

// RemoveFromFreelist unthreads c from whichever bucket its current size
// puts it in. c must currently be on that list.
func RemoveFromFreelist(p *Pool, c *ChunkHeader) {
	hdr := p.Header()
	bucket := BucketOf(c.Size)
	entry := p.freeEntry(c)

	if Offset(entry.Prev).Valid() {
		p.freeEntry(p.ChunkAt(Offset(entry.Prev))).Next = entry.Next
	} else {
		hdr.FreelistHeads[bucket] = entry.Next
	}
	if Offset(entry.Next).Valid() {
		p.freeEntry(p.ChunkAt(Offset(entry.Next))).Prev = entry.Prev
	}
	entry.Prev = uint32(OffsetNone)
	entry.Next = uint32(OffsetNone)
}

// ReinsertFree removes c from its current bucket (as determined by its
// size before any resize the caller is about to perform) and re-adds it
// once the caller has finished mutating c.Size. Extend's tail-grow path
// routes its bucket transition through this helper, which is the decision
// recorded for the freelist-bucket-on-grow open question: a chunk's bucket
// membership is always recomputed from scratch rather than patched in
// place, even when the bucket happens not to change. Free's coalesce path
// does the same removal and re-insertion with RemoveFromFreelist and
// AddToFreelist directly.
func ReinsertFree(p *Pool, c *ChunkHeader, resize func()) {
	RemoveFromFreelist(p, c)
	resize()
	AddToFreelist(p, c)
}

// FindFree returns the first free chunk able to satisfy need bytes
// (header included), searching its natural bucket first and then each
// larger bucket in turn, matching get_free_chunk_for_size's escalation in
// shared.c. It returns nil if no chunk is large enough.
func FindFree(p *Pool, need uint64) *ChunkHeader {
	hdr := p.Header()
	startBucket := BucketOf(need)
	for bucket := startBucket; bucket < BucketCount; bucket++ {
		off := Offset(hdr.FreelistHeads[bucket])
		for off.Valid() {
			c := p.ChunkAt(off)
			if c.Size >= need {
				return c
			}
			off = Offset(p.freeEntry(c).Next)
		}
	}
	return nil
}
