package poolfmt

// InsertChunkAfter splices node into the spatial chain immediately after
// prev (or at the head, if prev is nil). It does not touch any free list;
// callers that want node on a free list call AddToFreelist separately.
func InsertChunkAfter(p *Pool, prev *ChunkHeader, node *ChunkHeader) {
	hdr := p.Header()
	nodeOff := p.OffsetOf(node)

	if prev == nil {
		node.ChainPrev = uint32(OffsetNone)
		node.ChainNext = hdr.ChainFirst
		if Offset(hdr.ChainFirst).Valid() {
			p.ChunkAt(Offset(hdr.ChainFirst)).ChainPrev = uint32(nodeOff)
		}
		hdr.ChainFirst = uint32(nodeOff)
		if !Offset(hdr.ChainLast).Valid() {
			hdr.ChainLast = uint32(nodeOff)
		}
		return
	}

	prevOff := p.OffsetOf(prev)
	nextOff := Offset(prev.ChainNext)
	node.ChainPrev = uint32(prevOff)
	node.ChainNext = uint32(nextOff)
	prev.ChainNext = uint32(nodeOff)
	if nextOff.Valid() {
		p.ChunkAt(nextOff).ChainPrev = uint32(nodeOff)
	} else {
		hdr.ChainLast = uint32(nodeOff)
	}
}

// RemoveChunkFromChain splices c out of the spatial chain. It does not
// touch any free list.
func RemoveChunkFromChain(p *Pool, c *ChunkHeader) {
	hdr := p.Header()
	off := p.OffsetOf(c)
	prevOff := Offset(c.ChainPrev)
	nextOff := Offset(c.ChainNext)

	if prevOff.Valid() {
		p.ChunkAt(prevOff).ChainNext = uint32(nextOff)
	} else {
		hdr.ChainFirst = uint32(nextOff)
	}
	if nextOff.Valid() {
		p.ChunkAt(nextOff).ChainPrev = uint32(prevOff)
	} else {
		hdr.ChainLast = uint32(prevOff)
	}
	_ = off
}

// NextChunk returns the spatially next chunk after c, or nil at the end of
// the chain.
func (p *Pool) NextChunk(c *ChunkHeader) *ChunkHeader {
	if !Offset(c.ChainNext).Valid() {
		return nil
	}
	return p.ChunkAt(Offset(c.ChainNext))
}

// PrevChunk returns the spatially previous chunk before c, or nil at the
// start of the chain.
func (p *Pool) PrevChunk(c *ChunkHeader) *ChunkHeader {
	if !Offset(c.ChainPrev).Valid() {
		return nil
	}
	return p.ChunkAt(Offset(c.ChainPrev))
}
