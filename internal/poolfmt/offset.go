// Package poolfmt implements the on-pool byte layout shared by every
// process attached to a shmheap region: the pool header, the chunk header,
// the freelist entries, and the address-ordered spatial chain that links
// them together. Every reference between structures here is a byte offset
// from the start of the mapped region rather than a pointer, because the
// region is mapped at an independent virtual address in every attached
// process and may be remapped to a new address within a single process on
// growth. Callers must only dereference offsets while holding the handle's
// cross-process lock.
package poolfmt

// Offset is a byte index into the pool, relative to the pool's base
// address. OffsetNone (zero) marks the end of a list; it can never be a
// valid chunk offset because offset zero is occupied by the pool header.
type Offset uint32

// OffsetNone is the sentinel value used for absent list links.
const OffsetNone Offset = 0

// Valid reports whether the offset addresses an actual chunk.
func (o Offset) Valid() bool {
	return o != OffsetNone
}
