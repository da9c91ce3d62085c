// Package shmheap implements a cross-process shared-memory allocator: a
// dynamic-memory heap carved out of a single memory-mapped region that
// multiple OS processes attach to, offering alloc/free/realloc and a
// GC-callback allocation variant.
//
// The on-pool representation is pointer-free (internal/poolfmt): every
// in-pool reference is a byte offset from the pool base, because the
// region may be mapped at a different virtual address in every attached
// process, and may be remapped to a new address within one process when
// another process grows it. A single cross-process mutex
// (internal/platform) serializes every mutation; acquiring it also runs
// the remap-on-entry protocol that detects and follows such growth.
//
// A *Handle is safe to share across goroutines within one process. Its
// lock is not re-entrant from the same goroutine; AllocWithGC releases the
// lock before invoking its callback, so the callback may call back into the
// same Handle (for example to Free).
package shmheap
