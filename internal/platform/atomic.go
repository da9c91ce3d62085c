package platform

import (
	"sync/atomic"
	"unsafe"
)

// loadUint64/storeUint64 give the global-size word and the mutex control
// word atomic access to their backing bytes without requiring callers to
// reason about unsafe.Pointer arithmetic themselves. mem must be at least
// 8 bytes and 8-byte aligned, which Region guarantees by construction
// (mmap always returns page-aligned memory).
func loadUint64(mem []byte) uint64 {
	p := (*uint64)(unsafe.Pointer(&mem[0]))
	return atomic.LoadUint64(p)
}

func storeUint64(mem []byte, v uint64) {
	p := (*uint64)(unsafe.Pointer(&mem[0]))
	atomic.StoreUint64(p, v)
}

func loadInt32(mem []byte, offset int) int32 {
	p := (*int32)(unsafe.Pointer(&mem[offset]))
	return atomic.LoadInt32(p)
}

func storeInt32(mem []byte, offset int, v int32) {
	p := (*int32)(unsafe.Pointer(&mem[offset]))
	atomic.StoreInt32(p, v)
}

func compareAndSwapInt32(mem []byte, offset int, old, new int32) bool {
	p := (*int32)(unsafe.Pointer(&mem[offset]))
	return atomic.CompareAndSwapInt32(p, old, new)
}
