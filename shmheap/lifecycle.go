package shmheap

import "github.com/agentshm/shmheap/internal/platform"

// Shutdown decrements the attached-process reference count, unmaps this
// process's view, and unlinks the backing objects once the count reaches
// zero (spec.md §4.8).
func (h *Handle) Shutdown() error {
	if err := h.Lock(); err != nil {
		return err
	}
	hdr := h.pool.Header()
	hdr.Open--
	unlink := hdr.Open <= 0
	h.Unlock()

	if err := h.region.Close(); err != nil {
		return newError("Shutdown", EFAULT, err)
	}
	if err := h.globalSize.Close(); err != nil {
		return newError("Shutdown", EFAULT, err)
	}
	if err := h.mutex.Close(); err != nil {
		return newError("Shutdown", EFAULT, err)
	}
	if unlink {
		unlinkAll(h.names)
	}
	return nil
}

// Destroy forces open = 1 before calling Shutdown so the region is always
// unlinked regardless of how many other handles exist. This is the
// test-only force-unlink path restored from shared.c's am_shm_destroy
// (SPEC_FULL.md §5); it is dangerous to call while other processes are
// still attached.
func (h *Handle) Destroy() error {
	if err := h.Lock(); err != nil {
		return err
	}
	h.pool.Header().Open = 1
	h.Unlock()
	return h.Shutdown()
}

// DeleteByName composes the platform names for name and unlinks every
// backing object. Absence of any of them is not an error (spec.md §4.8).
func DeleteByName(name string) error {
	if name == "" {
		return newError("DeleteByName", EINVAL, nil)
	}
	names := platform.DeriveNames(name, platform.DefaultRuntimeDir())
	unlinkAll(names)
	return nil
}
