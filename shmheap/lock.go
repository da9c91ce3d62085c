package shmheap

import (
	"errors"
	"time"

	"github.com/agentshm/shmheap/internal/platform"
)

// Lock acquires the cross-process mutex and runs the remap-on-entry
// protocol: if another process has grown the pool since this process's
// last acquisition, this process's view is remapped to the new size
// before Lock returns (spec.md §4.2).
func (h *Handle) Lock() error {
	h.mu.Lock()
	if err := h.mutex.Lock(); err != nil {
		h.mu.Unlock()
		return newError("Lock", EFAULT, err)
	}
	if err := h.remapIfGrown(); err != nil {
		// The caller still owns the lock and must Unlock; spec.md §7:
		// "if remap fails inside lock, the caller still owns the lock".
		return newError("Lock", EFAULT, err)
	}
	return nil
}

// LockTimeout is the timed variant of Lock, returning ETIMEDOUT if the
// deadline passes first.
func (h *Handle) LockTimeout(timeout time.Duration) error {
	h.mu.Lock()
	if err := h.mutex.LockTimeout(timeout); err != nil {
		h.mu.Unlock()
		if errors.Is(err, platform.ErrLockTimeout) {
			return newError("LockTimeout", ETIMEDOUT, err)
		}
		return newError("LockTimeout", EFAULT, err)
	}
	if err := h.remapIfGrown(); err != nil {
		return newError("LockTimeout", EFAULT, err)
	}
	return nil
}

// Unlock releases the cross-process mutex.
func (h *Handle) Unlock() error {
	defer h.mu.Unlock()
	if err := h.mutex.Unlock(); err != nil {
		return newError("Unlock", ERROR, err)
	}
	return nil
}

func (h *Handle) remapIfGrown() error {
	global := h.globalSize.Read()
	if global == h.localSize {
		return nil
	}
	if err := h.region.Remap(global); err != nil {
		return err
	}
	h.pool.Rebind(h.region.Mem)
	h.localSize = global
	return nil
}
