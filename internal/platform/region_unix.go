//go:build linux || darwin

package platform

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// DefaultRuntimeDir returns the directory POSIX shared-memory-backed files
// are created under when no caller override is given: the tmpfs-backed
// /dev/shm on Linux, matching where shm_open places POSIX shared memory
// objects; elsewhere (Darwin has no public shm_open-backed filesystem) the
// OS temp directory, which is the portable fallback shared.c's Windows
// path takes with its real on-disk "<module-dir>/../log/<name>_f" file.
func DefaultRuntimeDir() string {
	if _, err := os.Stat("/dev/shm"); err == nil {
		return "/dev/shm"
	}
	return os.TempDir()
}

// Region is a memory-mapped view of a named, file-backed shared-memory
// object. Two processes holding a Region for the same name observe the
// same bytes, though each process's Mem slice may point at a different
// virtual address.
type Region struct {
	file *os.File
	Mem  []byte
}

// CreateOrOpenRegion implements spec.md §4.1 steps 6-9: race to create the
// backing file with O_CREAT|O_EXCL; the loser falls back to opening the
// file the winner created. The returned bool reports whether this call won
// the creation race. name is unused on POSIX, where the path alone
// identifies the region; it is accepted so callers in the
// platform-independent shmheap package share one call shape with the
// Windows build, which needs a separate mapping-object name.
//
// headerSize is only consulted when attachLiveSize is true and this call
// loses the creation race: it must be small enough that mapping it never
// reads past the real file's end (a page-aligned bound on the pool
// header's size is always safe, since Initialize never writes a pool
// smaller than one header plus one chunk). attachLiveSize gates spec.md
// §4.1 step 8 ("if we opened an existing region, first map just the
// header to read the live size, unmap, then map the full length"): when
// true and this call lost the creation race, size is ignored in favor of
// the size this call discovers by reading the existing pool's own header,
// since another process may have already grown the region past whatever
// size this attacher happened to request. Callers whose region is a
// fixed-width word with no independent "live size" of its own (the
// global-size word, the lock file) must pass false, since those bytes are
// not a pool header and reading them as one would produce garbage.
func CreateOrOpenRegion(path string, name string, size, headerSize uint64, attachLiveSize bool) (region *Region, created bool, err error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err == nil {
		created = true
	} else if os.IsExist(err) {
		f, err = os.OpenFile(path, os.O_RDWR, 0600)
		if err != nil {
			return nil, false, fmt.Errorf("platform: open existing region %q: %w", path, err)
		}
	} else {
		return nil, false, fmt.Errorf("platform: create region %q: %w", path, err)
	}

	// Clear FD_CLOEXEC: a child spawned via exec after attach (e.g.
	// cmd/shmheap-bench -spawn) must inherit this descriptor so it can
	// reattach without re-deriving the path, restoring shared.c's
	// fcntl(fd, F_SETFD, ...) behavior (SPEC_FULL.md §5).
	if _, err := unix.FcntlInt(f.Fd(), unix.F_SETFD, 0); err != nil {
		f.Close()
		return nil, false, fmt.Errorf("platform: clear FD_CLOEXEC on %q: %w", path, err)
	}

	switch {
	case created:
		if err := f.Truncate(int64(size)); err != nil {
			f.Close()
			os.Remove(path)
			return nil, false, fmt.Errorf("platform: truncate region %q to %d: %w", path, size, err)
		}
	case attachLiveSize:
		live, err := readLiveSize(f, headerSize)
		if err != nil {
			f.Close()
			return nil, false, fmt.Errorf("platform: read live size of %q: %w", path, err)
		}
		size = live
	}

	mem, err := mapFile(f, size)
	if err != nil {
		f.Close()
		if created {
			os.Remove(path)
		}
		return nil, false, err
	}
	return &Region{file: f, Mem: mem}, created, nil
}

// readLiveSize implements the attach-time header peek: map just headerSize
// bytes (enough to cover the pool header's leading Size field, at offset 0
// by construction — never the full, possibly-larger-than-real size the
// attacher requested), read it, and unmap before the caller maps the
// region at its real length. This is what makes attaching safe when
// another process has already grown the pool past whatever size this
// process happened to request, and equally safe when it hasn't: mapping
// past the real end of a too-small file is a SIGBUS, so the probe must
// never use anything but a size known to fit within any valid pool.
func readLiveSize(f *os.File, headerSize uint64) (uint64, error) {
	header, err := mapFile(f, headerSize)
	if err != nil {
		return 0, err
	}
	live := loadUint64(header)
	if err := unix.Munmap(header); err != nil {
		return 0, fmt.Errorf("munmap header: %w", err)
	}
	if live < headerSize {
		return 0, fmt.Errorf("region reports live size %d smaller than its own header %d", live, headerSize)
	}
	return live, nil
}

func mapFile(f *os.File, size uint64) ([]byte, error) {
	mem, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("platform: mmap: %w", err)
	}
	return mem, nil
}

// Remap re-maps the region at the given size, used when a
// follower process observes the published global size grew (spec.md §4.2
// step 2) without itself resizing the backing object.
func (r *Region) Remap(size uint64) error {
	if err := unix.Munmap(r.Mem); err != nil {
		return fmt.Errorf("platform: munmap: %w", err)
	}
	mem, err := mapFile(r.file, size)
	if err != nil {
		return err
	}
	r.Mem = mem
	return nil
}

// Resize grows the backing object to newSize and remaps it, implementing
// spec.md §4.6 step 2-3. On Darwin, ftruncate on a shared-memory-backed
// file descriptor is unreliable per spec.md's platform note, so this
// always returns ErrGrowthUnsupported there; growthSupported is set per
// build in region_grow_*.go.
func (r *Region) Resize(newSize uint64) error {
	if !growthSupported {
		return ErrGrowthUnsupported
	}
	if err := r.file.Truncate(int64(newSize)); err != nil {
		return fmt.Errorf("platform: truncate region: %w", err)
	}
	return r.Remap(newSize)
}

// Close unmaps and closes this process's view of the region without
// unlinking the backing name.
func (r *Region) Close() error {
	if err := unix.Munmap(r.Mem); err != nil {
		return fmt.Errorf("platform: munmap: %w", err)
	}
	return r.file.Close()
}

// UnlinkRegion removes the named backing file. Absence is not an error,
// matching delete_by_name's documented semantics (spec.md §4.8).
func UnlinkRegion(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("platform: unlink region %q: %w", path, err)
	}
	return nil
}
