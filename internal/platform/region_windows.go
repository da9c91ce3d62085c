//go:build windows

package platform

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// growthSupported is true on Windows: CreateFileMapping is recreated with
// a new size by Region.Resize, the way shared.c closes and reopens the
// mapping on growth (spec.md §4.6 step 2).
const growthSupported = true

// DefaultRuntimeDir returns the directory the region's backing file is
// created under: a "shmheap-<executable name>" directory inside the OS
// temp directory, or the temp directory itself when the executable's path
// cannot be determined.
func DefaultRuntimeDir() string {
	exe, err := os.Executable()
	if err != nil {
		return os.TempDir()
	}
	return os.TempDir() + string(os.PathSeparator) + "shmheap-" + filepathBase(exe)
}

func filepathBase(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '\\' || p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}

// Region is a memory-mapped view of a named file-backed mapping object.
type Region struct {
	file    *os.File
	mapping windows.Handle
	name    string
	addr    uintptr
	Mem     []byte
}

func utf16(s string) *uint16 {
	p, _ := syscall.UTF16PtrFromString(s)
	return p
}

func (r *Region) backingHandle() windows.Handle {
	if r.file == nil {
		return windows.InvalidHandle
	}
	return windows.Handle(r.file.Fd())
}

func (r *Region) mapView(size uint64) error {
	// As with CreateMutex/CreateSemaphore, CreateFileMapping returns a
	// valid handle alongside err == ERROR_ALREADY_EXISTS on attach.
	mapping, err := windows.CreateFileMapping(r.backingHandle(), nil, windows.PAGE_READWRITE, uint32(size>>32), uint32(size), utf16(r.name))
	if err != nil && err != windows.ERROR_ALREADY_EXISTS {
		return fmt.Errorf("platform: CreateFileMapping %q: %w", r.name, err)
	}
	addr, err := windows.MapViewOfFile(mapping, windows.FILE_MAP_READ|windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(mapping)
		return fmt.Errorf("platform: MapViewOfFile %q: %w", r.name, err)
	}
	r.mapping = mapping
	r.addr = addr
	r.Mem = unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))
	return nil
}

func (r *Region) unmapView() {
	if r.addr != 0 {
		windows.UnmapViewOfFile(r.addr)
		r.addr = 0
	}
	if r.mapping != 0 {
		windows.CloseHandle(r.mapping)
		r.mapping = 0
	}
}

// CreateOrOpenRegion creates or attaches to the named file-backed mapping,
// implementing the Windows side of spec.md §4.1 steps 7-9. When path is
// empty the mapping is backed directly by the system paging file instead
// of a real disk file, which is how shared.c's small "_sz" global-size
// word is implemented on Windows (only the main pool region gets a real
// on-disk "_f" file).
//
// attachLiveSize gates spec.md §4.1 step 8: when true and this call is
// attaching to an existing on-disk-backed region, the mapping is sized to
// the file's actual current length rather than whatever size this
// attacher happened to request, since another process may have already
// grown it. Unlike the POSIX build this needs no separate header-mapping
// step: Resize/Extend always keeps the backing file's length equal to the
// pool's published Size, so a plain stat already gives the live size.
// Callers whose region is a fixed-width word (the pagefile-backed
// global-size word, which has no path and is never grown) must pass
// false. headerSize is unused on Windows; it exists only so this function
// keeps the same signature as the POSIX build, which needs it to bound the
// header-only probe mapping.
func CreateOrOpenRegion(path string, mappingName string, size, headerSize uint64, attachLiveSize bool) (region *Region, created bool, err error) {
	var f *os.File
	if path != "" {
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
		if err != nil {
			return nil, false, fmt.Errorf("platform: open backing file %q: %w", path, err)
		}
		st, serr := f.Stat()
		if serr != nil {
			f.Close()
			return nil, false, fmt.Errorf("platform: stat backing file %q: %w", path, serr)
		}
		if st.Size() == 0 {
			created = true
			if terr := f.Truncate(int64(size)); terr != nil {
				f.Close()
				return nil, false, fmt.Errorf("platform: truncate backing file %q: %w", path, terr)
			}
		} else if attachLiveSize {
			size = uint64(st.Size())
		}
	} else {
		created = true // pagefile-backed mappings are always freshly sized by the creator
	}

	r := &Region{file: f, name: mappingName}
	if err := r.mapView(size); err != nil {
		if f != nil {
			f.Close()
		}
		return nil, false, err
	}
	return r, created, nil
}

// Remap re-maps the region at the given size after observing the global
// size word changed.
func (r *Region) Remap(size uint64) error {
	r.unmapView()
	return r.mapView(size)
}

// Resize grows the backing file and recreates the mapping at the new size
// (spec.md §4.6 step 2: "Windows: close the mapping, resize the file,
// recreate").
func (r *Region) Resize(newSize uint64) error {
	r.unmapView()
	if r.file != nil {
		if err := r.file.Truncate(int64(newSize)); err != nil {
			return fmt.Errorf("platform: truncate backing file: %w", err)
		}
	}
	return r.mapView(newSize)
}

// Close unmaps and closes this process's view of the region.
func (r *Region) Close() error {
	r.unmapView()
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// UnlinkRegion removes the named backing file. Absence is not an error.
func UnlinkRegion(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("platform: unlink region %q: %w", path, err)
	}
	return nil
}
