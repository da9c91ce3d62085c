package shmheap

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/Masterminds/semver/v3"

	"github.com/agentshm/shmheap/internal/platform"
	"github.com/agentshm/shmheap/internal/poolfmt"
)

// HardMaxSize is the compile-time ceiling no pool's max_size may exceed,
// matching AM_SHARED_MAX_SIZE in shared.c.
const HardMaxSize = 4 << 30 // 4 GiB

// MaxSizeEnvVar is the environment variable honored for the default
// max_size when the caller does not supply WithMaxSize (spec.md §6,
// AM_SHARED_MAX_SIZE_VAR). It is only honored when strictly positive and
// strictly less than HardMaxSize.
const MaxSizeEnvVar = "AM_SHARED_MAX_SIZE_VAR"

// lowMemoryWarningThreshold is the total-system-memory floor below which
// Create logs a diagnostic warning before proceeding, restoring shared.c's
// AM_LOG_WARNING low-memory diagnostic (SPEC_FULL.md §5).
const lowMemoryWarningThreshold = 16 << 20 // 16 MiB

// Handle is a process's attachment to a named shared-memory pool. Every
// operation that touches pool state acquires the mutex via lock/unlock
// (lock.go), which also runs the remap-on-entry protocol.
type Handle struct {
	mu sync.Mutex // serializes this process's own concurrent callers before they contend for the cross-process lock

	name       string
	names      platform.Names
	region     *platform.Region
	globalSize *platform.GlobalSize
	mutex      *platform.Mutex
	pool       *poolfmt.Pool
	localSize  uint64
	limit      uint64
}

// Create attaches to the pool named name, creating it if it does not
// already exist, implementing spec.md §4.1.
func Create(name string, requestedUserSize uint64, opts ...Option) (h *Handle, limited bool, err error) {
	if name == "" {
		return nil, false, newError("Create", EINVAL, nil)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	runtimeDir := platform.DefaultRuntimeDir()
	names := platform.DeriveNames(name, runtimeDir)

	size := platform.PageAlign(requestedUserSize + uint64(poolfmt.SizeofPoolHeader))
	maxSize, err := resolveMaxSize(name, cfg)
	if err != nil {
		return nil, false, newError("Create", ERROR, err)
	}
	if size > maxSize {
		size = maxSize
		limited = true
	}

	if mem, err := platform.TotalSystemMemory(); err == nil && mem > 0 && mem < lowMemoryWarningThreshold {
		log.Printf("shmheap: host has only %d bytes of RAM, pool %q may fail to grow", mem, name)
	}

	if free, err := platform.FreeDiskSpace(runtimeDir); err == nil && free < size {
		return nil, false, newError("Create", ENOSPC, fmt.Errorf("%d bytes free, need %d", free, size))
	}

	if err := platform.RaceFirstAttacher(names); err != nil {
		return nil, false, newError("Create", ERROR, err)
	}

	mtx, err := openMutex(names)
	if err != nil {
		return nil, false, newError("Create", EFAULT, err)
	}

	region, created, err := openRegion(names, size)
	if err != nil {
		mtx.Close()
		return nil, false, newError("Create", EFAULT, err)
	}

	gs, err := openGlobalSize(names, size)
	if err != nil {
		region.Close()
		mtx.Close()
		return nil, false, newError("Create", EFAULT, err)
	}

	h = &Handle{
		name:       name,
		names:      names,
		region:     region,
		globalSize: gs,
		mutex:      mtx,
		pool:       poolfmt.NewPool(region.Mem),
		// region.Mem may already be larger than the requested size if this
		// call attached to a pool another process had grown (openRegion
		// maps attaches at the pool's real on-disk size, not the request);
		// localSize must track what is actually mapped so the first
		// remapIfGrown comparison in Lock doesn't see a false mismatch.
		localSize: uint64(len(region.Mem)),
		limit:     maxSize,
	}

	if err := mtx.Lock(); err != nil {
		return nil, false, newError("Create", EFAULT, err)
	}
	defer mtx.Unlock()

	if created {
		if cfg.UseNewInitializer {
			hdr := h.pool.Header()
			*hdr = poolfmt.PoolHeader{}
			hdr.Size = size
			hdr.MaxSize = maxSize
			copy(hdr.FormatVersion[:], cfg.FormatVersion)
		} else {
			if _, err := poolfmt.Initialize(region.Mem, maxSize, cfg.FormatVersion); err != nil {
				return nil, false, newError("Create", ENOMEM, err)
			}
		}
		h.pool.Header().Open = 1
		gs.Write(size)
	} else {
		hdr := h.pool.Header()
		if err := checkFormatVersion(hdr, cfg.FormatConstraint); err != nil {
			return nil, false, newError("Create", ERROR, err)
		}
		hdr.Open++
	}

	return h, limited, nil
}

// Open attaches to an existing pool named name. It is the same entry
// point as Create, differentiated only by whether the backing objects
// already exist (spec.md §6).
func Open(name string) (*Handle, error) {
	h, _, err := Create(name, 0, WithNewInitializer(false))
	return h, err
}

func resolveMaxSize(name string, cfg *Config) (uint64, error) {
	if cfg.MaxSize > 0 {
		return min64(cfg.MaxSize, HardMaxSize), nil
	}
	if poolfmt.IsBlockfileName(name) && cfg.UseNewInitializer {
		mem, err := platform.TotalSystemMemory()
		if err == nil && mem > 0 {
			quarter := mem / 4
			if envSize, ok := envMaxSize(); ok {
				return min64(envSize, HardMaxSize), nil
			}
			return min64(platform.PageAlign(quarter), HardMaxSize), nil
		}
	}
	if envSize, ok := envMaxSize(); ok {
		return min64(platform.PageAlign(envSize), HardMaxSize), nil
	}
	return HardMaxSize, nil
}

func envMaxSize() (uint64, bool) {
	raw := os.Getenv(MaxSizeEnvVar)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(raw, 0, 64)
	if err != nil || v == 0 || v >= HardMaxSize {
		return 0, false
	}
	return v, true
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func checkFormatVersion(hdr *poolfmt.PoolHeader, constraint string) error {
	raw := trimNulls(hdr.FormatVersion[:])
	if raw == "" {
		return nil // pools created before this field existed
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("shmheap: pool format version %q is not a valid semver: %w", raw, err)
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("shmheap: format constraint %q is invalid: %w", constraint, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: pool version %s, constraint %s", ErrIncompatibleFormat, raw, constraint)
	}
	return nil
}

func trimNulls(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
