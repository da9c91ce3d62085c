// Command shmheap-bench drives alloc/free workloads against a named
// shmheap pool, optionally spawning itself as child processes so the
// workload is genuinely cross-process rather than simulated with
// goroutines.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"time"
	"unsafe"

	"golang.org/x/sync/errgroup"

	"github.com/agentshm/shmheap/shmheap"
)

func main() {
	var (
		name      string
		userSize  uint64
		maxSize   uint64
		workers   int
		allocSize uint64
		allocs    int
		children  int
		spawn     bool
		destroy   bool
	)
	flag.StringVar(&name, "name", "shmheap-bench", "pool name")
	flag.Uint64Var(&userSize, "size", 1<<20, "initial requested user size, bytes")
	flag.Uint64Var(&maxSize, "max", 64<<20, "pool max_size, bytes")
	flag.IntVar(&workers, "workers", 4, "goroutine workers sharing one handle")
	flag.Uint64Var(&allocSize, "alloc-size", 128, "bytes requested per allocation")
	flag.IntVar(&allocs, "allocs", 1000, "allocations per worker")
	flag.IntVar(&children, "children", 0, "number of child processes to spawn attached to the same pool")
	flag.BoolVar(&spawn, "spawn", false, "internal: run as a spawned child attaching to an existing pool")
	flag.BoolVar(&destroy, "destroy", true, "destroy the pool when the top-level process finishes")
	flag.Parse()

	log.SetFlags(0)

	if spawn {
		h, err := shmheap.Open(name)
		if err != nil {
			log.Fatalf("shmheap-bench: child: Open: %v", err)
		}
		defer h.Shutdown()
		if err := runWorkers(h, workers, allocSize, allocs); err != nil {
			log.Fatalf("shmheap-bench: child: %v", err)
		}
		return
	}

	h, limited, err := shmheap.Create(name, userSize, shmheap.WithMaxSize(maxSize))
	if err != nil {
		log.Fatalf("shmheap-bench: Create: %v", err)
	}
	if destroy {
		defer h.Destroy()
	} else {
		defer h.Shutdown()
	}
	if limited {
		log.Printf("shmheap-bench: requested size was capped at max_size %d", maxSize)
	}

	var g errgroup.Group
	for i := 0; i < children; i++ {
		i := i
		g.Go(func() error {
			return spawnChild(name, workers, allocSize, allocs, i)
		})
	}

	start := time.Now()
	if err := runWorkers(h, workers, allocSize, allocs); err != nil {
		log.Fatalf("shmheap-bench: local workers: %v", err)
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("shmheap-bench: child process: %v", err)
	}
	elapsed := time.Since(start)

	info, err := h.Info()
	if err != nil {
		log.Fatalf("shmheap-bench: Info: %v", err)
	}
	fmt.Printf("pool=%q size=%d max_size=%d used=%d free=%d elapsed=%s\n",
		name, info.Size, info.MaxSize, info.UsedBytes, info.FreeBytes, elapsed)
}

// runWorkers fans workers goroutines out over h, every one of which calls
// into the same Handle concurrently; Handle's own lock/unlock serializes
// them the same way it would serialize threads within a single real
// process attached to the pool.
func runWorkers(h *shmheap.Handle, workers int, allocSize uint64, allocs int) error {
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			var ptrs []unsafe.Pointer
			for i := 0; i < allocs; i++ {
				ptr, err := h.Alloc(allocSize)
				if err != nil {
					return fmt.Errorf("alloc #%d: %w", i, err)
				}
				ptrs = append(ptrs, ptr)
				if i%4 == 3 && len(ptrs) > 0 {
					if err := h.Free(ptrs[0]); err != nil {
						return fmt.Errorf("free: %w", err)
					}
					ptrs = ptrs[1:]
				}
			}
			for _, ptr := range ptrs {
				if err := h.Free(ptr); err != nil {
					return fmt.Errorf("free: %w", err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// spawnChild re-execs this binary with -spawn so the workload above runs in
// a genuinely separate OS process attached to the same named pool.
func spawnChild(name string, workers int, allocSize uint64, allocs int, index int) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("os.Executable: %w", err)
	}
	cmd := exec.Command(self,
		"-spawn",
		"-name", name,
		"-workers", fmt.Sprint(workers),
		"-alloc-size", fmt.Sprint(allocSize),
		"-allocs", fmt.Sprint(allocs),
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("child %d: %w", index, err)
	}
	return nil
}
