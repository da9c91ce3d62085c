// Command shmheap-watch attaches to a named pool as one more attached
// handle and logs its size/usage whenever a file in the runtime directory
// is written or created, and again at every poll interval, letting an
// operator observe growth and freelist pressure from outside the other
// attached processes.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/agentshm/shmheap/internal/platform"
	"github.com/agentshm/shmheap/shmheap"
)

func main() {
	var (
		name string
		poll time.Duration
	)
	flag.StringVar(&name, "name", "", "pool name to watch (required)")
	flag.DurationVar(&poll, "poll", 2*time.Second, "interval between periodic reports, made in addition to fsnotify-triggered ones")
	flag.Parse()

	log.SetFlags(0)
	if name == "" {
		log.Fatal("shmheap-watch: -name is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h, err := shmheap.Open(name)
	if err != nil {
		log.Fatalf("shmheap-watch: Open: %v", err)
	}
	defer h.Shutdown()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Fatalf("shmheap-watch: fsnotify.NewWatcher: %v", err)
	}
	defer watcher.Close()

	runtimeDir := platform.DefaultRuntimeDir()
	if err := watcher.Add(runtimeDir); err != nil {
		log.Fatalf("shmheap-watch: watch %q: %v", runtimeDir, err)
	}

	report(h, name)
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			report(h, name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("shmheap-watch: watcher error: %v", err)
		case <-ticker.C:
			report(h, name)
		}
	}
}

func report(h *shmheap.Handle, name string) {
	info, err := h.Info()
	if err != nil {
		log.Printf("shmheap-watch: Info: %v", err)
		return
	}
	log.Printf("pool=%q size=%d max_size=%d used=%d free=%d open=%d",
		name, info.Size, info.MaxSize, info.UsedBytes, info.FreeBytes, info.Open)
}
