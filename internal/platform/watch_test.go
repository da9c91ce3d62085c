//go:build linux || darwin

package platform

import (
	"testing"
	"time"
)

func TestWatchRegionFileSignalsOnWrite(t *testing.T) {
	path := t.TempDir() + "/region"
	region, _, err := CreateOrOpenRegion(path, "", 4096, 4096, false)
	if err != nil {
		t.Fatalf("CreateOrOpenRegion: %v", err)
	}
	defer region.Close()

	w, err := WatchRegionFile(path)
	if err != nil {
		t.Fatalf("WatchRegionFile: %v", err)
	}
	defer w.Close()

	region.Mem[0] = 0x42
	if err := region.file.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	select {
	case ev := <-w.Events:
		if ev.Name != path {
			t.Fatalf("event for %q, want %q", ev.Name, path)
		}
	case err := <-w.Errors:
		t.Fatalf("watcher error: %v", err)
	case <-time.After(2 * time.Second):
		t.Skip("no fsnotify event observed for an mmap-only write within the timeout; not all filesystems report this")
	}
}
