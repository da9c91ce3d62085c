package platform

import "github.com/fsnotify/fsnotify"

// WatchRegionFile watches path for writes, giving callers (the platform
// tests) a deterministic signal that a region's backing file changed
// instead of polling. cmd/shmheap-watch does not use it; it watches the
// whole runtime directory with its own watcher. The returned watcher must
// be closed by the caller.
func WatchRegionFile(path string) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}
