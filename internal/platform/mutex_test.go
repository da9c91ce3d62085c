//go:build linux || darwin

package platform

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func TestMutexLockUnlockRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")
	m, err := OpenOrCreateMutex(path)
	if err != nil {
		t.Fatalf("OpenOrCreateMutex: %v", err)
	}
	defer m.Close()

	if err := m.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := m.Lock(); err != nil {
		t.Fatalf("recursive Lock: %v", err)
	}
	if err := m.Unlock(); err != nil {
		t.Fatalf("Unlock (inner): %v", err)
	}
	if err := m.Unlock(); err != nil {
		t.Fatalf("Unlock (outer): %v", err)
	}
	if err := m.Unlock(); err == nil {
		t.Fatal("Unlock of an already-released mutex should error")
	}
}

// TestMutexRecoversFromDeadOwner writes a PID known to be dead (a spawned
// process that has already exited) into the owner slot and checks that
// Lock takes ownership anyway, exercising the lenient owner-death recovery
// spec.md §7 calls for.
func TestMutexRecoversFromDeadOwner(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")
	m, err := OpenOrCreateMutex(path)
	if err != nil {
		t.Fatalf("OpenOrCreateMutex: %v", err)
	}
	defer m.Close()

	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("could not spawn a short-lived process to obtain a dead pid: %v", err)
	}
	m.setOwnerPID(int32(cmd.Process.Pid))

	if err := m.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer m.Unlock()

	if got, want := m.ownerPID(), int32(os.Getpid()); got != want {
		t.Fatalf("ownerPID = %d, want %d", got, want)
	}
}
