package shmheap

import (
	"fmt"
	"os"
	"sync/atomic"
	"testing"
)

var testPoolCounter int64

// uniqueName returns a pool name that will not collide with another test
// or a previous run, since the backing objects are unlinked at cleanup but
// a prior crashed run could have left them behind.
func uniqueName(t *testing.T) string {
	t.Helper()
	n := atomic.AddInt64(&testPoolCounter, 1)
	return fmt.Sprintf("shmheap-test-%d-%d", os.Getpid(), n)
}

func newTestHandle(t *testing.T, size uint64, opts ...Option) *Handle {
	t.Helper()
	name := uniqueName(t)
	h, _, err := Create(name, size, opts...)
	if err != nil {
		t.Fatalf("Create(%q): %v", name, err)
	}
	t.Cleanup(func() {
		if err := h.Destroy(); err != nil {
			t.Errorf("Destroy: %v", err)
		}
	})
	return h
}

func TestCreateThenOpenAttachesSamePool(t *testing.T) {
	name := uniqueName(t)
	h1, limited, err := Create(name, 4096)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if limited {
		t.Fatal("small request should not be limited")
	}
	defer h1.Destroy()

	h2, err := Open(name)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h2.Shutdown()

	info1, err := h1.Info()
	if err != nil {
		t.Fatalf("Info (h1): %v", err)
	}
	info2, err := h2.Info()
	if err != nil {
		t.Fatalf("Info (h2): %v", err)
	}
	if info1.Size != info2.Size {
		t.Fatalf("size mismatch across attachments: %d vs %d", info1.Size, info2.Size)
	}
	if info2.Open != 2 {
		t.Fatalf("Open refcount = %d, want 2", info2.Open)
	}
}

func TestCreateRejectsEmptyName(t *testing.T) {
	if _, _, err := Create("", 1024); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestCreateLimitsOversizedRequest(t *testing.T) {
	name := uniqueName(t)
	_, limited, err := Create(name, 1<<20, WithMaxSize(8192))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !limited {
		t.Fatal("expected the request to be reported as limited")
	}
}

func TestDestroyUnlinksEvenWithOtherAttachments(t *testing.T) {
	name := uniqueName(t)
	h1, _, err := Create(name, 4096)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h2, err := Open(name)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := h1.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if err := h2.Shutdown(); err != nil {
		t.Fatalf("Shutdown after peer destroyed: %v", err)
	}

	if _, _, err := Create(name, 4096); err != nil {
		t.Fatalf("re-Create after Destroy should see a fresh pool: %v", err)
	} else {
		DeleteByName(name)
	}
}

func TestDeleteByNameAbsentIsNotError(t *testing.T) {
	if err := DeleteByName(uniqueName(t)); err != nil {
		t.Fatalf("DeleteByName on nonexistent pool: %v", err)
	}
}

func TestFormatVersionIncompatibleRejected(t *testing.T) {
	name := uniqueName(t)
	h, _, err := Create(name, 4096, WithFormatVersion("2.0.0"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer h.Destroy()

	_, err = Open(name)
	if err == nil {
		t.Fatal("expected incompatible format error")
	}
}
