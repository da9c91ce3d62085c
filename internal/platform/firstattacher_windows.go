//go:build windows

package platform

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// RaceFirstAttacher runs the Windows two-semaphore dance: semaphore X
// starts at 1 and gates entry so only one process at a time evaluates
// whether it is first; semaphore Y starts at 0 and is released by the
// winner once any stale backing file has been removed, so every other
// waiter can proceed knowing the sweep already happened (spec.md §4.1
// step 6, §9 "First-attacher race").
func RaceFirstAttacher(names Names) error {
	x, xCreated, err := createOrOpenSemaphore(WindowsGlobalName(names.X), 1, 1)
	if err != nil {
		return fmt.Errorf("platform: first-attacher semaphore x: %w", err)
	}
	defer windows.CloseHandle(x)

	y, _, err := createOrOpenSemaphore(WindowsGlobalName(names.Y), 0, 1)
	if err != nil {
		return fmt.Errorf("platform: first-attacher semaphore y: %w", err)
	}
	defer windows.CloseHandle(y)

	if _, err := windows.WaitForSingleObject(x, windows.INFINITE); err != nil {
		return fmt.Errorf("platform: wait on semaphore x: %w", err)
	}
	defer windows.ReleaseSemaphore(x, 1, nil)

	if xCreated {
		// We are the first process ever to reach this race for this
		// name: any backing file left over from a previous run of the
		// host is stale and must go before anyone maps it.
		UnlinkRegion(names.Path(names.File))
		windows.ReleaseSemaphore(y, 1, nil)
		return nil
	}

	// Not first: wait for the winner's sweep to finish, then put the
	// token back so the next attacher doesn't block forever.
	if _, err := windows.WaitForSingleObject(y, windows.INFINITE); err != nil {
		return fmt.Errorf("platform: wait on semaphore y: %w", err)
	}
	windows.ReleaseSemaphore(y, 1, nil)
	return nil
}

// createOrOpenSemaphore wraps CreateSemaphore, which Windows defines to
// succeed with a valid handle and err == ERROR_ALREADY_EXISTS when the
// named semaphore already exists rather than returning that case as a
// normal error.
func createOrOpenSemaphore(name string, initial, max int32) (windows.Handle, bool, error) {
	h, err := windows.CreateSemaphore(nil, initial, max, utf16(name))
	if err != nil && err != windows.ERROR_ALREADY_EXISTS {
		return 0, false, err
	}
	created := err != windows.ERROR_ALREADY_EXISTS
	return h, created, nil
}
