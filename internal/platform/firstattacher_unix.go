//go:build linux || darwin

package platform

// RaceFirstAttacher is a no-op on POSIX: the O_CREAT|O_EXCL race already
// performed by CreateOrOpenRegion is the POSIX equivalent of the Windows
// two-semaphore dance (spec.md §4.1 step 6, "Portable implementations may
// substitute an exclusive create followed by fallback-to-open"). It exists
// so Create does not need to special-case OS family beyond calling this
// one entry point, per SPEC_FULL.md §5.
func RaceFirstAttacher(names Names) error {
	return nil
}
