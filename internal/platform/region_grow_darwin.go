//go:build darwin

package platform

// growthSupported is false on Darwin: spec.md §4.6's platform note records
// that growing a shared-memory-backed file in place is unreliable there,
// so Region.Resize always fails with ErrGrowthUnsupported and callers
// surface EOPNOTSUPP.
const growthSupported = false
