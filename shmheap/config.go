package shmheap

// Config holds the options Create consults. Mirrors the functional-option
// pattern the allocator subsystem in this codebase's lineage has always
// used for allocator construction.
type Config struct {
	MaxSize           uint64
	UseNewInitializer bool
	FormatVersion     string
	FormatConstraint  string
	GCCallback        func(id uint64) bool
}

// Option configures a Config passed to Create.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		FormatVersion:    "1.0.0",
		FormatConstraint: "^1.0.0",
	}
}

// WithMaxSize sets the hard ceiling Extend will never grow the pool past
// (spec.md §4.6 step 1). Zero means "use the environment/BLOCKFILE
// default" (SPEC_FULL.md §5).
func WithMaxSize(size uint64) Option {
	return func(c *Config) { c.MaxSize = size }
}

// WithNewInitializer selects the BLOCKFILE sizing rule described in
// SPEC_FULL.md §5 when name has the "BLOCKFILE" prefix, and suppresses
// the initial single-free-chunk seeding described in spec.md §4.1 step 10
// otherwise (the caller takes responsibility for initializing the pool).
func WithNewInitializer(enabled bool) Option {
	return func(c *Config) { c.UseNewInitializer = enabled }
}

// WithFormatVersion overrides the semver string written into a freshly
// created pool's header (SPEC_FULL.md §6). Defaults to "1.0.0".
func WithFormatVersion(version string) Option {
	return func(c *Config) { c.FormatVersion = version }
}

// WithFormatConstraint overrides the semver constraint Open checks an
// existing pool's FormatVersion against before attaching (SPEC_FULL.md
// §4). Defaults to "^1.0.0".
func WithFormatConstraint(constraint string) Option {
	return func(c *Config) { c.FormatConstraint = constraint }
}
