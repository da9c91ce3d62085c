package shmheap

import "fmt"

// Code is the error taxonomy exposed by the allocator (spec.md §6).
type Code int

const (
	// Success is never itself returned as an error; it is the zero
	// value used internally to mean "no Code".
	Success Code = iota
	EINVAL
	ENOMEM
	ENOSPC
	EFAULT
	ETIMEDOUT
	ERROR
	EOPNOTSUPP
	NotFound
)

func (c Code) String() string {
	switch c {
	case Success:
		return "SUCCESS"
	case EINVAL:
		return "EINVAL"
	case ENOMEM:
		return "ENOMEM"
	case ENOSPC:
		return "ENOSPC"
	case EFAULT:
		return "EFAULT"
	case ETIMEDOUT:
		return "ETIMEDOUT"
	case ERROR:
		return "ERROR"
	case EOPNOTSUPP:
		return "EOPNOTSUPP"
	case NotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// Error is the error type every shmheap operation that can fail returns.
// It carries the taxonomy Code alongside the wrapped OS/platform error so
// callers can match on Code with errors.As while diagnostics still see the
// underlying cause (spec.md §6: "The platform's raw error code is also
// preserved in the handle's error field for diagnostics").
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("shmheap: %s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("shmheap: %s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op string, code Code, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// ErrIncompatibleFormat is returned by Open when the on-disk pool's
// FormatVersion is not admitted by this binary's supported range
// (SPEC_FULL.md §4, the Masterminds/semver compatibility gate).
var ErrIncompatibleFormat = fmt.Errorf("shmheap: pool format version is incompatible with this build")
