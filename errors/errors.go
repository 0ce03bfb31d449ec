package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which operation the error occurred in
type Phase string

const (
	PhaseCreate   Phase = "create"   // memory creation
	PhaseClone    Phase = "clone"    // memory cloning
	PhaseGrow     Phase = "grow"     // committed-region growth
	PhaseShrink   Phase = "shrink"   // committed-region shrink
	PhaseValidate Phase = "validate" // access-range validation
	PhaseHost     Phase = "host"     // host-side reads/writes
	PhaseReserve  Phase = "reserve"  // address-space reservation
	PhaseCommit   Phase = "commit"   // page commit
)

// Kind categorizes the error
type Kind string

const (
	// KindReservationExhausted: the backend could not reserve address space.
	KindReservationExhausted Kind = "reservation_exhausted"
	// KindCommitFailed: the backend could not commit pages it had reserved.
	KindCommitFailed Kind = "commit_failed"
	// KindLimitExceeded: a size change would violate the type's min/max.
	KindLimitExceeded Kind = "limit_exceeded"
	// KindAccessViolation: an access range falls outside the valid region.
	KindAccessViolation Kind = "access_violation"
	// KindIndexExhausted: a compartment has no free memory id slots.
	KindIndexExhausted Kind = "index_exhausted"
	// KindUnsupported: the operation cannot be provided on this platform.
	KindUnsupported Kind = "unsupported"
)

// Error is the structured error type used throughout the subsystem
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Pages  uint64 // page count involved, when meaningful
	Offset uint64 // byte offset involved, when meaningful
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsKind reports whether err is an *Error of the given kind, in any phase.
func IsKind(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == kind {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Pages sets the page count involved
func (b *Builder) Pages(n uint64) *Builder {
	b.err.Pages = n
	return b
}

// Offset sets the byte offset involved
func (b *Builder) Offset(off uint64) *Builder {
	b.err.Offset = off
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// ReservationExhausted creates an address-space exhaustion error
func ReservationExhausted(phase Phase, numPages uint64, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindReservationExhausted,
		Pages:  numPages,
		Cause:  cause,
		Detail: fmt.Sprintf("failed to reserve %d pages of address space", numPages),
	}
}

// CommitFailed creates a page-commit failure error
func CommitFailed(phase Phase, numPages uint64, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCommitFailed,
		Pages:  numPages,
		Cause:  cause,
		Detail: fmt.Sprintf("failed to commit %d pages", numPages),
	}
}

// LimitExceeded creates a min/max bounds violation error
func LimitExceeded(phase Phase, detail string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindLimitExceeded,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// AccessViolation creates an out-of-range access error for the validate phase
func AccessViolation(offset, numBytes uint64) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindAccessViolation,
		Offset: offset,
		Detail: fmt.Sprintf("range [%#x, +%d) outside reserved address space", offset, numBytes),
	}
}

// HostAccessViolation creates an out-of-range access error for host-side accessors
func HostAccessViolation(offset, numBytes uint64, committedBytes uint64) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindAccessViolation,
		Offset: offset,
		Detail: fmt.Sprintf("range [%#x, +%d) outside committed region of %d bytes", offset, numBytes, committedBytes),
	}
}

// IndexExhausted creates an id-space exhaustion error
func IndexExhausted(phase Phase, capacity int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindIndexExhausted,
		Detail: fmt.Sprintf("all %d memory id slots in use", capacity),
	}
}

// Unsupported creates an unsupported-platform error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
