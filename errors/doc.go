// Package errors provides structured error types for the wasm-jit-prototype
// memory subsystem.
//
// Errors are categorized by Phase (the operation that failed) and Kind
// (failure category). The Error type carries context useful to callers:
// page counts, byte offsets, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseGrow, errors.KindCommitFailed).
//		Pages(16).
//		Cause(errno).
//		Detail("backend refused commit").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.LimitExceeded(errors.PhaseGrow, "grow by %d pages exceeds max %d", n, max)
//	err := errors.AccessViolation(offset, numBytes)
//
// All errors implement the standard error interface and support errors.Is/As.
// Two *Error values match under errors.Is when their Phase and Kind agree.
//
// # Recoverable vs. fatal
//
// Only runtime-environment conditions are reported as errors: address-space
// exhaustion, commit failure under memory pressure, size-limit violations,
// and out-of-range accesses. Caller-contract violations (inserting a
// duplicate memory id, unmapping pages outside the committed region,
// destroying an instance that was never finalized) panic instead; they
// indicate misuse, not conditions to recover from.
package errors
