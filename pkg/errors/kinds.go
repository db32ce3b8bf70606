package errors

import (
	"fmt"
	"sort"
	"strings"
)

// Requester identifies who asked for a package and with which constraint.
// From is "<root>" for requirements declared directly in the manifest.
type Requester struct {
	From      string
	Specifier string
}

func (r Requester) String() string {
	spec := r.Specifier
	if spec == "" {
		spec = "*"
	}
	return fmt.Sprintf("%s requires %s", r.From, spec)
}

// ConflictError reports two requirements for the same package that cannot be
// merged. It carries both requester identities.
type ConflictError struct {
	Package string
	First   Requester
	Second  Requester
	Reason  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCodeConflict, e.UserMessage())
}

// UserMessage returns the message without the code prefix.
func (e *ConflictError) UserMessage() string {
	msg := fmt.Sprintf("conflicting requirements for %s: %s (%s) and %s (%s)",
		e.Package, e.First.Specifier, e.First.From, e.Second.Specifier, e.Second.From)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// ErrorCode returns ErrCodeConflict.
func (e *ConflictError) ErrorCode() Code { return ErrCodeConflict }

// ResolutionError reports an exhausted search. Requesters lists every
// constraint placed on Package at the point the search gave up.
type ResolutionError struct {
	Package    string
	Requesters []Requester
	Cause      error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrCodeResolution, e.UserMessage())
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// UserMessage renders the requirement chain, one requester per line.
func (e *ResolutionError) UserMessage() string {
	var b strings.Builder
	fmt.Fprintf(&b, "could not find a version of %s that satisfies all requirements", e.Package)
	reqs := append([]Requester(nil), e.Requesters...)
	sort.SliceStable(reqs, func(i, j int) bool {
		if reqs[i].From != reqs[j].From {
			return reqs[i].From < reqs[j].From
		}
		return reqs[i].Specifier < reqs[j].Specifier
	})
	for _, r := range reqs {
		b.WriteString("\n  ")
		b.WriteString(r.String())
	}
	return b.String()
}

func (e *ResolutionError) Unwrap() error { return e.Cause }

// ErrorCode returns ErrCodeResolution.
func (e *ResolutionError) ErrorCode() Code { return ErrCodeResolution }

// Convenience constructors for the remaining kinds.

// Parse returns an INVALID_REQUIREMENT error.
func Parse(format string, args ...any) *Error { return New(ErrCodeParse, format, args...) }

// Format returns an INVALID_LOCK error wrapping cause.
func Format(cause error, format string, args ...any) *Error {
	return Wrap(ErrCodeFormat, cause, format, args...)
}

// Usage returns a USAGE error.
func Usage(format string, args ...any) *Error { return New(ErrCodeUsage, format, args...) }

// Provider returns a PROVIDER error wrapping cause.
func Provider(cause error, format string, args ...any) *Error {
	return Wrap(ErrCodeProvider, cause, format, args...)
}
