package mcpconfig

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds, matchable with errors.Is against any loader error.
var (
	ErrMalformedDocument     = errors.New("malformed document")
	ErrInvalidEntry          = errors.New("invalid entry")
	ErrDuplicateName         = errors.New("duplicate server name")
	ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")
)

// MalformedDocumentError means the document root does not have the expected
// shape. It aborts the whole load.
type MalformedDocumentError struct {
	Reason string
	Line   int
	Err    error
}

func (e *MalformedDocumentError) Error() string {
	var b strings.Builder
	b.WriteString("malformed document")
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *MalformedDocumentError) Is(target error) bool { return target == ErrMalformedDocument }

func (e *MalformedDocumentError) Unwrap() error { return e.Err }

// InvalidEntryError pinpoints one field of one entry that failed validation.
// Field is empty when the entry as a whole is unusable.
type InvalidEntryError struct {
	Name   string
	Field  string
	Reason string
	Line   int
}

func (e *InvalidEntryError) Error() string {
	loc := fmt.Sprintf("server %q", e.Name)
	if e.Field != "" {
		loc += " field " + e.Field
	}
	if e.Line > 0 {
		loc += fmt.Sprintf(" (line %d)", e.Line)
	}
	return loc + ": " + e.Reason
}

func (e *InvalidEntryError) Is(target error) bool { return target == ErrInvalidEntry }

// DuplicateNameError reports a server name defined more than once. Lines
// lists every definition site.
type DuplicateNameError struct {
	Name  string
	Lines []int
}

func (e *DuplicateNameError) Error() string {
	if len(e.Lines) == 0 {
		return fmt.Sprintf("server %q defined more than once", e.Name)
	}
	lines := make([]string, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = fmt.Sprint(l)
	}
	return fmt.Sprintf("server %q defined more than once (lines %s)", e.Name, strings.Join(lines, ", "))
}

func (e *DuplicateNameError) Is(target error) bool { return target == ErrDuplicateName }

// UnresolvedPlaceholderError reports a ${Var} reference in entry's env that
// the ambient environment could not satisfy.
type UnresolvedPlaceholderError struct {
	Entry string
	Key   string
	Var   string
}

func (e *UnresolvedPlaceholderError) Error() string {
	return fmt.Sprintf("server %q env %s: variable %s is not set", e.Entry, e.Key, e.Var)
}

func (e *UnresolvedPlaceholderError) Is(target error) bool { return target == ErrUnresolvedPlaceholder }

// LoadError aggregates every problem found by a single load.
type LoadError struct {
	Errors []error
}

func (e *LoadError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "config load failed"
	case 1:
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d config problems:", len(e.Errors))
	for _, err := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *LoadError) Unwrap() []error { return e.Errors }

// InvalidEntries returns the InvalidEntryError instances in e.
func (e *LoadError) InvalidEntries() []*InvalidEntryError { return collect[*InvalidEntryError](e) }

// Duplicates returns the DuplicateNameError instances in e.
func (e *LoadError) Duplicates() []*DuplicateNameError { return collect[*DuplicateNameError](e) }

// Unresolved returns the UnresolvedPlaceholderError instances in e.
func (e *LoadError) Unresolved() []*UnresolvedPlaceholderError {
	return collect[*UnresolvedPlaceholderError](e)
}

func collect[T error](e *LoadError) []T {
	var out []T
	for _, err := range e.Errors {
		if t, ok := err.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// Problems flattens err into one human-readable line per problem.
func Problems(err error) []string {
	if err == nil {
		return nil
	}
	var le *LoadError
	if errors.As(err, &le) && len(le.Errors) > 0 {
		out := make([]string, 0, len(le.Errors))
		for _, e := range le.Errors {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}
