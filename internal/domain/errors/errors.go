// Package errors holds the sentinels shared across layers. fetch and index
// wrap ErrNotFound so callers can test for a missing post without knowing
// where it was looked up.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrInvalid  = errors.New("invalid")
	ErrNotFound = errors.New("not found")
)

type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every problem found in a config so they can be
// reported at once.
type ValidationError struct {
	Items []FieldError
}

func (e ValidationError) Error() string {
	if len(e.Items) == 0 {
		return "invalid config"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "invalid config (%d problems):", len(e.Items))
	for _, item := range e.Items {
		b.WriteString("\n  ")
		b.WriteString(item.Error())
	}
	return b.String()
}

func (e *ValidationError) Add(field, msg string) {
	e.Items = append(e.Items, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) Addf(field, format string, args ...any) {
	e.Add(field, fmt.Sprintf(format, args...))
}

// Fields lists the offending keys, sorted and without repeats.
func (e ValidationError) Fields() []string {
	seen := make(map[string]struct{}, len(e.Items))
	out := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		if _, ok := seen[it.Field]; ok {
			continue
		}
		seen[it.Field] = struct{}{}
		out = append(out, it.Field)
	}
	sort.Strings(out)
	return out
}

func (e ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

func (e ValidationError) HasAny() bool {
	return len(e.Items) > 0
}
