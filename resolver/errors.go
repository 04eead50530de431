package resolver

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnresolved matches every ResolveError.
	ErrUnresolved = errors.New("unresolved symbol")
	// ErrAmbiguous matches every AmbiguousError.
	ErrAmbiguous = errors.New("ambiguous overload")
)

// ResolveError reports a reference that names no known class, method,
// property or constructor.
type ResolveError struct {
	Location Location
	// Kind is what was looked up: "class", "instance method",
	// "static method", "property", "constructor" or "variable".
	Kind     string
	Class    string
	Member   string
	ArgCount int
}

func (e *ResolveError) Error() string {
	var msg string
	switch e.Kind {
	case "class":
		msg = "couldn't find class: " + e.Class
	case "variable":
		msg = "failed to lookup definition of " + e.Member
	case "property":
		msg = fmt.Sprintf("couldn't find property: %s for class: %s", e.Member, e.Class)
	default:
		msg = fmt.Sprintf("couldn't find %s: %s for class: %s with argcount %d", e.Kind, e.Member, e.Class, e.ArgCount)
	}
	return e.Location.prefix() + msg
}

func (e *ResolveError) Is(target error) bool { return target == ErrUnresolved }

// AmbiguousError lists every overload that matched an arity-only lookup, each
// as the explicit disambiguation call that selects it.
type AmbiguousError struct {
	Location   Location
	Class      string
	Method     string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	var b strings.Builder
	b.WriteString(e.Location.prefix())
	b.WriteString("can't disambiguate arguments for method ")
	b.WriteString(e.Method)
	b.WriteString("\n  The following method signatures are available:\n\n")
	for _, c := range e.Candidates {
		b.WriteString("\t")
		b.WriteString(c)
		b.WriteString("\n")
	}
	return b.String()
}

func (e *AmbiguousError) Is(target error) bool { return target == ErrAmbiguous }

// ArgCountError is raised by Validate when a symbol's call site passes a
// different number of arguments than its overload declares.
type ArgCountError struct {
	Location Location
	Name     string
	Want     int
	Got      int
}

func (e *ArgCountError) Error() string {
	return fmt.Sprintf("%swrong number of arguments passed to %s (want %d, got %d)", e.Location.prefix(), e.Name, e.Want, e.Got)
}

// CallStringError is a malformed explicit disambiguation string.
type CallStringError struct {
	Location Location
	Text     string
	Receiver string
}

func (e *CallStringError) Error() string {
	return fmt.Sprintf("%s%s of %s is not a valid method call", e.Location.prefix(), e.Text, e.Receiver)
}

// DuplicateBindingError is two bindings of one name ending at the same
// position, which leaves the nearest preceding binding undefined.
type DuplicateBindingError struct {
	Location Location
	Name     string
	Classes  [2]string
}

func (e *DuplicateBindingError) Error() string {
	return fmt.Sprintf("%sduplicate definition of %s ending at offset %d (%s and %s)",
		e.Location.prefix(), e.Name, e.Location.EndPos, e.Classes[0], e.Classes[1])
}
