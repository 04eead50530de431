// Package typelib maps JVM type names to descriptors that know their ABI
// signature, their JNI spelling and how to marshal values across the
// JS/JVM boundary.
//
// All JNI and JavaScriptCore name formatting lives in this package so the
// emitter can be retargeted by swapping it.
package typelib

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/loopbridge/metabase"
)

// ErrUnknownType is returned for a class name that is not in the library.
var ErrUnknownType = errors.New("unknown type")

// Kind classifies a descriptor. Every descriptor has exactly one kind.
type Kind int

const (
	Boolean Kind = iota
	Primitive
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Boolean:
		return "boolean"
	case Primitive:
		return "primitive"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// primitive encodings. void is listed so it resolves; it is a Primitive
// with IsVoid true.
var primitiveCodes = map[string]byte{
	"boolean": 'Z',
	"byte":    'B',
	"char":    'C',
	"short":   'S',
	"int":     'I',
	"long":    'J',
	"float":   'F',
	"double":  'D',
	"void":    'V',
}

var primitiveNames = map[byte]string{
	'Z': "boolean",
	'B': "byte",
	'C': "char",
	'S': "short",
	'I': "int",
	'J': "long",
	'F': "float",
	'D': "double",
	'V': "void",
}

// Type is an immutable descriptor for one type name.
type Type struct {
	name string
	kind Kind
	code byte  // primitive code, 0 for arrays and objects
	elem *Type // arrays: the type with one [] stripped
	dims int
	root bool
}

// Name returns the dotted type name, including any [] suffixes.
func (t *Type) Name() string { return t.name }

// Kind returns the descriptor's classification.
func (t *Type) Kind() Kind { return t.kind }

// Elem returns the element type of an array, nil otherwise.
func (t *Type) Elem() *Type { return t.elem }

// Dims returns the array depth, 0 for non-arrays.
func (t *Type) Dims() int { return t.dims }

// Base returns the innermost element type of an array, or t itself.
func (t *Type) Base() *Type {
	b := t
	for b.elem != nil {
		b = b.elem
	}
	return b
}

func (t *Type) IsBoolean() bool   { return t.kind == Boolean }
func (t *Type) IsPrimitive() bool { return t.kind == Primitive }
func (t *Type) IsArray() bool     { return t.kind == Array }
func (t *Type) IsObject() bool    { return t.kind == Object }
func (t *Type) IsVoid() bool      { return t.code == 'V' }
func (t *Type) IsChar() bool      { return t.code == 'C' }

// IsNumber reports whether JS sees the value as a number.
func (t *Type) IsNumber() bool {
	return t.kind == Primitive && !t.IsVoid() && !t.IsChar()
}

// IsString reports whether JS sees the value as a string.
func (t *Type) IsString() bool {
	return t.IsChar() || (t.kind == Object && t.name == "java.lang.String")
}

// IsRootObject reports whether the type is the library's root class.
func (t *Type) IsRootObject() bool { return t.kind == Object && t.root }

// Resolver resolves and caches descriptors for one compile session. The
// library is consulted on every miss, so classes registered after the
// resolver was built still resolve.
type Resolver struct {
	lib   *metabase.Library
	types map[string]*Type
}

// NewResolver returns a resolver over lib.
func NewResolver(lib *metabase.Library) *Resolver {
	return &Resolver{
		lib:   lib,
		types: make(map[string]*Type),
	}
}

// Library returns the library the resolver reads.
func (r *Resolver) Library() *metabase.Library { return r.lib }

// Resolve classifies name: primitive table first, then trailing [] (arrays),
// then a class in the library.
func (r *Resolver) Resolve(name string) (*Type, error) {
	name = strings.TrimSpace(name)
	if t, ok := r.types[name]; ok {
		return t, nil
	}

	t, err := r.classify(name)
	if err != nil {
		return nil, err
	}
	r.types[name] = t
	return t, nil
}

// Forget drops the cached descriptors of class name and of every array of
// it, so a class removed from the library no longer resolves.
func (r *Resolver) Forget(name string) {
	for key := range r.types {
		if strings.TrimRight(key, "[]") == name {
			delete(r.types, key)
		}
	}
}

// MustResolve is Resolve for names already known to be valid.
func (r *Resolver) MustResolve(name string) *Type {
	t, err := r.Resolve(name)
	if err != nil {
		panic(err)
	}
	return t
}

func (r *Resolver) classify(name string) (*Type, error) {
	if code, ok := primitiveCodes[name]; ok {
		kind := Primitive
		if code == 'Z' {
			kind = Boolean
		}
		return &Type{name: name, kind: kind, code: code}, nil
	}

	if strings.HasSuffix(name, "[]") {
		elem, err := r.Resolve(strings.TrimSuffix(name, "[]"))
		if err != nil {
			return nil, err
		}
		return &Type{name: name, kind: Array, elem: elem, dims: elem.dims + 1}, nil
	}

	if name == "" || !r.lib.Has(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return &Type{name: name, kind: Object, root: r.lib.Root() == name}, nil
}
