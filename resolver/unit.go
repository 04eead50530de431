// Package resolver resolves script references to JVM classes, methods,
// properties and constructors, one compile unit at a time.
package resolver

import (
	"errors"
	"slices"
	"sort"

	"github.com/tliron/commonlog"

	"github.com/chazu/loopbridge/metabase"
	"github.com/chazu/loopbridge/typelib"
)

var log = commonlog.GetLogger("loopbridge.resolver")

// Kind classifies a symbol.
type Kind string

const (
	InstanceMethod Kind = "instance"
	StaticMethod   Kind = "static"
	Getter         Kind = "getter"
	Setter         Kind = "setter"
	Constructor    Kind = "constructor"
)

// IsMethod reports whether symbols of this kind call a method overload.
func (k Kind) IsMethod() bool { return k == InstanceMethod || k == StaticMethod }

// Symbol is one resolved reference.
type Symbol struct {
	Kind Kind
	// SymbolName is the mangled bridge function name, unique per target.
	SymbolName string
	Class      string
	Name       string
	// Receiver is the script variable the call is made on, empty for static
	// references.
	Receiver string
	Method   *metabase.Method
	// Overloads holds every constructor an implicit constructor call may
	// select at runtime.
	Overloads  []*metabase.Method
	Property   *metabase.Property
	ReturnType string
	Location   Location
	ArgCount   int
	// Selector is the explicit call string the symbol was resolved from.
	Selector string
}

type memoKey struct{ class, method string }

type binding struct {
	class string
	loc   Location
}

// Unit holds the resolution state of one compile unit. The library is only
// read; lookups are memoized in the unit.
type Unit struct {
	File string

	lib   *metabase.Library
	types *typelib.Resolver

	memo         map[memoKey][]*metabase.Method
	symbols      map[string]*Symbol
	sites        map[int]*Symbol
	bindings     map[string][]binding
	constructors map[string][]*Symbol
}

// NewUnit starts a compile unit for file.
func NewUnit(file string, types *typelib.Resolver) *Unit {
	return &Unit{
		File:         file,
		lib:          types.Library(),
		types:        types,
		memo:         make(map[memoKey][]*metabase.Method),
		symbols:      make(map[string]*Symbol),
		sites:        make(map[int]*Symbol),
		bindings:     make(map[string][]binding),
		constructors: make(map[string][]*Symbol),
	}
}

// Types returns the type resolver shared by the unit.
func (u *Unit) Types() *typelib.Resolver { return u.types }

// IsValidSymbol reports whether name is a known class.
func (u *Unit) IsValidSymbol(name string) bool {
	return name != "" && u.lib.Has(name)
}

// FindMethods returns the overloads of method visible on class: the bucket
// of the nearest class in the superclass chain that declares the name. A
// more derived bucket fully shadows the base one.
func (u *Unit) FindMethods(class, method string) []*metabase.Method {
	key := memoKey{class, method}
	if ms, ok := u.memo[key]; ok {
		return ms
	}

	var found []*metabase.Method
	seen := make(map[string]bool)
	for c := u.lib.Class(class); c != nil && !seen[c.Name]; c = u.lib.Class(c.SuperClass) {
		seen[c.Name] = true
		if ms, ok := c.Methods[method]; ok {
			found = ms
			break
		}
	}
	u.memo[key] = found
	return found
}

// FindProperty searches class and then each superclass in turn.
func (u *Unit) FindProperty(class, property string) *metabase.Property {
	seen := make(map[string]bool)
	for c := u.lib.Class(class); c != nil && !seen[c.Name]; c = u.lib.Class(c.SuperClass) {
		seen[c.Name] = true
		if p, ok := c.Properties[property]; ok {
			return p
		}
	}
	return nil
}

// Bind records that the script variable name holds an instance of class
// from loc onward. A redeclaration adds a record; it never replaces one.
func (u *Unit) Bind(name, class string, loc Location) error {
	loc = u.locate(loc)
	bs := u.bindings[name]
	i := sort.Search(len(bs), func(i int) bool { return bs[i].loc.EndPos >= loc.EndPos })
	if i < len(bs) && bs[i].loc.EndPos == loc.EndPos {
		return &DuplicateBindingError{Location: loc, Name: name, Classes: [2]string{bs[i].class, class}}
	}
	u.bindings[name] = slices.Insert(bs, i, binding{class: class, loc: loc})
	return nil
}

// BindingAt returns the class of the nearest binding of name that ends
// before pos.
func (u *Unit) BindingAt(name string, pos int) (string, bool) {
	bs := u.bindings[name]
	i := sort.Search(len(bs), func(i int) bool { return bs[i].loc.EndPos >= pos })
	if i == 0 {
		return "", false
	}
	return bs[i-1].class, true
}

// Record adds s to the reference-site index and, unless its mangled name is
// already taken, to the symbol table. It returns s.
func (u *Unit) Record(s *Symbol) *Symbol {
	s.Location.File = u.fileOr(s.Location.File)
	u.sites[s.Location.Pos] = s
	if _, ok := u.symbols[s.SymbolName]; !ok {
		u.symbols[s.SymbolName] = s
	}
	return s
}

func (u *Unit) fileOr(f string) string {
	if f == "" {
		return u.File
	}
	return f
}

func (u *Unit) locate(l Location) Location {
	l.File = u.fileOr(l.File)
	return l
}

// Symbols returns the unit's symbol table ordered by mangled name.
func (u *Unit) Symbols() []*Symbol {
	names := make([]string, 0, len(u.symbols))
	for name := range u.symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Symbol, len(names))
	for i, name := range names {
		out[i] = u.symbols[name]
	}
	return out
}

// Symbol returns the symbol registered under a mangled name.
func (u *Unit) Symbol(name string) *Symbol { return u.symbols[name] }

// SymbolAt returns the symbol resolved at a reference site.
func (u *Unit) SymbolAt(loc Location) *Symbol { return u.sites[loc.Pos] }

// Constructors returns the explicitly disambiguated constructors of class in
// resolution order.
func (u *Unit) Constructors(class string) []*Symbol {
	return slices.Clone(u.constructors[class])
}

// ConstructorClasses returns every class with explicitly disambiguated
// constructors, sorted.
func (u *Unit) ConstructorClasses() []string {
	out := make([]string, 0, len(u.constructors))
	for c := range u.constructors {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Validate checks every method symbol's argument count against its
// overload. All mismatches are reported.
func (u *Unit) Validate() error {
	var errs []error
	for _, s := range u.all() {
		if !s.Kind.IsMethod() || s.Method == nil {
			continue
		}
		if want := len(s.Method.Args); want != s.ArgCount {
			errs = append(errs, &ArgCountError{Location: s.Location, Name: s.Name, Want: want, Got: s.ArgCount})
		}
	}
	if len(errs) > 0 {
		log.Debugf("%s: %d symbols failed validation", u.File, len(errs))
	}
	return errors.Join(errs...)
}

// all returns every symbol in the table or the site index, ordered by
// source position.
func (u *Unit) all() []*Symbol {
	seen := make(map[*Symbol]bool, len(u.symbols)+len(u.sites))
	var out []*Symbol
	for _, s := range u.symbols {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range u.sites {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Location.Pos != out[j].Location.Pos {
			return out[i].Location.Pos < out[j].Location.Pos
		}
		return out[i].SymbolName < out[j].SymbolName
	})
	return out
}
