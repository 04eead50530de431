package resolver

import (
	"strings"

	"github.com/chazu/loopbridge/metabase"
	"github.com/chazu/loopbridge/typelib"
)

// InstanceMethodSymbol resolves receiver.method(...) with argc arguments on
// an instance of class.
func (u *Unit) InstanceMethodSymbol(class, method, receiver string, argc int, loc Location) (*Symbol, error) {
	loc = u.locate(loc)
	m, err := u.findMethod(class, method, argc, true, loc)
	if err != nil {
		return nil, err
	}
	return u.Record(&Symbol{
		Kind:       InstanceMethod,
		SymbolName: methodSymbolName(class, m),
		Class:      class,
		Name:       method,
		Receiver:   receiver,
		Method:     m,
		ReturnType: m.ReturnType,
		Location:   loc,
		ArgCount:   argc,
	}), nil
}

// StaticMethodSymbol resolves Class.method(...) with argc arguments.
func (u *Unit) StaticMethodSymbol(class, method string, argc int, loc Location) (*Symbol, error) {
	loc = u.locate(loc)
	m, err := u.findMethod(class, method, argc, false, loc)
	if err != nil {
		return nil, err
	}
	return u.Record(&Symbol{
		Kind:       StaticMethod,
		SymbolName: methodSymbolName(class, m),
		Class:      class,
		Name:       method,
		Method:     m,
		ReturnType: m.ReturnType,
		Location:   loc,
		ArgCount:   argc,
	}), nil
}

// GetterSymbol resolves a property read. receiver is empty for static reads.
func (u *Unit) GetterSymbol(class, property, receiver string, loc Location) (*Symbol, error) {
	loc = u.locate(loc)
	p, err := u.property(class, property, loc)
	if err != nil {
		return nil, err
	}
	return u.Record(&Symbol{
		Kind:       Getter,
		SymbolName: typelib.MethodName(class, "Get_"+property),
		Class:      class,
		Name:       property,
		Receiver:   receiver,
		Property:   p,
		ReturnType: p.Type,
		Location:   loc,
	}), nil
}

// SetterSymbol resolves a property write. A read-only property still
// resolves; the emitter generates no setter for it.
func (u *Unit) SetterSymbol(class, property, receiver string, loc Location) (*Symbol, error) {
	loc = u.locate(loc)
	p, err := u.property(class, property, loc)
	if err != nil {
		return nil, err
	}
	argc := 0
	if receiver != "" {
		argc = 1
	}
	return u.Record(&Symbol{
		Kind:       Setter,
		SymbolName: typelib.MethodName(class, "Set_"+property),
		Class:      class,
		Name:       property,
		Receiver:   receiver,
		Property:   p,
		Location:   loc,
		ArgCount:   argc,
	}), nil
}

// ConstructorSymbol resolves new Class(...) with argc arguments. Every
// constructor of that arity is kept; the bridge picks one at runtime from
// the argument values.
func (u *Unit) ConstructorSymbol(class string, argc int, loc Location) (*Symbol, error) {
	loc = u.locate(loc)
	c := u.lib.Class(class)
	if c == nil {
		return nil, &ResolveError{Location: loc, Kind: "class", Class: class}
	}
	var overloads []*metabase.Method
	for _, m := range c.Methods[metabase.ConstructorName] {
		if len(m.Args) == argc {
			overloads = append(overloads, m)
		}
	}
	if len(overloads) == 0 {
		return nil, &ResolveError{Location: loc, Kind: "constructor", Class: class, Member: metabase.ConstructorName, ArgCount: argc}
	}
	s := &Symbol{
		Kind:       Constructor,
		SymbolName: typelib.ImplicitConstructorName(class, argc),
		Class:      class,
		Name:       metabase.ConstructorName,
		Overloads:  overloads,
		ReturnType: class,
		Location:   loc,
		ArgCount:   argc,
	}
	if len(overloads) == 1 {
		s.Method = overloads[0]
	}
	return u.Record(s), nil
}

func methodSymbolName(class string, m *metabase.Method) string {
	return typelib.MethodName(class, m.Name) + typelib.MangleSignature(m.Signature)
}

func (u *Unit) property(class, property string, loc Location) (*metabase.Property, error) {
	if !u.lib.Has(class) {
		return nil, &ResolveError{Location: loc, Kind: "class", Class: class}
	}
	p := u.FindProperty(class, property)
	if p == nil {
		return nil, &ResolveError{Location: loc, Kind: "property", Class: class, Member: property}
	}
	return p, nil
}

// findMethod selects the single overload of method with argc parameters and
// the given instance flag. Parameter types are not consulted; several
// overloads of one arity are ambiguous and must be picked explicitly.
func (u *Unit) findMethod(class, method string, argc int, instance bool, loc Location) (*metabase.Method, error) {
	if !u.lib.Has(class) {
		return nil, &ResolveError{Location: loc, Kind: "class", Class: class}
	}

	var matches []*metabase.Method
	for _, m := range u.FindMethods(class, method) {
		if len(m.Args) == argc && m.Instance == instance {
			matches = append(matches, m)
		}
	}

	switch len(matches) {
	case 0:
		kind := "static method"
		if instance {
			kind = "instance method"
		}
		return nil, &ResolveError{Location: loc, Kind: kind, Class: class, Member: method, ArgCount: argc}
	case 1:
		return matches[0], nil
	}

	receiver := strings.ToLower(typelib.SanitizeSymbolName(class))
	candidates := make([]string, len(matches))
	for i, m := range matches {
		candidates[i] = "Hyperloop.method(" + receiver + ", '" + method + "(" + strings.Join(m.ArgTypes(), ",") + ")')"
	}
	return nil, &AmbiguousError{Location: loc, Class: class, Method: method, Candidates: candidates}
}
