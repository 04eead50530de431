package resolver

import (
	"regexp"
	"slices"
	"strings"

	"github.com/chazu/loopbridge/metabase"
	"github.com/chazu/loopbridge/typelib"
)

var callStringPattern = regexp.MustCompile(`^\s*([^()\s]+)\s*\((.*)\)\s*$`)

// Call is the rewritten call produced by DefineMethod.
type Call struct {
	// Name is the mangled bridge function to call.
	Name   string
	Args   []string
	Symbol *Symbol
}

// ParseCallString splits "name(typeA,typeB)" into the member name and its
// parameter types.
func ParseCallString(s string) (name string, types []string, ok bool) {
	m := callStringPattern.FindStringSubmatch(s)
	if m == nil {
		return "", nil, false
	}
	if args := strings.TrimSpace(m[2]); args != "" {
		for _, a := range strings.Split(args, ",") {
			a = strings.TrimSpace(a)
			if a == "" {
				return "", nil, false
			}
			types = append(types, a)
		}
	}
	return m[1], types, true
}

// DefineMethod resolves an explicit disambiguation: receiver is a script
// variable or a class name, callString selects one overload by its exact
// parameter types and args are the script arguments of the call.
//
// The receiver's class comes from the nearest binding of the name ending
// before loc.Pos; a receiver without a binding is taken as a class name.
// Instance calls get the receiver prepended to args. Constructors are also
// indexed per class.
func (u *Unit) DefineMethod(receiver, callString string, args []string, loc Location) (*Call, error) {
	loc = u.locate(loc)
	method, types, ok := ParseCallString(callString)
	if !ok {
		return nil, &CallStringError{Location: loc, Text: callString, Receiver: receiver}
	}

	class, bound := u.BindingAt(receiver, loc.Pos)
	if !bound {
		if !u.lib.Has(receiver) {
			return nil, &ResolveError{Location: loc, Kind: "variable", Member: receiver}
		}
		class = receiver
	}

	isConstructor := method == metabase.ConstructorName || method == "<clinit>"

	var overloads []*metabase.Method
	if isConstructor {
		if c := u.lib.Class(class); c != nil {
			overloads = c.Methods[method]
		}
	} else {
		overloads = u.FindMethods(class, method)
	}

	var target *metabase.Method
	for _, m := range overloads {
		if slices.Equal(m.ArgTypes(), types) {
			target = m
			break
		}
	}
	if target == nil {
		kind := "method"
		if isConstructor {
			kind = "constructor"
		}
		return nil, &ResolveError{Location: loc, Kind: kind, Class: class, Member: callString, ArgCount: len(types)}
	}

	sig := typelib.MangleSignature(target.Signature)
	callArgs := slices.Clone(args)

	if isConstructor {
		s := u.Record(&Symbol{
			Kind:       Constructor,
			SymbolName: typelib.ConstructorSymbolName(class, target.Signature),
			Class:      class,
			Name:       method,
			Method:     target,
			Overloads:  []*metabase.Method{target},
			ReturnType: class,
			Location:   loc,
			ArgCount:   len(types) + 1,
			Selector:   callString,
		})
		if !slices.ContainsFunc(u.constructors[class], func(o *Symbol) bool { return o.SymbolName == s.SymbolName }) {
			u.constructors[class] = append(u.constructors[class], s)
		}
		return &Call{Name: s.SymbolName, Args: callArgs, Symbol: s}, nil
	}

	kind := StaticMethod
	recv := ""
	if target.Instance {
		kind = InstanceMethod
		recv = receiver
		callArgs = append([]string{receiver}, callArgs...)
	}
	s := u.Record(&Symbol{
		Kind:       kind,
		SymbolName: typelib.MethodName(class, method) + sig,
		Class:      class,
		Name:       method,
		Receiver:   recv,
		Method:     target,
		ReturnType: target.ReturnType,
		Location:   loc,
		ArgCount:   len(types),
		Selector:   callString,
	})
	log.Debugf("%s: %s.%s resolved to %s", loc, receiver, callString, s.SymbolName)
	return &Call{Name: s.SymbolName, Args: callArgs, Symbol: s}, nil
}
