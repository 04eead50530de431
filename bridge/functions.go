package bridge

import (
	"strconv"
	"strings"

	"github.com/chazu/loopbridge/resolver"
	"github.com/chazu/loopbridge/typelib"
)

// FunctionsFilename is the file holding the script-callable wrappers.
const FunctionsFilename = "HL_Functions.cpp"

// MainFilename is the file registering every wrapper on the global object.
const MainFilename = "HL_Main.cpp"

// RegisterFunction is the entry point MainFile defines.
const RegisterFunction = "HyperloopRegisterFunctions"

func callbackPrototype(name string) string {
	return "EXPORTAPI JSValueRef " + name + "(JSContextRef ctx, JSObjectRef function, JSObjectRef thisObject, size_t argumentCount, const JSValueRef arguments[], JSValueRef* exception)"
}

// FunctionName is the script-visible function bound to a symbol.
// Constructors get a suffix since the class file already defines the
// symbol name.
func FunctionName(s *resolver.Symbol) string {
	if s.Kind == resolver.Constructor {
		return s.SymbolName + "_New"
	}
	return s.SymbolName
}

// FunctionsFile renders a script-callable wrapper for every symbol and
// returns the file with the names of the wrappers it defines. Instance
// receivers and setter values are passed as leading script arguments.
func (e *Emitter) FunctionsFile(symbols []*resolver.Symbol) (string, []string, error) {
	e.Reset()
	var code, names []string
	seen := make(map[string]bool)
	for _, s := range symbols {
		name := FunctionName(s)
		if seen[name] {
			continue
		}
		seen[name] = true
		body, err := e.functionBody(s)
		if err != nil {
			return "", nil, err
		}
		if body == nil {
			continue
		}
		names = append(names, name)
		code = append(code, "// "+s.Location.String()+" "+s.Class+"."+s.Name, callbackPrototype(name), "{")
		code = append(code, indent+`LOGD("`+name+`");`)
		code = append(code, body...)
		code = append(code, "}", "")
	}
	return e.Header() + strings.Join(code, "\n"), names, nil
}

func receiver(instance bool) []string {
	if !instance {
		return nil
	}
	return []string{indent + "auto object = JSValueTo_JavaObject(ctx,arguments[0],exception);"}
}

func (e *Emitter) functionBody(s *resolver.Symbol) ([]string, error) {
	switch s.Kind {
	case resolver.InstanceMethod, resolver.StaticMethod:
		body, err := e.MethodBody(s, "object", indent)
		if err != nil {
			return nil, err
		}
		return append(receiver(s.Method != nil && s.Method.Instance), body), nil

	case resolver.Getter:
		body, err := e.GetterBody(s, "object", indent)
		if err != nil {
			return nil, err
		}
		code := append(receiver(!s.Property.IsStatic()), indent+"JSValueRef result;", body)
		return append(code, indent+"return result;"), nil

	case resolver.Setter:
		body, err := e.SetterBody(s, "object", indent)
		if err != nil || body == "" {
			return nil, err
		}
		instance := !s.Property.IsStatic()
		slot := 0
		if instance {
			slot = 1
		}
		code := append(receiver(instance),
			indent+"JSValueRef value = arguments["+strconv.Itoa(slot)+"];",
			indent+"JSValueRef result;",
			body,
		)
		return append(code, indent+"return result;"), nil

	case resolver.Constructor:
		t, err := e.types.Resolve(s.Class)
		if err != nil {
			return nil, err
		}
		e.Extern(constructorPrototype(s.SymbolName) + ";")
		var sn typelib.Snippets
		result := t.ToJSBody("instance", &sn)
		e.declare(&sn)
		return []string{
			indent + "auto instance = " + s.SymbolName + "(ctx,arguments,exception);",
			indent + "if (instance == nullptr)",
			indent + "{",
			indent + indent + "return JSValueMakeUndefined(ctx);",
			indent + "}",
			indent + "return " + result + ";",
		}, nil
	}
	return nil, nil
}

// MainFile renders the function registering the actions and the given
// wrappers on object.
func (e *Emitter) MainFile(functions []string) string {
	e.Reset()
	reg := e.Main()
	for _, n := range functions {
		reg.add(n)
		e.Extern(callbackPrototype(n) + ";")
	}

	code := []string{"EXPORTAPI void " + RegisterFunction + "(JSContextRef ctx, JSObjectRef object)", "{"}
	code = append(code, indentLines(reg.Code, indent)...)
	code = append(code, indentLines(reg.Cleanup, indent)...)
	code = append(code, "}", "")
	return e.Header() + strings.Join(code, "\n")
}
