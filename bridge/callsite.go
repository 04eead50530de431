package bridge

import (
	"strconv"
	"strings"

	"github.com/chazu/loopbridge/metabase"
	"github.com/chazu/loopbridge/resolver"
	"github.com/chazu/loopbridge/typelib"
)

// MethodBody returns the call-site code invoking a resolved method symbol.
// varname is the C variable holding the receiver of instance calls.
func (e *Emitter) MethodBody(s *resolver.Symbol, varname, ind string) (string, error) {
	m := s.Method
	if m == nil {
		return "", &resolver.ResolveError{Location: s.Location, Kind: "method", Class: s.Class, Member: s.Name, ArgCount: s.ArgCount}
	}
	rt, err := e.types.Resolve(m.ReturnType)
	if err != nil {
		return "", err
	}
	fn := s.SymbolName + "_Impl"
	e.Extern(methodPrototype(rt, fn, m.Instance) + ";")

	target := ""
	if m.Instance {
		target = varname + ","
	}
	call := fn + "(ctx," + target + "arguments,exception)"

	if rt.IsVoid() {
		return joinIndented(ind, call+";", "return JSValueMakeUndefined(ctx);"), nil
	}

	var sn typelib.Snippets
	result := rt.ToJSBody("result", &sn)
	e.declare(&sn)
	code := []string{rt.AssignmentName() + " result = " + rt.AssignmentCast(call) + ";"}
	code = append(code, sn.Preamble...)
	code = append(code, sn.Cleanup...)
	code = append(code, "return "+result+";")
	return joinIndented(ind, code...), nil
}

// GetterBody returns the call-site code reading a property into the C
// variable result.
func (e *Emitter) GetterBody(s *resolver.Symbol, varname, ind string) (string, error) {
	p := s.Property
	t, err := e.types.Resolve(p.Type)
	if err != nil {
		return "", err
	}
	instance := !p.IsStatic()
	fn := typelib.MethodName(s.Class, "Get_"+s.Name+"_Impl")
	e.Extern(getterPrototype(t, fn, instance) + ";")

	target := ""
	if instance {
		target = varname + ","
	}
	value := "is_" + strings.ToLower(s.Name)

	var sn typelib.Snippets
	result := t.ToJSBody(value, &sn)
	e.declare(&sn)
	code := []string{
		t.AssignmentName() + " " + value + " = " + t.AssignmentCast(fn+"(ctx,"+target+"exception)") + ";",
		"result = " + result + ";",
	}
	code = append(code, sn.Preamble...)
	code = append(code, sn.Cleanup...)
	return joinIndented(ind, code...), nil
}

// SetterBody returns the call-site code writing the script value "value" to
// a property and storing the outcome in result. A read-only property has no
// setter; the result is empty.
func (e *Emitter) SetterBody(s *resolver.Symbol, varname, ind string) (string, error) {
	p := s.Property
	if !p.Writable() {
		log.Warningf("%s: %s.%s is read-only, no setter generated", s.Location, s.Class, s.Name)
		return "", nil
	}
	t, err := e.types.Resolve(p.Type)
	if err != nil {
		return "", err
	}
	instance := !p.IsStatic()
	fn := typelib.MethodName(s.Class, "Set_"+s.Name+"_Impl")
	e.Extern(setterPrototype(t, fn, instance) + ";")

	target := ""
	if instance {
		target = varname + ","
	}

	var sn typelib.Snippets
	value := t.RealCast(t.ToNativeBody("value", &sn))
	e.declare(&sn)
	code := append([]string{}, sn.Preamble...)
	code = append(code, "auto succeeded = "+fn+"(ctx,"+target+value+",exception);")
	code = append(code, sn.Cleanup...)
	code = append(code, "result = JSValueMakeBoolean(ctx, succeeded);")
	return joinIndented(ind, code...), nil
}

// NewInstance returns the code constructing an instance of the symbol's
// class into the C variable instance. With more than one candidate
// overload, the first whose parameters all accept the script arguments is
// used.
func (e *Emitter) NewInstance(s *resolver.Symbol, ind string) (string, error) {
	code, err := e.newInstance(s, ind)
	if err != nil {
		return "", err
	}
	return strings.Join(code, "\n"), nil
}

func (e *Emitter) newInstance(s *resolver.Symbol, ind string) ([]string, error) {
	overloads := s.Overloads
	if len(overloads) == 0 && s.Method != nil {
		overloads = []*metabase.Method{s.Method}
	}
	if len(overloads) == 0 {
		return nil, &NoConstructorError{Class: s.Class}
	}
	sig, err := e.classSignature(s.Class)
	if err != nil {
		return nil, err
	}

	code := []string{
		ind + "Hyperloop::JNIEnv env;",
		ind + "jobject instance = nullptr;",
		ind + `auto javaClass = env->FindClass("` + sig + `");`,
	}

	inner := ind + indent
	var sigs []string
	for i, m := range overloads {
		sigs = append(sigs, m.Signature)
		block := []string{inner + `auto methodId = env->GetMethodID(javaClass, "<init>", "` + m.Signature + `");`}
		var tests, cleanup []string
		args := []string{"javaClass", "methodId"}
		for j, a := range m.Args {
			at, err := e.types.Resolve(a.Type)
			if err != nil {
				return nil, err
			}
			arg := "arguments[" + strconv.Itoa(j) + "]"
			value := "args$" + strconv.Itoa(j)
			tests = append(tests, at.RuntimeTest(arg, e.platform))

			var sn typelib.Snippets
			body := at.ToNativeBody(arg, &sn)
			block = append(block, indentLines(sn.Preamble, inner)...)
			cleanup = append(cleanup, sn.Cleanup...)
			e.declare(&sn)
			block = append(block, inner+at.AssignmentName()+" "+value+" = "+body+";")
			args = append(args, value)
		}
		block = append(block, indentLines(cleanup, inner)...)
		block = append(block,
			inner+"if (methodId == nullptr)",
			inner+"{",
			inner+indent+`*exception = HyperloopMakeException(ctx,"couldn't get constructor id `+s.Class+m.Signature+`");`,
			inner+"}",
			inner+"else",
			inner+"{",
			inner+indent+"instance = env->NewObject("+strings.Join(args, ",")+");",
			inner+"}",
		)

		if len(tests) > 0 {
			keyword := "if"
			if i > 0 {
				keyword = "else if"
			}
			code = append(code, ind+keyword+" ("+strings.Join(tests, " && ")+")")
		}
		code = append(code, ind+"{")
		code = append(code, block...)
		code = append(code, ind+"}")
	}

	if len(overloads[0].Args) > 0 {
		code = append(code,
			ind+"else",
			ind+"{",
			inner+`*exception = HyperloopMakeException(ctx, "Wrong argument for `+s.Class+strings.Join(sigs, " or ")+`");`,
			ind+"}",
		)
	}

	return append(code,
		ind+"if (env.CheckJavaException(ctx,exception))",
		ind+"{",
		inner+"instance = nullptr;",
		ind+"}",
	), nil
}

// Registration is the code binding native functions to properties of the
// global object in the generated entry point.
type Registration struct {
	// Symbols are the bound function names in registration order.
	Symbols []string
	Code    []string
	// Cleanup runs after the script has been evaluated.
	Cleanup []string
}

// Main returns the registration of every custom class action and declares
// the action functions as externs.
func (e *Emitter) Main() Registration {
	var reg Registration
	if e.registry == nil {
		return reg
	}
	for _, class := range e.registry.Classes() {
		for _, a := range e.registry.Actions(class) {
			reg.add(a.Name)
			e.Extern(callbackPrototype(a.Name) + ";")
		}
	}
	return reg
}

func (r *Registration) add(n string) {
	r.Symbols = append(r.Symbols, n)
	r.Code = append(r.Code,
		"// "+n,
		"auto "+n+`Property = JSStringCreateWithUTF8CString("`+n+`");`,
		"auto "+n+"Fn = JSObjectMakeFunctionWithCallback(ctx,"+n+"Property,"+n+");",
		"JSObjectSetProperty(ctx,object,"+n+"Property,"+n+"Fn,kJSPropertyAttributeReadOnly|kJSPropertyAttributeDontEnum|kJSPropertyAttributeDontDelete,nullptr);",
		"",
	)
	r.Cleanup = append(r.Cleanup, "JSStringRelease("+n+"Property);")
}

func joinIndented(ind string, lines ...string) string {
	return strings.Join(indentLines(lines, ind), "\n")
}
