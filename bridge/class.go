package bridge

import (
	"sort"
	"strconv"
	"strings"

	"github.com/chazu/loopbridge/customclass"
	"github.com/chazu/loopbridge/metabase"
	"github.com/chazu/loopbridge/resolver"
	"github.com/chazu/loopbridge/typelib"
)

// ClassFile renders the bridge source of class. Only symbols owned by class
// are emitted; the others are ignored. The emitter's externs are reset
// first, so the returned text is self-contained.
func (e *Emitter) ClassFile(class string, symbols []*resolver.Symbol) (string, error) {
	e.Reset()

	code, err := e.isInstanceOf(class)
	if err != nil {
		return "", err
	}

	actions, err := e.actionPairs(class)
	if err != nil {
		return "", err
	}
	code = append(code, actions...)

	var methods, properties, constructors []*resolver.Symbol
	for _, s := range symbols {
		if s.Class != class {
			continue
		}
		switch s.Kind {
		case resolver.InstanceMethod, resolver.StaticMethod:
			methods = append(methods, s)
		case resolver.Getter, resolver.Setter:
			properties = append(properties, s)
		case resolver.Constructor:
			constructors = append(constructors, s)
		}
	}

	done := make(map[string]bool)
	for _, s := range sortByName(methods) {
		fn := s.SymbolName + "_Impl"
		if done[fn] || s.Method == nil {
			continue
		}
		done[fn] = true
		lines, err := e.methodImpl(class, s.Method, fn)
		if err != nil {
			return "", err
		}
		code = append(code, lines...)
	}

	for _, s := range sortByName(properties) {
		if done["property:"+s.Name] {
			continue
		}
		done["property:"+s.Name] = true
		lines, err := e.propertyImpl(class, s.Name, s.Property)
		if err != nil {
			return "", err
		}
		code = append(code, lines...)
	}

	for _, s := range sortByName(constructors) {
		if done[s.SymbolName] {
			continue
		}
		done[s.SymbolName] = true
		lines, err := e.constructor(s)
		if err != nil {
			return "", err
		}
		code = append(code, lines...)
	}

	log.Debugf("%s: %d methods, %d properties, %d constructors", class, len(methods), len(properties), len(constructors))
	return e.Header() + strings.Join(code, "\n"), nil
}

func sortByName(symbols []*resolver.Symbol) []*resolver.Symbol {
	sort.SliceStable(symbols, func(i, j int) bool { return symbols[i].SymbolName < symbols[j].SymbolName })
	return symbols
}

func (e *Emitter) isInstanceOf(class string) ([]string, error) {
	sig, err := e.classSignature(class)
	if err != nil {
		return nil, err
	}
	return []string{
		"EXPORTAPI bool " + typelib.SanitizeSymbolName(class) + "_IsInstanceOf(JSContextRef ctx, jobject object, JSValueRef* exception)",
		"{",
		indent + "Hyperloop::JNIEnv env;",
		indent + `auto clazz = env->FindClass("` + sig + `");`,
		indent + "auto isInstance = env->IsInstanceOf(object, clazz);",
		indent + "env->DeleteLocalRef(clazz);",
		indent + "if (env.CheckJavaException(ctx, exception)) {",
		indent + indent + "return false;",
		indent + "}",
		indent + "return isInstance == JNI_TRUE ? true : false;",
		"}",
		"",
	}, nil
}

func instanceParam(instance bool) string {
	if instance {
		return "jobject object, "
	}
	return ""
}

func methodPrototype(rt *typelib.Type, fn string, instance bool) string {
	return "EXPORTAPI " + rt.Cast() + " " + fn + "(JSContextRef ctx, " + instanceParam(instance) + "const JSValueRef arguments[], JSValueRef* exception)"
}

func getterPrototype(t *typelib.Type, fn string, instance bool) string {
	return "EXPORTAPI " + t.Cast() + " " + fn + "(JSContextRef ctx, " + instanceParam(instance) + "JSValueRef* exception)"
}

func setterPrototype(t *typelib.Type, fn string, instance bool) string {
	return "EXPORTAPI bool " + fn + "(JSContextRef ctx, " + instanceParam(instance) + t.Cast() + " value, JSValueRef* exception)"
}

func constructorPrototype(fn string) string {
	return "EXPORTAPI jobject " + fn + "(JSContextRef ctx, const JSValueRef arguments[], JSValueRef* exception)"
}

func failReturn(t *typelib.Type) string {
	if v := t.ValueAtFail(); v != "" {
		return "return " + v + ";"
	}
	return "return;"
}

// methodImpl is the wrapper that looks up one overload by its exact
// signature and invokes it.
func (e *Emitter) methodImpl(class string, m *metabase.Method, fn string) ([]string, error) {
	rt, err := e.types.Resolve(m.ReturnType)
	if err != nil {
		return nil, err
	}

	code := []string{
		"/* " + m.ReturnType + " " + class + "." + m.Name + m.Signature + " */",
		methodPrototype(rt, fn, m.Instance),
		"{",
		indent + `LOGD("` + fn + `");`,
		indent + "Hyperloop::JNIEnv env;",
	}

	start := 0
	if m.Instance {
		start = 1
	}
	var cleanup, args []string
	for i, a := range m.Args {
		at, err := e.types.Resolve(a.Type)
		if err != nil {
			return nil, err
		}
		value := "args$" + strconv.Itoa(i)
		args = append(args, value)

		var sn typelib.Snippets
		body := at.ToNativeBody("arguments["+strconv.Itoa(i+start)+"]", &sn)
		code = append(code, indentLines(sn.Preamble, indent)...)
		cleanup = append(cleanup, sn.Cleanup...)
		e.declare(&sn)
		code = append(code, indent+at.AssignmentName()+" "+value+" = "+body+";")
	}

	if m.Instance {
		code = append(code,
			indent+"auto cls = env->GetObjectClass(object);",
			indent+`auto mid = env->GetMethodID(cls,"`+m.Name+`","`+m.Signature+`");`,
		)
	} else {
		sig, err := e.classSignature(class)
		if err != nil {
			return nil, err
		}
		code = append(code,
			indent+`auto cls = env->FindClass("`+sig+`");`,
			indent+`auto mid = env->GetStaticMethodID(cls,"`+m.Name+`","`+m.Signature+`");`,
		)
	}

	code = append(code,
		indent+"if (mid == nullptr)",
		indent+"{",
		indent+indent+`*exception = HyperloopMakeException(ctx,"couldn't get method id `+class+"."+m.Name+m.Signature+`");`,
		indent+indent+failReturn(rt),
		indent+"}",
	)

	call := rt.JNICall(m.Instance, "env", "cls", "object", "mid", args)
	if rt.IsVoid() {
		code = append(code, indent+call+";")
	} else {
		code = append(code, indent+rt.Cast()+" result = "+call+";")
	}
	code = append(code, exceptionGuard(cleanup, failReturn(rt))...)
	code = append(code, indentLines(cleanup, indent)...)
	if !rt.IsVoid() {
		code = append(code, indent+"return result;")
	}
	return append(code, "}", ""), nil
}

// exceptionGuard returns fail, after releasing the converted arguments,
// when the VM call just made left an exception pending.
func exceptionGuard(cleanup []string, fail string) []string {
	code := []string{
		indent + "if (env.CheckJavaException(ctx,exception))",
		indent + "{",
	}
	code = append(code, indentLines(cleanup, indent+indent)...)
	return append(code, indent+indent+fail, indent+"}")
}

// propertyImpl emits the getter of a field and, when the field is
// writable, its setter.
func (e *Emitter) propertyImpl(class, name string, p *metabase.Property) ([]string, error) {
	t, err := e.types.Resolve(p.Type)
	if err != nil {
		return nil, err
	}
	instance := !p.IsStatic()

	var lookup []string
	if instance {
		lookup = []string{
			indent + "auto cls = env->GetObjectClass(object);",
			indent + `auto fid = env->GetFieldID(cls,"` + name + `","` + t.Signature() + `");`,
		}
	} else {
		sig, err := e.fieldClassSignature(class, name)
		if err != nil {
			return nil, err
		}
		lookup = []string{
			indent + `auto cls = env->FindClass("` + sig + `");`,
			indent + `auto fid = env->GetStaticFieldID(cls,"` + name + `","` + t.Signature() + `");`,
		}
	}
	fieldCheck := func(fail string) []string {
		return []string{
			indent + "if (fid == nullptr)",
			indent + "{",
			indent + indent + `*exception = HyperloopMakeException(ctx,"couldn't get field id ` + class + "." + name + " " + t.Signature() + `");`,
			indent + indent + fail,
			indent + "}",
		}
	}

	get := typelib.MethodName(class, "Get_"+name+"_Impl")
	code := []string{
		"/* " + p.Type + " " + class + "." + name + " (Getter) */",
		getterPrototype(t, get, instance),
		"{",
		indent + `LOGD("` + get + `");`,
		indent + "Hyperloop::JNIEnv env;",
	}
	code = append(code, lookup...)
	code = append(code, fieldCheck(failReturn(t))...)
	code = append(code, indent+t.Cast()+" result = "+t.FieldGetter(instance, "env", "cls", "object", "fid")+";")
	code = append(code, exceptionGuard(nil, failReturn(t))...)
	code = append(code, indent+"return result;", "}", "")

	if !p.Writable() {
		return code, nil
	}

	set := typelib.MethodName(class, "Set_"+name+"_Impl")
	code = append(code,
		"/* "+p.Type+" "+class+"."+name+" (Setter) */",
		setterPrototype(t, set, instance),
		"{",
		indent+`LOGD("`+set+`");`,
		indent+"Hyperloop::JNIEnv env;",
	)
	code = append(code, lookup...)
	code = append(code, fieldCheck("return false;")...)
	code = append(code, indent+t.FieldSetter(instance, "env", "cls", "object", "fid", "value")+";")
	code = append(code, exceptionGuard(nil, "return false;")...)
	code = append(code, indent+"return true;", "}", "")
	return code, nil
}

func (e *Emitter) constructor(s *resolver.Symbol) ([]string, error) {
	body, err := e.newInstance(s, indent)
	if err != nil {
		return nil, err
	}
	comment := s.Class + "." + metabase.ConstructorName
	if s.Method != nil {
		comment += s.Method.Signature
	}
	code := []string{
		"/* " + comment + " */",
		constructorPrototype(s.SymbolName),
		"{",
		indent + `LOGD("` + s.SymbolName + `");`,
	}
	code = append(code, body...)
	return append(code, indent+"return instance;", "}", ""), nil
}

// actionPairs emits, for each scripted method of a custom class, the
// function the script calls to install its callback and the JNI export the
// VM calls to run it.
func (e *Emitter) actionPairs(class string) ([]string, error) {
	if e.registry == nil {
		return nil, nil
	}
	actions := e.registry.Actions(class)
	if len(actions) == 0 {
		return nil, nil
	}
	sig, err := e.classSignature(class)
	if err != nil {
		return nil, err
	}
	super := e.lib.Root()
	if c := e.lib.Class(class); c != nil && c.SuperClass != "" {
		super = c.SuperClass
	}

	var code []string
	for _, a := range actions {
		lines, err := e.actionPair(class, super, sig, a)
		if err != nil {
			return nil, err
		}
		code = append(code, lines...)
	}
	return append(code, ""), nil
}

func (e *Emitter) actionPair(class, super, classSig string, a customclass.Action) ([]string, error) {
	m := a.Target
	slot := typelib.ActionSlot(a.Method, a.Index)
	callback := slot + "_Action"

	code := []string{
		"// " + class + "." + a.Method + m.Signature,
		"EXPORTAPI JSValueRef " + a.Name + "(JSContextRef ctx, JSObjectRef function, JSObjectRef object, size_t argumentCount, const JSValueRef arguments[], JSValueRef* exception)",
		"{",
		indent + `LOGD("` + a.Name + `");`,
		indent + "Hyperloop::JNIEnv env;",
		indent + "if (argumentCount < 1)",
		indent + "{",
		indent + indent + `*exception = HyperloopMakeException(ctx, "wrong number of arguments passed to ` + a.Name + `");`,
		indent + indent + "return JSValueMakeUndefined(ctx);",
		indent + "}",
		indent + "JSValueRef func = arguments[0];",
		indent + "JSValueProtect(ctx, func);",
		indent + `jclass cls = env->FindClass("` + classSig + `");`,
		indent + `jmethodID mid = env->GetStaticMethodID(cls, "` + slot + `", "(JJ)V");`,
		indent + "if (mid == nullptr)",
		indent + "{",
		indent + indent + `*exception = HyperloopMakeException(ctx, "wrong method id for ` + slot + `");`,
		indent + indent + "return JSValueMakeUndefined(ctx);",
		indent + "}",
		indent + "env->CallStaticVoidMethod(cls,mid,(jlong)func, (jlong)exception);",
		indent + "return JSValueMakeBoolean(ctx, !env.CheckJavaException(ctx,exception));",
		"}",
		"",
	}

	toJSValue := typelib.SanitizeSymbolName(class) + "_ToJSValue"
	superToJSValue := typelib.SanitizeSymbolName(super) + "_ToJSValue"
	e.Extern("JSValueRef " + toJSValue + "(JSContextRef ctx, jobject instance, JSValueRef *exception);")
	e.Extern("JSValueRef " + superToJSValue + "(JSContextRef ctx, jobject instance, JSValueRef *exception);")

	var params, args []string
	for j, arg := range m.Args {
		at, err := e.types.Resolve(arg.Type)
		if err != nil {
			return nil, err
		}
		name := "arg" + strconv.Itoa(j)
		params = append(params, ", "+at.JNIType()+" "+name)
		var sn typelib.Snippets
		args = append(args, at.ToJSBody(name, &sn))
		e.declare(&sn)
	}
	rt, err := e.types.Resolve(m.ReturnType)
	if err != nil {
		return nil, err
	}

	code = append(code,
		"// "+class+"."+callback,
		"EXPORTAPI "+rt.JNIType()+" JNICALL "+typelib.NativeMethodName(class, callback)+"(JNIEnv * env, jobject obj, jlong action, jlong excep"+strings.Join(params, "")+")",
		"{",
		indent+`LOGD("`+class+"."+callback+`");`,
		indent+"auto func = (JSValueRef)action;",
		indent+"JSValueRef * exception = (JSValueRef*)excep;",
		indent+"auto ctx = HyperloopGlobalContext();",
		indent+"auto instance = JSValueToObject(ctx, "+toJSValue+"(ctx, obj, exception), exception);",
		indent+`auto superProperty = JSStringCreateWithUTF8CString("super");`,
		indent+"auto superObj = "+superToJSValue+"(ctx, obj, exception);",
		indent+"JSObjectSetProperty(ctx, instance, superProperty, superObj, kJSPropertyAttributeReadOnly|kJSPropertyAttributeDontEnum|kJSPropertyAttributeDontDelete, exception);",
		indent+"JSStringRelease(superProperty);",
	)
	if len(args) > 0 {
		code = append(code, indent+"JSValueRef args[] = {"+strings.Join(args, ",")+"};")
	} else {
		code = append(code, indent+"JSValueRef* args = NULL;")
	}
	code = append(code, indent+"JSValueRef result = JSObjectCallAsFunction(ctx, JSValueToObject(ctx, func, exception), instance, "+strconv.Itoa(len(args))+", args, exception);")

	if rt.IsVoid() {
		code = append(code, indent+"return;")
		return append(code, "}", ""), nil
	}

	var sn typelib.Snippets
	native := rt.ToNativeBody("result", &sn)
	e.declare(&sn)
	code = append(code,
		indent+"if (JSValueIsNull(ctx, result) || JSValueIsUndefined(ctx, result))",
		indent+"{",
		indent+indent+"return "+rt.ValueAtFail()+";",
		indent+"}",
		indent+"else",
		indent+"{",
	)
	code = append(code, indentLines(sn.Preamble, indent+indent)...)
	if len(sn.Cleanup) > 0 {
		code = append(code, indent+indent+rt.JNIType()+" value = "+native+";")
		code = append(code, indentLines(sn.Cleanup, indent+indent)...)
		code = append(code, indent+indent+"return value;")
	} else {
		code = append(code, indent+indent+"return "+native+";")
	}
	return append(code, indent+"}", "}", ""), nil
}
