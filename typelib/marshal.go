package typelib

import (
	"slices"
	"strings"
)

// Snippets collects the auxiliary code a marshal body needs. Callers splice
// Preamble before the statement using the body, Cleanup after it, and
// Declare into the file header.
type Snippets struct {
	Preamble []string
	Cleanup  []string
	Declare  []string
}

// Declares adds an extern declaration once.
func (s *Snippets) Declares(decl string) {
	if s == nil || slices.Contains(s.Declare, decl) {
		return
	}
	s.Declare = append(s.Declare, decl)
}

func (s *Snippets) preamble(lines ...string) {
	if s != nil {
		s.Preamble = append(s.Preamble, lines...)
	}
}

func (s *Snippets) cleanup(lines ...string) {
	if s != nil {
		s.Cleanup = append(s.Cleanup, lines...)
	}
}

var callTypes = map[byte]string{
	'V': "Void",
	'Z': "Boolean",
	'B': "Byte",
	'C': "Char",
	'S': "Short",
	'I': "Int",
	'J': "Long",
	'F': "Float",
	'D': "Double",
}

// CallType is the infix of the JNI Call<X>Method family.
func (t *Type) CallType() string {
	if ct, ok := callTypes[t.code]; ok {
		return ct
	}
	return "Object"
}

// JNIType is the C type of a value as JNI hands it out.
func (t *Type) JNIType() string {
	switch t.kind {
	case Array:
		if t.elem.kind == Array || t.elem.kind == Object {
			return "jobjectArray"
		}
		return t.elem.JNIType() + "Array"
	case Object:
		return "jobject"
	case Boolean:
		return "jboolean"
	}
	if t.IsVoid() {
		return "void"
	}
	return "j" + t.name
}

// Cast is the type used for reinterpret_cast around array results.
func (t *Type) Cast() string { return t.JNIType() }

// AssignmentName is the C++ type a converted value is stored in.
func (t *Type) AssignmentName() string {
	switch {
	case t.kind == Boolean:
		return "bool"
	case t.code == 'B':
		return "unsigned char"
	case t.IsChar():
		return "jchar"
	case t.kind == Primitive:
		return t.name
	}
	return t.JNIType()
}

// AssignmentCast wraps v so it can be stored in AssignmentName. JNI hands
// booleans back as an integer truth value.
func (t *Type) AssignmentCast(v string) string {
	switch {
	case t.kind == Boolean:
		return "(bool)(" + v + "==JNI_TRUE ? true : false)"
	case t.code == 'B':
		return "(unsigned char)" + v
	case t.kind == Primitive && !t.IsVoid():
		return "(" + t.AssignmentName() + ")" + v
	}
	return v
}

// RealCast casts a converted value to the JNI type expected by a field or
// argument slot.
func (t *Type) RealCast(v string) string {
	if t.kind == Primitive || t.kind == Boolean {
		return "(" + t.JNIType() + ")" + v
	}
	return v
}

// ValueAtFail is what a wrapper returns when the call aborted.
func (t *Type) ValueAtFail() string {
	switch t.kind {
	case Boolean:
		return "false"
	case Primitive:
		if t.IsVoid() {
			return ""
		}
		return "0"
	}
	return "nullptr"
}

// ToNativeName is the generic script to VM conversion entry point.
func (t *Type) ToNativeName() string { return "JSValueTo_JavaObject" }

// ToJSValueName is the function converting a VM value of this type into a
// script value.
func (t *Type) ToJSValueName() string {
	switch t.kind {
	case Array:
		e := t.elem
		switch {
		case e.IsChar():
			return "JavaCharArray_ToJSValue"
		case e.IsNumber():
			return "Java" + e.CallType() + "Array_ToJSValue"
		case e.kind == Boolean:
			return "JavaBooleanArray_ToJSValue"
		}
		return "JavaObjectArray_ToJSValue"
	case Object:
		return SanitizeSymbolName(t.name) + "_ToJSValue"
	case Boolean:
		return "JSValueMakeBoolean"
	}
	if t.IsChar() {
		return "HyperloopMakeStringFromJChar"
	}
	return "JSValueMakeNumber"
}

// ToNativeBody returns an expression converting the script value v into
// this type's JNI representation.
func (t *Type) ToNativeBody(v string, s *Snippets) string {
	switch t.kind {
	case Array:
		e := t.elem
		switch {
		case e.IsChar():
			return "JSValueTo_JavaCharArray(ctx," + v + ",exception)"
		case e.IsNumber():
			return "JSValueTo_Java" + e.CallType() + "Array(ctx," + v + ",exception)"
		case e.kind == Boolean:
			return "JSValueTo_JavaBooleanArray(ctx," + v + ",exception)"
		}
		return "JSValueTo_JavaObject(ctx," + v + ",exception)"
	case Object:
		return "JSValueTo_JavaObject(ctx," + v + ",exception)"
	case Boolean:
		return "(jboolean)JSValueToBoolean(ctx," + v + ")"
	}
	if t.IsChar() {
		n := SanitizeSymbolName(v)
		s.preamble(
			"auto "+n+"$str = JSValueToStringCopy(ctx,"+v+",exception);",
			"jchar "+n+"$char = JSStringGetLength("+n+"$str) > 0 ? JSStringGetCharactersPtr("+n+"$str)[0] : 0;",
		)
		s.cleanup("JSStringRelease(" + n + "$str);")
		return n + "$char"
	}
	return "(" + t.JNIType() + ")JSValueToNumber(ctx," + v + ",exception)"
}

// ToJSBody returns an expression converting the JNI value v into a script
// value.
func (t *Type) ToJSBody(v string, s *Snippets) string {
	switch t.kind {
	case Array:
		name := t.ToJSValueName()
		if t.elem.IsChar() {
			s.Declares("JSValueRef " + name + "(JSContextRef,jcharArray,JSValueRef*);")
		}
		return name + "(ctx," + v + ",exception)"
	case Object:
		name := t.ToJSValueName()
		s.Declares("JSValueRef " + name + "(JSContextRef,jobject,JSValueRef*);")
		return name + "(ctx," + v + ",exception)"
	case Boolean:
		return "JSValueMakeBoolean(ctx," + v + ")"
	}
	switch {
	case t.IsVoid():
		return "JSValueMakeUndefined(ctx)"
	case t.IsChar():
		return "HyperloopMakeStringFromJChar(ctx,(jchar *)&" + v + ",1,exception)"
	}
	return "JSValueMakeNumber(ctx,(double)" + v + ")"
}

func (t *Type) castCall(call string) string {
	if t.kind == Array {
		return "reinterpret_cast<" + t.Cast() + ">(" + call + ")"
	}
	return call
}

func target(instance bool, cls, object string) (string, string) {
	if instance {
		return "", object
	}
	return "Static", cls
}

// JNICall formats a Call<Static?><X>Method invocation.
func (t *Type) JNICall(instance bool, env, cls, object, mid string, args []string) string {
	static, on := target(instance, cls, object)
	parts := append([]string{on, mid}, args...)
	return t.castCall(env + "->Call" + static + t.CallType() + "Method(" + strings.Join(parts, ",") + ")")
}

// FieldGetter formats a Get<Static?><X>Field read.
func (t *Type) FieldGetter(instance bool, env, cls, object, fid string) string {
	static, on := target(instance, cls, object)
	return t.castCall(env + "->Get" + static + t.CallType() + "Field(" + on + "," + fid + ")")
}

// FieldSetter formats a Set<Static?><X>Field write.
func (t *Type) FieldSetter(instance bool, env, cls, object, fid, value string) string {
	static, on := target(instance, cls, object)
	return env + "->Set" + static + t.CallType() + "Field(" + on + "," + fid + "," + value + ")"
}

// RuntimeTest returns a C++ condition that is true when the script value v
// can be passed as this type. Constructors use it to pick an overload.
func (t *Type) RuntimeTest(v string, platform string) string {
	switch {
	case t.kind == Boolean:
		return "JSValueIsBoolean(ctx," + v + ")"
	case t.IsChar():
		return "JSValueIsString(ctx," + v + ")"
	case t.IsNumber():
		return "JSValueIsNumber(ctx," + v + ")"
	case t.kind == Array:
		return "HyperloopJSValueIsArray(ctx," + v + ")"
	}
	sig := t.Signature()
	if platform == "android" {
		sig = t.SimpleSignature()
	}
	test := "env.IsInstanceOf(ctx,\"" + sig + "\"," + v + ",exception)"
	if t.IsString() {
		return "(JSValueIsString(ctx," + v + ") || " + test + ")"
	}
	return test
}
