package typelib

import (
	"strings"
	"testing"
)

func TestJNIType(t *testing.T) {
	r := newTestResolver()
	tests := map[string]string{
		"void":               "void",
		"boolean":            "jboolean",
		"byte":               "jbyte",
		"char":               "jchar",
		"int":                "jint",
		"long":               "jlong",
		"double":             "jdouble",
		"int[]":              "jintArray",
		"boolean[]":          "jbooleanArray",
		"char[]":             "jcharArray",
		"int[][]":            "jobjectArray",
		"java.lang.String":   "jobject",
		"java.lang.String[]": "jobjectArray",
	}
	for name, want := range tests {
		if got := r.MustResolve(name).JNIType(); got != want {
			t.Errorf("%s JNIType() = %q, want %q", name, got, want)
		}
	}
}

func TestCallType(t *testing.T) {
	r := newTestResolver()
	tests := map[string]string{
		"void":             "Void",
		"boolean":          "Boolean",
		"char":             "Char",
		"long":             "Long",
		"float":            "Float",
		"int[]":            "Object",
		"java.lang.String": "Object",
	}
	for name, want := range tests {
		if got := r.MustResolve(name).CallType(); got != want {
			t.Errorf("%s CallType() = %q, want %q", name, got, want)
		}
	}
}

func TestAssignmentCast(t *testing.T) {
	r := newTestResolver()
	tests := []struct {
		name     string
		assign   string
		expected string
	}{
		{"boolean", "bool", "(bool)(v==JNI_TRUE ? true : false)"},
		{"byte", "unsigned char", "(unsigned char)v"},
		{"char", "jchar", "(jchar)v"},
		{"int", "int", "(int)v"},
		{"double", "double", "(double)v"},
		{"java.lang.String", "jobject", "v"},
		{"int[]", "jintArray", "v"},
	}
	for _, tt := range tests {
		typ := r.MustResolve(tt.name)
		if got := typ.AssignmentName(); got != tt.assign {
			t.Errorf("%s AssignmentName() = %q, want %q", tt.name, got, tt.assign)
		}
		if got := typ.AssignmentCast("v"); got != tt.expected {
			t.Errorf("%s AssignmentCast() = %q, want %q", tt.name, got, tt.expected)
		}
	}
}

func TestToNativeBody(t *testing.T) {
	r := newTestResolver()
	tests := map[string]string{
		"char[]":             "JSValueTo_JavaCharArray(ctx,v,exception)",
		"int[]":              "JSValueTo_JavaIntArray(ctx,v,exception)",
		"double[]":           "JSValueTo_JavaDoubleArray(ctx,v,exception)",
		"boolean[]":          "JSValueTo_JavaBooleanArray(ctx,v,exception)",
		"java.lang.String[]": "JSValueTo_JavaObject(ctx,v,exception)",
		"java.lang.String":   "JSValueTo_JavaObject(ctx,v,exception)",
		"boolean":            "(jboolean)JSValueToBoolean(ctx,v)",
		"int":                "(jint)JSValueToNumber(ctx,v,exception)",
	}
	for name, want := range tests {
		var s Snippets
		if got := r.MustResolve(name).ToNativeBody("v", &s); got != want {
			t.Errorf("%s ToNativeBody() = %q, want %q", name, got, want)
		}
		if len(s.Preamble) != 0 || len(s.Cleanup) != 0 {
			t.Errorf("%s: unexpected snippets %+v", name, s)
		}
	}
}

func TestToNativeBodyChar(t *testing.T) {
	r := newTestResolver()
	var s Snippets
	got := r.MustResolve("char").ToNativeBody("arguments[0]", &s)
	if got != "arguments_0_$char" {
		t.Errorf("ToNativeBody = %q", got)
	}
	if len(s.Preamble) != 2 || !strings.Contains(s.Preamble[0], "JSValueToStringCopy(ctx,arguments[0],exception)") {
		t.Errorf("preamble = %q", s.Preamble)
	}
	if len(s.Cleanup) != 1 || s.Cleanup[0] != "JSStringRelease(arguments_0_$str);" {
		t.Errorf("cleanup = %q", s.Cleanup)
	}

	// A nil collector is allowed.
	if got := r.MustResolve("char").ToNativeBody("x", nil); got != "x$char" {
		t.Errorf("nil snippets: %q", got)
	}
}

func TestToJSBody(t *testing.T) {
	r := newTestResolver()
	tests := map[string]string{
		"void":               "JSValueMakeUndefined(ctx)",
		"boolean":            "JSValueMakeBoolean(ctx,v)",
		"int":                "JSValueMakeNumber(ctx,(double)v)",
		"char":               "HyperloopMakeStringFromJChar(ctx,(jchar *)&v,1,exception)",
		"char[]":             "JavaCharArray_ToJSValue(ctx,v,exception)",
		"long[]":             "JavaLongArray_ToJSValue(ctx,v,exception)",
		"boolean[]":          "JavaBooleanArray_ToJSValue(ctx,v,exception)",
		"java.lang.String[]": "JavaObjectArray_ToJSValue(ctx,v,exception)",
		"java.lang.String":   "java_lang_String_ToJSValue(ctx,v,exception)",
	}
	for name, want := range tests {
		if got := r.MustResolve(name).ToJSBody("v", nil); got != want {
			t.Errorf("%s ToJSBody() = %q, want %q", name, got, want)
		}
	}
}

func TestToJSBodyDeclares(t *testing.T) {
	r := newTestResolver()
	var s Snippets
	str := r.MustResolve("java.lang.String")
	str.ToJSBody("a", &s)
	str.ToJSBody("b", &s)
	r.MustResolve("int").ToJSBody("c", &s)
	if len(s.Declare) != 1 {
		t.Fatalf("declare = %q, want one entry", s.Declare)
	}
	if s.Declare[0] != "JSValueRef java_lang_String_ToJSValue(JSContextRef,jobject,JSValueRef*);" {
		t.Errorf("declare = %q", s.Declare[0])
	}
}

func TestJNICall(t *testing.T) {
	r := newTestResolver()
	tests := []struct {
		typ      string
		instance bool
		args     []string
		want     string
	}{
		{"int", true, nil, "env->CallIntMethod(object,mid)"},
		{"int", false, []string{"a0", "a1"}, "env->CallStaticIntMethod(cls,mid,a0,a1)"},
		{"void", true, []string{"a0"}, "env->CallVoidMethod(object,mid,a0)"},
		{"char[]", true, nil, "reinterpret_cast<jcharArray>(env->CallObjectMethod(object,mid))"},
		{"java.lang.String", false, nil, "env->CallStaticObjectMethod(cls,mid)"},
	}
	for _, tt := range tests {
		got := r.MustResolve(tt.typ).JNICall(tt.instance, "env", "cls", "object", "mid", tt.args)
		if got != tt.want {
			t.Errorf("%s JNICall = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestFieldAccessors(t *testing.T) {
	r := newTestResolver()
	if got := r.MustResolve("int").FieldGetter(false, "env", "cls", "obj", "fid"); got != "env->GetStaticIntField(cls,fid)" {
		t.Errorf("getter = %q", got)
	}
	if got := r.MustResolve("double[]").FieldGetter(true, "env", "cls", "obj", "fid"); got != "reinterpret_cast<jdoubleArray>(env->GetObjectField(obj,fid))" {
		t.Errorf("array getter = %q", got)
	}
	if got := r.MustResolve("boolean").FieldSetter(true, "env", "cls", "obj", "fid", "value"); got != "env->SetBooleanField(obj,fid,value)" {
		t.Errorf("setter = %q", got)
	}
}

func TestRuntimeTest(t *testing.T) {
	r := newTestResolver()
	tests := []struct {
		typ      string
		platform string
		want     string
	}{
		{"boolean", "java", "JSValueIsBoolean(ctx,v)"},
		{"int", "java", "JSValueIsNumber(ctx,v)"},
		{"char", "java", "JSValueIsString(ctx,v)"},
		{"char[]", "java", "HyperloopJSValueIsArray(ctx,v)"},
		{"com.example.Shape", "java", `env.IsInstanceOf(ctx,"Lcom/example/Shape;",v,exception)`},
		{"com.example.Shape", "android", `env.IsInstanceOf(ctx,"com/example/Shape",v,exception)`},
		{"java.lang.String", "java", `(JSValueIsString(ctx,v) || env.IsInstanceOf(ctx,"Ljava/lang/String;",v,exception))`},
	}
	for _, tt := range tests {
		if got := r.MustResolve(tt.typ).RuntimeTest("v", tt.platform); got != tt.want {
			t.Errorf("%s/%s RuntimeTest = %q, want %q", tt.typ, tt.platform, got, tt.want)
		}
	}
}
