package typelib

import (
	"slices"
	"testing"
)

func TestSimpleSignature(t *testing.T) {
	r := newTestResolver()
	tests := map[string]string{
		"java.lang.String":     "java/lang/String",
		"java.lang.String[]":   "[Ljava/lang/String;",
		"int":                  "I",
		"int[]":                "[I",
		"com.example.Circle":   "com/example/Circle",
		"com.example.Circle[]": "[Lcom/example/Circle;",
	}
	for name, want := range tests {
		if got := r.MustResolve(name).SimpleSignature(); got != want {
			t.Errorf("%s SimpleSignature() = %q, want %q", name, got, want)
		}
	}
}

func TestSignatureRoundTrip(t *testing.T) {
	r := newTestResolver()
	names := append(r.Library().Names(), "int", "boolean[]", "java.lang.String[][]", "double[][]")
	for _, name := range names {
		sig := r.MustResolve(name).Signature()
		got, err := ParseSignature(sig)
		if err != nil {
			t.Errorf("ParseSignature(%q): %v", sig, err)
			continue
		}
		if got != name {
			t.Errorf("ParseSignature(%q) = %q, want %q", sig, got, name)
		}
	}
}

func TestParseSignatureErrors(t *testing.T) {
	for _, sig := range []string{"", "Ljava/lang/String", "Q", "II", "["} {
		if _, err := ParseSignature(sig); err == nil {
			t.Errorf("ParseSignature(%q) should fail", sig)
		}
	}
}

func TestParseMethodSignature(t *testing.T) {
	params, ret, err := ParseMethodSignature("(I[Ljava/lang/String;D)Ljava/lang/Class;")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"int", "java.lang.String[]", "double"}
	if !slices.Equal(params, want) {
		t.Errorf("params = %v, want %v", params, want)
	}
	if ret != "java.lang.Class" {
		t.Errorf("ret = %q", ret)
	}

	params, ret, err = ParseMethodSignature("()V")
	if err != nil || len(params) != 0 || ret != "void" {
		t.Errorf("()V parsed as %v %q %v", params, ret, err)
	}
}

func TestMethodSignature(t *testing.T) {
	r := newTestResolver()
	tests := []struct {
		args []string
		ret  string
		want string
	}{
		{nil, "", "()V"},
		{nil, "void", "()V"},
		{[]string{"int", "double"}, "boolean", "(ID)Z"},
		{[]string{"java.lang.String"}, "char[]", "(Ljava/lang/String;)[C"},
	}
	for _, tt := range tests {
		got, err := r.MethodSignature(tt.args, tt.ret)
		if err != nil {
			t.Errorf("MethodSignature(%v, %q): %v", tt.args, tt.ret, err)
			continue
		}
		if got != tt.want {
			t.Errorf("MethodSignature(%v, %q) = %q, want %q", tt.args, tt.ret, got, tt.want)
		}
	}

	if _, err := r.MethodSignature([]string{"com.nowhere.X"}, "void"); err == nil {
		t.Error("unknown parameter type should fail")
	}
}

func TestClassSignature(t *testing.T) {
	r := newTestResolver()
	got, _ := r.ClassSignature("java.lang.String", "android")
	if got != "java/lang/String" {
		t.Errorf("android = %q", got)
	}
	got, _ = r.ClassSignature("java.lang.String", "java")
	if got != "Ljava/lang/String;" {
		t.Errorf("java = %q", got)
	}
}
