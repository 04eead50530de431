package typelib

import (
	"errors"
	"testing"

	"github.com/chazu/loopbridge/metabase/metabasetest"
)

func newTestResolver() *Resolver {
	return NewResolver(metabasetest.Library())
}

func TestResolveClassification(t *testing.T) {
	r := newTestResolver()
	tests := []struct {
		name string
		kind Kind
		sig  string
	}{
		{"boolean", Boolean, "Z"},
		{"byte", Primitive, "B"},
		{"char", Primitive, "C"},
		{"short", Primitive, "S"},
		{"int", Primitive, "I"},
		{"long", Primitive, "J"},
		{"float", Primitive, "F"},
		{"double", Primitive, "D"},
		{"void", Primitive, "V"},
		{"int[]", Array, "[I"},
		{"int[][]", Array, "[[I"},
		{"java.lang.String", Object, "Ljava/lang/String;"},
		{"java.lang.String[]", Array, "[Ljava/lang/String;"},
		{"com.example.Shape", Object, "Lcom/example/Shape;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typ, err := r.Resolve(tt.name)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", tt.name, err)
			}
			if typ.Kind() != tt.kind {
				t.Errorf("kind = %v, want %v", typ.Kind(), tt.kind)
			}
			if got := typ.Signature(); got != tt.sig {
				t.Errorf("Signature() = %q, want %q", got, tt.sig)
			}
		})
	}
}

func TestResolveUnknown(t *testing.T) {
	r := newTestResolver()
	for _, name := range []string{"com.nowhere.Missing", "com.nowhere.Missing[]", ""} {
		if _, err := r.Resolve(name); !errors.Is(err, ErrUnknownType) {
			t.Errorf("Resolve(%q) error = %v, want ErrUnknownType", name, err)
		}
	}
}

func TestResolveCaches(t *testing.T) {
	r := newTestResolver()
	a := r.MustResolve("java.lang.String[]")
	b := r.MustResolve("java.lang.String[]")
	if a != b {
		t.Error("resolver should return the cached descriptor")
	}
	if a.Elem() != r.MustResolve("java.lang.String") {
		t.Error("array element should share the cached element descriptor")
	}
}

func TestResolveSeesLateClasses(t *testing.T) {
	r := newTestResolver()
	if _, err := r.Resolve("com.test.Late"); err == nil {
		t.Fatal("expected unknown type before registration")
	}
	r.Library().Add("com.test.Late", metabasetest.Library().Class("java.lang.Runnable"))
	if _, err := r.Resolve("com.test.Late"); err != nil {
		t.Errorf("class added after first miss should resolve: %v", err)
	}
}

func TestForget(t *testing.T) {
	r := newTestResolver()
	r.Library().Add("com.test.Gone", metabasetest.Library().Class("java.lang.Runnable"))
	r.MustResolve("com.test.Gone[][]")
	keep := r.MustResolve("java.lang.String")

	delete(r.Library().Classes, "com.test.Gone")
	r.Forget("com.test.Gone")
	for _, name := range []string{"com.test.Gone", "com.test.Gone[]", "com.test.Gone[][]"} {
		if _, err := r.Resolve(name); !errors.Is(err, ErrUnknownType) {
			t.Errorf("Resolve(%q) error = %v, want ErrUnknownType", name, err)
		}
	}
	if r.MustResolve("java.lang.String") != keep {
		t.Error("Forget dropped an unrelated descriptor")
	}
}

func TestArrayDims(t *testing.T) {
	r := newTestResolver()
	typ := r.MustResolve("java.lang.String[][]")
	if typ.Dims() != 2 {
		t.Errorf("Dims() = %d, want 2", typ.Dims())
	}
	if typ.Base().Name() != "java.lang.String" {
		t.Errorf("Base() = %q", typ.Base().Name())
	}
	if typ.Elem().Name() != "java.lang.String[]" {
		t.Errorf("Elem() = %q", typ.Elem().Name())
	}
}

func TestValueAtFail(t *testing.T) {
	r := newTestResolver()
	tests := map[string]string{
		"boolean":            "false",
		"byte":               "0",
		"char":               "0",
		"short":              "0",
		"int":                "0",
		"long":               "0",
		"float":              "0",
		"double":             "0",
		"int[]":              "nullptr",
		"boolean[]":          "nullptr",
		"java.lang.String":   "nullptr",
		"java.lang.String[]": "nullptr",
		"com.example.Circle": "nullptr",
	}
	for name, want := range tests {
		if got := r.MustResolve(name).ValueAtFail(); got != want {
			t.Errorf("%s ValueAtFail() = %q, want %q", name, got, want)
		}
	}
}

func TestRootObject(t *testing.T) {
	r := newTestResolver()
	if !r.MustResolve("java.lang.Object").IsRootObject() {
		t.Error("java.lang.Object should be the root object")
	}
	if r.MustResolve("java.lang.String").IsRootObject() {
		t.Error("java.lang.String is not the root object")
	}
	if r.MustResolve("java.lang.Object[]").IsRootObject() {
		t.Error("arrays are never the root object")
	}
}

func TestPredicates(t *testing.T) {
	r := newTestResolver()
	tests := []struct {
		name   string
		number bool
		str    bool
		void   bool
	}{
		{"int", true, false, false},
		{"double", true, false, false},
		{"char", false, true, false},
		{"void", false, false, true},
		{"boolean", false, false, false},
		{"java.lang.String", false, true, false},
		{"java.lang.Integer", false, false, false},
	}
	for _, tt := range tests {
		typ := r.MustResolve(tt.name)
		if typ.IsNumber() != tt.number || typ.IsString() != tt.str || typ.IsVoid() != tt.void {
			t.Errorf("%s: number=%v string=%v void=%v", tt.name, typ.IsNumber(), typ.IsString(), typ.IsVoid())
		}
	}
}
