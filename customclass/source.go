package customclass

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/chazu/loopbridge/metabase"
	"github.com/chazu/loopbridge/typelib"
)

// SourceHeader opens every generated Java file.
const SourceHeader = "// Code generated by loopbridge. DO NOT EDIT."

const indent = "\t"

// JavaSource renders the Java declaration of a custom class. Every method
// with an action gets a pair of static slots holding the script callback,
// a native trampoline and a public method forwarding to it.
func JavaSource(c *metabase.Class) string {
	var code []string
	code = append(code, SourceHeader)
	if c.Package != "" {
		code = append(code, "package "+c.Package+";")
	}
	code = append(code, "")
	code = append(code, c.Annotations...)

	implements := ""
	if len(c.Interfaces) > 0 {
		implements = " implements " + strings.Join(c.Interfaces, ",")
	}
	code = append(code, strings.Join(c.Attributes, " ")+" class "+c.SimpleName()+" extends "+c.SuperClass+implements+" {")
	code = append(code, "")

	var enums, props []string
	for _, name := range sortedKeys(c.Properties) {
		p := c.Properties[name]
		value := ""
		if p.Value != "" {
			value = " = " + p.Value
		}
		attrs := strings.Join(p.Attributes, " ")
		if len(p.Annotations) > 0 {
			attrs = strings.Join(p.Annotations, " ") + " " + attrs
		}
		switch {
		case p.Metatype == "enum":
			enums = append(enums, indent+attrs+" enum "+p.Name+" {"+strings.Join(p.EnumValues, ",")+"};")
		case p.InnerType != "":
			props = append(props, indent+attrs+" "+p.InnerType+" "+p.Name+value+";")
		default:
			props = append(props, indent+attrs+" "+p.Type+" "+p.Name+value+";")
		}
	}
	code = append(code, enums...)
	code = append(code, props...)
	code = append(code, "")

	for _, name := range sortedKeys(c.Methods) {
		for i, m := range c.Methods[name] {
			if !m.HasAction {
				continue
			}
			code = append(code, actionMethod(name, i, m)...)
		}
	}

	code = append(code, "}")
	return strings.Join(code, "\n") + "\n"
}

func actionMethod(name string, i int, m *metabase.Method) []string {
	slot := typelib.ActionSlot(name, i)

	params := make([]string, len(m.Args))
	argv := make([]string, len(m.Args))
	for j, a := range m.Args {
		params[j] = a.Type + " arg" + strconv.Itoa(j)
		argv[j] = "arg" + strconv.Itoa(j)
	}
	sep := ""
	if len(params) > 0 {
		sep = ","
	}

	call := slot + "_Action(" + slot + "," + slot + "_E" + sep + strings.Join(argv, ",") + ");"
	if m.ReturnType != "void" {
		call = "return " + call
	}

	code := []string{
		indent + "// Set JS callback function for " + name + "(" + strings.Join(params, ",") + ")",
		indent + "public static long " + slot + "; // pointer to JSValueRef func",
		indent + "public static long " + slot + "_E; // pointer to JSValueRef exception pointer",
		indent + "public native " + m.ReturnType + " " + slot + "_Action(long action,long exception" + sep + strings.Join(params, ",") + "); // Callback to JNI",
		indent + "public static void " + slot + "(long action,long exception) {",
		indent + indent + slot + " = action;",
		indent + indent + slot + "_E = exception;",
		indent + "}",
	}
	for _, a := range m.Annotations {
		code = append(code, indent+a)
	}
	code = append(code,
		indent+strings.Join(m.Attributes, " ")+" "+m.ReturnType+" "+name+"("+strings.Join(params, ",")+") {",
		indent+indent+call,
		indent+"}",
		"",
	)
	return code
}

// SourcePath is the path of a class's Java file relative to the source root.
func SourcePath(c *metabase.Class) string {
	dir := filepath.Join(strings.Split(c.Package, ".")...)
	return filepath.Join(dir, c.SimpleName()+".java")
}

// WriteSources writes every registered top-level class under srcdir and
// returns the written paths relative to srcdir, in definition order.
func (r *Registry) WriteSources(srcdir string) ([]string, error) {
	var files []string
	for _, name := range r.order {
		c := r.lib.Class(name)
		rel := SourcePath(c)
		out := filepath.Join(srcdir, rel)
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return nil, fmt.Errorf("customclass: %w", err)
		}
		if err := os.WriteFile(out, []byte(JavaSource(c)), 0o644); err != nil {
			return nil, fmt.Errorf("customclass: %w", err)
		}
		log.Debugf("wrote %s", out)
		files = append(files, rel)
	}
	return files, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
