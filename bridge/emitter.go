// Package bridge emits the C++ glue between the script engine and the JVM:
// one source file per referenced class plus the call-site snippets and the
// registration code spliced into the generated entry point.
package bridge

import (
	"slices"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/loopbridge/customclass"
	"github.com/chazu/loopbridge/metabase"
	"github.com/chazu/loopbridge/typelib"
)

var log = commonlog.GetLogger("loopbridge.bridge")

// Android is the platform name selecting simple class signatures.
const Android = "android"

// DefaultIncludes are the headers every generated file starts with.
var DefaultIncludes = []string{
	"<jni.h>",
	"<JavaScriptCore/JSBase.h>",
	"<JavaScriptCore/JSContextRef.h>",
	"<JavaScriptCore/JSStringRef.h>",
	"<JavaScriptCore/JSObjectRef.h>",
	"<JavaScriptCore/JSValueRef.h>",
}

// RequiredClasses get a class file in every build; the runtime converts
// script numbers and booleans through their constructors.
var RequiredClasses = []string{
	"java.lang.Object",
	"java.lang.Boolean",
	"java.lang.Double",
}

// RequiredConstructors are the call strings the runtime links against,
// keyed by class.
var RequiredConstructors = map[string]string{
	"java.lang.Boolean": "<init>(boolean)",
	"java.lang.Double":  "<init>(double)",
}

const indent = "\t"

// Emitter generates bridge source. It accumulates the includes and extern
// declarations the generated code needs; Header renders them. An Emitter is
// not safe for concurrent use.
type Emitter struct {
	types    *typelib.Resolver
	lib      *metabase.Library
	registry *customclass.Registry
	platform string

	includes []string
	externs  []string
}

// New returns an emitter for platform. registry may be nil when the build
// defines no custom classes.
func New(types *typelib.Resolver, registry *customclass.Registry, platform string) *Emitter {
	e := &Emitter{
		types:    types,
		lib:      types.Library(),
		registry: registry,
		platform: platform,
	}
	e.Reset()
	return e
}

// Platform returns the target platform.
func (e *Emitter) Platform() string { return e.platform }

// Reset drops the accumulated externs and extra includes.
func (e *Emitter) Reset() {
	e.includes = slices.Clone(DefaultIncludes)
	e.externs = nil
}

// Include adds a header. Bare names are wrapped in angle brackets.
func (e *Emitter) Include(header string) {
	if !strings.HasPrefix(header, "<") && !strings.HasPrefix(header, `"`) {
		header = "<" + header + ">"
	}
	if !slices.Contains(e.includes, header) {
		e.includes = append(e.includes, header)
	}
}

// Extern adds a declaration to the header once, marked for export.
func (e *Emitter) Extern(decl string) {
	if !strings.HasPrefix(decl, "EXPORTAPI") {
		decl = "EXPORTAPI " + decl
	}
	if !slices.Contains(e.externs, decl) {
		e.externs = append(e.externs, decl)
	}
}

// Externs returns the accumulated declarations in insertion order.
func (e *Emitter) Externs() []string { return slices.Clone(e.externs) }

// Header renders the includes and externs collected so far.
func (e *Emitter) Header() string {
	var code []string
	for _, inc := range e.includes {
		code = append(code, "#include "+inc)
	}
	if len(e.externs) > 0 {
		code = append(code, "", "// externs")
		code = append(code, e.externs...)
	}
	code = append(code, "")
	return strings.Join(code, "\n") + "\n"
}

func (e *Emitter) declare(s *typelib.Snippets) {
	for _, d := range s.Declare {
		e.Extern(d)
	}
}

func (e *Emitter) classSignature(class string) (string, error) {
	return e.types.ClassSignature(class, e.platform)
}

// fieldClassSignature is the FindClass name used for a static field. The
// Android VM cannot find a static field through a subclass, so there the
// declaring class is used.
func (e *Emitter) fieldClassSignature(class, property string) (string, error) {
	if e.platform != Android {
		return e.classSignature(class)
	}
	seen := make(map[string]bool)
	for c := e.lib.Class(class); c != nil && !seen[c.Name]; c = e.lib.Class(c.SuperClass) {
		seen[c.Name] = true
		if _, ok := c.Properties[property]; ok {
			return e.classSignature(c.Name)
		}
	}
	return "", &MissingPropertyError{Class: class, Property: property}
}

func indentLines(lines []string, prefix string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		if l != "" {
			out[i] = prefix + l
		}
	}
	return out
}
