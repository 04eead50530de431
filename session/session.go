// Package session owns the state of one build: the class library, the type
// resolver, the custom class registry, one resolver unit per script file and
// the emitter. Nothing is shared between sessions.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tliron/commonlog"

	"github.com/chazu/loopbridge/bridge"
	"github.com/chazu/loopbridge/customclass"
	"github.com/chazu/loopbridge/manifest"
	"github.com/chazu/loopbridge/metabase"
	"github.com/chazu/loopbridge/resolver"
	"github.com/chazu/loopbridge/toolchain"
	"github.com/chazu/loopbridge/typelib"
)

var log = commonlog.GetLogger("loopbridge.session")

// RuntimeUnit is the unit holding the symbols the runtime links against.
const RuntimeUnit = "<runtime>"

// Session is one build. It is not safe for concurrent use.
type Session struct {
	Manifest  *manifest.Manifest
	Toolchain *toolchain.Toolchain

	lib      *metabase.Library
	types    *typelib.Resolver
	registry *customclass.Registry
	emitter  *bridge.Emitter

	units  []*resolver.Unit
	byFile map[string]*resolver.Unit
}

// New starts a session over a private copy of lib.
func New(m *manifest.Manifest, lib *metabase.Library) *Session {
	lib = lib.Clone()
	types := typelib.NewResolver(lib)
	registry := customclass.NewRegistry(types, m.Project.AppID)
	return &Session{
		Manifest:  m,
		Toolchain: toolchain.New(),
		lib:       lib,
		types:     types,
		registry:  registry,
		emitter:   bridge.New(types, registry, m.Project.Platform),
		byFile:    make(map[string]*resolver.Unit),
	}
}

// Library returns the session's class library.
func (s *Session) Library() *metabase.Library { return s.lib }

// Registry returns the session's custom class registry.
func (s *Session) Registry() *customclass.Registry { return s.registry }

// Unit returns the unit for file, creating it on first use.
func (s *Session) Unit(file string) *resolver.Unit {
	if u, ok := s.byFile[file]; ok {
		return u
	}
	u := resolver.NewUnit(file, s.types)
	s.byFile[file] = u
	s.units = append(s.units, u)
	return u
}

// DefineClasses registers the manifest's custom classes in order.
func (s *Session) DefineClasses() error {
	for _, def := range s.Manifest.Classes {
		if _, err := s.registry.Define(def); err != nil {
			return err
		}
	}
	return nil
}

// defineRuntime resolves the constructors the runtime converts script
// values with.
func (s *Session) defineRuntime() error {
	u := s.Unit(RuntimeUnit)
	classes := make([]string, 0, len(bridge.RequiredConstructors))
	for class := range bridge.RequiredConstructors {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	for i, class := range classes {
		loc := resolver.Location{Pos: i, EndPos: i}
		if _, err := u.DefineMethod(class, bridge.RequiredConstructors[class], nil, loc); err != nil {
			return err
		}
	}
	return nil
}

func location(b manifest.Binding) resolver.Location {
	return resolver.Location{File: b.File, Line: b.Line, Column: b.Column, Pos: b.Pos, EndPos: b.End}
}

// receiverClass is b.Class, or the class bound to b.Receiver before the
// reference.
func receiverClass(u *resolver.Unit, b manifest.Binding, loc resolver.Location) (string, error) {
	if b.Class != "" {
		return b.Class, nil
	}
	if class, ok := u.BindingAt(b.Receiver, b.Pos); ok {
		return class, nil
	}
	return "", &resolver.ResolveError{Location: loc, Kind: "variable", Member: b.Receiver}
}

// Resolve resolves one binding in its file's unit. Variable bindings return
// a nil symbol.
func (s *Session) Resolve(b manifest.Binding) (*resolver.Symbol, error) {
	u := s.Unit(b.File)
	loc := location(b)
	switch b.Kind {
	case manifest.BindVariable:
		return nil, u.Bind(b.Receiver, b.Class, loc)
	case manifest.CallMethod:
		class, err := receiverClass(u, b, loc)
		if err != nil {
			return nil, err
		}
		return u.InstanceMethodSymbol(class, b.Member, b.Receiver, b.Argc, loc)
	case manifest.CallStatic:
		return u.StaticMethodSymbol(b.Class, b.Member, b.Argc, loc)
	case manifest.GetProperty, manifest.SetProperty:
		class := b.Class
		if b.Receiver != "" {
			var err error
			if class, err = receiverClass(u, b, loc); err != nil {
				return nil, err
			}
		}
		if b.Kind == manifest.GetProperty {
			return u.GetterSymbol(class, b.Member, b.Receiver, loc)
		}
		return u.SetterSymbol(class, b.Member, b.Receiver, loc)
	case manifest.NewInstance:
		return u.ConstructorSymbol(b.Class, b.Argc, loc)
	case manifest.DefineCall:
		call, err := u.DefineMethod(b.Receiver, b.Call, b.Args, loc)
		if err != nil {
			return nil, err
		}
		return call.Symbol, nil
	}
	return nil, fmt.Errorf("%s: unknown binding kind %q", loc, b.Kind)
}

// ResolveAll resolves the runtime constructors and every binding, then
// validates each unit. All resolution errors are reported together.
func (s *Session) ResolveAll() error {
	if err := s.defineRuntime(); err != nil {
		return err
	}
	var errs []error
	for _, b := range s.Manifest.Bindings {
		if _, err := s.Resolve(b); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	log.Infof("resolved %d bindings in %d files", len(s.Manifest.Bindings), len(s.Manifest.Files()))
	return s.Validate()
}

// Validate checks the argument counts of every unit.
func (s *Session) Validate() error {
	var errs []error
	for _, u := range s.units {
		if err := u.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Symbols merges the symbol tables of all units, ordered by mangled name.
// The first unit to resolve a name wins.
func (s *Session) Symbols() []*resolver.Symbol {
	seen := make(map[string]bool)
	var out []*resolver.Symbol
	for _, u := range s.units {
		for _, sym := range u.Symbols() {
			if !seen[sym.SymbolName] {
				seen[sym.SymbolName] = true
				out = append(out, sym)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SymbolName < out[j].SymbolName })
	return out
}

// Classes returns every class that gets a class file: the required runtime
// classes, each class a symbol refers to and each custom class. Sorted.
func (s *Session) Classes() []string {
	set := make(map[string]bool)
	for _, c := range bridge.RequiredClasses {
		set[c] = true
	}
	for _, sym := range s.Symbols() {
		set[sym.Class] = true
	}
	for _, c := range s.registry.Classes() {
		set[c] = true
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// writeIfChanged leaves an identical file untouched so its object file stays
// up to date.
func writeIfChanged(path, content string) error {
	if old, err := os.ReadFile(path); err == nil && bytes.Equal(old, []byte(content)) {
		return nil
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// Generate writes one C++ file per class plus the functions and main files
// into dir and returns their paths.
func (s *Session) Generate(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	symbols := s.Symbols()

	var files []string
	write := func(name, content string) error {
		path := filepath.Join(dir, name)
		if err := writeIfChanged(path, content); err != nil {
			return fmt.Errorf("session: %w", err)
		}
		files = append(files, path)
		return nil
	}

	for _, class := range s.Classes() {
		code, err := s.emitter.ClassFile(class, symbols)
		if err != nil {
			return nil, fmt.Errorf("session: %s: %w", class, err)
		}
		if err := write(typelib.ClassFilename(class), code); err != nil {
			return nil, err
		}
	}

	code, functions, err := s.emitter.FunctionsFile(symbols)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if err := write(bridge.FunctionsFilename, code); err != nil {
		return nil, err
	}
	if err := write(bridge.MainFilename, s.emitter.MainFile(functions)); err != nil {
		return nil, err
	}
	log.Infof("generated %d files in %s", len(files), dir)
	return files, nil
}

// Build runs a whole build: custom classes, resolution, generation, the
// Java compile of the custom classes and the native library. It returns the
// library path.
func (s *Session) Build(ctx context.Context, javaHome string) (string, error) {
	if err := s.DefineClasses(); err != nil {
		return "", err
	}
	if err := s.ResolveAll(); err != nil {
		return "", err
	}

	m := s.Manifest
	sources, err := s.Generate(m.SrcDir())
	if err != nil {
		return "", err
	}

	javaDir := filepath.Join(m.SrcDir(), "java")
	javaFiles, err := s.registry.WriteSources(javaDir)
	if err != nil {
		return "", err
	}
	if err := s.Toolchain.Javac(ctx, javaHome, javaDir, m.DestDir(), javaFiles); err != nil {
		return "", err
	}

	return s.Toolchain.Build(ctx, toolchain.Config{
		OutDir:    m.DestDir(),
		Sources:   sources,
		CFlags:    m.Build.CFlags,
		LinkFlags: m.Build.LinkFlags,
		LibDir:    m.LibDir(),
		LibName:   m.Build.LibName,
		Static:    m.Build.Static,
		Debug:     m.Build.Debug,
		Jobs:      m.Build.Jobs,
		JavaHome:  javaHome,
	})
}
