// Package manifest handles loopbridge.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/loopbridge/customclass"
)

// Filename is the project configuration file name.
const Filename = "loopbridge.toml"

// DefaultPlatform is used when [project] names no platform.
const DefaultPlatform = "android"

// Manifest represents a loopbridge.toml project configuration.
type Manifest struct {
	Project   Project                  `toml:"project"`
	Build     Build                    `toml:"build"`
	Classpath map[string]Dependency    `toml:"classpath"`
	Classes   []customclass.Definition `toml:"classes"`
	Bindings  []Binding                `toml:"bindings"`

	// Dir is the directory containing the loopbridge.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
	// AppID is the default Java package of custom classes.
	AppID     string `toml:"appid"`
	Platform  string `toml:"platform"`
	MainClass string `toml:"main-class"`
}

// Build configures code generation and the native build.
type Build struct {
	// SrcDir receives generated C++ and Java sources.
	SrcDir string `toml:"srcdir"`
	// Dest receives compiled classes, objects and the library.
	Dest     string   `toml:"dest"`
	CacheDir string   `toml:"cache-dir"`
	LibDir   string   `toml:"libdir"`
	LibName  string   `toml:"libname"`
	Jobs     int      `toml:"jobs"`
	Debug    bool     `toml:"debug"`
	Static   bool     `toml:"static"`
	CFlags   []string `toml:"cflags"`
	// LinkFlags are appended after the object files.
	LinkFlags []string `toml:"linkflags"`
}

// Dependency is one extra classpath entry: a local path, or a git
// repository checked out at Tag. Jar selects a file inside the checkout.
type Dependency struct {
	Git  string `toml:"git"`
	Tag  string `toml:"tag"`
	Path string `toml:"path"`
	Jar  string `toml:"jar"`
}

// Binding kinds.
const (
	BindVariable = "bind"
	CallMethod   = "method"
	CallStatic   = "static"
	GetProperty  = "get"
	SetProperty  = "set"
	NewInstance  = "new"
	DefineCall   = "define"
)

// Binding is one script reference to resolve and bridge. Kind selects the
// resolver operation; Pos and End are byte offsets in File.
type Binding struct {
	Kind     string `toml:"kind"`
	File     string `toml:"file"`
	Class    string `toml:"class"`
	Member   string `toml:"member"`
	Receiver string `toml:"receiver"`
	Argc     int    `toml:"argc"`
	// Call is the explicit call string of a "define" binding, such as
	// "valueOf(int)". Args are the script arguments passed with it.
	Call   string   `toml:"call"`
	Args   []string `toml:"args"`
	Line   int      `toml:"line"`
	Column int      `toml:"column"`
	Pos    int      `toml:"pos"`
	End    int      `toml:"end"`
}

// Load parses a loopbridge.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, Filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Project.Platform == "" {
		m.Project.Platform = DefaultPlatform
	}
	if m.Project.MainClass == "" {
		m.Project.MainClass = "app"
	}
	if m.Build.SrcDir == "" {
		m.Build.SrcDir = filepath.Join("build", "src")
	}
	if m.Build.Dest == "" {
		m.Build.Dest = filepath.Join("build", "out")
	}
	for i, b := range m.Bindings {
		if b.Kind == "" {
			return nil, fmt.Errorf("%s: binding %d has no kind", path, i+1)
		}
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a loopbridge.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, Filename)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// SrcDir returns the absolute generated source directory.
func (m *Manifest) SrcDir() string { return m.abs(m.Build.SrcDir) }

// DestDir returns the absolute build output directory.
func (m *Manifest) DestDir() string { return m.abs(m.Build.Dest) }

// CacheDir returns the absolute metabase cache directory, or "" to use the
// environment default.
func (m *Manifest) CacheDir() string { return m.abs(m.Build.CacheDir) }

// LibDir returns the absolute runtime library directory.
func (m *Manifest) LibDir() string { return m.abs(m.Build.LibDir) }

// Files returns the script files named by bindings, in first-use order.
func (m *Manifest) Files() []string {
	seen := make(map[string]bool)
	var files []string
	for _, b := range m.Bindings {
		if !seen[b.File] {
			seen[b.File] = true
			files = append(files, b.File)
		}
	}
	return files
}

// DepsDir returns the path to the .loopbridge/deps directory.
func (m *Manifest) DepsDir() string {
	return filepath.Join(m.Dir, ".loopbridge", "deps")
}

// LockFilePath returns the path to .loopbridge/lock.toml.
func (m *Manifest) LockFilePath() string {
	return filepath.Join(m.Dir, ".loopbridge", "lock.toml")
}
