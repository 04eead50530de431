package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, Filename), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "test-app"
appid = "com.test"
platform = "java"
main-class = "Main"

[build]
srcdir = "gen"
dest = "out"
cache-dir = "/var/cache/hl"
jobs = 4
debug = true
cflags = ["-O2"]
linkflags = ["-lm"]
libname = "libapp.a"

[classpath]
helper = { path = "../helper" }
gson = { git = "https://example.com/gson.git", tag = "v2.10", jar = "gson.jar" }

[[classes]]
name = "Greeter"
extends = "java.lang.Object"

  [[classes.methods]]
  name = "greet"
  args = ["java.lang.String"]
  returns = "java.lang.String"
  attributes = ["public"]
  action = "return 'hi ' + name;"

  [[classes.properties]]
  name = "count"
  type = "int"
  attributes = ["public"]

[[bindings]]
kind = "bind"
file = "app.js"
receiver = "g"
class = "com.test.Greeter"
end = 10

[[bindings]]
kind = "define"
file = "app.js"
receiver = "java.lang.String"
call = "valueOf(int)"
args = ["n"]
line = 2
pos = 12
end = 30
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "test-app" || m.Project.AppID != "com.test" {
		t.Errorf("project = %+v", m.Project)
	}
	if m.Project.Platform != "java" || m.Project.MainClass != "Main" {
		t.Errorf("project = %+v", m.Project)
	}
	if m.SrcDir() != filepath.Join(m.Dir, "gen") || m.DestDir() != filepath.Join(m.Dir, "out") {
		t.Errorf("srcdir = %s, dest = %s", m.SrcDir(), m.DestDir())
	}
	if m.CacheDir() != "/var/cache/hl" {
		t.Errorf("cache dir = %q, absolute paths are kept", m.CacheDir())
	}
	if m.Build.Jobs != 4 || !m.Build.Debug || m.Build.LibName != "libapp.a" {
		t.Errorf("build = %+v", m.Build)
	}
	if len(m.Build.CFlags) != 1 || len(m.Build.LinkFlags) != 1 {
		t.Errorf("flags = %v %v", m.Build.CFlags, m.Build.LinkFlags)
	}
	if dep := m.Classpath["helper"]; dep.Path != "../helper" {
		t.Errorf("helper = %+v", dep)
	}
	if dep := m.Classpath["gson"]; dep.Git == "" || dep.Tag != "v2.10" || dep.Jar != "gson.jar" {
		t.Errorf("gson = %+v", dep)
	}

	if len(m.Classes) != 1 {
		t.Fatalf("classes = %d, want 1", len(m.Classes))
	}
	c := m.Classes[0]
	if c.Name != "Greeter" || len(c.Methods) != 1 || len(c.Properties) != 1 {
		t.Errorf("class = %+v", c)
	}
	if c.Methods[0].Action == "" || c.Methods[0].Args[0] != "java.lang.String" {
		t.Errorf("method = %+v", c.Methods[0])
	}

	if len(m.Bindings) != 2 {
		t.Fatalf("bindings = %d, want 2", len(m.Bindings))
	}
	b := m.Bindings[1]
	if b.Kind != DefineCall || b.Call != "valueOf(int)" || b.Args[0] != "n" || b.Pos != 12 || b.End != 30 {
		t.Errorf("binding = %+v", b)
	}
	if files := m.Files(); len(files) != 1 || files[0] != "app.js" {
		t.Errorf("files = %v", files)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Platform != DefaultPlatform {
		t.Errorf("platform = %q, want %q", m.Project.Platform, DefaultPlatform)
	}
	if m.Project.MainClass != "app" {
		t.Errorf("main class = %q, want app", m.Project.MainClass)
	}
	if m.SrcDir() != filepath.Join(m.Dir, "build", "src") {
		t.Errorf("srcdir = %q", m.SrcDir())
	}
	if m.DestDir() != filepath.Join(m.Dir, "build", "out") {
		t.Errorf("dest = %q", m.DestDir())
	}
	if m.CacheDir() != "" {
		t.Errorf("cache dir = %q, want empty", m.CacheDir())
	}
}

func TestLoadManifestErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", "[project\nname = 1"},
		{"binding without kind", "[[bindings]]\nfile = \"app.js\"\n"},
		{"wrong type", "[build]\njobs = \"four\"\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tc.content)
			if _, err := Load(dir); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := Load(t.TempDir()); err == nil {
		t.Error("missing manifest should fail")
	}
}

func TestFindAndLoad(t *testing.T) {
	// Create nested directory structure
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	writeManifest(t, dir, `[project]
name = "found-project"
`)

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
	if m.Dir != dir {
		t.Errorf("dir = %q, want %q", m.Dir, dir)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no loopbridge.toml exists")
	}
}

func TestProjectPaths(t *testing.T) {
	m := &Manifest{Dir: "/app"}
	if got := m.DepsDir(); got != filepath.Join("/app", ".loopbridge", "deps") {
		t.Errorf("DepsDir = %q", got)
	}
	if got := m.LockFilePath(); got != filepath.Join("/app", ".loopbridge", "lock.toml") {
		t.Errorf("LockFilePath = %q", got)
	}
	m.Build.LibDir = "vendor/hyperloop"
	if got := m.LibDir(); got != filepath.Join("/app", "vendor", "hyperloop") {
		t.Errorf("LibDir = %q", got)
	}
}

func TestLockFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "lock.toml")

	lf := &LockFile{
		Deps: []LockedDep{
			{Name: "helper", Path: "../helper"},
			{Name: "gson", Git: "https://example.com/gson.git", Commit: "abc123", Tag: "v2.10", Jar: "gson.jar"},
		},
	}

	if err := WriteLock(lockPath, lf); err != nil {
		t.Fatalf("WriteLock failed: %v", err)
	}

	loaded, err := ReadLock(lockPath)
	if err != nil {
		t.Fatalf("ReadLock failed: %v", err)
	}

	if len(loaded.Deps) != 2 {
		t.Fatalf("expected 2 deps, got %d", len(loaded.Deps))
	}
	// Entries are written sorted by name.
	if loaded.Deps[0].Name != "gson" {
		t.Errorf("dep[0].Name = %q, want gson", loaded.Deps[0].Name)
	}
	if loaded.Deps[0].Commit != "abc123" || loaded.Deps[0].Jar != "gson.jar" {
		t.Errorf("dep[0] = %+v", loaded.Deps[0])
	}

	found := loaded.FindLockedDep("helper")
	if found == nil || found.Path != "../helper" {
		t.Errorf("FindLockedDep(helper) = %v, want path ../helper", found)
	}

	if notFound := loaded.FindLockedDep("nonexistent"); notFound != nil {
		t.Errorf("FindLockedDep(nonexistent) = %v, want nil", notFound)
	}
}

func TestReadLockNotFound(t *testing.T) {
	lf, err := ReadLock(filepath.Join(t.TempDir(), "lock.toml"))
	if err != nil {
		t.Errorf("ReadLock should return nil,nil for missing file, got err: %v", err)
	}
	if lf != nil {
		t.Errorf("ReadLock should return nil for missing file, got %v", lf)
	}
	if lf.FindLockedDep("x") != nil {
		t.Error("nil lock file should find nothing")
	}
}
