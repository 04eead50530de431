package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recorder struct {
	mu       sync.Mutex
	commands []Command
	fail     string
	running  atomic.Int32
	peak     atomic.Int32
}

func (r *recorder) Run(ctx context.Context, c Command) error {
	n := r.running.Add(1)
	defer r.running.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	r.mu.Lock()
	r.commands = append(r.commands, c)
	r.mu.Unlock()

	if r.fail != "" && slices.Contains(c.Args, r.fail) {
		return &ToolError{Command: c.String(), Stderr: "error: boom\n", Err: errors.New("exit status 1")}
	}
	if i := slices.Index(c.Args, "-o"); i >= 0 {
		return os.WriteFile(c.Args[i+1], nil, 0o644)
	}
	return nil
}

func writeSources(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	var paths []string
	for _, n := range names {
		p := filepath.Join(dir, n)
		if err := os.WriteFile(p, []byte("// "+n), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return paths
}

func newTestToolchain(r Runner, goos string) *Toolchain {
	return &Toolchain{Compiler: "clang++", Archiver: "libtool", GOOS: goos, Runner: r}
}

func TestCompile(t *testing.T) {
	src := t.TempDir()
	out := filepath.Join(t.TempDir(), "obj")
	r := &recorder{}
	tc := newTestToolchain(r, "linux")

	cfg := Config{
		OutDir:   out,
		Sources:  writeSources(t, src, "HL_a.cpp", "HL_b.cpp", "HL_c.cpp"),
		CFlags:   []string{"-O2"},
		LibDir:   "/opt/hl",
		JavaHome: "/jdk",
		Debug:    true,
		Jobs:     2,
	}
	objects, err := tc.Compile(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(out, "HL_a.o"), filepath.Join(out, "HL_b.o"), filepath.Join(out, "HL_c.o")}
	if !slices.Equal(objects, want) {
		t.Errorf("objects = %v, want %v", objects, want)
	}
	if len(r.commands) != 3 {
		t.Fatalf("ran %d commands, want 3", len(r.commands))
	}
	if p := r.peak.Load(); p > 2 {
		t.Errorf("%d compiles ran at once with jobs=2", p)
	}

	sort.Slice(r.commands, func(i, j int) bool { return r.commands[i].String() < r.commands[j].String() })
	got := r.commands[0].String()
	wantCmd := "clang++ -O2 -I/opt/hl -I/jdk/include -I/jdk/include/linux -DHL_DEBUG -c " + cfg.Sources[0] + " -o " + want[0]
	if got != wantCmd {
		t.Errorf("command:\n%s\nwant:\n%s", got, wantCmd)
	}

	// Nothing changed, so nothing is rebuilt.
	r.commands = nil
	objects, err = tc.Compile(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(objects) != 0 || len(r.commands) != 0 {
		t.Errorf("second compile rebuilt %v", objects)
	}
}

func TestCompileFailureKeepsStderr(t *testing.T) {
	src := t.TempDir()
	r := &recorder{}
	tc := newTestToolchain(r, "linux")
	sources := writeSources(t, src, "HL_a.cpp", "HL_bad.cpp")
	r.fail = sources[1]

	_, err := tc.Compile(context.Background(), Config{OutDir: t.TempDir(), Sources: sources, Jobs: 1})
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v", err)
	}
	if te.Stderr != "error: boom\n" || !strings.Contains(err.Error(), "error: boom") {
		t.Errorf("stderr not carried verbatim: %q", te.Stderr)
	}
}

func TestLibrary(t *testing.T) {
	tests := []struct {
		name   string
		goos   string
		static bool
		want   string
	}{
		{"static", "linux", true, "libtool -static -o out/libapp.a out/HL_a.o -lm"},
		{"shared linux", "linux", false, "clang++ -shared -o out/libapp.so out/HL_a.o -lm -L/opt/hl -lhyperloop"},
		{"shared darwin", "darwin", false, "clang++ -dynamiclib -o out/libapp.dylib out/HL_a.o -lm -framework JavaScriptCore -L/opt/hl -lhyperloop -dead_strip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			tc := newTestToolchain(r, tt.goos)
			cfg := Config{
				OutDir:    "out",
				Sources:   []string{"gen/HL_a.cpp"},
				LinkFlags: []string{"-lm"},
				LibDir:    "/opt/hl",
				LibName:   "libapp.a",
				Static:    tt.static,
			}
			// The recorder writes the -o target, so run in a scratch dir.
			prev, err := os.Getwd()
			if err != nil {
				t.Fatal(err)
			}
			if err := os.Chdir(t.TempDir()); err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { os.Chdir(prev) })
			os.Mkdir("out", 0o755)
			if err := tc.Library(context.Background(), cfg); err != nil {
				t.Fatal(err)
			}
			if got := r.commands[0].String(); got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestBuildSkipsUpToDateLibrary(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	r := &recorder{}
	tc := newTestToolchain(r, "linux")
	cfg := Config{OutDir: out, Sources: writeSources(t, src, "HL_a.cpp"), Static: true}

	lib, err := tc.Build(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	if lib != filepath.Join(out, DefaultLibraryName) {
		t.Errorf("library = %s", lib)
	}
	if len(r.commands) != 2 {
		t.Fatalf("first build ran %d commands, want compile and link", len(r.commands))
	}

	r.commands = nil
	if _, err := tc.Build(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	if len(r.commands) != 0 {
		t.Errorf("up-to-date build ran %v", r.commands)
	}

	if _, err := tc.Build(context.Background(), Config{OutDir: out}); err == nil {
		t.Error("build without sources should fail")
	}
}

func TestJavac(t *testing.T) {
	r := &recorder{}
	tc := newTestToolchain(r, "linux")
	dest := t.TempDir()
	if err := tc.Javac(context.Background(), "/jdk", "src/java", dest, []string{"com/test/Greeter.java"}); err != nil {
		t.Fatal(err)
	}
	c := r.commands[0]
	if c.Dir != "src/java" || c.Name != filepath.Join("/jdk", "bin", "javac") {
		t.Errorf("command = %+v", c)
	}
	if !slices.Equal(c.Args, []string{"-g", "-d", dest, "com/test/Greeter.java"}) {
		t.Errorf("args = %v", c.Args)
	}

	r.commands = nil
	if err := tc.Javac(context.Background(), "", "src", dest, nil); err != nil || len(r.commands) != 0 {
		t.Errorf("no files should run nothing: %v %v", err, r.commands)
	}
}

func TestJavaHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("JAVA_HOME", home)
	got, err := JavaHome(context.Background())
	if err != nil || got != home {
		t.Errorf("JavaHome = %q, %v", got, err)
	}

	t.Setenv("JAVA_HOME", filepath.Join(home, "missing"))
	if _, err := JavaHome(context.Background()); err != nil {
		var ce *ConfigError
		if !errors.As(err, &ce) {
			t.Errorf("err = %T %v, want *ConfigError", err, err)
		}
	}
}

func TestIncludePaths(t *testing.T) {
	got := IncludePaths("/jdk", "linux")
	want := []string{filepath.Join("/jdk", "include"), filepath.Join("/jdk", "include", "linux")}
	if !slices.Equal(got, want) {
		t.Errorf("IncludePaths = %v, want %v", got, want)
	}
}
