package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultLibraryName is the runtime library every bridge links against.
const DefaultLibraryName = "libhyperloop.a"

// Config describes one native library build.
type Config struct {
	// OutDir receives object files and the library.
	OutDir  string
	Sources []string
	CFlags  []string
	// LinkFlags are passed to the linker after the objects.
	LinkFlags []string
	// LibDir holds the runtime headers and library.
	LibDir  string
	LibName string
	Static  bool
	Debug   bool
	// Jobs bounds concurrent compiles; zero or less means one per CPU.
	Jobs     int
	JavaHome string
}

// Toolchain builds native libraries from generated sources.
type Toolchain struct {
	Compiler string
	Archiver string
	GOOS     string
	Runner   Runner
}

// New returns a toolchain using clang++ and libtool on the host OS.
func New() *Toolchain {
	return &Toolchain{
		Compiler: "clang++",
		Archiver: "libtool",
		GOOS:     runtime.GOOS,
		Runner:   ExecRunner{},
	}
}

func (tc *Toolchain) cflags(cfg Config) []string {
	flags := append([]string{}, cfg.CFlags...)
	if cfg.LibDir != "" {
		flags = append(flags, "-I"+cfg.LibDir)
	}
	if cfg.JavaHome != "" {
		for _, inc := range IncludePaths(cfg.JavaHome, tc.GOOS) {
			flags = append(flags, "-I"+inc)
		}
	}
	if cfg.Debug {
		flags = append(flags, "-DHL_DEBUG")
	}
	return flags
}

// ObjectFile is the object file a source compiles to.
func ObjectFile(outDir, source string) string {
	base := filepath.Base(source)
	return filepath.Join(outDir, strings.TrimSuffix(base, filepath.Ext(base))+".o")
}

func upToDate(source, object string) bool {
	so, err := os.Stat(object)
	if err != nil {
		return false
	}
	ss, err := os.Stat(source)
	return err == nil && !ss.ModTime().After(so.ModTime())
}

// Compile compiles every source whose object file is missing or older than
// the source, at most cfg.Jobs at a time. It returns the object files it
// produced, in source order.
func (tc *Toolchain) Compile(ctx context.Context, cfg Config) ([]string, error) {
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("toolchain: creating %s: %w", cfg.OutDir, err)
	}
	flags := tc.cflags(cfg)

	g, ctx := errgroup.WithContext(ctx)
	jobs := cfg.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	g.SetLimit(jobs)

	var mu sync.Mutex
	built := make(map[string]bool)
	for _, src := range cfg.Sources {
		src := src
		obj := ObjectFile(cfg.OutDir, src)
		if upToDate(src, obj) {
			log.Debugf("%s is up to date", obj)
			continue
		}
		g.Go(func() error {
			args := append([]string{}, flags...)
			args = append(args, "-c", src, "-o", obj)
			if err := tc.Runner.Run(ctx, Command{Name: tc.Compiler, Args: args}); err != nil {
				return err
			}
			mu.Lock()
			built[obj] = true
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var objects []string
	for _, src := range cfg.Sources {
		if obj := ObjectFile(cfg.OutDir, src); built[obj] {
			objects = append(objects, obj)
		}
	}
	return objects, nil
}

// LibraryPath is where Library writes the library. Dynamic libraries on
// macOS use the .dylib extension, elsewhere .so.
func (tc *Toolchain) LibraryPath(cfg Config) string {
	name := cfg.LibName
	if name == "" {
		name = DefaultLibraryName
	}
	if !cfg.Static {
		ext := ".so"
		if tc.GOOS == "darwin" {
			ext = ".dylib"
		}
		name = strings.TrimSuffix(name, ".a") + ext
	}
	return filepath.Join(cfg.OutDir, name)
}

// Library links the object files of every source into the library.
func (tc *Toolchain) Library(ctx context.Context, cfg Config) error {
	objects := make([]string, len(cfg.Sources))
	for i, src := range cfg.Sources {
		objects[i] = ObjectFile(cfg.OutDir, src)
	}
	out := tc.LibraryPath(cfg)
	flags := append([]string{}, cfg.LinkFlags...)
	if tc.GOOS == "darwin" {
		flags = append(flags, "-framework", "JavaScriptCore")
	}

	var cmd Command
	if cfg.Static {
		args := append([]string{"-static", "-o", out}, objects...)
		cmd = Command{Name: tc.Archiver, Args: append(args, flags...)}
	} else {
		if cfg.LibDir != "" {
			flags = append(flags, "-L"+cfg.LibDir)
		}
		runtimeLib := strings.TrimSuffix(strings.TrimPrefix(DefaultLibraryName, "lib"), ".a")
		flags = append(flags, "-l"+runtimeLib)
		shared := "-shared"
		if tc.GOOS == "darwin" {
			shared = "-dynamiclib"
			flags = append(flags, "-dead_strip")
		}
		args := append([]string{shared, "-o", out}, objects...)
		cmd = Command{Name: tc.Compiler, Args: append(args, flags...)}
	}
	return tc.Runner.Run(ctx, cmd)
}

var errNoLibrary = errors.New("toolchain: no library created")

// Build compiles and links. Linking is skipped when nothing was recompiled
// and the library already exists.
func (tc *Toolchain) Build(ctx context.Context, cfg Config) (string, error) {
	if len(cfg.Sources) == 0 {
		return "", errNoLibrary
	}
	objects, err := tc.Compile(ctx, cfg)
	if err != nil {
		return "", err
	}
	out := tc.LibraryPath(cfg)
	if _, err := os.Stat(out); err == nil && len(objects) == 0 {
		log.Infof("%s is up to date", out)
		return out, nil
	}
	if err := tc.Library(ctx, cfg); err != nil {
		return "", err
	}
	return out, nil
}

// Javac compiles Java sources, given relative to srcDir, into dest with
// debug information.
func (tc *Toolchain) Javac(ctx context.Context, javaHome, srcDir, dest string, files []string) error {
	if len(files) == 0 {
		return nil
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("toolchain: creating %s: %w", abs, err)
	}
	javac := "javac"
	if javaHome != "" {
		javac = filepath.Join(javaHome, "bin", "javac")
	}
	args := append([]string{"-g", "-d", abs}, files...)
	return tc.Runner.Run(ctx, Command{Dir: srcDir, Name: javac, Args: args})
}
