package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/loopbridge/manifest"
	"github.com/chazu/loopbridge/metabase"
	"github.com/chazu/loopbridge/toolchain"
)

// reflectFlags configure the metabase generator for every command that
// loads the class library.
type reflectFlags struct {
	generator string
	support   string
	force     bool
}

func (f *reflectFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.generator, "generator", os.Getenv("HYPERLOOP_GENERATOR"), "Path of JavaMetabaseGenerator.java")
	fs.StringVar(&f.support, "support", os.Getenv("HYPERLOOP_SUPPORT"), "Generator support jars, separated by "+string(os.PathListSeparator))
	fs.BoolVar(&f.force, "force", false, "Regenerate the metabase even if cached")
}

// loadLibrary resolves the classpath and returns the class library, from
// the cache when possible.
func loadLibrary(ctx context.Context, m *manifest.Manifest, javaHome string, f reflectFlags) (*metabase.Library, error) {
	classpath, err := manifest.NewResolver(m).Classpath(ctx)
	if err != nil {
		return nil, err
	}

	opts := metabase.DefaultOptions()
	opts.Platform = m.Project.Platform
	opts.Force = f.force
	if dir := m.CacheDir(); dir != "" {
		opts.CacheDir = dir
	}
	if f.generator != "" {
		src, err := os.ReadFile(f.generator)
		if err != nil {
			return nil, fmt.Errorf("reading generator: %w", err)
		}
		opts.GeneratorSource = string(src)
		var support []string
		if f.support != "" {
			support = filepath.SplitList(f.support)
		}
		opts.Reflector = &metabase.JavaReflector{
			JavaHome:        javaHome,
			GeneratorSource: f.generator,
			Support:         support,
		}
	}

	lib, err := metabase.Load(ctx, classpath, opts)
	if err != nil {
		return nil, err
	}
	log.Infof("loaded %d classes", len(lib.Classes))
	return lib, nil
}

// handleMetabaseCommand processes the `loopbridge metabase` subcommand.
// Usage:
//
//	loopbridge metabase                  # reflect or reuse the cache
//	loopbridge metabase -force -o mb.gz  # regenerate and copy the result
func handleMetabaseCommand(ctx context.Context, m *manifest.Manifest, args []string) error {
	fs := flag.NewFlagSet("metabase", flag.ExitOnError)
	var rf reflectFlags
	rf.register(fs)
	output := fs.String("o", "", "Also write a gzip-compressed copy of the metabase to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	javaHome, err := toolchain.JavaHome(ctx)
	if err != nil && rf.generator != "" {
		return err
	}

	lib, err := loadLibrary(ctx, m, javaHome, rf)
	if err != nil {
		return err
	}
	if *output != "" {
		if err := metabase.WriteCache(*output, lib); err != nil {
			return err
		}
	}

	var classes, interfaces int
	for _, name := range lib.Names() {
		if lib.Class(name).IsInterface() {
			interfaces++
		} else {
			classes++
		}
	}
	fmt.Printf("Metabase: %d classes, %d interfaces (root %s)\n", classes, interfaces, lib.Root())
	return nil
}
