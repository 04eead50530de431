package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/chazu/loopbridge/manifest"
	"github.com/chazu/loopbridge/session"
	"github.com/chazu/loopbridge/toolchain"
)

// handleBuildCommand processes the `loopbridge build` subcommand and
// returns the library path.
// Usage:
//
//	loopbridge build              # use [build] from loopbridge.toml
//	loopbridge build -jobs 8      # override the compile parallelism
//	loopbridge build -debug       # compile with HL_DEBUG
func handleBuildCommand(ctx context.Context, m *manifest.Manifest, args []string) (string, error) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	var rf reflectFlags
	rf.register(fs)
	jobs := fs.Int("jobs", m.Build.Jobs, "Concurrent compiles (0 = one per CPU)")
	debug := fs.Bool("debug", m.Build.Debug, "Compile the bridge with debug logging")
	platform := fs.String("platform", m.Project.Platform, "Target platform")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	m.Build.Jobs = *jobs
	m.Build.Debug = *debug
	m.Project.Platform = *platform

	return build(ctx, m, rf)
}

func build(ctx context.Context, m *manifest.Manifest, rf reflectFlags) (string, error) {
	javaHome, err := toolchain.JavaHome(ctx)
	if err != nil {
		return "", err
	}
	lib, err := loadLibrary(ctx, m, javaHome, rf)
	if err != nil {
		return "", err
	}

	s := session.New(m, lib)
	out, err := s.Build(ctx, javaHome)
	if err != nil {
		return "", err
	}
	fmt.Printf("Built %s\n", out)
	return out, nil
}
