package main

import (
	"context"
	"flag"

	"github.com/tliron/commonlog"

	"github.com/chazu/loopbridge/launch"
	"github.com/chazu/loopbridge/manifest"
	"github.com/chazu/loopbridge/toolchain"
)

// handleLaunchCommand processes the `loopbridge launch` subcommand: build,
// then run the main class with the library on java.library.path.
// Usage:
//
//	loopbridge launch               # build and run [project].main-class
//	loopbridge launch -no-build     # run the last build
func handleLaunchCommand(ctx context.Context, m *manifest.Manifest, args []string) error {
	fs := flag.NewFlagSet("launch", flag.ExitOnError)
	var rf reflectFlags
	rf.register(fs)
	noBuild := fs.Bool("no-build", false, "Skip the build step")
	grace := fs.Duration("grace", launch.DefaultGrace, "Output relayed after the exit marker")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !*noBuild {
		if _, err := build(ctx, m, rf); err != nil {
			return err
		}
	}

	javaHome, err := toolchain.JavaHome(ctx)
	if err != nil {
		return err
	}
	return launch.Run(ctx, launch.Options{
		JavaHome:  javaHome,
		Dest:      m.DestDir(),
		MainClass: m.Project.MainClass,
		Grace:     *grace,
	}, commonlog.GetLogger("loopbridge.app"))
}
