// loopbridge CLI - generates, builds and launches the native bridge between
// a script engine and the Java VM.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/tliron/commonlog"

	"github.com/chazu/loopbridge/manifest"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("loopbridge")

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	debug := flag.Bool("debug", false, "Debug output")
	dir := flag.String("C", ".", "Project directory (searched upward for loopbridge.toml)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: loopbridge [options] <command> [command options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  metabase   Reflect the classpath into the metabase cache\n")
		fmt.Fprintf(os.Stderr, "  build      Generate the bridge and build the native library\n")
		fmt.Fprintf(os.Stderr, "  launch     Build, then run the application in the Java VM\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  loopbridge metabase -force       # Regenerate the metabase\n")
		fmt.Fprintf(os.Stderr, "  loopbridge -v build -jobs 8      # Build with 8 compile jobs\n")
		fmt.Fprintf(os.Stderr, "  loopbridge -C ./app launch       # Build and run ./app\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	if *debug {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m, err := manifest.FindAndLoad(*dir)
	if err != nil {
		fatal(fmt.Errorf("loading manifest: %w", err))
	}
	if m == nil {
		fatal(fmt.Errorf("no %s found in %s or its parents", manifest.Filename, *dir))
	}

	switch args[0] {
	case "metabase":
		err = handleMetabaseCommand(ctx, m, args[1:])
	case "build":
		_, err = handleBuildCommand(ctx, m, args[1:])
	case "launch":
		err = handleLaunchCommand(ctx, m, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	if errors.Is(err, context.Canceled) {
		os.Exit(130)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
