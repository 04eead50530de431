// Package launch runs a built application in the Java VM and relays its
// output.
package launch

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ExitMarker is printed by the runtime when the script has finished.
const ExitMarker = "TI_EXIT"

// DefaultGrace is how long output is still relayed after the exit marker.
const DefaultGrace = 10 * time.Millisecond

// Logger receives the application's standard output, one line per call.
// A commonlog.Logger satisfies it.
type Logger interface {
	Infof(format string, values ...any)
}

// Options configures a launch.
type Options struct {
	JavaHome string
	// Dest holds the compiled classes and the native library.
	Dest      string
	MainClass string
	// Command overrides the java invocation.
	Command []string
	Grace   time.Duration
}

// Error reports output on the application's standard error, which is
// treated as fatal.
type Error struct {
	Stderr string
}

func (e *Error) Error() string { return "launch: " + strings.TrimSpace(e.Stderr) }

func (o Options) command() []string {
	if len(o.Command) > 0 {
		return o.Command
	}
	java := "java"
	if o.JavaHome != "" {
		java = filepath.Join(o.JavaHome, "bin", "java")
	}
	main := o.MainClass
	if main == "" {
		main = "app"
	}
	return []string{java, "-Djava.library.path=" + o.Dest, "-cp", o.Dest, main}
}

// Run starts the application and logs each non-empty stdout line until the
// process exits or prints ExitMarker. The process is stopped once the grace
// period after the marker has passed. Anything written to stderr stops the
// process and is returned as an *Error.
func Run(ctx context.Context, opts Options, logger Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	argv := opts.command()
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch: %w", err)
	}

	grace := opts.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		failure *Error
		exited  = make(chan struct{})
		once    sync.Once
	)
	finish := func() { once.Do(func() { close(exited) }) }

	wg.Add(2)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			switch {
			case line == "":
			case strings.HasPrefix(line, ExitMarker):
				time.AfterFunc(grace, finish)
			default:
				logger.Infof("%s", line)
			}
		}
	}()
	go func() {
		defer wg.Done()
		var buf bytes.Buffer
		chunk := make([]byte, 4096)
		for {
			n, err := stderr.Read(chunk)
			if n > 0 {
				buf.Write(chunk[:n])
				mu.Lock()
				failure = &Error{Stderr: buf.String()}
				mu.Unlock()
				finish()
			}
			if err != nil {
				return
			}
		}
	}()

	done := make(chan error, 1)
	go func() {
		wg.Wait()
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		mu.Lock()
		defer mu.Unlock()
		if failure != nil {
			return failure
		}
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("launch: %w", err)
		}
		return nil
	case <-exited:
		cancel()
		<-done
		mu.Lock()
		defer mu.Unlock()
		if failure != nil {
			return failure
		}
		return nil
	case <-ctx.Done():
		<-done
		return ctx.Err()
	}
}
