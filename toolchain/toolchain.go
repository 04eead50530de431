// Package toolchain drives the native and Java compilers that turn the
// generated bridge into a loadable library.
package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("loopbridge.toolchain")

// Command is one subprocess invocation.
type Command struct {
	Dir  string
	Name string
	Args []string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner executes commands. Tests substitute a recorder.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ToolError is returned when a tool exits non-zero. Stderr is the tool's
// diagnostic output, unmodified.
type ToolError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *ToolError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s", e.Command, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	log.Debugf("%s", c)
	if err := cmd.Run(); err != nil {
		return &ToolError{Command: c.String(), Stderr: stderr.String(), Err: err}
	}
	return nil
}

// ConfigError reports a missing or unusable host setup, such as a JDK that
// cannot be found.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

var errNoJavaHome = &ConfigError{Message: "couldn't find suitable headers for the Java SDK; set the environment variable JAVA_HOME"}

// JavaHome locates the JDK: JAVA_HOME when it names an existing directory,
// otherwise /usr/libexec/java_home on macOS.
func JavaHome(ctx context.Context) (string, error) {
	if home := os.Getenv("JAVA_HOME"); home != "" {
		if fi, err := os.Stat(home); err == nil && fi.IsDir() {
			return home, nil
		}
	}
	if runtime.GOOS != "darwin" {
		return "", errNoJavaHome
	}
	out, err := exec.CommandContext(ctx, "/usr/libexec/java_home").Output()
	if err != nil {
		return "", errNoJavaHome
	}
	return strings.TrimSpace(string(out)), nil
}

// IncludePaths returns the JNI header directories of a JDK.
func IncludePaths(javaHome, goos string) []string {
	if goos == "darwin" {
		headers := "/System/Library/Frameworks/JavaVM.framework/Headers"
		if _, err := os.Stat(filepath.Join(javaHome, "include")); err != nil {
			if _, err := os.Stat(headers); err == nil {
				return []string{headers}
			}
		}
	}
	include := filepath.Join(javaHome, "include")
	return []string{include, filepath.Join(include, goos)}
}
