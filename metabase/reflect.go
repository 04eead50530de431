package metabase

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Reflector enumerates the JVM class library (plus extra classpath entries)
// into the raw metabase JSON document.
type Reflector interface {
	Reflect(ctx context.Context, classpath []string, destDir string) ([]byte, error)
}

// ReflectorFunc adapts a function to the Reflector interface.
type ReflectorFunc func(ctx context.Context, classpath []string, destDir string) ([]byte, error)

func (f ReflectorFunc) Reflect(ctx context.Context, classpath []string, destDir string) ([]byte, error) {
	return f(ctx, classpath, destDir)
}

// ReflectError is returned when the reflection tool exits non-zero. Stderr
// carries the tool's diagnostic text unmodified.
type ReflectError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *ReflectError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("metabase: %s failed: %s", e.Command, e.Stderr)
	}
	return fmt.Sprintf("metabase: %s failed: %v", e.Command, e.Err)
}

func (e *ReflectError) Unwrap() error { return e.Err }

const generatorClass = "JavaMetabaseGenerator"

// JavaReflector runs the Java metabase generator. The generator source is
// compiled into DestDir on first use.
type JavaReflector struct {
	// JavaHome locates bin/java and bin/javac. Empty uses PATH.
	JavaHome string
	// GeneratorSource is the path of JavaMetabaseGenerator.java.
	GeneratorSource string
	// Support holds jars the generator needs (bcel, json).
	Support []string
}

func (r *JavaReflector) tool(name string) string {
	if r.JavaHome == "" {
		return name
	}
	return filepath.Join(r.JavaHome, "bin", name)
}

func (r *JavaReflector) classpath(destDir string, extra []string) string {
	parts := append([]string{}, r.Support...)
	parts = append(parts, destDir)
	parts = append(parts, extra...)
	return strings.Join(parts, string(os.PathListSeparator))
}

// Reflect implements Reflector.
func (r *JavaReflector) Reflect(ctx context.Context, classpath []string, destDir string) ([]byte, error) {
	cp := r.classpath(destDir, classpath)

	if err := r.compileIfNecessary(ctx, destDir, cp); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, r.tool("java"), "-Xmx1G", "-classpath", cp, generatorClass)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, &ReflectError{Command: "java " + generatorClass, Stderr: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}

func (r *JavaReflector) compileIfNecessary(ctx context.Context, destDir, cp string) error {
	classFile := filepath.Join(destDir, generatorClass+".class")
	if _, err := os.Stat(classFile); err == nil {
		return nil
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("metabase: creating %s: %w", destDir, err)
	}

	cmd := exec.CommandContext(ctx, r.tool("javac"),
		"-source", "1.6", "-target", "1.6",
		"-cp", cp, r.GeneratorSource, "-d", destDir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &ReflectError{Command: "javac " + filepath.Base(r.GeneratorSource), Stderr: stderr.String(), Err: err}
	}
	return nil
}
