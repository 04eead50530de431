package metabase

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("loopbridge.metabase")

// Options controls where the metabase cache lives and how the cache key is
// derived.
type Options struct {
	// Platform is part of the cache file name ("java" or "android").
	Platform string
	// CacheDir holds the compressed cache artifact.
	CacheDir string
	// Mode is "test" or "not-test".
	Mode string
	// GeneratorSource is the text of the reflection generator. Any change to
	// it produces a new cache key.
	GeneratorSource string
	// Force skips the cache lookup and always reflects.
	Force bool
	// Reflector produces the raw JSON document on a cache miss.
	Reflector Reflector
}

// DefaultOptions returns options filled from the environment.
func DefaultOptions() Options {
	mode := "not-test"
	if os.Getenv("HYPERLOOP_TEST") != "" {
		mode = "test"
	}
	cacheDir := os.Getenv("TMPDIR")
	if cacheDir == "" {
		cacheDir = os.Getenv("TEMP")
	}
	if cacheDir == "" {
		cacheDir = "/tmp"
	}
	return Options{
		Platform: "java",
		CacheDir: cacheDir,
		Mode:     mode,
	}
}

// CacheKey returns the hex SHA-1 over the extra classpath, the mode and the
// generator source.
func CacheKey(classpath []string, mode, generatorSource string) string {
	h := sha1.New()
	io.WriteString(h, strings.Join(classpath, string(os.PathListSeparator)))
	io.WriteString(h, mode)
	io.WriteString(h, generatorSource)
	return hex.EncodeToString(h.Sum(nil))
}

// CachePath returns the cache artifact path for the given inputs.
func CachePath(classpath []string, opts Options) string {
	key := CacheKey(classpath, opts.Mode, opts.GeneratorSource)
	name := fmt.Sprintf("hyperloop_%s_metabase.%s.json.gz", opts.Platform, key)
	return filepath.Join(opts.CacheDir, name)
}

// Load returns the class library for the given extra classpath. A cache hit
// never invokes the reflector. A corrupt cache file is returned as an error
// and is not regenerated.
func Load(ctx context.Context, classpath []string, opts Options) (*Library, error) {
	cacheFile := CachePath(classpath, opts)

	if !opts.Force {
		if _, err := os.Stat(cacheFile); err == nil {
			log.Debugf("using system metabase cache file at %s", cacheFile)
			return ReadCache(cacheFile)
		}
	}

	if opts.Reflector == nil {
		return nil, fmt.Errorf("metabase: no cache at %s and no reflector configured", cacheFile)
	}

	start := time.Now()
	raw, err := opts.Reflector.Reflect(ctx, classpath, opts.CacheDir)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("metabase: failed to generate metabase")
	}

	lib, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	log.Debugf("generated metabase in %.3f seconds", time.Since(start).Seconds())

	if err := WriteCache(cacheFile, lib); err != nil {
		return nil, err
	}
	return lib, nil
}

// Decode parses a reflection document and links it.
func Decode(raw []byte) (*Library, error) {
	var lib Library
	if err := json.Unmarshal(raw, &lib); err != nil {
		return nil, fmt.Errorf("metabase: decode: %w", err)
	}
	if lib.Classes == nil {
		lib.Classes = make(map[string]*Class)
	}
	lib.Link()
	return &lib, nil
}

// ReadCache loads a cache artifact. Files ending in .gz are gunzipped.
func ReadCache(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("metabase: open cache: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("metabase: corrupt cache %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("metabase: corrupt cache %s: %w", path, err)
	}
	lib, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("metabase: corrupt cache %s: %w", path, err)
	}
	return lib, nil
}

// WriteCache stores the library as gzip-compressed indented JSON. The file
// is written to a temp name and renamed into place.
func WriteCache(path string, lib *Library) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("metabase: creating cache dir: %w", err)
	}
	data, err := json.MarshalIndent(lib, "", "  ")
	if err != nil {
		return fmt.Errorf("metabase: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".metabase-*")
	if err != nil {
		return fmt.Errorf("metabase: writing cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := gzip.NewWriter(tmp)
	if _, err := zw.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("metabase: writing cache: %w", err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("metabase: writing cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("metabase: writing cache: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
