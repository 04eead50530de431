package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("loopbridge.manifest")

// ResolvedDep represents a classpath dependency that has been resolved to a
// local path.
type ResolvedDep struct {
	Name      string // dependency name
	LocalPath string // checkout or local directory
	// Entry is the classpath entry: the jar inside LocalPath, or LocalPath
	// itself for a class directory.
	Entry    string
	Manifest *Manifest // the dependency's own manifest (may be nil)
}

// Resolver manages classpath dependency resolution.
type Resolver struct {
	manifest *Manifest
	lock     *LockFile
}

// NewResolver creates a new dependency resolver.
func NewResolver(m *Manifest) *Resolver {
	return &Resolver{manifest: m}
}

// Resolve resolves all classpath dependencies and returns them in load
// order: a dependency's own classpath comes before it.
func (r *Resolver) Resolve(ctx context.Context) ([]ResolvedDep, error) {
	if len(r.manifest.Classpath) == 0 {
		return nil, nil
	}

	lock, err := ReadLock(r.manifest.LockFilePath())
	if err != nil {
		return nil, fmt.Errorf("reading lock file: %w", err)
	}
	r.lock = lock

	if err := os.MkdirAll(r.manifest.DepsDir(), 0755); err != nil {
		return nil, fmt.Errorf("creating deps dir: %w", err)
	}

	resolved := make(map[string]*ResolvedDep)
	order, err := r.resolveAll(ctx, r.manifest.Dir, r.manifest.Classpath, resolved)
	if err != nil {
		return nil, err
	}

	if err := r.writeLock(ctx, resolved); err != nil {
		return nil, fmt.Errorf("writing lock file: %w", err)
	}

	return order, nil
}

// Classpath resolves and returns the classpath entries in load order.
func (r *Resolver) Classpath(ctx context.Context) ([]string, error) {
	deps, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]string, len(deps))
	for i, d := range deps {
		entries[i] = d.Entry
	}
	return entries, nil
}

// resolveAll resolves a set of dependencies recursively, in name order so
// the classpath is stable. Relative paths are taken from base.
func (r *Resolver) resolveAll(ctx context.Context, base string, deps map[string]Dependency, resolved map[string]*ResolvedDep) ([]ResolvedDep, error) {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	var order []ResolvedDep
	for _, name := range names {
		if _, ok := resolved[name]; ok {
			continue // already resolved
		}

		rd, err := r.resolveOne(ctx, base, name, deps[name])
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", name, err)
		}

		resolved[name] = rd

		// A dependency with its own loopbridge.toml brings its classpath.
		if rd.Manifest != nil && len(rd.Manifest.Classpath) > 0 {
			transitive, err := r.resolveAll(ctx, rd.Manifest.Dir, rd.Manifest.Classpath, resolved)
			if err != nil {
				return nil, err
			}
			order = append(order, transitive...)
		}

		order = append(order, *rd)
	}

	return order, nil
}

func entry(dir string, dep Dependency) (string, error) {
	if dep.Jar == "" {
		return dir, nil
	}
	jar := filepath.Join(dir, dep.Jar)
	if _, err := os.Stat(jar); err != nil {
		return "", fmt.Errorf("jar %s not found: %w", dep.Jar, err)
	}
	return jar, nil
}

// resolveOne resolves a single dependency.
func (r *Resolver) resolveOne(ctx context.Context, base, name string, dep Dependency) (*ResolvedDep, error) {
	if dep.Path != "" {
		localPath := dep.Path
		if !filepath.IsAbs(localPath) {
			localPath = filepath.Join(base, localPath)
		}

		localPath, err := filepath.Abs(localPath)
		if err != nil {
			return nil, fmt.Errorf("invalid path %q: %w", dep.Path, err)
		}

		fi, err := os.Stat(localPath)
		if err != nil {
			return nil, fmt.Errorf("local dependency %q not found at %s: %w", name, localPath, err)
		}

		rd := &ResolvedDep{Name: name, LocalPath: localPath, Entry: localPath}
		if fi.IsDir() {
			if rd.Entry, err = entry(localPath, dep); err != nil {
				return nil, err
			}
			rd.Manifest, _ = Load(localPath)
		}
		return rd, nil
	}

	if dep.Git != "" {
		depDir := filepath.Join(r.manifest.DepsDir(), name)
		repo := gitCheckout{name: name, dir: depDir}

		// An unchanged tag stays on the commit recorded in the lock file.
		ref := dep.Tag
		locked := r.lock.FindLockedDep(name)
		if _, err := os.Stat(depDir); os.IsNotExist(err) {
			log.Infof("cloning %s from %s", name, dep.Git)
			if err := repo.clone(ctx, dep.Git); err != nil {
				return nil, err
			}
		} else if locked == nil || locked.Tag != dep.Tag {
			log.Infof("fetching %s", name)
			if err := repo.fetch(ctx); err != nil {
				return nil, err
			}
		}
		if locked != nil && locked.Tag == dep.Tag && locked.Commit != "" {
			ref = locked.Commit
		}

		if ref != "" {
			clean, err := repo.clean(ctx)
			if err != nil {
				return nil, err
			}
			if clean {
				if err := repo.checkout(ctx, ref); err != nil {
					return nil, err
				}
			} else {
				log.Warningf("%s has local changes; not checking out %s", depDir, ref)
			}
		}

		e, err := entry(depDir, dep)
		if err != nil {
			return nil, err
		}
		depManifest, _ := Load(depDir)
		return &ResolvedDep{Name: name, LocalPath: depDir, Entry: e, Manifest: depManifest}, nil
	}

	return nil, fmt.Errorf("classpath entry %q has no git or path specified", name)
}

// writeLock writes the resolved dependencies to the lock file.
func (r *Resolver) writeLock(ctx context.Context, resolved map[string]*ResolvedDep) error {
	lf := &LockFile{}

	for _, rd := range resolved {
		ld := LockedDep{Name: rd.Name}

		// Transitive entries are not in the project's classpath table and
		// are pinned by local path.
		dep := r.manifest.Classpath[rd.Name]
		switch {
		case dep.Git != "":
			ld.Git = dep.Git
			ld.Tag = dep.Tag
			ld.Jar = dep.Jar
			if commit, err := (gitCheckout{name: rd.Name, dir: rd.LocalPath}).head(ctx); err == nil {
				ld.Commit = commit
			}
		case dep.Path != "":
			ld.Path = dep.Path
			ld.Jar = dep.Jar
		default:
			ld.Path = rd.LocalPath
		}

		lf.Deps = append(lf.Deps, ld)
	}

	lockDir := filepath.Dir(r.manifest.LockFilePath())
	if err := os.MkdirAll(lockDir, 0755); err != nil {
		return err
	}

	return WriteLock(r.manifest.LockFilePath(), lf)
}
