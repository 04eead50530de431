package manifest

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// gitCheckout is a dependency working copy under DepsDir.
type gitCheckout struct {
	name string
	dir  string
}

// git runs git in the checkout and returns its trimmed standard output.
// Failures carry the dependency name and git's own message.
func (g gitCheckout) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if args[0] != "clone" {
		cmd.Dir = g.dir
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s: git %s: %s: %w", g.name, args[0], strings.TrimSpace(stderr.String()), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (g gitCheckout) clone(ctx context.Context, url string) error {
	_, err := g.git(ctx, "clone", "--quiet", url, g.dir)
	return err
}

func (g gitCheckout) fetch(ctx context.Context) error {
	_, err := g.git(ctx, "fetch", "--quiet", "--all", "--tags", "--force")
	return err
}

// checkout moves the working copy to ref, a tag or a commit.
func (g gitCheckout) checkout(ctx context.Context, ref string) error {
	_, err := g.git(ctx, "checkout", "--quiet", ref)
	return err
}

func (g gitCheckout) head(ctx context.Context) (string, error) {
	return g.git(ctx, "rev-parse", "HEAD")
}

// clean reports whether the working copy has no local changes.
func (g gitCheckout) clean(ctx context.Context) (bool, error) {
	out, err := g.git(ctx, "status", "--porcelain")
	return out == "", err
}
