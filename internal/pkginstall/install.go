// Package pkginstall fetches a native-function plugin's source into a
// directory under noxy_libs/ derived from its repository path (for
// example noxy_libs/github_com/user/repo) by git clone/pull/checkout,
// adapted from the
// teacher interpreter's internal/pkgmanager. Bauble has no
// language-level module system (spec.md's Non-goals exclude one); this
// package repurposes the teacher's fetch mechanics as ops tooling for
// installing plugin executables such as cmd/noxy-plugin-dynamodb, not
// for resolving imports inside a Bauble program.
package pkginstall

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// PluginsDir is where installed plugin sources live, mirroring the
// teacher's noxy_libs/ convention. internal/plugin.Load also looks
// under this directory, but at noxy_libs/<name>/<executable>, which is
// not the repository-derived path Install writes to.
const PluginsDir = "noxy_libs"

// Install fetches pkgArg ("github.com/user/repo@version", version
// optional) into PluginsDir/<localPathFor(repo)>/, e.g.
// noxy_libs/github_com/user/repo, updating an existing checkout in
// place rather than re-cloning.
func Install(pkgArg string) error {
	repoURL, version := splitVersion(pkgArg)
	gitURL := withScheme(repoURL)
	targetDir := filepath.Join(PluginsDir, localPathFor(repoURL))

	if _, err := os.Stat(targetDir); err == nil {
		if err := runGit("-C", targetDir, "pull"); err != nil {
			return fmt.Errorf("update %s: %w", pkgArg, err)
		}
	} else {
		if err := runGit("clone", gitURL, targetDir); err != nil {
			return fmt.Errorf("clone %s: %w", pkgArg, err)
		}
	}

	if version != "" && version != "HEAD" {
		if err := runGit("-C", targetDir, "checkout", version); err != nil {
			return fmt.Errorf("checkout %s@%s: %w", repoURL, version, err)
		}
	}

	if err := os.RemoveAll(filepath.Join(targetDir, ".git")); err != nil {
		return fmt.Errorf("clean up %s: %w", pkgArg, err)
	}
	return nil
}

func splitVersion(pkgArg string) (repo string, version string) {
	parts := strings.SplitN(pkgArg, "@", 2)
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}

func withScheme(repoURL string) string {
	if strings.HasPrefix(repoURL, "http") || strings.HasPrefix(repoURL, "git@") {
		return repoURL
	}
	return "https://" + repoURL
}

// localPathFor turns "github.com/user/repo" into "github_com/user/repo"
// so dots in the host segment don't collide with path separators.
func localPathFor(repoURL string) string {
	parts := strings.Split(repoURL, "/")
	if len(parts) > 0 {
		parts[0] = strings.ReplaceAll(parts[0], ".", "_")
	}
	return filepath.FromSlash(strings.Join(parts, "/"))
}

// runGit runs `git <args...>` with its output wired to our own
// stdout/stderr, the one shape clone/pull/checkout all share.
func runGit(args ...string) error {
	cmd := exec.Command("git", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
