package gitsemver

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os/exec"
	"strings"
)

// VCS is the part of version control gitsemver reads.
type VCS interface {
	// Tags lists every tag in the repository.
	Tags(ctx context.Context) ([]string, error)
	// Describe returns `git describe --tags --long` style output for HEAD.
	Describe(ctx context.Context) (string, error)
	// Dirty reports whether tracked files have uncommitted changes,
	// ignoring the paths in exclude.
	Dirty(ctx context.Context, exclude ...string) (bool, error)
	// ChangedFiles lists tracked files that differ between the tag since and
	// the working tree, limited to git pathspecs.
	ChangedFiles(ctx context.Context, since string, pathspecs ...string) ([]string, error)
}

// runFunc executes name with args in dir and returns its stdout and stderr.
type runFunc func(ctx context.Context, dir, name string, args ...string) (stdout, stderr []byte, err error)

func execRun(ctx context.Context, dir, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Git is the VCS backed by the git command line client.
type Git struct {
	Binary string // executable name or path, "git" when empty
	Dir    string // repository directory, the process working directory when empty

	run runFunc
}

// NewGit returns a Git that runs binary in dir.
func NewGit(dir, binary string) *Git {
	return &Git{Binary: binary, Dir: dir}
}

func (g *Git) exec(ctx context.Context, args ...string) ([]byte, []byte, error) {
	bin := g.Binary
	if bin == "" {
		bin = "git"
	}
	run := g.run
	if run == nil {
		run = execRun
	}
	slog.Debug("running git", "binary", bin, "dir", g.Dir, "args", args)
	stdout, stderr, err := run(ctx, g.Dir, bin, args...)
	if err == nil {
		return stdout, stderr, nil
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) && pathErr.Op == "chdir" {
		return nil, stderr, wrapError(KindVcsUnavailable, err, "cannot enter repository directory %s", g.Dir)
	}
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return nil, stderr, wrapError(KindVcsUnavailable, err, "git executable %q not found", bin)
	}
	return stdout, stderr, err
}

// Tags runs `git tag --list`.
func (g *Git) Tags(ctx context.Context) ([]string, error) {
	out, stderr, err := g.exec(ctx, "tag", "--list")
	if err != nil {
		return nil, gitFailure(err, stderr, "git tag failed")
	}
	var tags []string
	for _, line := range strings.Split(string(out), "\n") {
		if t := strings.TrimSpace(line); t != "" {
			tags = append(tags, t)
		}
	}
	return tags, nil
}

// Describe runs `git describe --tags --long`. The dirty state comes from
// Dirty so the manifest can be left out of it.
func (g *Git) Describe(ctx context.Context) (string, error) {
	out, stderr, err := g.exec(ctx, "describe", "--tags", "--long")
	if err != nil {
		if KindOf(err) == "" && noTagsMessage(stderr) {
			return "", wrapError(KindNoTagsFound, err, "no tag is reachable from HEAD")
		}
		return "", gitFailure(err, stderr, "git describe failed")
	}
	return strings.TrimSpace(string(out)), nil
}

// Dirty runs `git status --porcelain` over the whole work tree minus
// exclude. Untracked files do not count, matching `git describe --dirty`.
func (g *Git) Dirty(ctx context.Context, exclude ...string) (bool, error) {
	args := []string{"status", "--porcelain", "--untracked-files=no", "--", ":/"}
	for _, p := range exclude {
		args = append(args, ":(exclude)"+p)
	}
	out, stderr, err := g.exec(ctx, args...)
	if err != nil {
		return false, gitFailure(err, stderr, "git status failed")
	}
	return len(bytes.TrimSpace(out)) > 0, nil
}

// ChangedFiles runs `git diff --name-only <since> -- <pathspecs>`.
func (g *Git) ChangedFiles(ctx context.Context, since string, pathspecs ...string) ([]string, error) {
	args := append([]string{"diff", "--name-only", since, "--"}, pathspecs...)
	out, stderr, err := g.exec(ctx, args...)
	if err != nil {
		return nil, gitFailure(err, stderr, "git diff failed")
	}
	var files []string
	for _, line := range strings.Split(string(out), "\n") {
		if f := strings.TrimSpace(line); f != "" {
			files = append(files, f)
		}
	}
	return files, nil
}

func noTagsMessage(stderr []byte) bool {
	s := string(stderr)
	return strings.Contains(s, "No names found") ||
		strings.Contains(s, "No tags can describe") ||
		strings.Contains(s, "cannot describe anything")
}

func gitFailure(err error, stderr []byte, msg string) error {
	if KindOf(err) != "" {
		return err
	}
	if detail := strings.TrimSpace(string(stderr)); detail != "" {
		return wrapError(KindVcsUnavailable, err, "%s: %s", msg, detail)
	}
	return wrapError(KindVcsUnavailable, err, "%s", msg)
}

// LatestTag fetches the tag list and the description of HEAD. Changes to
// the paths in exclude do not make the description dirty. It fails with
// KindNoTagsFound when the repository has no tags at all.
func LatestTag(ctx context.Context, vcs VCS, exclude ...string) (Description, []string, error) {
	tags, err := vcs.Tags(ctx)
	if err != nil {
		return Description{}, nil, err
	}
	if len(tags) == 0 {
		return Description{}, nil, newError(KindNoTagsFound, "no tags found in repository")
	}
	out, err := vcs.Describe(ctx)
	if err != nil {
		return Description{}, tags, err
	}
	d := ParseDescribe(out)
	dirty, err := vcs.Dirty(ctx, exclude...)
	if err != nil {
		return Description{}, tags, err
	}
	d.Dirty = d.Dirty || dirty
	slog.Debug("described HEAD", "tag", d.Tag, "distance", d.Distance, "hash", d.Hash, "dirty", d.Dirty)
	return d, tags, nil
}
