package gitsemver

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// MemoryVCS is an in-memory VCS for tests and dry experiments. The last
// entry of TagNames is the tag nearest to HEAD.
type MemoryVCS struct {
	TagNames []string
	Distance int
	Hash     string
	// DirtyTree marks the work tree dirty regardless of Modified.
	DirtyTree bool
	// Modified lists tracked files with uncommitted changes.
	Modified []string
	// Committed lists files changed by commits since the nearest tag.
	Committed []string
	// Err, when set, is returned by every call.
	Err error
}

// NewMemoryVCS returns a MemoryVCS sitting exactly on the last of tags.
func NewMemoryVCS(tags ...string) *MemoryVCS {
	return &MemoryVCS{TagNames: tags, Hash: "0000000"}
}

// AddTag tags HEAD with name.
func (m *MemoryVCS) AddTag(name string) {
	m.TagNames = append(m.TagNames, name)
	m.Distance = 0
	m.Committed = nil
}

// Commit moves HEAD forward n commits.
func (m *MemoryVCS) Commit(n int) {
	m.Distance += n
}

// CommitFiles moves HEAD forward one commit touching files.
func (m *MemoryVCS) CommitFiles(files ...string) {
	m.Distance++
	m.Committed = append(m.Committed, files...)
}

// Tags implements VCS.
func (m *MemoryVCS) Tags(context.Context) ([]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]string(nil), m.TagNames...), nil
}

// Describe implements VCS.
func (m *MemoryVCS) Describe(context.Context) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.TagNames) == 0 {
		return "", newError(KindNoTagsFound, "no tag is reachable from HEAD")
	}
	hash := m.Hash
	if hash == "" {
		hash = "0000000"
	}
	return fmt.Sprintf("%s-%d-g%s", m.TagNames[len(m.TagNames)-1], m.Distance, hash), nil
}

// Dirty implements VCS.
func (m *MemoryVCS) Dirty(_ context.Context, exclude ...string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	if m.DirtyTree {
		return true, nil
	}
	for _, f := range m.Modified {
		if !matchesAny(f, exclude) {
			return true, nil
		}
	}
	return false, nil
}

// ChangedFiles implements VCS. Pathspecs support plain paths, directory
// prefixes, globs, ":/" and the ":(exclude)" magic.
func (m *MemoryVCS) ChangedFiles(_ context.Context, _ string, pathspecs ...string) ([]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var include, exclude []string
	for _, p := range pathspecs {
		if rest, ok := strings.CutPrefix(p, ":(exclude)"); ok {
			exclude = append(exclude, rest)
		} else {
			include = append(include, p)
		}
	}
	seen := map[string]bool{}
	var files []string
	for _, f := range append(append([]string(nil), m.Committed...), m.Modified...) {
		if seen[f] || matchesAny(f, exclude) {
			continue
		}
		if len(include) > 0 && !matchesAny(f, include) {
			continue
		}
		seen[f] = true
		files = append(files, f)
	}
	return files, nil
}

func matchesAny(file string, specs []string) bool {
	for _, spec := range specs {
		if pathspecMatch(spec, file) {
			return true
		}
	}
	return false
}

// pathspecMatch approximates git's default pathspec matching, where
// wildcards also cross directory separators.
func pathspecMatch(spec, file string) bool {
	if spec == ":/" || spec == "." || spec == file {
		return true
	}
	if strings.HasPrefix(file, strings.TrimSuffix(spec, "/")+"/") {
		return true
	}
	if ok, _ := path.Match(spec, file); ok {
		return true
	}
	if !strings.Contains(spec, "/") {
		ok, _ := path.Match(spec, path.Base(file))
		return ok
	}
	return false
}
