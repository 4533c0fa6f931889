package gitsemver

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRepo writes a Cargo.toml declaring version into a temp dir and returns
// the dir together with options pointing at it.
func newRepo(t *testing.T, version string) (string, Options) {
	t.Helper()
	dir := t.TempDir()
	content := "[package]\nname = \"demo\"\nversion = \"" + version + "\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(content), 0o644))
	return dir, Options{Dir: dir, TagPrefix: "v"}
}

func readVersion(t *testing.T, dir string) string {
	t.Helper()
	m, err := LoadManifest(filepath.Join(dir, "Cargo.toml"), "")
	require.NoError(t, err)
	return m.Version()
}

func TestBumpFromLatestTag(t *testing.T) {
	ctx := context.Background()
	dir, opts := newRepo(t, "1.2.0")
	vcs := NewMemoryVCS("v1.2.0", "v1.2.1")

	meta, err := Bump(ctx, vcs, opts)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", meta.OldVersion)
	assert.Equal(t, "1.2.1", meta.NewVersion)
	assert.Equal(t, "v1.2.1", meta.Tag)
	assert.Equal(t, ModeSemver, meta.Mode)
	assert.Equal(t, StateTagAheadOfManifest, meta.State)
	assert.Equal(t, []string{filepath.Join(dir, "Cargo.toml")}, meta.UpdatedFiles)
	assert.Equal(t, "1.2.1", readVersion(t, dir))

	path := filepath.Join(dir, "Cargo.toml")
	before, err := os.Stat(path)
	require.NoError(t, err)

	meta, err = Bump(ctx, vcs, opts)
	require.NoError(t, err)
	assert.False(t, meta.Changed())
	assert.Equal(t, StateTagMatchesManifest, meta.State)
	assert.Equal(t, "1.2.1", meta.NewVersion)

	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before.ModTime(), after.ModTime())
}

func TestBumpPEP440(t *testing.T) {
	dir, opts := newRepo(t, "1.2.1")
	opts.Mode = ModePEP440

	meta, err := Bump(context.Background(), NewMemoryVCS("v1.2.1", "v1.3.0-rc.1"), opts)
	require.NoError(t, err)
	assert.Equal(t, "1.3.0rc1", meta.NewVersion)
	assert.Equal(t, "1.3.0rc1", readVersion(t, dir))

	meta, err = Bump(context.Background(), NewMemoryVCS("v1.2.1", "v1.3.0-rc.1"), opts)
	require.NoError(t, err)
	assert.False(t, meta.Changed())
}

func TestBumpDryRun(t *testing.T) {
	dir, opts := newRepo(t, "1.2.0")
	opts.DryRun = true

	meta, err := Bump(context.Background(), NewMemoryVCS("v1.2.1"), opts)
	require.NoError(t, err)
	assert.True(t, meta.DryRun)
	assert.True(t, meta.Changed())
	assert.Equal(t, "1.2.1", meta.NewVersion)
	assert.Equal(t, "1.2.0", readVersion(t, dir))
}

func TestBumpDev(t *testing.T) {
	dir, opts := newRepo(t, "1.2.1")
	opts.Dev = true
	vcs := NewMemoryVCS("v1.2.1")
	vcs.Commit(2)

	meta, err := Bump(context.Background(), vcs, opts)
	require.NoError(t, err)
	assert.Equal(t, "1.2.2-dev.2", meta.NewVersion)
	assert.Equal(t, "1.2.2-dev.2", readVersion(t, dir))

	vcs.AddTag("v1.2.2")
	meta, err = Bump(context.Background(), vcs, opts)
	require.NoError(t, err)
	assert.Equal(t, "1.2.2", meta.NewVersion)
}

func TestBumpManifestAhead(t *testing.T) {
	dir, opts := newRepo(t, "1.4.0")
	_, err := Bump(context.Background(), NewMemoryVCS("v1.2.1"), opts)
	require.Error(t, err)
	assert.Equal(t, KindVersionInconsistent, KindOf(err))
	assert.Equal(t, "1.4.0", readVersion(t, dir))
}

func TestNoTagsFound(t *testing.T) {
	_, opts := newRepo(t, "0.1.0")

	_, err := Bump(context.Background(), NewMemoryVCS(), opts)
	assert.Equal(t, KindNoTagsFound, KindOf(err))

	r, err := CheckTags(context.Background(), NewMemoryVCS(), opts)
	assert.Equal(t, KindNoTagsFound, KindOf(err))
	assert.Equal(t, StateNoTag, r.State)
	assert.False(t, r.Accepted)
}

func TestMissingManifest(t *testing.T) {
	opts := Options{Dir: t.TempDir(), TagPrefix: "v"}
	_, err := Bump(context.Background(), NewMemoryVCS("v1.0.0"), opts)
	assert.Equal(t, KindManifestNotFound, KindOf(err))

	_, err = CheckTags(context.Background(), NewMemoryVCS("v1.0.0"), opts)
	assert.Equal(t, KindManifestNotFound, KindOf(err))
}

func TestMalformedTag(t *testing.T) {
	_, opts := newRepo(t, "1.0.0")
	_, err := Bump(context.Background(), NewMemoryVCS("nightly"), opts)
	assert.Equal(t, KindMalformedVersion, KindOf(err))
}

func TestMalformedManifestVersion(t *testing.T) {
	_, opts := newRepo(t, "one point oh")
	_, err := CheckTags(context.Background(), NewMemoryVCS("v1.0.0"), opts)
	assert.Equal(t, KindMalformedVersion, KindOf(err))
}

func TestCheckTags(t *testing.T) {
	tests := []struct {
		name     string
		tags     []string
		manifest string
		mode     Mode
		policy   CheckPolicy
		state    State
		kind     Kind
	}{
		{"match", []string{"v1.2.0", "v1.2.1"}, "1.2.1", "", CheckPolicy{}, StateTagMatchesManifest, ""},
		{"tag ahead", []string{"v1.2.1"}, "1.2.0", "", CheckPolicy{}, StateTagAheadOfManifest, KindVersionMismatch},
		{"tag ahead allowed", []string{"v1.2.1"}, "1.2.0", "", CheckPolicy{AllowTagAhead: true}, StateTagAheadOfManifest, ""},
		{"manifest ahead", []string{"v1.2.1"}, "1.3.0", "", CheckPolicy{}, StateTagBehindManifest, KindVersionInconsistent},
		{"manifest ahead allowed", []string{"v1.2.1"}, "1.3.0", "", CheckPolicy{AllowManifestAhead: true}, StateTagBehindManifest, ""},
		{"dev ahead rejected", []string{"v1.2.1"}, "1.2.2-dev.3", "", CheckPolicy{}, StateTagBehindManifest, KindVersionInconsistent},
		{"dev ahead allowed", []string{"v1.2.1"}, "1.2.2-dev.3", "", CheckPolicy{AllowPrereleaseAhead: true}, StateTagBehindManifest, ""},
		{"release ahead with prerelease policy", []string{"v1.2.1"}, "1.3.0", "", CheckPolicy{AllowPrereleaseAhead: true}, StateTagBehindManifest, KindVersionInconsistent},
		{"pep440 match", []string{"v1.3.0-rc.1"}, "1.3.0rc1", ModePEP440, CheckPolicy{}, StateTagMatchesManifest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, opts := newRepo(t, tt.manifest)
			opts.Mode = tt.mode
			opts.Policy = tt.policy

			r, err := CheckTags(context.Background(), NewMemoryVCS(tt.tags...), opts)
			assert.Equal(t, tt.state, r.State)
			assert.Equal(t, tt.manifest, r.ManifestVersion)
			assert.Equal(t, tt.tags[len(tt.tags)-1], r.Tag)
			if tt.kind == "" {
				require.NoError(t, err)
				assert.True(t, r.Accepted)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.False(t, r.Accepted)
		})
	}
}

func TestCheckTagsAfterBump(t *testing.T) {
	_, opts := newRepo(t, "1.2.0")
	vcs := NewMemoryVCS("v1.2.0", "v1.2.1")

	_, err := CheckTags(context.Background(), vcs, opts)
	require.Error(t, err)

	_, err = Bump(context.Background(), vcs, opts)
	require.NoError(t, err)

	r, err := CheckTags(context.Background(), vcs, opts)
	require.NoError(t, err)
	assert.Equal(t, StateTagMatchesManifest, r.State)
}

func TestCustomTagPrefixAndKey(t *testing.T) {
	dir := t.TempDir()
	doc := "{\n  \"name\": \"web\",\n  \"version\": \"0.9.0\"\n}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(doc), 0o644))

	opts := Options{Dir: dir, Manifest: "package.json", VersionKey: "version", TagPrefix: "web-"}
	meta, err := Bump(context.Background(), NewMemoryVCS("web-1.0.0"), opts)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", meta.NewVersion)

	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"web\",\n  \"version\": \"1.0.0\"\n}\n", string(data))
}

func TestBumpDevIgnoresManifestChanges(t *testing.T) {
	dir, opts := newRepo(t, "1.2.1")
	opts.Dev = true
	vcs := NewMemoryVCS("v1.2.1")
	vcs.Commit(3)

	meta, err := Bump(context.Background(), vcs, opts)
	require.NoError(t, err)
	assert.Equal(t, "1.2.2-dev.3", meta.NewVersion)

	// The bump left Cargo.toml modified in the work tree.
	vcs.Modified = []string{"Cargo.toml"}
	meta, err = Bump(context.Background(), vcs, opts)
	require.NoError(t, err)
	assert.False(t, meta.Changed())
	assert.Equal(t, "1.2.2-dev.3", readVersion(t, dir))

	vcs.Modified = append(vcs.Modified, "src/lib.rs")
	meta, err = Bump(context.Background(), vcs, opts)
	require.NoError(t, err)
	assert.Equal(t, "1.2.2-dev.4", meta.NewVersion)
}

// gitRepo initializes a real git repository in a temp dir holding a
// committed Cargo.toml, skipping the test when git is not installed.
func gitRepo(t *testing.T, version string) (string, func(args ...string)) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir, _ := newRepo(t, version)
	runGit := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME=Test User",
			"GIT_AUTHOR_EMAIL=test@example.com",
			"GIT_COMMITTER_NAME=Test User",
			"GIT_COMMITTER_EMAIL=test@example.com",
		)
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, "git %v: %s", args, out)
	}
	runGit("init")
	runGit("add", ".")
	runGit("commit", "-m", "initial")
	return dir, runGit
}

func TestBumpDevIdempotentInGitRepo(t *testing.T) {
	dir, runGit := gitRepo(t, "1.2.0")
	runGit("tag", "v1.2.1")
	opts := Options{Dir: dir, TagPrefix: "v", Dev: true}
	git := NewGit(dir, "git")

	meta, err := Bump(context.Background(), git, opts)
	require.NoError(t, err)
	assert.Equal(t, "1.2.1", meta.NewVersion)

	for i := 0; i < 2; i++ {
		meta, err = Bump(context.Background(), git, opts)
		require.NoError(t, err)
		assert.False(t, meta.Changed(), "run %d rewrote the manifest to %s", i+2, meta.NewVersion)
	}
	assert.Equal(t, "1.2.1", readVersion(t, dir))

	runGit("commit", "--allow-empty", "-m", "one")
	runGit("commit", "--allow-empty", "-m", "two")
	meta, err = Bump(context.Background(), git, opts)
	require.NoError(t, err)
	assert.Equal(t, "1.2.2-dev.2", meta.NewVersion)

	meta, err = Bump(context.Background(), git, opts)
	require.NoError(t, err)
	assert.False(t, meta.Changed())
	assert.Equal(t, "1.2.2-dev.2", readVersion(t, dir))

	r, err := CheckTags(context.Background(), git, Options{Dir: dir, TagPrefix: "v", Policy: CheckPolicy{AllowPrereleaseAhead: true}})
	require.NoError(t, err)
	assert.Equal(t, "v1.2.1", r.Tag)
}

func TestBumpDevSources(t *testing.T) {
	_, opts := newRepo(t, "1.2.1")
	opts.Dev = true
	opts.DevSources = []string{"*.rs"}
	vcs := NewMemoryVCS("v1.2.1")
	vcs.CommitFiles("README.md")
	vcs.Modified = []string{"Cargo.toml"}

	meta, err := Bump(context.Background(), vcs, opts)
	require.NoError(t, err)
	assert.False(t, meta.Changed())
	assert.Equal(t, "1.2.1", meta.NewVersion)

	vcs.CommitFiles("src/lib.rs")
	meta, err = Bump(context.Background(), vcs, opts)
	require.NoError(t, err)
	assert.Equal(t, "1.2.2-dev.2", meta.NewVersion)
}

func TestBumpDevSourcesInGitRepo(t *testing.T) {
	dir, runGit := gitRepo(t, "0.3.0")
	runGit("tag", "v0.3.0")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("docs\n"), 0o644))
	runGit("add", "README.md")
	runGit("commit", "-m", "docs")

	opts := Options{Dir: dir, TagPrefix: "v", Dev: true, DevSources: []string{"src"}}
	meta, err := Bump(context.Background(), NewGit(dir, "git"), opts)
	require.NoError(t, err)
	assert.False(t, meta.Changed())

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "lib.rs"), []byte("fn main() {}\n"), 0o644))
	runGit("add", "src")
	runGit("commit", "-m", "code")
	meta, err = Bump(context.Background(), NewGit(dir, "git"), opts)
	require.NoError(t, err)
	assert.Equal(t, "0.3.1-dev.2", meta.NewVersion)
}

func TestNewerTagNotReachable(t *testing.T) {
	_, opts := newRepo(t, "1.0.0")
	vcs := NewMemoryVCS("v2.0.0", "nightly-build", "v1.0.0")

	r, err := CheckTags(context.Background(), vcs, opts)
	require.NoError(t, err)
	assert.Equal(t, "v1.0.0", r.Tag)
	assert.Equal(t, "v2.0.0", r.NewerTag)

	meta, err := Bump(context.Background(), vcs, opts)
	require.NoError(t, err)
	assert.Equal(t, "v2.0.0", meta.NewerTag)

	r, err = CheckTags(context.Background(), NewMemoryVCS("v0.9.0", "v1.0.0"), opts)
	require.NoError(t, err)
	assert.Empty(t, r.NewerTag)
}

func TestCheckTagsPEP440DevBeforePrerelease(t *testing.T) {
	_, opts := newRepo(t, "1.0.0rc1.dev2")
	opts.Mode = ModePEP440

	r, err := CheckTags(context.Background(), NewMemoryVCS("v1.0.0-rc.1"), opts)
	assert.Equal(t, StateTagAheadOfManifest, r.State)
	assert.Equal(t, KindVersionMismatch, KindOf(err))
}
