package gitsemver

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
)

// Options configures CheckTags and Bump.
type Options struct {
	Dir        string // repository directory; relative manifest paths resolve against it
	Manifest   string // manifest path, DefaultManifest when empty
	VersionKey string // dotted version key, DefaultVersionKeys when empty
	TagPrefix  string // stripped from tag names before parsing
	Mode       Mode   // output grammar for bump
	Dev        bool   // write development versions when HEAD is past the tag
	DryRun     bool   // compute but do not write
	Policy     CheckPolicy

	// DevSources, when set, limits Dev to trees where files matching these
	// git pathspecs changed since the tag. Otherwise the tag version is
	// written.
	DevSources []string
}

// OptionsFromConfig builds Options for dir from cfg.
func OptionsFromConfig(dir string, cfg Config) Options {
	return Options{
		Dir:        dir,
		Manifest:   cfg.Manifest,
		VersionKey: cfg.VersionKey,
		TagPrefix:  cfg.TagPrefix,
		Mode:       cfg.Mode,
		Dev:        cfg.Dev,
		DevSources: cfg.DevSources,
		Policy:     cfg.Policy(),
	}
}

func (o Options) manifestPath() string {
	p := o.Manifest
	if p == "" {
		p = DefaultManifest
	}
	if filepath.IsAbs(p) || o.Dir == "" {
		return p
	}
	return filepath.Join(o.Dir, p)
}

// manifestPathspec returns the manifest path relative to Dir in slash
// form, or "" when the manifest lies outside Dir.
func (o Options) manifestPathspec() string {
	p := o.manifestPath()
	if filepath.IsAbs(p) {
		dir, err := filepath.Abs(o.Dir)
		if err != nil {
			return ""
		}
		if p, err = filepath.Rel(dir, p); err != nil {
			return ""
		}
	} else if o.Dir != "" {
		p, _ = filepath.Rel(o.Dir, p)
	}
	if p == "" || p == ".." || strings.HasPrefix(p, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.ToSlash(p)
}

func (o Options) excludes() []string {
	if p := o.manifestPathspec(); p != "" {
		return []string{p}
	}
	return nil
}

// Report is the result of CheckTags.
type Report struct {
	State           State
	Tag             string // nearest tag name
	TagVersion      Version
	ManifestPath    string
	ManifestVersion string // as written in the manifest
	Description     Description
	Accepted        bool
	NewerTag        string // a tag newer than Tag that HEAD does not contain
}

// BumpMeta holds metadata about a bump.
type BumpMeta struct {
	OldVersion   string // manifest version before the bump
	NewVersion   string // manifest version after the bump
	Tag          string // tag the version was derived from
	Mode         Mode
	State        State
	DryRun       bool
	UpdatedFiles []string // files written, or that would be written on a dry run
	NewerTag     string   // a tag newer than Tag that HEAD does not contain
}

// Changed reports whether the bump rewrote, or would rewrite, the manifest.
func (m BumpMeta) Changed() bool {
	return len(m.UpdatedFiles) > 0
}

type snapshot struct {
	desc     Description
	tag      Version
	manifest *Manifest
	declared Version
	newer    string
}

func load(ctx context.Context, vcs VCS, opts Options) (snapshot, error) {
	var s snapshot
	desc, tags, err := LatestTag(ctx, vcs, opts.excludes()...)
	if err != nil {
		return s, err
	}
	s.desc = desc
	if s.tag, err = ParseTag(desc.Tag, opts.TagPrefix); err != nil {
		return s, err
	}
	if name, v, ok := newestTag(tags, opts.TagPrefix); ok && s.tag.Less(v) {
		s.newer = name
		slog.Warn("a newer tag is not reachable from HEAD", "nearest", desc.Tag, "newer", name)
	}
	if s.manifest, err = LoadManifest(opts.manifestPath(), opts.VersionKey); err != nil {
		return s, err
	}
	if s.declared, err = Parse(s.manifest.Version()); err != nil {
		return s, wrapError(KindMalformedVersion, err, "manifest %s", s.manifest.Path())
	}
	return s, nil
}

// newestTag returns the highest version among tags. Tags that do not parse
// are skipped.
func newestTag(tags []string, prefix string) (string, Version, bool) {
	var names []string
	var versions []Version
	for _, t := range tags {
		v, err := ParseTag(t, prefix)
		if err != nil {
			continue
		}
		names = append(names, t)
		versions = append(versions, v)
	}
	best, ok := Highest(versions)
	if !ok {
		return "", Version{}, false
	}
	for i, v := range versions {
		if v.Equal(best) {
			return names[i], best, true
		}
	}
	return "", Version{}, false
}

// devSourcesChanged reports whether files matching opts.DevSources changed
// since tag, ignoring the manifest itself.
func devSourcesChanged(ctx context.Context, vcs VCS, opts Options, tag string) (bool, error) {
	specs := append([]string(nil), opts.DevSources...)
	for _, p := range opts.excludes() {
		specs = append(specs, ":(exclude)"+p)
	}
	files, err := vcs.ChangedFiles(ctx, tag, specs...)
	if err != nil {
		return false, err
	}
	slog.Debug("source changes since tag", "tag", tag, "files", files)
	return len(files) > 0, nil
}

// CheckTags verifies that the manifest version agrees with the latest tag
// under opts.Policy. The returned Report is filled in as far as the check
// got, even when an error is returned.
func CheckTags(ctx context.Context, vcs VCS, opts Options) (Report, error) {
	r := Report{State: StateNoTag, ManifestPath: opts.manifestPath()}
	s, err := load(ctx, vcs, opts)
	r.Description = s.desc
	r.Tag = s.desc.Tag
	r.TagVersion = s.tag
	r.NewerTag = s.newer
	if s.manifest != nil {
		r.ManifestVersion = s.manifest.Version()
	}
	if err != nil {
		return r, err
	}

	mode := opts.Mode
	if mode == "" {
		mode = ModeSemver
	}
	tag := normalizeIn(s.tag, mode)
	r.State = Classify(&tag, normalizeIn(s.declared, mode))
	r.Accepted = opts.Policy.Accepts(r.State, s.declared)
	slog.Info("checked tags", "tag", r.Tag, "manifest", r.ManifestVersion, "state", r.State.String(), "accepted", r.Accepted)

	if r.Accepted {
		return r, nil
	}
	switch r.State {
	case StateTagBehindManifest:
		return r, newError(KindVersionInconsistent,
			"manifest version %s is ahead of latest tag %s; tag the release commit before adding new changes",
			r.ManifestVersion, r.Tag)
	default:
		return r, newError(KindVersionMismatch,
			"manifest version %s is behind latest tag %s; run bump", r.ManifestVersion, r.Tag)
	}
}

// Bump rewrites the manifest version to the one derived from the latest
// tag. It is a no-op when they already agree and fails with
// KindVersionInconsistent when the manifest is ahead of the tag.
func Bump(ctx context.Context, vcs VCS, opts Options) (BumpMeta, error) {
	meta := BumpMeta{Mode: opts.Mode, DryRun: opts.DryRun}
	if meta.Mode == "" {
		meta.Mode = ModeSemver
	}
	s, err := load(ctx, vcs, opts)
	meta.Tag = s.desc.Tag
	meta.NewerTag = s.newer
	if s.manifest != nil {
		meta.OldVersion = s.manifest.Version()
	}
	if err != nil {
		return meta, err
	}

	desc := s.desc
	if opts.Dev && len(opts.DevSources) > 0 && !desc.OnTag() {
		changed, err := devSourcesChanged(ctx, vcs, opts, desc.Tag)
		if err != nil {
			return meta, err
		}
		if !changed {
			slog.Info("no source changes since tag, using the tag version", "tag", desc.Tag)
			desc.Distance, desc.Dirty = 0, false
		}
	}

	d, err := Plan(s.tag, s.declared, PlanOptions{Mode: meta.Mode, Dev: opts.Dev, Description: desc})
	if err != nil {
		return meta, err
	}
	meta.State = d.State
	meta.NewVersion = meta.OldVersion

	switch d.State {
	case StateTagBehindManifest:
		return meta, newError(KindVersionInconsistent,
			"manifest version %s is ahead of %s derived from tag %s", meta.OldVersion, d.Rendered, meta.Tag)
	case StateTagMatchesManifest:
		slog.Info("manifest is up to date", "version", meta.OldVersion, "tag", meta.Tag)
		return meta, nil
	}

	meta.NewVersion = d.Rendered
	if !s.manifest.SetVersion(d.Rendered) {
		return meta, nil
	}
	meta.UpdatedFiles = []string{s.manifest.Path()}
	if opts.DryRun {
		slog.Info("dry run, manifest not written", "path", s.manifest.Path(), "old", meta.OldVersion, "new", meta.NewVersion)
		return meta, nil
	}
	if err := s.manifest.Save(); err != nil {
		return meta, err
	}
	slog.Info("bumped manifest", "path", s.manifest.Path(), "old", meta.OldVersion, "new", meta.NewVersion)
	return meta, nil
}
