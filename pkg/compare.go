package gitsemver

import "strconv"

// State is the relation between the latest tag and the manifest version.
type State int

const (
	// StateNoTag means the repository has no usable tag.
	StateNoTag State = iota
	// StateTagBehindManifest means the manifest declares a newer version
	// than the latest tag, usually a manual edit made before tagging.
	StateTagBehindManifest
	// StateTagMatchesManifest means nothing needs to change.
	StateTagMatchesManifest
	// StateTagAheadOfManifest means the manifest should be bumped.
	StateTagAheadOfManifest
)

func (s State) String() string {
	switch s {
	case StateNoTag:
		return "no-tag"
	case StateTagBehindManifest:
		return "tag-behind-manifest"
	case StateTagMatchesManifest:
		return "tag-matches-manifest"
	case StateTagAheadOfManifest:
		return "tag-ahead-of-manifest"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Classify compares a tag version with the manifest version. A nil tag is
// StateNoTag. Versions that only differ in build metadata are treated as
// the tag being ahead so the manifest picks up the tag's metadata.
func Classify(tag *Version, manifest Version) State {
	if tag == nil {
		return StateNoTag
	}
	switch c := tag.Compare(manifest); {
	case c < 0:
		return StateTagBehindManifest
	case c > 0:
		return StateTagAheadOfManifest
	}
	if tag.Build != manifest.Build {
		return StateTagAheadOfManifest
	}
	return StateTagMatchesManifest
}

// CheckPolicy decides which states check-tags accepts. The zero value only
// accepts StateTagMatchesManifest.
type CheckPolicy struct {
	// AllowManifestAhead accepts a manifest newer than the latest tag.
	AllowManifestAhead bool
	// AllowTagAhead accepts a tag newer than the manifest.
	AllowTagAhead bool
	// AllowPrereleaseAhead accepts a manifest newer than the latest tag
	// as long as the manifest version is a pre-release, which is what
	// bump writes for development versions.
	AllowPrereleaseAhead bool
}

// Accepts reports whether state passes the check for the given manifest
// version.
func (p CheckPolicy) Accepts(state State, manifest Version) bool {
	switch state {
	case StateTagMatchesManifest:
		return true
	case StateTagAheadOfManifest:
		return p.AllowTagAhead
	case StateTagBehindManifest:
		return p.AllowManifestAhead || (p.AllowPrereleaseAhead && manifest.IsPrerelease())
	}
	return false
}

// PlanOptions controls how Plan derives the target version.
type PlanOptions struct {
	Mode Mode
	// Dev derives a development version when HEAD is not exactly on the tag.
	Dev         bool
	Description Description
}

// Decision is the outcome of comparing a tag with the manifest.
type Decision struct {
	State    State
	Tag      Version // version parsed from the tag
	Manifest Version // version parsed from the manifest
	Target   Version // version the manifest should declare
	Rendered string  // Target in the requested mode
	Update   bool    // manifest must be rewritten
}

// Plan computes what bump should do. Both versions are normalized through
// the output grammar first, so 1.3.0rc1 in a manifest matches tag
// v1.3.0-rc.1 in pep440 mode.
func Plan(tag, manifest Version, opts PlanOptions) (Decision, error) {
	mode := opts.Mode
	if mode == "" {
		mode = ModeSemver
	}
	target := tag
	if opts.Dev && !opts.Description.OnTag() {
		target = DevVersion(tag, opts.Description, mode)
	}
	rendered, err := target.Render(mode)
	if err != nil {
		return Decision{}, err
	}
	normTarget := normalizeIn(target, mode)
	state := Classify(&normTarget, normalizeIn(manifest, mode))
	return Decision{
		State:    state,
		Tag:      tag,
		Manifest: manifest,
		Target:   target,
		Rendered: rendered,
		Update:   state == StateTagAheadOfManifest,
	}, nil
}

// normalizeIn round trips v through mode's grammar. Versions the grammar
// cannot express are returned unchanged.
func normalizeIn(v Version, mode Mode) Version {
	s, err := v.Render(mode)
	if err != nil {
		return v
	}
	n, err := Parse(s)
	if err != nil {
		return v
	}
	return n
}

// DevVersion returns the development version for a HEAD that is ahead of
// tag: the next patch with a "dev.N" pre-release, where N is the commit
// distance plus one for a dirty tree. ModeSemverCommit also appends the
// abbreviated commit hash.
func DevVersion(tag Version, d Description, mode Mode) Version {
	n := d.Distance
	if d.Dirty {
		n++
	}
	pre := "dev." + strconv.Itoa(n)
	if mode == ModeSemverCommit && d.Hash != "" {
		pre += ".g" + d.Hash
	}
	return tag.NextPatch().WithPrerelease(pre)
}
