package gitsemver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Mode selects the grammar a Version is rendered in.
type Mode string

const (
	// ModeSemver renders standard semantic versions, e.g. 1.3.0-rc.1.
	ModeSemver Mode = "semver"
	// ModePEP440 renders Python packaging versions, e.g. 1.3.0rc1.
	ModePEP440 Mode = "pep440"
	// ModeSemverCommit renders like ModeSemver but development versions
	// also carry the abbreviated commit hash, e.g. 1.2.1-dev.3.gabc1234.
	ModeSemverCommit Mode = "semver-commit"
)

// Modes lists every accepted mode in the order they are documented.
var Modes = []Mode{ModeSemver, ModePEP440, ModeSemverCommit}

// ParseMode converts a flag or config value into a Mode. The empty string
// is ModeSemver.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeSemver, nil
	case ModeSemver, ModePEP440, ModeSemverCommit:
		return m, nil
	}
	return "", newError(KindConfigInvalid, "unknown mode %q (want one of %s)", s, joinModes())
}

func joinModes() string {
	names := make([]string, len(Modes))
	for i, m := range Modes {
		names[i] = string(m)
	}
	return strings.Join(names, ", ")
}

// Version is a parsed version number. Prerelease holds dot separated
// identifiers in semver form without the leading "-", Build holds build
// metadata without the leading "+".
type Version struct {
	Major      uint64
	Minor      uint64
	Patch      uint64
	Prerelease string
	Build      string
}

// Official semver regex from semver.org.
var semverRe = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(?:-((?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*)(?:\.(?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*))*))?(?:\+([0-9a-zA-Z-]+(?:\.[0-9a-zA-Z-]+)*))?$`)

// Parse converts s into a Version. It accepts a strict semantic version
// first and falls back to a PEP 440 version. Use ParseTag for tag names.
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if v, ok := parseSemVer(s); ok {
		return v, nil
	}
	if v, ok := parsePEP440(s); ok {
		return v, nil
	}
	return Version{}, newError(KindMalformedVersion, "%q is neither a semantic version nor a PEP 440 version", s)
}

// MustParse is like Parse but panics on error. Only use it with literals.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("MustParse: %v", err))
	}
	return v
}

// ParseTag parses a tag name or git describe output. The describe suffix
// ("-<distance>-g<hash>" and "-dirty") is removed, then prefix, then a
// single leading "v" or "V".
func ParseTag(tag, prefix string) (Version, error) {
	name := ParseDescribe(tag).Tag
	if prefix != "" {
		name = strings.TrimPrefix(name, prefix)
	}
	name = strings.TrimPrefix(strings.TrimPrefix(name, "v"), "V")
	v, err := Parse(name)
	if err != nil {
		return Version{}, wrapError(KindMalformedVersion, err, "tag %q", tag)
	}
	return v, nil
}

func parseSemVer(s string) (Version, bool) {
	m := semverRe.FindStringSubmatch(s)
	if m == nil {
		return Version{}, false
	}
	var v Version
	var err error
	if v.Major, err = strconv.ParseUint(m[1], 10, 64); err != nil {
		return Version{}, false
	}
	if v.Minor, err = strconv.ParseUint(m[2], 10, 64); err != nil {
		return Version{}, false
	}
	if v.Patch, err = strconv.ParseUint(m[3], 10, 64); err != nil {
		return Version{}, false
	}
	v.Prerelease = m[4]
	v.Build = m[5]
	return v, true
}

// String returns the semver form without a "v" prefix.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// Render formats v in the given grammar.
func (v Version) Render(mode Mode) (string, error) {
	switch mode {
	case ModeSemver, ModeSemverCommit, "":
		return v.String(), nil
	case ModePEP440:
		return v.pep440()
	}
	return "", newError(KindConfigInvalid, "unknown mode %q", mode)
}

// IsPrerelease reports whether v carries pre-release identifiers.
func (v Version) IsPrerelease() bool {
	return v.Prerelease != ""
}

// Compare returns -1, 0 or +1 as v is older than, equal to or newer than w.
// Build metadata is ignored and a pre-release sorts before its release.
// When both pre-releases have a PEP 440 form they are ranked the PEP 440
// way (1.0.0.dev1 < 1.0.0a1 < 1.0.0rc1.dev2 < 1.0.0rc1), otherwise by
// semver precedence. Two spellings of the same PEP 440 version (rc1 and
// rc.1) are ordered by semver precedence.
func (v Version) Compare(w Version) int {
	if kv, ok := v.pep440Key(); ok {
		if kw, ok := w.pep440Key(); ok {
			if c := semver.Compare(kv, kw); c != 0 {
				return c
			}
		}
	}
	return semver.Compare(v.canonical(), w.canonical())
}

// Less reports whether v sorts before w.
func (v Version) Less(w Version) bool {
	return v.Compare(w) < 0
}

// Equal reports whether v and w are identical including build metadata.
func (v Version) Equal(w Version) bool {
	return v == w
}

func (v Version) canonical() string {
	s := fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	return s
}

// NextPatch returns v with the patch incremented and no pre-release or
// build metadata.
func (v Version) NextPatch() Version {
	return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
}

// WithPrerelease returns a copy of v with the pre-release replaced.
func (v Version) WithPrerelease(pre string) Version {
	v.Prerelease = pre
	return v
}

// Highest returns the newest of the versions and false if there are none.
func Highest(versions []Version) (Version, bool) {
	if len(versions) == 0 {
		return Version{}, false
	}
	best := versions[0]
	for _, v := range versions[1:] {
		if best.Less(v) {
			best = v
		}
	}
	return best, true
}
