package gitsemver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Release segments, an optional pre-release, an optional dev release and an
// optional local label. Epochs and post releases have no semver mapping and
// are rejected.
var pep440Re = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?` +
	`(?:[-_.]?(a|b|c|rc|alpha|beta|pre|preview)[-_.]?(\d+)?)?` +
	`(?:[-_.]?(dev)[-_.]?(\d+)?)?` +
	`(?:\+([a-z0-9]+(?:[-_.][a-z0-9]+)*))?$`)

var pep440PreLabels = map[string]string{
	"a":       "a",
	"alpha":   "a",
	"b":       "b",
	"beta":    "b",
	"c":       "rc",
	"rc":      "rc",
	"pre":     "rc",
	"preview": "rc",
}

func parsePEP440(s string) (Version, bool) {
	m := pep440Re.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return Version{}, false
	}
	var v Version
	var err error
	if v.Major, err = strconv.ParseUint(m[1], 10, 64); err != nil {
		return Version{}, false
	}
	if m[2] != "" {
		if v.Minor, err = strconv.ParseUint(m[2], 10, 64); err != nil {
			return Version{}, false
		}
	}
	if m[3] != "" {
		if v.Patch, err = strconv.ParseUint(m[3], 10, 64); err != nil {
			return Version{}, false
		}
	}

	var pre []string
	if m[4] != "" {
		n, ok := pep440Number(m[5])
		if !ok {
			return Version{}, false
		}
		pre = append(pre, pep440PreLabels[m[4]], n)
	}
	if m[6] != "" {
		n, ok := pep440Number(m[7])
		if !ok {
			return Version{}, false
		}
		pre = append(pre, "dev", n)
	}
	v.Prerelease = strings.Join(pre, ".")
	if m[8] != "" {
		v.Build = strings.NewReplacer("-", ".", "_", ".").Replace(m[8])
	}
	return v, true
}

// pep440Number normalizes an implicit or zero padded number.
func pep440Number(s string) (string, bool) {
	if s == "" {
		return "0", true
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return "", false
	}
	return strconv.FormatUint(n, 10), true
}

var preIdentRe = regexp.MustCompile(`^([a-z]+)(\d*)$`)

// pep440Phase ranks pre-release labels. A bare dev release sorts below
// every pre-release of the same release.
var pep440Phase = map[string]int{"": 0, "a": 1, "b": 2, "rc": 3}

// pep440Pre is a pre-release split into its PEP 440 segments.
type pep440Pre struct {
	label  string // "a", "b", "rc" or "" when there is no pre segment
	num    uint64
	hasDev bool
	dev    uint64
}

// splitPEP440Pre reads pre-release identifiers as an optional a/b/rc
// segment followed by an optional dev segment, with the number either fused
// ("rc1") or in the next identifier ("rc.1").
func splitPEP440Pre(prerelease string) (pep440Pre, bool) {
	var p pep440Pre
	if prerelease == "" {
		return p, true
	}
	ids := strings.Split(strings.ToLower(prerelease), ".")
	for i := 0; i < len(ids); i++ {
		m := preIdentRe.FindStringSubmatch(ids[i])
		if m == nil {
			return p, false
		}
		label, num := m[1], m[2]
		if num == "" && i+1 < len(ids) && isNumeric(ids[i+1]) {
			num = ids[i+1]
			i++
		}
		n := uint64(0)
		if num != "" {
			var err error
			if n, err = strconv.ParseUint(num, 10, 64); err != nil {
				return p, false
			}
		}
		switch {
		case label == "dev" && !p.hasDev:
			p.hasDev, p.dev = true, n
		case pep440PreLabels[label] != "" && p.label == "" && !p.hasDev:
			p.label, p.num = pep440PreLabels[label], n
		default:
			return p, false
		}
	}
	return p, true
}

// pep440 renders v as a normalized PEP 440 version.
func (v Version) pep440() (string, error) {
	p, ok := splitPEP440Pre(v.Prerelease)
	if !ok {
		return "", newError(KindMalformedVersion, "pre-release %q of %s has no PEP 440 form", v.Prerelease, v)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if p.label != "" {
		fmt.Fprintf(&b, "%s%d", p.label, p.num)
	}
	if p.hasDev {
		fmt.Fprintf(&b, ".dev%d", p.dev)
	}
	if v.Build != "" {
		b.WriteByte('+')
		b.WriteString(strings.ToLower(strings.ReplaceAll(v.Build, "-", ".")))
	}
	return b.String(), nil
}

// pep440Key returns a semver string that sorts like v does under PEP 440:
// dev releases before pre-releases, and a pre-release with a dev segment
// before the same pre-release without one. ok is false when the
// pre-release has no PEP 440 form.
func (v Version) pep440Key() (string, bool) {
	p, ok := splitPEP440Pre(v.Prerelease)
	if !ok {
		return "", false
	}
	key := fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease == "" {
		return key, true
	}
	final := 1
	if p.hasDev {
		final = 0
	}
	return fmt.Sprintf("%s-%d.%d.%d.%d", key, pep440Phase[p.label], p.num, final, p.dev), true
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
