package gitsemver

import (
	"regexp"
	"strconv"
	"strings"
)

// Description is the parsed output of `git describe --tags --long`, with
// Dirty set from the work tree state.
type Description struct {
	Tag      string // nearest reachable tag
	Distance int    // commits between the tag and HEAD
	Hash     string // abbreviated HEAD hash, without the "g" marker
	Dirty    bool   // working tree has uncommitted changes
}

var describeRe = regexp.MustCompile(`^(.+)-(\d+)-g([0-9a-f]+)$`)

// ParseDescribe splits describe output into its parts. Output without a
// distance suffix is treated as a bare tag at distance zero.
func ParseDescribe(out string) Description {
	s := strings.TrimSpace(out)
	var d Description
	if trimmed, ok := strings.CutSuffix(s, "-dirty"); ok {
		s = trimmed
		d.Dirty = true
	}
	m := describeRe.FindStringSubmatch(s)
	if m == nil {
		d.Tag = s
		return d
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		d.Tag = s
		return d
	}
	d.Tag = m[1]
	d.Distance = n
	d.Hash = m[3]
	return d
}

// OnTag reports whether HEAD is exactly the tagged commit with a clean tree.
func (d Description) OnTag() bool {
	return d.Distance == 0 && !d.Dirty
}

// String reassembles the describe form.
func (d Description) String() string {
	s := d.Tag
	if d.Hash != "" {
		s += "-" + strconv.Itoa(d.Distance) + "-g" + d.Hash
	}
	if d.Dirty {
		s += "-dirty"
	}
	return s
}
