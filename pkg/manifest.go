package gitsemver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// Format is the syntax of a manifest file.
type Format string

const (
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// DefaultManifest is the manifest path used when none is configured.
const DefaultManifest = "Cargo.toml"

// DefaultVersionKeys are tried in order when no version key is configured.
// Exactly one of them must be present.
var DefaultVersionKeys = []string{"version", "package.version", "project.version"}

// Manifest is a project descriptor held as raw bytes plus the location of
// its version value. Only that span is ever rewritten.
type Manifest struct {
	path   string
	format Format
	key    string
	raw    []byte
	start  int // first byte of the version value, inside the quotes
	end    int // one past the last byte of the version value
	perm   fs.FileMode
}

// FormatFor picks the manifest format from the file extension. Anything
// that is not .json is read as TOML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatTOML
}

// LoadManifest reads the manifest at path and locates its version field.
// key is a dotted key such as "package.version"; empty means
// DefaultVersionKeys.
func LoadManifest(path, key string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, wrapError(KindManifestNotFound, err, "manifest %s not found", path)
		}
		return nil, wrapError(KindManifestNotFound, err, "cannot stat manifest %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapError(KindManifestNotFound, err, "cannot read manifest %s", path)
	}
	m, err := ParseManifest(path, data, key)
	if err != nil {
		return nil, err
	}
	m.perm = info.Mode().Perm()
	return m, nil
}

// ParseManifest locates the version field in data. path only selects the
// format and names the file in errors.
func ParseManifest(path string, data []byte, key string) (*Manifest, error) {
	m := &Manifest{path: path, format: FormatFor(path), raw: data, perm: 0o644}
	var err error
	switch m.format {
	case FormatJSON:
		err = m.locateJSON(key)
	default:
		err = m.locateTOML(key)
	}
	if err != nil {
		return nil, err
	}
	slog.Debug("located manifest version", "path", path, "format", m.format, "key", m.key, "version", m.Version())
	return m, nil
}

// Path returns the file the manifest was loaded from.
func (m *Manifest) Path() string { return m.path }

// Format returns the manifest syntax.
func (m *Manifest) Format() Format { return m.format }

// Key returns the dotted key of the version field.
func (m *Manifest) Key() string { return m.key }

// Version returns the declared version string.
func (m *Manifest) Version() string {
	return string(m.raw[m.start:m.end])
}

// Bytes returns the current document.
func (m *Manifest) Bytes() []byte {
	return m.raw
}

// SetVersion replaces the version value and reports whether it changed.
func (m *Manifest) SetVersion(v string) bool {
	if v == m.Version() {
		return false
	}
	out := make([]byte, 0, len(m.raw)-(m.end-m.start)+len(v))
	out = append(out, m.raw[:m.start]...)
	out = append(out, v...)
	out = append(out, m.raw[m.end:]...)
	m.raw = out
	m.end = m.start + len(v)
	return true
}

// Save writes the document back to its path. No backup is kept.
func (m *Manifest) Save() error {
	if err := os.WriteFile(m.path, m.raw, m.perm); err != nil {
		return fmt.Errorf("writing manifest %s: %w", m.path, err)
	}
	return nil
}

func (m *Manifest) malformed(cause error, format string, args ...any) *Error {
	e := wrapError(KindManifestMalformed, cause, format, args...)
	e.Message = m.path + ": " + e.Message
	return e
}

// candidateKey finds the single version key present in the document and
// returns it with its string value. lookup resolves a dotted key.
func (m *Manifest) candidateKey(key string, lookup func(string) (any, bool)) (string, string, error) {
	keys := DefaultVersionKeys
	if key != "" {
		keys = []string{key}
	}
	var found []string
	var value any
	for _, k := range keys {
		if v, ok := lookup(k); ok {
			found = append(found, k)
			value = v
		}
	}
	switch len(found) {
	case 0:
		return "", "", m.malformed(nil, "no version field (looked for %s)", strings.Join(keys, ", "))
	case 1:
	default:
		return "", "", m.malformed(nil, "more than one version field: %s", strings.Join(found, ", "))
	}
	s, ok := value.(string)
	if !ok {
		return "", "", m.malformed(nil, "%s is not a string", found[0])
	}
	return found[0], s, nil
}

var (
	tomlTableRe   = regexp.MustCompile(`^\s*\[\s*([^\[\]]+?)\s*\]\s*(#.*)?$`)
	tomlArrayRe   = regexp.MustCompile(`^\s*\[\[`)
	tomlKeyLineRe = regexp.MustCompile(`^\s*("[^"]*"|'[^']*'|[A-Za-z0-9_-]+)\s*=\s*("([^"\\]*)"|'([^']*)')`)
)

func (m *Manifest) locateTOML(key string) error {
	var doc map[string]any
	if _, err := toml.Decode(string(m.raw), &doc); err != nil {
		return m.malformed(err, "invalid TOML")
	}
	found, want, err := m.candidateKey(key, func(k string) (any, bool) {
		var cur any = doc
		for _, part := range strings.Split(k, ".") {
			table, ok := cur.(map[string]any)
			if !ok {
				return nil, false
			}
			if cur, ok = table[part]; !ok {
				return nil, false
			}
		}
		return cur, true
	})
	if err != nil {
		return err
	}
	m.key = found

	wantTable, wantKey := "", found
	if i := strings.LastIndex(found, "."); i >= 0 {
		wantTable, wantKey = found[:i], found[i+1:]
	}

	table := ""
	inMultiline := false
	offset := 0
	for _, line := range strings.SplitAfter(string(m.raw), "\n") {
		lineStart := offset
		offset += len(line)
		if strings.Count(line, `"""`)%2 == 1 || strings.Count(line, `'''`)%2 == 1 {
			inMultiline = !inMultiline
			continue
		}
		if inMultiline {
			continue
		}
		if tomlArrayRe.MatchString(line) {
			table = "\x00"
			continue
		}
		if h := tomlTableRe.FindStringSubmatch(strings.TrimRight(line, "\r\n")); h != nil {
			table = normalizeTOMLKey(h[1])
			continue
		}
		if table != wantTable {
			continue
		}
		km := tomlKeyLineRe.FindStringSubmatchIndex(line)
		if km == nil || unquoteTOMLKey(line[km[2]:km[3]]) != wantKey {
			continue
		}
		start, end := km[6], km[7]
		if start < 0 {
			start, end = km[8], km[9]
		}
		if line[start:end] != want {
			return m.malformed(nil, "%s uses escapes that cannot be rewritten in place", found)
		}
		m.start, m.end = lineStart+start, lineStart+end
		return nil
	}
	return m.malformed(nil, "%s is not written as a plain key/value line", found)
}

func normalizeTOMLKey(s string) string {
	parts := strings.Split(s, ".")
	for i, p := range parts {
		parts[i] = unquoteTOMLKey(strings.TrimSpace(p))
	}
	return strings.Join(parts, ".")
}

func unquoteTOMLKey(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

func (m *Manifest) locateJSON(key string) error {
	var doc map[string]any
	if err := json.Unmarshal(m.raw, &doc); err != nil {
		return m.malformed(err, "invalid JSON")
	}
	found, want, err := m.candidateKey(key, func(k string) (any, bool) {
		v, ok := doc[k]
		return v, ok
	})
	if err != nil {
		return err
	}
	m.key = found

	dec := json.NewDecoder(bytes.NewReader(m.raw))
	if _, err := dec.Token(); err != nil {
		return m.malformed(err, "invalid JSON")
	}
	seen := false
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return m.malformed(err, "invalid JSON")
		}
		name, _ := tok.(string)
		if name != found {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return m.malformed(err, "invalid JSON")
			}
			continue
		}
		if seen {
			return m.malformed(nil, "duplicate %q key", found)
		}
		seen = true
		keyEnd := int(dec.InputOffset())
		if _, err := dec.Token(); err != nil {
			return m.malformed(err, "invalid JSON")
		}
		valueEnd := int(dec.InputOffset())
		open := bytes.IndexByte(m.raw[keyEnd:valueEnd], '"')
		if open < 0 {
			return m.malformed(nil, "%s is not a string", found)
		}
		m.start, m.end = keyEnd+open+1, valueEnd-1
	}
	if _, err := dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return m.malformed(err, "invalid JSON")
	}
	if string(m.raw[m.start:m.end]) != want {
		return m.malformed(nil, "%s uses escapes that cannot be rewritten in place", found)
	}
	return nil
}
