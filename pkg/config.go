package gitsemver

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is looked up in the working directory when no config
// path is given.
const DefaultConfigFile = ".gitsemver.yaml"

// Config is the file and environment configuration. Command line flags are
// applied on top by the caller.
type Config struct {
	Manifest   string      `yaml:"manifest"`
	VersionKey string      `yaml:"version_key"`
	TagPrefix  string      `yaml:"tag_prefix"`
	Mode       Mode        `yaml:"mode"`
	Dev        bool        `yaml:"dev"`
	DevSources []string    `yaml:"dev_sources"`
	Git        string      `yaml:"git"`
	Check      CheckConfig `yaml:"check"`
}

// CheckConfig mirrors CheckPolicy.
type CheckConfig struct {
	AllowManifestAhead   bool `yaml:"allow_manifest_ahead"`
	AllowTagAhead        bool `yaml:"allow_tag_ahead"`
	AllowPrereleaseAhead bool `yaml:"allow_prerelease_ahead"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Manifest:  DefaultManifest,
		TagPrefix: "v",
		Mode:      ModeSemver,
		Git:       "git",
	}
}

// Policy returns the check-tags policy.
func (c Config) Policy() CheckPolicy {
	return CheckPolicy{
		AllowManifestAhead:   c.Check.AllowManifestAhead,
		AllowTagAhead:        c.Check.AllowTagAhead,
		AllowPrereleaseAhead: c.Check.AllowPrereleaseAhead,
	}
}

//go:embed config.schema.json
var configSchemaJSON []byte

var configSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(configSchemaJSON))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("config.schema.json", doc); err != nil {
		return nil, err
	}
	return c.Compile("config.schema.json")
})

// LoadConfig reads the YAML config at path over DefaultConfig. A missing
// file is only an error when required is set.
func LoadConfig(path string, required bool) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, wrapError(KindConfigInvalid, err, "cannot read config %s", path)
	}
	if err := validateConfig(data); err != nil {
		return cfg, wrapError(KindConfigInvalid, err, "invalid config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, wrapError(KindConfigInvalid, err, "invalid config %s", path)
	}
	return cfg, nil
}

// validateConfig checks the YAML document against the embedded schema.
// The YAML is converted to JSON first so the validator sees plain JSON
// types.
func validateConfig(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		raw = map[string]any{}
	}
	js, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(js))
	if err != nil {
		return err
	}
	schema, err := configSchema()
	if err != nil {
		return err
	}
	return schema.Validate(inst)
}

// ApplyEnv overrides fields from GITSEMVER_* variables. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"GITSEMVER_MANIFEST", &c.Manifest},
		{"GITSEMVER_VERSION_KEY", &c.VersionKey},
		{"GITSEMVER_TAG_PREFIX", &c.TagPrefix},
		{"GITSEMVER_GIT", &c.Git},
	}
	for _, s := range strs {
		if v, ok := lookup(s.name); ok {
			*s.dst = v
		}
	}
	if v, ok := lookup("GITSEMVER_DEV_SOURCES"); ok {
		c.DevSources = splitList(v)
	}
	if v, ok := lookup("GITSEMVER_MODE"); ok {
		mode, err := ParseMode(v)
		if err != nil {
			return err
		}
		c.Mode = mode
	}
	bools := []struct {
		name string
		dst  *bool
	}{
		{"GITSEMVER_DEV", &c.Dev},
		{"GITSEMVER_ALLOW_MANIFEST_AHEAD", &c.Check.AllowManifestAhead},
		{"GITSEMVER_ALLOW_TAG_AHEAD", &c.Check.AllowTagAhead},
		{"GITSEMVER_ALLOW_PRERELEASE_AHEAD", &c.Check.AllowPrereleaseAhead},
	}
	for _, b := range bools {
		v, ok := lookup(b.name)
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return wrapError(KindConfigInvalid, err, "%s", b.name)
		}
		*b.dst = parsed
	}
	return nil
}

// splitList splits a comma separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
