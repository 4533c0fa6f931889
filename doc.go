// Package main implements the gitsemver CLI tool.
//
// gitsemver derives a version number from git tag history and keeps the
// version declared in a project manifest in step with it. It shells out to
// git (`git tag --list`, `git describe --tags --long`, `git status`), parses
// the nearest tag as a semantic version or PEP 440 version, compares it with
// the manifest and, for bump, rewrites only the manifest's version value.
// Changes to the manifest itself never make the tree count as dirty, so
// repeated bumps are no-ops. A newer tag that HEAD cannot reach is reported
// as a warning.
//
// Command Usage:
//
//	gitsemver [global flags] check-tags
//	gitsemver [global flags] bump [--mode semver|pep440|semver-commit] [--dev [--dev-source pathspec]...] [--dry-run] [manifest]
//
// Global flags:
//
//	--dir, -C:    Repository directory. Relative manifest paths resolve against it.
//	--config:     Config file. Defaults to <dir>/.gitsemver.yaml, which is optional.
//	--manifest:   Manifest path (default "Cargo.toml"). TOML and JSON manifests are supported.
//	--git:        git executable to run.
//	--log-level:  debug, info, warn or error. Falls back to LOG_LEVEL, then warn.
//
// Exit codes:
//
//	0  success, or bump found nothing to do
//	1  usage error or unclassified failure
//	2  git is unavailable or failed
//	3  no tags found
//	4  malformed version
//	5  manifest not found
//	6  manifest malformed
//	7  manifest version ahead of the latest tag
//	8  invalid configuration
//	9  manifest version behind the latest tag (check-tags)
//
// Examples:
//
//	# Tags v1.2.0 and v1.2.1 exist, Cargo.toml declares 1.2.0.
//	gitsemver bump                # Cargo.toml now declares 1.2.1
//	gitsemver bump                # no-op
//	gitsemver check-tags          # exit 0
//
//	# Render a release candidate tag v1.3.0-rc.1 for pyproject.toml.
//	gitsemver --manifest pyproject.toml bump --mode pep440   # 1.3.0rc1
//
//	# Write development versions between releases (1.2.2-dev.3).
//	gitsemver bump --dev
//
//	# Only when something under src/ changed since the tag.
//	gitsemver bump --dev --dev-source src
//
// Whether check-tags accepts a manifest ahead of the tag, or a tag ahead of
// the manifest, is configured explicitly in .gitsemver.yaml:
//
//	check:
//	  allow_manifest_ahead: false
//	  allow_tag_ahead: false
//	  allow_prerelease_ahead: true
//
// For the library API see the "pkg" package.
package main
