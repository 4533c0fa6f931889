// Package gitsemver derives project versions from git tags.
//
// It provides functionalities for:
//   - Listing and describing tags through a VCS (Git shells out to git, MemoryVCS is for tests).
//   - Parsing tag and manifest strings into a Version, accepting semantic versions and PEP 440 versions.
//   - Rendering a Version in either grammar, independent of the grammar it was parsed from.
//   - Classifying the latest tag against the manifest version and planning a bump.
//   - Rewriting only the version value of a TOML or JSON manifest, leaving every other byte alone.
//
// Usage Example:
//
//	import (
//	    "context"
//	    "log"
//
//	    gitsemver "github.com/bcomnes/gitsemver/pkg"
//	)
//
//	func main() {
//	    opts := gitsemver.Options{Dir: ".", Manifest: "Cargo.toml", Mode: gitsemver.ModeSemver}
//	    meta, err := gitsemver.Bump(context.Background(), gitsemver.NewGit(".", "git"), opts)
//	    if err != nil {
//	        log.Fatalf("bump failed: %v", err)
//	    }
//	    log.Printf("%s -> %s", meta.OldVersion, meta.NewVersion)
//	}
//
// Errors are *Error values carrying a Kind; ExitCode maps them to process
// exit statuses.
package gitsemver
