package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	gitsemver "github.com/bcomnes/gitsemver/pkg"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

// printCheck writes the one-line check-tags status.
func printCheck(w io.Writer, r gitsemver.Report, err error) {
	if r.State == gitsemver.StateNoTag {
		if gitsemver.KindOf(err) == gitsemver.KindNoTagsFound {
			fmt.Fprintf(w, "%s no tags found\n", failStyle.Render("✗"))
		}
		return
	}

	mark := okStyle.Render("✓")
	suffix := ""
	if r.State != gitsemver.StateTagMatchesManifest {
		mark, suffix = warnStyle.Render("!"), " (allowed)"
		if !r.Accepted {
			mark, suffix = failStyle.Render("✗"), ""
		}
	}

	switch r.State {
	case gitsemver.StateTagMatchesManifest:
		fmt.Fprintf(w, "%s manifest version %s matches tag %s\n", mark, r.ManifestVersion, r.Tag)
	case gitsemver.StateTagAheadOfManifest:
		fmt.Fprintf(w, "%s tag %s is ahead of manifest version %s%s\n", mark, r.Tag, r.ManifestVersion, suffix)
	case gitsemver.StateTagBehindManifest:
		fmt.Fprintf(w, "%s manifest version %s is ahead of tag %s%s\n", mark, r.ManifestVersion, r.Tag, suffix)
	}
	printNewerTag(w, r.NewerTag)
}

func printNewerTag(w io.Writer, tag string) {
	if tag != "" {
		fmt.Fprintf(w, "%s newer tag %s is not reachable from HEAD\n", warnStyle.Render("!"), tag)
	}
}

// printBump writes the bump summary.
func printBump(w io.Writer, m gitsemver.BumpMeta) {
	switch {
	case !m.Changed():
		fmt.Fprintf(w, "%s version %s is up-to-date with tag %s\n", okStyle.Render("✓"), m.OldVersion, m.Tag)
		printNewerTag(w, m.NewerTag)
		return
	case m.DryRun:
		fmt.Fprintf(w, "%s dry run complete, no files were modified\n", warnStyle.Render("!"))
	default:
		fmt.Fprintf(w, "%s version bump successful\n", okStyle.Render("✓"))
	}
	fmt.Fprintf(w, "Old Version: %s\n", m.OldVersion)
	fmt.Fprintf(w, "New Version: %s\n", m.NewVersion)
	fmt.Fprintf(w, "Tag:         %s\n", m.Tag)
	fmt.Fprintf(w, "Mode:        %s\n", m.Mode)
	if m.DryRun {
		fmt.Fprintln(w, "Files that would be updated:")
	} else {
		fmt.Fprintln(w, "Files updated:")
	}
	for _, f := range m.UpdatedFiles {
		fmt.Fprintf(w, "  %s\n", f)
	}
	printNewerTag(w, m.NewerTag)
}
