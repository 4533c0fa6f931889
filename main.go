package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v3"

	gitsemver "github.com/bcomnes/gitsemver/pkg"
	"github.com/bcomnes/gitsemver/pkg/logging"
)

const name = "gitsemver"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp().Run(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(gitsemver.ExitCode(err))
	}
}

// app holds the dependencies the commands need so tests can swap git for
// an in-memory repository.
type app struct {
	newVCS    func(dir, binary string) gitsemver.VCS
	lookupEnv func(string) (string, bool)
}

func newApp() *cli.Command {
	a := &app{
		newVCS: func(dir, binary string) gitsemver.VCS {
			return gitsemver.NewGit(dir, binary)
		},
		lookupEnv: os.LookupEnv,
	}
	return a.command()
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:    name,
		Version: Version,
		Usage:   "keep a manifest version in step with git tags",
		Description: `gitsemver reads the nearest git tag, parses it as a version and compares it
with the version declared in the project manifest (Cargo.toml by default).

  gitsemver check-tags          exit 0 only if the manifest agrees with the tag
  gitsemver bump                rewrite the manifest version from the tag
  gitsemver bump --mode pep440  render the version in PEP 440 form (1.3.0rc1)

Settings are read from .gitsemver.yaml in --dir, then GITSEMVER_* environment
variables, then flags.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"C"},
				Value:   ".",
				Usage:   "repository directory",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "config file (default: <dir>/" + gitsemver.DefaultConfigFile + ")",
			},
			&cli.StringFlag{
				Name:  "manifest",
				Usage: "manifest path relative to --dir (default: " + gitsemver.DefaultManifest + ")",
			},
			&cli.StringFlag{
				Name:  "git",
				Usage: "git executable",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars(logging.EnvLogLevel),
			},
		},
		Commands: []*cli.Command{
			a.checkTagsCmd(),
			a.bumpCmd(),
		},
		// main maps errors to exit codes.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

func (a *app) checkTagsCmd() *cli.Command {
	return &cli.Command{
		Name:  "check-tags",
		Usage: "Check that the manifest version matches the latest tag",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, vcs, err := a.setup(cmd)
			if err != nil {
				return err
			}
			report, err := gitsemver.CheckTags(ctx, vcs, opts)
			printCheck(cmd.Root().Writer, report, err)
			return err
		},
	}
}

func (a *app) bumpCmd() *cli.Command {
	return &cli.Command{
		Name:      "bump",
		Usage:     "Rewrite the manifest version from the latest tag",
		ArgsUsage: "[manifest]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "mode",
				Usage: "output grammar: semver, pep440 or semver-commit (default: semver)",
			},
			&cli.BoolFlag{
				Name:  "dev",
				Usage: "write a development version (next patch, dev.N) when HEAD is past the tag",
			},
			&cli.StringSliceFlag{
				Name:  "dev-source",
				Usage: "with --dev, only write a development version when files matching this git pathspec changed since the tag (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "print the new version without writing the manifest",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, vcs, err := a.setup(cmd)
			if err != nil {
				return err
			}
			if cmd.IsSet("mode") {
				if opts.Mode, err = gitsemver.ParseMode(cmd.String("mode")); err != nil {
					return err
				}
			}
			if cmd.IsSet("dev") {
				opts.Dev = cmd.Bool("dev")
			}
			if cmd.IsSet("dev-source") {
				opts.DevSources = cmd.StringSlice("dev-source")
			}
			opts.DryRun = cmd.Bool("dry-run")
			if cmd.Args().Len() > 1 {
				return fmt.Errorf("bump takes at most one manifest argument, got %d", cmd.Args().Len())
			}
			if cmd.Args().Present() {
				opts.Manifest = cmd.Args().First()
			}

			meta, err := gitsemver.Bump(ctx, vcs, opts)
			if err != nil {
				return err
			}
			printBump(cmd.Root().Writer, meta)
			return nil
		},
	}
}

// setup configures logging and resolves configuration for a subcommand.
func (a *app) setup(cmd *cli.Command) (gitsemver.Options, gitsemver.VCS, error) {
	logging.SetDefaultStructuredLoggerWithLevel(name, Version, cmd.String("log-level"))

	dir := cmd.String("dir")
	cfgPath := cmd.String("config")
	required := cfgPath != ""
	if !required {
		cfgPath = filepath.Join(dir, gitsemver.DefaultConfigFile)
	}
	cfg, err := gitsemver.LoadConfig(cfgPath, required)
	if err != nil {
		return gitsemver.Options{}, nil, err
	}
	if err := cfg.ApplyEnv(a.lookupEnv); err != nil {
		return gitsemver.Options{}, nil, err
	}
	if cmd.IsSet("manifest") {
		cfg.Manifest = cmd.String("manifest")
	}
	if cmd.IsSet("git") {
		cfg.Git = cmd.String("git")
	}
	return gitsemver.OptionsFromConfig(dir, cfg), a.newVCS(dir, cfg.Git), nil
}
