// Package gitsync implements the `relpack git-sync` command.
package gitsync

import (
	"os"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/relpack/pkg/errors"
	pkggitsync "github.com/arthur-debert/relpack/pkg/gitsync"
	"github.com/arthur-debert/relpack/pkg/listener"
)

// Environment variables overriding the boolean flags.
const (
	envPrefix         = "RELPACK_"
	envDryRun         = "dry.run"
	envKeepSrcRepoDir = "keep.src.repo.dir"
)

// NewCommand creates the git-sync command. verbosity points at the root
// command's count flag.
func NewCommand(verbosity *int) *cobra.Command {
	var (
		src            string
		dst            string
		branches       string
		dryRun         bool
		keepSrcRepoDir bool
	)

	cmd := &cobra.Command{
		Use:   "git-sync",
		Short: MsgShort,
		Long:  MsgLong,
		RunE: func(cmd *cobra.Command, args []string) error {
			if src == "" || dst == "" {
				return errors.New(errors.ErrUsage, MsgErrMissingURL)
			}

			cfg := pkggitsync.NewConfig(src, dst)
			if branches != "" {
				for _, name := range strings.Split(branches, ",") {
					if trimmed := strings.TrimSpace(name); trimmed != "" {
						cfg.BranchAllowList = append(cfg.BranchAllowList, trimmed)
					}
				}
			}
			cfg.DryRun = dryRun
			cfg.KeepSrcRepoDir = keepSrcRepoDir

			// Environment variables win over unset flags.
			applyEnvOverrides(cmd, cfg)

			out := listener.NewWriter(os.Stdout, listenerLevel(*verbosity))
			return pkggitsync.NewSyncer(cfg, out).Sync(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&src, "src", "", "Source repository URL")
	cmd.Flags().StringVar(&dst, "dst", "", "Destination repository URL")
	cmd.Flags().StringVar(&branches, "branches", "", "Comma-separated branch allow-list (empty = all)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the refspecs that would be pushed without pushing")
	cmd.Flags().BoolVar(&keepSrcRepoDir, "keep-src-repo-dir", false, "Reuse an existing local clone of the source")

	return cmd
}

// applyEnvOverrides folds RELPACK_DRY_RUN and RELPACK_KEEP_SRC_REPO_DIR
// into the config when the corresponding flag was not given explicitly.
func applyEnvOverrides(cmd *cobra.Command, cfg *pkggitsync.Config) {
	k := koanf.New(".")
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil); err != nil {
		return
	}

	if !cmd.Flags().Changed("dry-run") && k.Exists(envDryRun) {
		cfg.DryRun = k.Bool(envDryRun)
	}
	if !cmd.Flags().Changed("keep-src-repo-dir") && k.Exists(envKeepSrcRepoDir) {
		cfg.KeepSrcRepoDir = k.Bool(envKeepSrcRepoDir)
	}
}

func listenerLevel(verbosity int) listener.Verbosity {
	switch verbosity {
	case 0:
		return listener.Normal
	case 1:
		return listener.Verbose
	case 2:
		return listener.VeryVerbose
	default:
		return listener.Debug
	}
}
