// Package relpack assembles the command-line interface.
package relpack

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/relpack/cmd/relpack/commands/gitsync"
	"github.com/arthur-debert/relpack/cmd/relpack/commands/release"
	"github.com/arthur-debert/relpack/internal/version"
	"github.com/arthur-debert/relpack/pkg/logging"
)

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	var verbosity int

	rootCmd := &cobra.Command{
		Use:   "relpack",
		Short: "Prepare and publish release snapshots of a source repository",
		Long: `relpack copies a configured subset of a project into a release
destination, resolves and trims its dependency list, unpacks prebuilt
dependency archives, applies patches and optionally pushes the result as a
new branch. Its git-sync command mirrors all branches and tags of one
repository to another.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")

	rootCmd.AddCommand(release.NewCommand(&verbosity))
	rootCmd.AddCommand(gitsync.NewCommand(&verbosity))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("relpack version %s\n", version.Version)
			fmt.Printf("  commit: %s\n", version.Commit)
			fmt.Printf("  built:  %s\n", version.Date)
		},
	}
}
