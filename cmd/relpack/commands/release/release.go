// Package release implements the `relpack release` command.
package release

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/relpack/pkg/config"
	"github.com/arthur-debert/relpack/pkg/errors"
	"github.com/arthur-debert/relpack/pkg/execx"
	"github.com/arthur-debert/relpack/pkg/listener"
	pkgrelease "github.com/arthur-debert/relpack/pkg/release"
)

// NewCommand creates the release command. verbosity points at the root
// command's count flag and decides how chatty the progress listener is.
func NewCommand(verbosity *int) *cobra.Command {
	var (
		origin      string
		destination string
		authorEmail string
		authorName  string
	)

	cmd := &cobra.Command{
		Use:   "release",
		Short: MsgShort,
		Long:  MsgLong,
		RunE: func(cmd *cobra.Command, args []string) error {
			if destination == "" {
				return errors.New(errors.ErrUsage, MsgErrNoDestination)
			}

			cfg, err := config.LoadFromDir(origin)
			if err != nil {
				return err
			}

			// A git@-prefixed destination selects remote mode; anything
			// else is a local directory.
			if strings.HasPrefix(destination, "git@") {
				cfg.DestinationRepo = destination
			} else {
				abs, absErr := filepath.Abs(destination)
				if absErr != nil {
					return errors.Wrap(absErr, errors.ErrUsage, MsgErrBadDestination)
				}
				cfg.DestinationDir = abs
			}

			cfg.AuthorEmail = authorEmail
			cfg.AuthorName = authorName

			out := listener.NewWriter(os.Stdout, listenerLevel(*verbosity))
			packager := pkgrelease.NewPackager(cfg, execx.ExecRunner{}, out)
			return packager.Pack(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&origin, "origin", ".", "Source project root")
	cmd.Flags().StringVar(&destination, "destination", "", "Destination directory or git@-prefixed repository URL")
	cmd.Flags().StringVar(&authorEmail, "author_email", "", "Author email used when pushing to a remote")
	cmd.Flags().StringVar(&authorName, "author_name", "", "Author name used when pushing to a remote")

	return cmd
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
