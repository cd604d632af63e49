package gitsync

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"github.com/rs/zerolog"

	"github.com/arthur-debert/relpack/pkg/errors"
	"github.com/arthur-debert/relpack/pkg/listener"
	"github.com/arthur-debert/relpack/pkg/logging"
)

// Syncer replicates all branches and tags from a source repository to a
// destination repository.
type Syncer struct {
	cfg    *Config
	out    listener.Listener
	logger zerolog.Logger
}

// NewSyncer builds a Syncer. A nil listener reports nowhere.
func NewSyncer(cfg *Config, out listener.Listener) *Syncer {
	return &Syncer{
		cfg:    cfg,
		out:    listener.OrNull(out),
		logger: logging.GetLogger("gitsync.syncer"),
	}
}

// Sync clones or reuses the source repository, fetches the destination's
// reference set, computes the refspecs to push and pushes them one at a
// time. A failing push is reported and does not abort the remaining refs.
func (s *Syncer) Sync(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	// Credentials are resolved before any network activity so a broken key
	// setup fails the run as a configuration error.
	srcAuth, err := buildAuth(s.cfg.SrcURL, s.cfg.Src)
	if err != nil {
		return err
	}
	dstAuth, err := buildAuth(s.cfg.DstURL, s.cfg.Dst)
	if err != nil {
		return err
	}

	s.out.Message(fmt.Sprintf("Syncing repo %s to %s", s.cfg.SrcURL, s.cfg.DstURL), listener.VeryVerbose)

	repo, err := s.cloneOrReuse(ctx, srcAuth)
	if err != nil {
		return err
	}

	if err := s.ensureDestinationRemote(ctx, repo, dstAuth); err != nil {
		return err
	}

	allRefs, err := listRefs(repo)
	if err != nil {
		return err
	}

	refspecs := SelectRefs(allRefs, SourceRemoteName, DestinationRemoteName, s.cfg.BranchAllowList)
	s.out.Message(fmt.Sprintf("Pushing refs: %v", refspecs), listener.Verbose)

	if s.cfg.DryRun {
		s.out.Message("DRY-RUN: pushing next refs to destination repo", listener.Quiet)
		for _, refspec := range refspecs {
			s.out.Message(fmt.Sprintf("  -> %s", refspec), listener.Quiet)
		}
		return nil
	}

	for _, refspec := range refspecs {
		s.out.Message(fmt.Sprintf("Pushing: %s", refspec), listener.Verbose)
		if err := s.pushOne(ctx, repo, refspec, dstAuth); err != nil {
			// One broken ref must not block the rest of the mirror.
			s.out.Message(fmt.Sprintf("FAILED to push refspec: %s", refspec), listener.Verbose)
			s.out.Message(err.Error(), listener.Verbose)
			s.logger.Warn().Err(err).Str("refspec", refspec).Msg("Push failed")
			continue
		}
		s.out.Message(fmt.Sprintf("SUCCESS to push: %s", refspec), listener.Verbose)
	}

	s.out.Message("Push completed successfully.", listener.Quiet)
	return nil
}

// cloneOrReuse prepares the local bare clone of the source repository.
func (s *Syncer) cloneOrReuse(ctx context.Context, auth transport.AuthMethod) (*git.Repository, error) {
	clonePath := filepath.Join(s.cfg.WorkDir, RepoDirName(s.cfg.SrcURL))

	if _, err := os.Stat(clonePath); err == nil {
		if s.cfg.KeepSrcRepoDir {
			repo, openErr := git.PlainOpen(clonePath)
			if openErr != nil {
				return nil, errors.Wrapf(openErr, errors.ErrGitClone, "cannot reuse existing clone %s", clonePath)
			}
			fetchErr := repo.FetchContext(ctx, &git.FetchOptions{
				RemoteName: SourceRemoteName,
				Auth:       auth,
			})
			if fetchErr != nil && fetchErr != git.NoErrAlreadyUpToDate {
				return nil, errors.Wrap(fetchErr, errors.ErrGitFetch, "failed to fetch source updates")
			}
			return repo, nil
		}
		s.out.Message(fmt.Sprintf("Removing existing directory %s", clonePath), listener.Verbose)
		if err := os.RemoveAll(clonePath); err != nil {
			return nil, errors.Wrapf(err, errors.ErrInternal, "cannot remove existing directory %s", clonePath)
		}
	}

	s.out.Message(fmt.Sprintf("Cloning %s into %s", s.cfg.SrcURL, clonePath), listener.Quiet)

	repo, err := git.PlainCloneContext(ctx, clonePath, true, &git.CloneOptions{
		URL:  s.cfg.SrcURL,
		Auth: auth,
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrGitClone, "failed to clone %s", s.cfg.SrcURL)
	}
	return repo, nil
}

// ensureDestinationRemote registers (or refreshes) the destination remote
// and fetches it to learn the destination's current reference set.
func (s *Syncer) ensureDestinationRemote(ctx context.Context, repo *git.Repository, auth transport.AuthMethod) error {
	remote, err := repo.Remote(DestinationRemoteName)
	switch {
	case err == git.ErrRemoteNotFound:
		s.out.Message(fmt.Sprintf("Adding remote '%s' with URL %s", DestinationRemoteName, s.cfg.DstURL), listener.Quiet)
		_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
			Name: DestinationRemoteName,
			URLs: []string{s.cfg.DstURL},
		})
		if err != nil {
			return errors.Wrap(err, errors.ErrGitFetch, "failed to create destination remote")
		}
	case err != nil:
		return errors.Wrap(err, errors.ErrGitFetch, "failed to look up destination remote")
	default:
		if urls := remote.Config().URLs; len(urls) == 0 || urls[0] != s.cfg.DstURL {
			s.out.Message(fmt.Sprintf("Remote '%s' already exists. Updating URL.", DestinationRemoteName), listener.Quiet)
			if err := repo.DeleteRemote(DestinationRemoteName); err != nil {
				return errors.Wrap(err, errors.ErrGitFetch, "failed to refresh destination remote")
			}
			_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
				Name: DestinationRemoteName,
				URLs: []string{s.cfg.DstURL},
			})
			if err != nil {
				return errors.Wrap(err, errors.ErrGitFetch, "failed to refresh destination remote")
			}
		}
	}

	fetchErr := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: DestinationRemoteName,
		Auth:       auth,
	})
	if fetchErr != nil &&
		fetchErr != git.NoErrAlreadyUpToDate &&
		fetchErr != transport.ErrEmptyRemoteRepository {
		return errors.Wrap(fetchErr, errors.ErrGitFetch, "failed to fetch destination remote")
	}
	return nil
}

func (s *Syncer) pushOne(ctx context.Context, repo *git.Repository, refspec string, auth transport.AuthMethod) error {
	err := repo.PushContext(ctx, &git.PushOptions{
		RemoteName: DestinationRemoteName,
		RefSpecs:   []gitconfig.RefSpec{gitconfig.RefSpec(refspec)},
		Auth:       auth,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return errors.Wrapf(err, errors.ErrGitPush, "push of %s failed", refspec)
	}
	return nil
}

func listRefs(repo *git.Repository) ([]string, error) {
	iter, err := repo.References()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to list references")
	}
	var refs []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		refs = append(refs, ref.Name().String())
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to iterate references")
	}
	return refs, nil
}

// buildAuth resolves SSH credentials for URLs that need them. Non-SSH URLs
// (local paths, http) use no explicit auth.
func buildAuth(url string, creds Credentials) (transport.AuthMethod, error) {
	if !needsSSHAuth(url) {
		return nil, nil
	}
	auth, err := gitssh.NewPublicKeysFromFile(creds.GitUser, creds.PrivateKeyPath, creds.Passphrase)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrGitAuth,
			"cannot load SSH key %s for %s", creds.PrivateKeyPath, url)
	}
	return auth, nil
}
