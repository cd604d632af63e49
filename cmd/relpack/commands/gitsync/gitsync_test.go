// Test Type: Unit Test
// Description: Tests for git-sync command argument and environment handling

package gitsync_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/relpack/cmd/relpack/commands/gitsync"
	"github.com/arthur-debert/relpack/pkg/errors"
)

func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	verbosity := 0
	cmd := gitsync.NewCommand(&verbosity)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestGitSyncRequiresURLs(t *testing.T) {
	err := runCommand(t)
	require.Error(t, err)
	assert.Equal(t, errors.ErrUsage, errors.GetCode(err))

	err = runCommand(t, "--src", "git@example.com:org/src.git")
	require.Error(t, err)
	assert.Equal(t, errors.ErrUsage, errors.GetCode(err))
}

func TestGitSyncDryRunFromEnvironment(t *testing.T) {
	src := initRepoWithCommit(t)
	dest := t.TempDir()
	_, err := git.PlainInit(dest, true)
	require.NoError(t, err)

	// The command must not push: RELPACK_DRY_RUN overrides the unset flag.
	t.Setenv("RELPACK_DRY_RUN", "true")
	chdirTemp(t)

	require.NoError(t, runCommand(t, "--src", src, "--dst", dest))

	destRepo, err := git.PlainOpen(dest)
	require.NoError(t, err)
	iter, err := destRepo.References()
	require.NoError(t, err)
	require.NoError(t, iter.ForEach(func(ref *plumbing.Reference) error {
		assert.NotContains(t, ref.Name().String(), "refs/heads/")
		return nil
	}))
}

// chdirTemp moves the working directory to a scratch location so the
// command's local clone does not land in the package directory.
func chdirTemp(t *testing.T) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(old))
	})
}

func initRepoWithCommit(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("hello"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("readme.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Dev", Email: "dev@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return dir
}
