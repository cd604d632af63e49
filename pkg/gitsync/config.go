// Package gitsync mirrors every branch and tag of one git repository to
// another, convergent across repeated runs.
package gitsync

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/arthur-debert/relpack/pkg/errors"
)

// Remote names used inside the local mirror clone.
const (
	SourceRemoteName      = "origin"
	DestinationRemoteName = "dest"
)

// Credentials is one side's SSH credential bundle. The conventional key
// location is only a default here; callers can point anywhere.
type Credentials struct {
	GitUser        string
	PrivateKeyPath string
	PublicKeyPath  string
	Passphrase     string
}

// DefaultCredentials returns the conventional git-over-SSH identity.
func DefaultCredentials() Credentials {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Credentials{
		GitUser:        "git",
		PrivateKeyPath: filepath.Join(home, ".ssh", "id_rsa"),
		PublicKeyPath:  filepath.Join(home, ".ssh", "id_rsa.pub"),
	}
}

// Config describes one mirror-sync run.
type Config struct {
	SrcURL string
	DstURL string

	Src Credentials
	Dst Credentials

	// BranchAllowList restricts the pushed refspecs when non-empty. The
	// match is a substring test against the refspec text.
	BranchAllowList []string

	// DryRun reports the refspecs that would be pushed without touching
	// the network.
	DryRun bool

	// KeepSrcRepoDir reuses an existing local clone of the source instead
	// of re-cloning it.
	KeepSrcRepoDir bool

	// WorkDir is where the local source clone lives. Defaults to the
	// current working directory.
	WorkDir string
}

// NewConfig builds a Config with default credentials on both sides.
func NewConfig(srcURL, dstURL string) *Config {
	return &Config{
		SrcURL:  srcURL,
		DstURL:  dstURL,
		Src:     DefaultCredentials(),
		Dst:     DefaultCredentials(),
		WorkDir: ".",
	}
}

// Validate checks that both URLs are syntactically valid repository URLs.
func (c *Config) Validate() error {
	if c.SrcURL == "" || c.DstURL == "" {
		return errors.New(errors.ErrUsage, "both source and destination URLs are required")
	}
	if _, err := transport.NewEndpoint(c.SrcURL); err != nil {
		return errors.Wrapf(err, errors.ErrDataErr, "invalid source URL %q", c.SrcURL)
	}
	if _, err := transport.NewEndpoint(c.DstURL); err != nil {
		return errors.Wrapf(err, errors.ErrDataErr, "invalid destination URL %q", c.DstURL)
	}
	return nil
}

// RepoDirName derives the local clone directory name from a repository URL:
// the last path segment with any .git suffix removed.
func RepoDirName(url string) string {
	trimmed := strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	// scp-like syntax (git@host:org/repo) has no scheme to parse; the last
	// segment after either separator is the repository name.
	if idx := strings.LastIndexAny(trimmed, "/:"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	return trimmed
}

// needsSSHAuth reports whether a URL uses an SSH transport.
func needsSSHAuth(url string) bool {
	if strings.HasPrefix(url, "ssh://") {
		return true
	}
	// scp-like: user@host:path
	return !strings.Contains(url, "://") && strings.Contains(url, "@") && strings.Contains(url, ":")
}
