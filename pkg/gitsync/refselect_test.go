// Test Type: Unit Test
// Description: Tests for mirror refspec selection

package gitsync_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arthur-debert/relpack/pkg/gitsync"
)

func TestSelectRefsTagsAndHeadsMapIdentically(t *testing.T) {
	refs := []string{
		"refs/heads/master",
		"refs/tags/v1.0.0",
		"HEAD",
	}

	got := gitsync.SelectRefs(refs, "origin", "dest", nil)
	assert.Equal(t, []string{
		"refs/heads/master:refs/heads/master",
		"refs/tags/v1.0.0:refs/tags/v1.0.0",
	}, got)
}

func TestSelectRefsRemoteTrackingBecomesDestinationBranch(t *testing.T) {
	refs := []string{"refs/remotes/origin/feature"}

	got := gitsync.SelectRefs(refs, "origin", "dest", nil)
	assert.Equal(t, []string{"refs/remotes/origin/feature:refs/heads/feature"}, got)
}

func TestSelectRefsForcesWhenDestinationKnowsBranch(t *testing.T) {
	refs := []string{
		"refs/remotes/origin/feature",
		"refs/remotes/dest/feature",
	}

	got := gitsync.SelectRefs(refs, "origin", "dest", nil)
	// The destination-tracking ref itself never produces a refspec; it only
	// flips the matching source ref to a forced update.
	assert.Equal(t, []string{"+refs/remotes/origin/feature:refs/heads/feature"}, got)
}

func TestSelectRefsOutputIsSorted(t *testing.T) {
	refs := []string{
		"refs/tags/v2.0.0",
		"refs/heads/master",
		"refs/heads/alpha",
		"refs/tags/v1.0.0",
	}

	got := gitsync.SelectRefs(refs, "origin", "dest", nil)
	assert.Equal(t, []string{
		"refs/heads/alpha:refs/heads/alpha",
		"refs/heads/master:refs/heads/master",
		"refs/tags/v1.0.0:refs/tags/v1.0.0",
		"refs/tags/v2.0.0:refs/tags/v2.0.0",
	}, got)
}

func TestSelectRefsIgnoresForeignRemotes(t *testing.T) {
	refs := []string{
		"refs/remotes/upstream/master",
		"refs/stash",
	}

	got := gitsync.SelectRefs(refs, "origin", "dest", nil)
	assert.Empty(t, got)
}

func TestSelectRefsAllowListIsSubstringMatch(t *testing.T) {
	refs := []string{
		"refs/heads/main",
		"refs/heads/maintenance",
		"refs/heads/develop",
		"refs/tags/v1.0.0",
	}

	got := gitsync.SelectRefs(refs, "origin", "dest", []string{"main"})
	// Filtering for "main" also retains "maintenance"; the match is a plain
	// substring test.
	assert.Equal(t, []string{
		"refs/heads/main:refs/heads/main",
		"refs/heads/maintenance:refs/heads/maintenance",
	}, got)
}

func TestSelectRefsAllowListMultipleNames(t *testing.T) {
	refs := []string{
		"refs/heads/develop",
		"refs/heads/master",
		"refs/tags/v1.0.0",
	}

	got := gitsync.SelectRefs(refs, "origin", "dest", []string{"master", "v1"})
	assert.Equal(t, []string{
		"refs/heads/master:refs/heads/master",
		"refs/tags/v1.0.0:refs/tags/v1.0.0",
	}, got)
}
