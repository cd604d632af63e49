package gitsync

// Message constants
const (
	MsgShort = "Mirror all branches and tags from one repository to another"
	MsgLong  = `Mirror an entire git repository (all branches and tags) from a source
remote to a destination remote. Re-running the sync is idempotent: branches
already present on the destination are force-updated so the mirror stays
convergent.

The boolean flags can also be set through the environment variables
RELPACK_DRY_RUN and RELPACK_KEEP_SRC_REPO_DIR.`

	MsgErrMissingURL = "both --src and --dst are required"
)
