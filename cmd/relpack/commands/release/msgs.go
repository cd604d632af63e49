package release

// Message constants
const (
	MsgShort = "Package a release snapshot of the current project"
	MsgLong  = `Package a release snapshot of the origin project into a destination
directory or a freshly-cloned git repository, following the [tool.relpack]
section of the project's pyproject.toml.

When the destination is a git@-prefixed repository URL, the result is
committed on a prepare_release_<version> branch and pushed.`

	MsgErrNoDestination  = "required flag --destination is not set"
	MsgErrBadDestination = "cannot resolve destination path"
)
