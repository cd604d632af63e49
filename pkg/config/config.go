// Package config defines the typed release configuration loaded from a
// project's pyproject.toml and the CLI overrides applied on top of it.
package config

// CopyItem describes one source-to-destination copy. Origin is a path
// relative to the project root for local items, a package name for wheel
// items, or a repository URL for nested-repo items.
type CopyItem struct {
	Origin      string   `koanf:"from"`
	Destination string   `koanf:"to"`
	Ignores     []string `koanf:"ignores"`

	// Ref is the branch or tag cloned for nested-repo items. It may embed
	// $NAME$ and $VERSION$ placeholders resolved against the pinned spec of
	// PackageName.
	Ref         string `koanf:"ref"`
	PackageName string `koanf:"package_name"`

	// Platform restricts wheel downloads to one platform tag.
	Platform string `koanf:"platform"`
}

// PatchRule is one post-copy text substitution: a multiline,
// case-insensitive regex applied to every destination file matching Glob.
type PatchRule struct {
	Glob  string `koanf:"glob"`
	Regex string `koanf:"regex"`
	Subst string `koanf:"subst"`
}

// ReleaseConfig enumerates every recognized [tool.relpack] key. Absent keys
// take the zero-value defaults documented here rather than being silently
// omitted. Origin, destination and author fields are populated from the
// command line, never from the manifest.
type ReleaseConfig struct {
	// Origin is the source project root. Required before packaging starts.
	Origin string `koanf:"-"`

	// Exactly one of DestinationDir and DestinationRepo must be set when
	// packaging begins. When only DestinationRepo is given, a temporary
	// clone becomes the working destination directory for the run.
	DestinationDir  string `koanf:"-"`
	DestinationRepo string `koanf:"-"`

	// ReleaseRoot is the origin subdirectory copied verbatim as the
	// release's base layout. Required.
	ReleaseRoot string `koanf:"release-root"`

	// CommonIgnores applies to every local copy in addition to the
	// item-specific ignore lists. Default: none.
	CommonIgnores []string `koanf:"common-ignores"`

	// Ordered copy lists; later items overwrite earlier outputs and
	// nested-repo items run last among the copies. Defaults: empty.
	CopyLocal    []CopyItem `koanf:"copy-local"`
	CopyWheelSrc []CopyItem `koanf:"copy-wheel-src"`
	CopyRepoSrc  []CopyItem `koanf:"copy-repo-src"`

	// FileReplacePrefix, when set, renames every destination file whose
	// name starts with it, removing the prefix, after all copies complete.
	FileReplacePrefix string `koanf:"file-replace-prefix"`

	// Stage flags, all default false.
	CopyRequirements   bool `koanf:"copy-requirements"`
	ManagePyproject    bool `koanf:"manage-pyproject"`
	GeneratePoetryLock bool `koanf:"generate-poetry-lock"`
	RemoveTodo         bool `koanf:"remove-todo"`
	AddVersionJSON     bool `koanf:"add-version-json"`

	// FilterRequirementsMatches excludes exported dependency lines by glob.
	FilterRequirementsMatches []string `koanf:"filter-requirements-txt-matches"`

	// InstallDependencyGroups names dependency groups passed to the lock
	// export tool.
	InstallDependencyGroups []string `koanf:"install-dependencies-with-groups"`

	// Patches are applied in order after all copies.
	Patches []PatchRule `koanf:"patches"`

	// Version is the project's semantic version, read from [project] with
	// [tool.poetry] as fallback. Required when AddVersionJSON is set or the
	// run pushes to a remote.
	Version string `koanf:"-"`

	// Author identity, required only when pushing to a remote.
	AuthorEmail string `koanf:"-"`
	AuthorName  string `koanf:"-"`
}
