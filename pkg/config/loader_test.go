// Test Type: Unit Test
// Description: Tests for release configuration loading and validation

package config_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/relpack/pkg/config"
	"github.com/arthur-debert/relpack/pkg/errors"
	"github.com/arthur-debert/relpack/pkg/testutil"
)

const fullManifest = `
[project]
name = "demo"
version = "2.5.1"

[tool.relpack]
release-root = "src"
common-ignores = ["*.pyc", "__pycache__"]
copy-requirements = true
manage-pyproject = true
generate-poetry-lock = false
remove-todo = true
file-replace-prefix = "tmpl_"
filter-requirements-txt-matches = ["pywin32*"]
install-dependencies-with-groups = ["main"]
add-version-json = true

[[tool.relpack.copy-local]]
from = "docs"
to = "docs"
ignores = ["*.tmp"]

[[tool.relpack.copy-wheel-src]]
from = "numpy"
to = "vendor/numpy"
platform = "manylinux2014_x86_64"

[[tool.relpack.copy-repo-src]]
from = "git@example.com:org/lib.git"
to = "vendor/lib"
ref = "release/$NAME$-$VERSION$"
package_name = "lib"

[[tool.relpack.patches]]
glob = "*.py"
regex = "import internal"
subst = "import public"
`

func TestLoadFromDirFullConfig(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateFile(t, filepath.Join(dir, "pyproject.toml"), fullManifest)

	cfg, err := config.LoadFromDir(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.Origin)
	assert.Equal(t, "src", cfg.ReleaseRoot)
	assert.Equal(t, []string{"*.pyc", "__pycache__"}, cfg.CommonIgnores)
	assert.True(t, cfg.CopyRequirements)
	assert.True(t, cfg.ManagePyproject)
	assert.False(t, cfg.GeneratePoetryLock)
	assert.True(t, cfg.RemoveTodo)
	assert.True(t, cfg.AddVersionJSON)
	assert.Equal(t, "tmpl_", cfg.FileReplacePrefix)
	assert.Equal(t, []string{"pywin32*"}, cfg.FilterRequirementsMatches)
	assert.Equal(t, []string{"main"}, cfg.InstallDependencyGroups)
	assert.Equal(t, "2.5.1", cfg.Version)

	require.Len(t, cfg.CopyLocal, 1)
	assert.Equal(t, "docs", cfg.CopyLocal[0].Origin)
	assert.Equal(t, []string{"*.tmp"}, cfg.CopyLocal[0].Ignores)

	require.Len(t, cfg.CopyWheelSrc, 1)
	assert.Equal(t, "numpy", cfg.CopyWheelSrc[0].Origin)
	assert.Equal(t, "manylinux2014_x86_64", cfg.CopyWheelSrc[0].Platform)

	require.Len(t, cfg.CopyRepoSrc, 1)
	assert.Equal(t, "release/$NAME$-$VERSION$", cfg.CopyRepoSrc[0].Ref)
	assert.Equal(t, "lib", cfg.CopyRepoSrc[0].PackageName)

	require.Len(t, cfg.Patches, 1)
	assert.Equal(t, "*.py", cfg.Patches[0].Glob)
}

func TestLoadFromDirDefaults(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateFile(t, filepath.Join(dir, "pyproject.toml"), `
[tool.relpack]
release-root = "src"
`)

	cfg, err := config.LoadFromDir(dir)
	require.NoError(t, err)

	// Absent keys take explicit zero defaults.
	assert.False(t, cfg.CopyRequirements)
	assert.False(t, cfg.ManagePyproject)
	assert.False(t, cfg.RemoveTodo)
	assert.False(t, cfg.AddVersionJSON)
	assert.Empty(t, cfg.CopyLocal)
	assert.Empty(t, cfg.CommonIgnores)
	assert.Empty(t, cfg.FileReplacePrefix)
	assert.Empty(t, cfg.Version)
}

func TestLoadFromDirMissingManifest(t *testing.T) {
	_, err := config.LoadFromDir(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errors.ErrConfigMissing, errors.GetCode(err))
}

func TestLoadFromDirMissingToolSection(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateFile(t, filepath.Join(dir, "pyproject.toml"), `
[project]
name = "demo"
`)

	_, err := config.LoadFromDir(dir)
	require.Error(t, err)
	assert.Equal(t, errors.ErrConfigMissing, errors.GetCode(err))
}

func TestVersionPrecedence(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateFile(t, filepath.Join(dir, "pyproject.toml"), `
[project]
version = "2.0.0"

[tool.poetry]
version = "1.0.0"

[tool.relpack]
release-root = "src"
`)

	cfg, err := config.LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", cfg.Version)
}

func TestVersionPoetryFallback(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateFile(t, filepath.Join(dir, "pyproject.toml"), `
[tool.poetry]
version = "1.0.0"

[tool.relpack]
release-root = "src"
`)

	cfg, err := config.LoadFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", cfg.Version)
}

func TestValidateDestinationInvariant(t *testing.T) {
	cfg := &config.ReleaseConfig{Origin: "/src"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.ErrDataErr, errors.GetCode(err))

	cfg.DestinationDir = "/dst"
	require.NoError(t, cfg.Validate())

	cfg.DestinationRepo = "git@example.com:org/repo.git"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.ErrDataErr, errors.GetCode(err))

	cfg.DestinationDir = ""
	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresOrigin(t *testing.T) {
	cfg := &config.ReleaseConfig{DestinationDir: "/dst"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, errors.ErrDataErr, errors.GetCode(err))
}

func TestVersionParts(t *testing.T) {
	cfg := &config.ReleaseConfig{Version: "1.2.3"}
	parts, err := cfg.VersionParts()
	require.NoError(t, err)
	assert.Equal(t, [3]string{"1", "2", "3"}, parts)

	cfg.Version = "1.2"
	_, err = cfg.VersionParts()
	require.Error(t, err)
	assert.Equal(t, errors.ErrDataErr, errors.GetCode(err))
}
