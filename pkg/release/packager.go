// Package release implements the packaging pipeline that turns a source
// project into a published release tree.
package release

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/relpack/pkg/archive"
	"github.com/arthur-debert/relpack/pkg/config"
	"github.com/arthur-debert/relpack/pkg/copytree"
	"github.com/arthur-debert/relpack/pkg/errors"
	"github.com/arthur-debert/relpack/pkg/execx"
	"github.com/arthur-debert/relpack/pkg/ignore"
	"github.com/arthur-debert/relpack/pkg/listener"
	"github.com/arthur-debert/relpack/pkg/logging"
	"github.com/arthur-debert/relpack/pkg/requirements"
)

// Directory entries never removed when clearing the destination.
var skipNukeNames = map[string]bool{
	".git":  true,
	".idea": true,
}

// Baseline ignore patterns for wheel extraction, merged with per-item lists.
var baseWheelIgnores = []string{"*.so", "*.dist-info", "*.so.*", "*.libs"}

// Packager runs the release pipeline described by a ReleaseConfig. Stages
// run strictly in order; the first failing stage aborts the run.
type Packager struct {
	cfg    *config.ReleaseConfig
	runner execx.Runner
	out    listener.Listener
	logger zerolog.Logger

	// exportedRequirements caches the lock-export output so the pipeline
	// invokes the export tool at most once per run.
	exportedRequirements string
	exported             bool

	wheelsDir    string
	tempCloneDir string
}

// NewPackager builds a Packager. A nil listener reports nowhere.
func NewPackager(cfg *config.ReleaseConfig, runner execx.Runner, out listener.Listener) *Packager {
	return &Packager{
		cfg:    cfg,
		runner: runner,
		out:    listener.OrNull(out),
		logger: logging.GetLogger("release.packager"),
	}
}

// Pack runs the pipeline. Scratch directories created along the way are
// removed on every exit path.
func (p *Packager) Pack(ctx context.Context) error {
	if err := p.cfg.Validate(); err != nil {
		return err
	}

	defer p.cleanupScratch()

	if err := p.resolveDestination(ctx); err != nil {
		return err
	}
	if err := p.nukeDestination(); err != nil {
		return err
	}
	if err := p.copyRoot(); err != nil {
		return err
	}
	if err := p.copyLocalFiles(); err != nil {
		return err
	}
	if err := p.manageRequirements(ctx); err != nil {
		p.out.Message(fmt.Sprintf("Failed to generate requirements.txt: %v", err), listener.Quiet)
		return err
	}
	if err := p.removeTodo(); err != nil {
		p.out.Message(fmt.Sprintf("Failed to remove TODOs: %v", err), listener.Quiet)
		return err
	}
	if err := p.downloadWheels(ctx); err != nil {
		p.out.Message(fmt.Sprintf("Failed to download wheels: %v", err), listener.Quiet)
		return err
	}
	if err := p.copyWheelSources(); err != nil {
		p.out.Message(fmt.Sprintf("Failed to copy wheel sources: %v", err), listener.Quiet)
		return err
	}
	if err := p.copyRepoSources(ctx); err != nil {
		p.out.Message(fmt.Sprintf("Failed to copy repo sources: %v", err), listener.Quiet)
		return err
	}
	if err := p.writeVersionArtifacts(); err != nil {
		p.out.Message(fmt.Sprintf("Failed to add version: %v", err), listener.Quiet)
		return err
	}
	if err := p.applyPatches(); err != nil {
		return err
	}
	p.generateLock(ctx)

	if p.cfg.DestinationRepo != "" {
		if err := p.commitAndPush(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (p *Packager) cleanupScratch() {
	if p.wheelsDir != "" {
		os.RemoveAll(p.wheelsDir)
		p.wheelsDir = ""
	}
	if p.tempCloneDir != "" {
		os.RemoveAll(p.tempCloneDir)
		p.tempCloneDir = ""
	}
}

// resolveDestination clones the destination repository into a fresh
// temporary directory when only a repo URL is configured and creates the
// prepare_release_<version> branch there.
func (p *Packager) resolveDestination(ctx context.Context) error {
	if p.cfg.DestinationDir != "" {
		return nil
	}

	tempDir, err := os.MkdirTemp("", "relpack-dest-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create destination clone directory")
	}
	p.tempCloneDir = tempDir
	p.cfg.DestinationDir = tempDir

	result, err := p.runner.Run(ctx, "", "git", "clone", p.cfg.DestinationRepo, tempDir)
	if err != nil {
		return errors.Wrapf(err, errors.ErrSubprocess, "failed to run git clone")
	}
	if !result.Success() {
		p.out.Message(fmt.Sprintf("Failed to clone %s.", p.cfg.DestinationRepo), listener.Quiet)
		p.out.Message(result.Stdout, listener.Quiet)
		p.out.Message(result.Stderr, listener.Quiet)
		return subprocessError("git clone", result)
	}

	branch := "prepare_release_" + p.cfg.Version
	result, err = p.runner.Run(ctx, "", "git", "-C", tempDir, "checkout", "-b", branch)
	if err != nil {
		return errors.Wrapf(err, errors.ErrSubprocess, "failed to run git checkout")
	}
	if !result.Success() {
		p.out.Message(fmt.Sprintf("Failed to create branch %s.", branch), listener.Quiet)
		p.out.Message(result.Stdout, listener.Quiet)
		p.out.Message(result.Stderr, listener.Quiet)
		return subprocessError("git checkout -b", result)
	}

	return nil
}

// nukeDestination clears the destination of everything except the
// protected entries.
func (p *Packager) nukeDestination() error {
	entries, err := os.ReadDir(p.cfg.DestinationDir)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(p.cfg.DestinationDir, 0o755)
		}
		return errors.Wrap(err, errors.ErrInternal, "cannot read destination directory").
			WithDetail("path", p.cfg.DestinationDir)
	}
	for _, entry := range entries {
		if skipNukeNames[entry.Name()] {
			continue
		}
		if err := os.RemoveAll(filepath.Join(p.cfg.DestinationDir, entry.Name())); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "failed to clear destination entry").
				WithDetail("entry", entry.Name())
		}
	}
	return nil
}

// copyRoot copies the release root wholesale into the destination.
func (p *Packager) copyRoot() error {
	p.out.Message("Copying root directory.", listener.Normal)

	rootDir := filepath.Join(p.cfg.Origin, p.cfg.ReleaseRoot)
	if _, err := os.Stat(rootDir); err != nil {
		p.out.Message(fmt.Sprintf("Root directory %s does not exist.", rootDir), listener.Quiet)
		return errors.Newf(errors.ErrNotFound, "release root %s does not exist", rootDir)
	}

	return copytree.Copy(rootDir, p.cfg.DestinationDir, ignore.NewSet([]string{"__pycache__"}))
}

// copyLocalFiles processes the copy-local items in order, then applies the
// filename prefix-stripping pass when configured.
func (p *Packager) copyLocalFiles() error {
	if len(p.cfg.CopyLocal) == 0 {
		p.out.Message("No local files to copy.", listener.VeryVerbose)
	} else {
		p.out.Message("Copying local files.", listener.Normal)
	}

	for _, item := range p.cfg.CopyLocal {
		p.out.Message(fmt.Sprintf("Copying %s to %s.", item.Origin, item.Destination), listener.Verbose)

		srcPath := filepath.Join(p.cfg.Origin, item.Origin)
		if _, err := os.Stat(srcPath); err != nil {
			p.out.Message(fmt.Sprintf("Local source %s does not exist.", srcPath), listener.Quiet)
			return errors.Newf(errors.ErrNotFound, "local source %s does not exist", srcPath)
		}

		dstPath := filepath.Join(p.cfg.DestinationDir, item.Destination)
		ignores := ignore.NewSet(p.cfg.CommonIgnores, item.Ignores)
		if err := copytree.Copy(srcPath, dstPath, ignores); err != nil {
			return err
		}
	}

	if p.cfg.FileReplacePrefix != "" {
		return p.stripFilenamePrefix()
	}
	return nil
}

// stripFilenamePrefix renames every destination file whose name starts
// with the configured prefix, removing the prefix.
func (p *Packager) stripFilenamePrefix() error {
	prefix := p.cfg.FileReplacePrefix
	return filepath.WalkDir(p.cfg.DestinationDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		name := d.Name()
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		newName := strings.ReplaceAll(name, prefix, "")
		newPath := filepath.Join(filepath.Dir(path), newName)
		if renameErr := os.Rename(path, newPath); renameErr != nil {
			return errors.Wrap(renameErr, errors.ErrInternal, "failed to strip filename prefix").
				WithDetail("path", path)
		}
		return nil
	})
}

// downloadWheels resolves each wheel item's pinned spec and downloads the
// exact artifact into a per-run scratch directory.
func (p *Packager) downloadWheels(ctx context.Context) error {
	if len(p.cfg.CopyWheelSrc) == 0 {
		p.out.Message("No 'copy-wheel-src' section in configuration. Skipping wheels downloading.", listener.Verbose)
		return nil
	}

	p.out.Message("Downloading wheels: ", listener.Normal)

	lines, err := p.requirementsLines(ctx)
	if err != nil {
		return err
	}

	wheelsDir, err := os.MkdirTemp("", "relpack-wheels-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create wheel scratch directory")
	}
	p.wheelsDir = wheelsDir

	for _, item := range p.cfg.CopyWheelSrc {
		wheelName := strings.ReplaceAll(item.Origin, "_", "-")
		p.out.Message(fmt.Sprintf("Downloading wheel: %s", wheelName), listener.Verbose)

		specLine, found := requirements.FindSpec(lines, wheelName)
		if !found {
			p.out.Message(fmt.Sprintf("ERROR: wheel %s is not found in requirements.txt.", wheelName), listener.Normal)
			return errors.Newf(errors.ErrUnavailable, "wheel %s is not found in requirements.txt", wheelName)
		}
		spec := requirements.SpecPin(specLine)
		p.out.Message(fmt.Sprintf("Downloading wheel: %s, spec: %s", wheelName, spec), listener.Verbose)

		args := []string{
			"download", "--no-deps", "--disable-pip-version-check",
			"--ignore-requires-python", "--exists-action", "i",
		}
		if item.Platform != "" {
			args = append(args, "--platform", item.Platform)
		}
		args = append(args, spec, "--dest", wheelsDir)

		result, err := p.runner.Run(ctx, "", "pip", args...)
		if err != nil {
			return errors.Wrap(err, errors.ErrSubprocess, "failed to run pip download")
		}
		if !result.Success() {
			p.out.Message(fmt.Sprintf("Failed to download wheels. Status: %d", result.ExitCode), listener.Quiet)
			p.out.Message(fmt.Sprintf("stdout: [%s]", strings.TrimSpace(result.Stdout)), listener.Quiet)
			p.out.Message(fmt.Sprintf("stderr: [%s]", strings.TrimSpace(result.Stderr)), listener.Quiet)
			return subprocessError("pip download", result)
		}
		p.out.Message(fmt.Sprintf("Downloaded wheel: [%s]\nspec: [%s]", wheelName, spec), listener.VeryVerbose)
	}

	return nil
}

// copyWheelSources extracts each downloaded artifact into its destination.
func (p *Packager) copyWheelSources() error {
	if len(p.cfg.CopyWheelSrc) == 0 {
		p.out.Message("No 'copy-wheel-src' section in configuration. Skipping wheel sources copying.", listener.Verbose)
		return nil
	}
	p.out.Message(fmt.Sprintf("Copying wheel sources to %s.", p.cfg.DestinationDir), listener.Normal)

	artifacts, err := listWheelArtifacts(p.wheelsDir)
	if err != nil {
		return err
	}

	for _, item := range p.cfg.CopyWheelSrc {
		p.out.Message(fmt.Sprintf("Copying wheel %s to %s.", item.Origin, item.Destination), listener.Verbose)

		artifact := findArtifact(artifacts, item.Origin)
		if artifact == "" {
			p.out.Message(fmt.Sprintf("Wheel %s not found in downloaded wheels: %v.", item.Origin, artifacts), listener.Quiet)
			return errors.Newf(errors.ErrNotFound, "wheel %s not found among downloaded artifacts", item.Origin)
		}

		dstDir := filepath.Join(p.cfg.DestinationDir, item.Destination)
		p.out.Message(fmt.Sprintf("Copying %s to %s.", artifact, dstDir), listener.Verbose)

		ignores := ignore.NewSet(baseWheelIgnores, item.Ignores)
		if err := archive.Extract(artifact, dstDir, ".", ignores); err != nil {
			return err
		}
	}

	os.RemoveAll(p.wheelsDir)
	p.wheelsDir = ""
	return nil
}

// copyRepoSources clones each nested repository at its resolved ref and
// recursively packages it into the destination. Nested configurations get
// their own copy-repo-src forced empty, which bounds the recursion.
func (p *Packager) copyRepoSources(ctx context.Context) error {
	if len(p.cfg.CopyRepoSrc) == 0 {
		p.out.Message("No 'copy-repo-src' section in configuration. Skipping repo sources copying.", listener.Verbose)
		return nil
	}

	p.out.Message("Copying repo sources.", listener.Normal)

	for _, item := range p.cfg.CopyRepoSrc {
		p.out.Message(fmt.Sprintf("Copying repo source %s to %s.", item.Origin, item.Destination), listener.Verbose)

		ref := item.Ref
		if item.PackageName != "" {
			lines, err := p.requirementsLines(ctx)
			if err != nil {
				return err
			}
			depName := strings.ReplaceAll(item.PackageName, "_", "-")
			specLine, found := requirements.FindSpec(lines, depName)
			if !found {
				p.out.Message(fmt.Sprintf("Failed to find requirement %s.", depName), listener.Quiet)
				return errors.Newf(errors.ErrNotFound, "requirement %s not found in exported dependencies", depName)
			}
			ref = strings.ReplaceAll(ref, "$NAME$", item.PackageName)
			ref = strings.ReplaceAll(ref, "$VERSION$", requirements.SpecVersion(specLine))
		}

		if strings.Contains(ref, "$") {
			p.out.Message(fmt.Sprintf("Failed to define branch %s.", item.Ref), listener.Quiet)
			return errors.Newf(errors.ErrNotFound, "ref %q still contains unresolved placeholders", item.Ref)
		}

		if err := p.packNestedRepo(ctx, item, ref); err != nil {
			return err
		}
	}

	return nil
}

func (p *Packager) packNestedRepo(ctx context.Context, item config.CopyItem, ref string) error {
	tmpDir, err := os.MkdirTemp("", "relpack-repo-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to create clone scratch directory")
	}
	defer os.RemoveAll(tmpDir)

	result, err := p.runner.Run(ctx, "", "git", "clone", "--branch", ref, "--depth", "1", item.Origin, tmpDir)
	if err != nil {
		return errors.Wrap(err, errors.ErrSubprocess, "failed to run git clone")
	}
	if !result.Success() {
		p.out.Message(fmt.Sprintf("Failed to clone repo %s.", item.Origin), listener.Quiet)
		p.out.Message(result.Stdout, listener.Quiet)
		p.out.Message(result.Stderr, listener.Quiet)
		return subprocessError("git clone", result)
	}

	nestedCfg, err := config.LoadFromDir(tmpDir)
	if err != nil {
		return err
	}
	nestedCfg.DestinationDir = filepath.Join(p.cfg.DestinationDir, item.Destination)
	nestedCfg.CopyRepoSrc = nil // prevent recursion

	nested := NewPackager(nestedCfg, p.runner, p.out)
	return nested.Pack(ctx)
}

// commitAndPush stages and publishes the prepared release branch.
func (p *Packager) commitAndPush(ctx context.Context) error {
	if p.cfg.AuthorEmail == "" || p.cfg.AuthorName == "" {
		p.out.Message("Author email and name are not set.", listener.Quiet)
		return errors.New(errors.ErrNotFound, "author email and name are not set")
	}

	dir := p.cfg.DestinationDir
	branch := "prepare_release_" + p.cfg.Version
	steps := [][]string{
		{"config", "user.email", p.cfg.AuthorEmail},
		{"config", "user.name", p.cfg.AuthorName},
		{"add", "."},
		{"commit", "-m", "Release " + p.cfg.Version},
		{"push", "--set-upstream", "origin", branch},
	}
	for _, step := range steps {
		args := append([]string{"-C", dir}, step...)
		result, err := p.runner.Run(ctx, "", "git", args...)
		if err != nil {
			return errors.Wrap(err, errors.ErrSubprocess, "failed to run git")
		}
		if !result.Success() {
			p.out.Message("Failed to commit changes.", listener.Quiet)
			p.out.Message(result.Stdout, listener.Quiet)
			p.out.Message(result.Stderr, listener.Quiet)
			return subprocessError("git "+step[0], result)
		}
	}
	return nil
}

// requirementsLines returns the unfiltered exported dependency list, one
// spec per line, running the export tool at most once per run.
func (p *Packager) requirementsLines(ctx context.Context) ([]string, error) {
	text, err := p.exportRequirements(ctx)
	if err != nil {
		return nil, err
	}
	return strings.Split(text, "\n"), nil
}

func (p *Packager) exportRequirements(ctx context.Context) (string, error) {
	if p.exported {
		return p.exportedRequirements, nil
	}
	text, err := requirements.Export(ctx, p.runner, p.cfg.Origin, p.cfg.InstallDependencyGroups)
	if err != nil {
		return "", err
	}
	p.exportedRequirements = text
	p.exported = true
	return text, nil
}

func subprocessError(what string, result execx.Result) error {
	return errors.Newf(errors.ErrSubprocess, "%s failed with exit code %d", what, result.ExitCode).
		WithDetail("exitCode", result.ExitCode).
		WithDetail("stdout", result.Stdout).
		WithDetail("stderr", result.Stderr)
}

func listWheelArtifacts(dir string) ([]string, error) {
	var artifacts []string
	for _, pattern := range []string{"*.whl", "*.tar.gz"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInternal, "failed to list downloaded artifacts")
		}
		artifacts = append(artifacts, matches...)
	}
	return artifacts, nil
}

func findArtifact(artifacts []string, origin string) string {
	for _, artifact := range artifacts {
		if strings.HasPrefix(filepath.Base(artifact), origin+"-") {
			return artifact
		}
	}
	return ""
}
