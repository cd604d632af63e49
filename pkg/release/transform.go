package release

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/arthur-debert/relpack/pkg/config"
	"github.com/arthur-debert/relpack/pkg/errors"
	"github.com/arthur-debert/relpack/pkg/listener"
	"github.com/arthur-debert/relpack/pkg/requirements"
)

// VersionPlaceholder is the literal token substituted with the version
// string in a managed manifest.
const VersionPlaceholder = "VERSION-RELPACK-SUBST-HERE"

var todoPattern = regexp.MustCompile(`(#.*)TODO.*$`)

// versionStamp is the version.json document. Field names are part of the
// downstream contract and must not change.
type versionStamp struct {
	SemVer string `json:"SemVer"`
	Major  int    `json:"Major"`
	Minor  int    `json:"Minor"`
	Patch  int    `json:"Patch"`
}

// manageRequirements exports and filters the dependency list, writing
// requirements.txt and rewriting the manifest's dependency table as
// configured.
func (p *Packager) manageRequirements(ctx context.Context) error {
	if !p.cfg.CopyRequirements && !p.cfg.ManagePyproject {
		p.out.Message("Management of requirements is not required. Skipping", listener.Verbose)
		return nil
	}

	text, err := p.exportRequirements(ctx)
	if err != nil {
		return err
	}
	filtered := requirements.Filter(text, p.cfg.FilterRequirementsMatches)

	if p.cfg.CopyRequirements {
		target := filepath.Join(p.cfg.DestinationDir, "requirements.txt")
		if err := os.WriteFile(target, []byte(filtered), 0o644); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "failed to write requirements.txt")
		}
	}

	if p.cfg.ManagePyproject {
		manifestPath := filepath.Join(p.cfg.Origin, p.cfg.ReleaseRoot, config.ManifestName)
		manifest, err := os.ReadFile(manifestPath)
		if err != nil {
			return errors.Wrapf(err, errors.ErrNotFound, "cannot read release root manifest %s", manifestPath)
		}
		rewritten, err := requirements.InjectIntoManifest(string(manifest), filtered)
		if err != nil {
			return err
		}
		target := filepath.Join(p.cfg.DestinationDir, config.ManifestName)
		if err := os.WriteFile(target, []byte(rewritten), 0o644); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "failed to write rewritten manifest")
		}
	}

	return nil
}

// removeTodo strips commented TODO markers from every Python source file
// under the destination, preserving the comment prefix and line structure.
func (p *Packager) removeTodo() error {
	if !p.cfg.RemoveTodo {
		p.out.Message("remove_todo = false. Skipping todo removing.", listener.Verbose)
		return nil
	}

	p.out.Message("removing todo", listener.Normal)

	return filepath.WalkDir(p.cfg.DestinationDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(d.Name(), ".py") {
			return err
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return errors.Wrap(readErr, errors.ErrInternal, "failed to read source file").
				WithDetail("path", path)
		}
		lines := strings.Split(string(data), "\n")
		for i, line := range lines {
			lines[i] = todoPattern.ReplaceAllString(line, "$1")
		}
		if writeErr := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); writeErr != nil {
			return errors.Wrap(writeErr, errors.ErrInternal, "failed to rewrite source file").
				WithDetail("path", path)
		}
		return nil
	})
}

// writeVersionArtifacts generates version.json and substitutes the manifest
// version placeholder.
func (p *Packager) writeVersionArtifacts() error {
	if p.cfg.AddVersionJSON {
		p.out.Message("Generating version.json.", listener.Normal)

		parts, err := p.cfg.VersionParts()
		if err != nil {
			return err
		}
		major, err1 := strconv.Atoi(parts[0])
		minor, err2 := strconv.Atoi(parts[1])
		patch, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return errors.Newf(errors.ErrDataErr, "version %q has non-numeric components", p.cfg.Version)
		}

		stamp := versionStamp{SemVer: p.cfg.Version, Major: major, Minor: minor, Patch: patch}
		data, err := json.MarshalIndent(stamp, "", "  ")
		if err != nil {
			return errors.Wrap(err, errors.ErrInternal, "failed to encode version.json")
		}
		target := filepath.Join(p.cfg.DestinationDir, "version.json")
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "failed to write version.json")
		}
	} else {
		p.out.Message("add-version-json = false. Skipping version.json generation.", listener.Verbose)
	}

	if p.cfg.ManagePyproject {
		manifestPath := filepath.Join(p.cfg.DestinationDir, config.ManifestName)
		manifest, err := os.ReadFile(manifestPath)
		if err != nil {
			return errors.Wrapf(err, errors.ErrNotFound, "cannot read destination manifest %s", manifestPath)
		}
		if !strings.Contains(string(manifest), VersionPlaceholder) {
			p.out.Message("no version substitution defined in pyproject.toml", listener.Normal)
			return errors.Newf(errors.ErrDataErr, "manifest does not contain the %s placeholder", VersionPlaceholder)
		}
		rewritten := strings.ReplaceAll(string(manifest), VersionPlaceholder, p.cfg.Version)
		if err := os.WriteFile(manifestPath, []byte(rewritten), 0o644); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "failed to write versioned manifest")
		}
	}

	return nil
}

// applyPatches runs every patch rule against the destination tree. Each
// rule's regex is compiled with multiline and case-insensitive flags; the
// substitution uses Go's $1 group syntax.
func (p *Packager) applyPatches() error {
	if len(p.cfg.Patches) == 0 {
		p.out.Message("No patches to apply.", listener.VeryVerbose)
		return nil
	}

	p.out.Message("Applying patches...", listener.Normal)

	for _, rule := range p.cfg.Patches {
		p.out.Message(fmt.Sprintf("Applying patch %s to %s.", rule.Regex, rule.Glob), listener.Verbose)

		re, err := regexp.Compile("(?im)" + rule.Regex)
		if err != nil {
			return errors.Wrapf(err, errors.ErrDataErr, "invalid patch regex %q", rule.Regex)
		}
		if err := p.patchMatchingFiles(rule, re); err != nil {
			return err
		}
	}
	return nil
}

func (p *Packager) patchMatchingFiles(rule config.PatchRule, re *regexp.Regexp) error {
	root := p.cfg.DestinationDir
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if !matchesGlob(rule.Glob, rel, d.Name()) {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return errors.Wrap(readErr, errors.ErrInternal, "failed to read file for patching").
				WithDetail("path", path)
		}
		patched := re.ReplaceAllString(string(data), rule.Subst)
		if writeErr := os.WriteFile(path, []byte(patched), 0o644); writeErr != nil {
			return errors.Wrap(writeErr, errors.ErrInternal, "failed to write patched file").
				WithDetail("path", path)
		}
		return nil
	})
}

func matchesGlob(pattern, relPath, baseName string) bool {
	if matched, _ := filepath.Match(pattern, baseName); matched {
		return true
	}
	matched, _ := filepath.Match(pattern, filepath.ToSlash(relPath))
	return matched
}

// generateLock regenerates the lock file in the destination. A failure here
// is escalated to a hard fault: a stale lock would silently corrupt the
// release, so the run must not continue or report a soft exit code.
func (p *Packager) generateLock(ctx context.Context) {
	if !p.cfg.GeneratePoetryLock {
		return
	}

	result, err := p.runner.Run(ctx, p.cfg.DestinationDir, "uv", "tool", "run", "poetry@2.1.3", "lock")
	if err != nil {
		panic(errors.Wrap(err, errors.ErrSubprocess, "failed to run lock regeneration"))
	}
	if !result.Success() {
		panic(errors.Newf(errors.ErrSubprocess,
			"generating poetry lock failed with code: %d\nstdout: [%s]\nstderr: [%s]",
			result.ExitCode, result.Stdout, result.Stderr))
	}
}
