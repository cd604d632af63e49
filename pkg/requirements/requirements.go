// Package requirements resolves a project's pinned dependency list through
// the external lock-export tools and prepares it for packaging: filtering
// excluded lines and injecting the result into a manifest template.
package requirements

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/relpack/pkg/errors"
	"github.com/arthur-debert/relpack/pkg/execx"
	"github.com/arthur-debert/relpack/pkg/ignore"
	"github.com/arthur-debert/relpack/pkg/logging"
)

// DependencyListMarker is the literal empty dependency list a manifest must
// contain for injection to take place.
const DependencyListMarker = "dependencies = []"

// Export produces the flattened, pinned requirements text for workingDir.
//
// Exactly one lock-export mechanism runs, selected by probing for a lock
// file: poetry.lock takes priority over uv.lock. A missing lock file is a
// NOT_FOUND error; a non-zero tool exit is a SUBPROCESS error carrying the
// exit code and captured output.
func Export(ctx context.Context, runner execx.Runner, workingDir string, groups []string) (string, error) {
	logger := logging.GetLogger("requirements")

	outFile, err := os.CreateTemp("", "relpack-requirements-*.txt")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "failed to create requirements scratch file")
	}
	outPath := outFile.Name()
	outFile.Close()
	defer os.Remove(outPath)

	switch {
	case exists(filepath.Join(workingDir, "poetry.lock")):
		logger.Info().Str("dir", workingDir).Msg("poetry.lock found, exporting with poetry")
		args := []string{"export", "--without-hashes"}
		if len(groups) > 0 {
			args = append(args, "--with", strings.Join(groups, ","))
		}
		args = append(args, "--format", "requirements.txt", "--output", outPath)
		if err := runExport(ctx, runner, workingDir, "poetry", args); err != nil {
			return "", err
		}
	case exists(filepath.Join(workingDir, "uv.lock")):
		logger.Info().Str("dir", workingDir).Msg("uv.lock found, exporting with uv")
		args := []string{
			"export", "--format", "requirements.txt",
			"--locked", "--no-hashes", "--output-file", outPath,
		}
		if err := runExport(ctx, runner, workingDir, "uv", args); err != nil {
			return "", err
		}
	default:
		return "", errors.New(errors.ErrNotFound,
			"no poetry.lock or uv.lock file found in the working directory")
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "failed to read exported requirements")
	}
	return string(data), nil
}

func runExport(ctx context.Context, runner execx.Runner, dir, tool string, args []string) error {
	result, err := runner.Run(ctx, dir, tool, args...)
	if err != nil {
		return errors.Wrapf(err, errors.ErrSubprocess, "failed to run %s", tool)
	}
	if !result.Success() {
		return errors.Newf(errors.ErrSubprocess, "%s export failed with exit code %d", tool, result.ExitCode).
			WithDetail("exitCode", result.ExitCode).
			WithDetail("stdout", result.Stdout).
			WithDetail("stderr", result.Stderr)
	}
	return nil
}

// Filter drops every non-blank requirements line matching any exclude glob.
// Blank lines are preserved; globs match the full line, environment-marker
// suffix included. Filtering already-filtered text is a no-op.
func Filter(requirementsText string, excludeGlobs []string) string {
	excludes := ignore.NewSet(excludeGlobs)
	var kept []string
	for _, line := range strings.Split(requirementsText, "\n") {
		if len(line) == 0 {
			kept = append(kept, line)
			continue
		}
		if excludes.MatchLine(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// InjectIntoManifest replaces the manifest's empty dependency list with one
// quoted declaration per non-blank requirements line, environment markers
// stripped. A manifest without the literal marker is a DATA_ERR; the input
// is never partially rewritten.
func InjectIntoManifest(manifestText, requirementsText string) (string, error) {
	if !strings.Contains(manifestText, DependencyListMarker) {
		return "", errors.Newf(errors.ErrDataErr,
			"manifest does not contain %q, cannot inject dependencies", DependencyListMarker)
	}

	var b strings.Builder
	b.WriteString("dependencies = [\n")
	for _, line := range strings.Split(requirementsText, "\n") {
		if len(line) == 0 {
			continue
		}
		declaration := strings.TrimSpace(strings.SplitN(line, ";", 2)[0])
		fmt.Fprintf(&b, "    %q,\n", declaration)
	}
	b.WriteString("]")

	return strings.Replace(manifestText, DependencyListMarker, b.String(), 1), nil
}

// FindSpec locates the pinned spec line for pkgName in the requirements
// lines. Underscores in the name normalize to hyphens and matching is exact
// "name==" lookup; no range resolution happens here. Returns the full line
// and whether it was found.
func FindSpec(lines []string, pkgName string) (string, bool) {
	normalized := strings.ReplaceAll(pkgName, "_", "-")
	needle := normalized + "=="
	for _, line := range lines {
		if strings.Contains(line, needle) {
			return line, true
		}
	}
	return "", false
}

// SpecPin strips any environment-marker suffix from a spec line, leaving
// the bare "name==version" pin.
func SpecPin(specLine string) string {
	return strings.TrimSpace(strings.SplitN(specLine, ";", 2)[0])
}

// SpecVersion extracts the pinned version from a spec line.
func SpecVersion(specLine string) string {
	pin := SpecPin(specLine)
	parts := strings.SplitN(pin, "==", 2)
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
