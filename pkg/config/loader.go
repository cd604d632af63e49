package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	koanftoml "github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/arthur-debert/relpack/pkg/errors"
	"github.com/arthur-debert/relpack/pkg/logging"
)

// ManifestName is the project manifest the configuration is read from.
const ManifestName = "pyproject.toml"

// ToolSection is the koanf path of the tool-specific configuration table.
const ToolSection = "tool.relpack"

// projectMetadata is the slice of the manifest read for the version string.
type projectMetadata struct {
	Project struct {
		Version string `toml:"version"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Version string `toml:"version"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// LoadFromDir reads the release configuration from dir's pyproject.toml.
// A missing manifest or a manifest without a [tool.relpack] section is a
// CONFIG_MISSING error.
func LoadFromDir(dir string) (*ReleaseConfig, error) {
	logger := logging.GetLogger("config")

	manifestPath := filepath.Join(dir, ManifestName)
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrConfigMissing, "%s not found in %s", ManifestName, dir)
		}
		return nil, errors.Wrapf(err, errors.ErrConfigMissing, "cannot read %s", manifestPath)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(manifestPath), koanftoml.Parser()); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to parse %s", manifestPath)
	}

	if !k.Exists(ToolSection) {
		return nil, errors.Newf(errors.ErrConfigMissing,
			"relpack section not found in %s, path: %s", ManifestName, dir)
	}

	cfg := &ReleaseConfig{Origin: dir}
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
		},
	}
	if err := k.UnmarshalWithConf(ToolSection, cfg, unmarshalConf); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to unmarshal %s section", ToolSection)
	}

	// Version comes from the standard metadata tables, [project] winning
	// over the legacy [tool.poetry] location.
	var meta projectMetadata
	if err := toml.Unmarshal(raw, &meta); err == nil {
		if meta.Tool.Poetry.Version != "" {
			cfg.Version = meta.Tool.Poetry.Version
		}
		if meta.Project.Version != "" {
			cfg.Version = meta.Project.Version
		}
	}

	logger.Debug().
		Str("dir", dir).
		Str("releaseRoot", cfg.ReleaseRoot).
		Str("version", cfg.Version).
		Msg("Loaded release configuration")

	return cfg, nil
}

// Validate checks the invariants that must hold before packaging starts.
func (c *ReleaseConfig) Validate() error {
	if c.Origin == "" {
		return errors.New(errors.ErrDataErr, "origin is not set")
	}
	if c.DestinationDir == "" && c.DestinationRepo == "" {
		return errors.New(errors.ErrDataErr, "neither destination directory nor destination repository is set")
	}
	if c.DestinationDir != "" && c.DestinationRepo != "" {
		return errors.New(errors.ErrDataErr, "destination directory and destination repository are mutually exclusive")
	}
	return nil
}

// VersionParts splits the configured version into its three numeric
// components. Anything other than exactly major.minor.patch is a DATA_ERR.
func (c *ReleaseConfig) VersionParts() ([3]string, error) {
	var parts [3]string
	split := strings.Split(c.Version, ".")
	if len(split) != 3 {
		return parts, errors.Newf(errors.ErrDataErr,
			"version %q is not a major.minor.patch triple", c.Version)
	}
	copy(parts[:], split)
	return parts, nil
}
