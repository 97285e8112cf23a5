// Package config loads protogen.toml.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/jptrs93/protogen/internal/convert"
	"github.com/jptrs93/protogen/internal/descriptor"

	"github.com/BurntSushi/toml"
)

const FileName = "protogen.toml"

type Config struct {
	// Package is the proto package written into every generated file.
	Package      string `toml:"package"`
	DefaultFile  string `toml:"default_file"`
	WrapperTypes bool   `toml:"wrapper_types"`
	Strategy     string `toml:"strategy"`
	WorkDir      string `toml:"work_dir"`
	// SnapshotFile is relative to WorkDir unless absolute.
	SnapshotFile       string   `toml:"snapshot_file"`
	TopicPrefix        string   `toml:"topic_prefix"`
	ExcludedNamespaces []string `toml:"excluded_namespaces"`
	// Descriptors are YAML descriptor files. Relative paths are resolved
	// against the directory of the config file.
	Descriptors []string `toml:"descriptors"`
	// Roots name the types to generate, qualified or by unambiguous simple
	// name.
	Roots []string `toml:"roots"`
}

func Default() Config {
	return Config{
		DefaultFile:        convert.DefaultFile,
		Strategy:           convert.StrategyEvolution.String(),
		WorkDir:            "./generated",
		SnapshotFile:       "schema.json",
		ExcludedNamespaces: []string{descriptor.BuiltinPackage + "."},
	}
}

// Load decodes path over Default. Unknown keys are an error so a typo does
// not silently fall back to a default.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	base := filepath.Dir(path)
	for i, d := range cfg.Descriptors {
		cfg.Descriptors[i] = resolve(base, d)
	}
	cfg.WorkDir = resolve(base, cfg.WorkDir)
	return cfg, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func (c Config) SnapshotPath() string {
	if filepath.IsAbs(c.SnapshotFile) {
		return c.SnapshotFile
	}
	return filepath.Join(c.WorkDir, c.SnapshotFile)
}

func (c Config) Validate() error {
	var errs []error
	if _, err := convert.ParseStrategy(c.Strategy); err != nil {
		errs = append(errs, err)
	}
	if len(c.Descriptors) == 0 {
		errs = append(errs, errors.New("no descriptor files configured"))
	}
	if len(c.Roots) == 0 {
		errs = append(errs, errors.New("no root types configured"))
	}
	if c.WorkDir == "" {
		errs = append(errs, errors.New("work_dir is empty"))
	}
	if c.SnapshotFile == "" {
		errs = append(errs, errors.New("snapshot_file is empty"))
	}
	return errors.Join(errs...)
}

// ConverterOptions builds the converter settings for this configuration.
func (c Config) ConverterOptions(logger *slog.Logger) (convert.Options, error) {
	strategy, err := convert.ParseStrategy(c.Strategy)
	if err != nil {
		return convert.Options{}, err
	}
	return convert.Options{
		Strategy:           strategy,
		Wrappers:           c.WrapperTypes,
		DefaultFile:        c.DefaultFile,
		Package:            c.Package,
		ExcludedNamespaces: c.ExcludedNamespaces,
		Logger:             logger,
	}, nil
}
