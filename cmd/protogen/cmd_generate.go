package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jptrs93/protogen/internal/config"
	"github.com/jptrs93/protogen/internal/convert"
	"github.com/jptrs93/protogen/internal/descriptor"
	"github.com/jptrs93/protogen/internal/generate"
	"github.com/jptrs93/protogen/internal/generate/connector"
	pbgen "github.com/jptrs93/protogen/internal/generate/proto"
	"github.com/jptrs93/protogen/internal/ir"
	"github.com/jptrs93/protogen/internal/snapshot"

	"github.com/spf13/cobra"
)

type generateFlags struct {
	workDir     string
	snapshot    string
	strategy    string
	pkg         string
	topicPrefix string
	wrappers    bool
	descriptors []string
	roots       []string
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var flags generateFlags
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Convert descriptors into .proto files, connector.yml and a new snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts.configPath)
			if err != nil {
				return err
			}
			flags.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runGenerate(cmd, opts, cfg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.workDir, "work-dir", "", "output directory for .proto files and connector.yml; .proto files of the previous snapshot that are no longer generated are removed")
	f.StringVar(&flags.snapshot, "snapshot", "", "snapshot file, relative to the work dir unless absolute")
	f.StringVar(&flags.strategy, "strategy", "", "index strategy: positional, explicit or evolution")
	f.StringVar(&flags.pkg, "package", "", "proto package of the generated files")
	f.StringVar(&flags.topicPrefix, "topic-prefix", "", "topic prefix written to connector.yml")
	f.BoolVar(&flags.wrappers, "wrappers", false, "map nullable scalars to google.protobuf wrapper types")
	f.StringSliceVar(&flags.descriptors, "descriptor", nil, "descriptor YAML file (repeatable)")
	f.StringSliceVar(&flags.roots, "root", nil, "root type to generate (repeatable)")
	return cmd
}

// apply overrides configuration values with the flags that were set.
func (g generateFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("work-dir") {
		cfg.WorkDir = g.workDir
	}
	if f.Changed("snapshot") {
		cfg.SnapshotFile = g.snapshot
	}
	if f.Changed("strategy") {
		cfg.Strategy = g.strategy
	}
	if f.Changed("package") {
		cfg.Package = g.pkg
	}
	if f.Changed("topic-prefix") {
		cfg.TopicPrefix = g.topicPrefix
	}
	if f.Changed("wrappers") {
		cfg.WrapperTypes = g.wrappers
	}
	if f.Changed("descriptor") {
		cfg.Descriptors = g.descriptors
	}
	if f.Changed("root") {
		cfg.Roots = g.roots
	}
}

// loadConfig reads the config file. The default file may be absent, in which
// case flags alone must describe the run.
func loadConfig(cmd *cobra.Command, path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	return config.Config{}, err
}

func runGenerate(cmd *cobra.Command, opts *rootOptions, cfg config.Config) error {
	logger := opts.logger.With("component", "generate")

	set, err := descriptor.LoadFiles(cfg.Descriptors...)
	if err != nil {
		return err
	}
	roots := make([]*descriptor.Type, 0, len(cfg.Roots))
	for _, name := range cfg.Roots {
		t, err := set.Lookup(name)
		if err != nil {
			return fmt.Errorf("root %s: %w", name, err)
		}
		roots = append(roots, t)
	}

	prior, err := snapshot.Load(cfg.SnapshotPath())
	if err != nil {
		return err
	}
	logger.Debug("loaded prior generation", "path", cfg.SnapshotPath(), "generation", prior.GenerationID, "files", len(prior.Files))

	convOpts, err := cfg.ConverterOptions(opts.logger)
	if err != nil {
		return err
	}
	def, err := convert.New(convOpts).Convert(roots, prior)
	if err != nil {
		return err
	}

	generators := []generate.Generator{
		pbgen.Generator{},
		connector.Generator{Types: set, TopicPrefix: cfg.TopicPrefix},
	}
	var outputs []generate.OutputFile
	for _, gen := range generators {
		out, err := gen.Generate(def, generate.Options{OutDir: cfg.WorkDir})
		if err != nil {
			return fmt.Errorf("%s: %w", gen.Name(), err)
		}
		outputs = append(outputs, out...)
	}

	removed, err := generate.RemoveStale(cfg.WorkDir, fileNames(prior), fileNames(def))
	if err != nil {
		return err
	}
	logger.Debug("removed stale files", "count", len(removed))
	if err := generate.WriteFiles(outputs); err != nil {
		return err
	}
	for _, o := range outputs {
		logger.Info("wrote file", "path", o.Path)
	}

	// The snapshot goes last so a failed run leaves the previous baseline.
	if err := snapshot.Save(cfg.SnapshotPath(), def); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "generated %d file(s) in %s (generation %s)\n", len(outputs), cfg.WorkDir, def.GenerationID)
	return nil
}

func fileNames(def *ir.ProtoDef) []string {
	names := make([]string, 0, len(def.Files))
	for _, f := range def.Files {
		names = append(names, f.Name)
	}
	return names
}
