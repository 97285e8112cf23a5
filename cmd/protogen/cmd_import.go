package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jptrs93/protogen/internal/parser"
	"github.com/jptrs93/protogen/internal/snapshot"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var (
		importPaths []string
		out         string
		force       bool
	)
	cmd := &cobra.Command{
		Use:   "import <file.proto>...",
		Short: "Seed a snapshot from existing proto3 files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				cfg, err := loadConfig(cmd, opts.configPath)
				if err != nil {
					return err
				}
				out = cfg.SnapshotPath()
			}
			if _, err := os.Stat(out); err == nil && !force {
				return fmt.Errorf("snapshot %s already exists (use --force to overwrite)", out)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			p := parser.Parser{ImportPaths: importPaths}
			def, err := p.Parse(cmd.Context(), args)
			if err != nil {
				return err
			}
			def.GeneratedAt = time.Now().UTC()
			def.GenerationID = uuid.NewString()

			if err := snapshot.Save(out, def); err != nil {
				return err
			}
			opts.logger.Info("imported snapshot", "component", "import", "path", out, "classes", len(def.Classes()))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d file(s) into %s\n", len(def.Files), out)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&importPaths, "proto-path", "I", []string{"."}, "proto import path (repeatable)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "snapshot to write; defaults to the configured snapshot")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing snapshot")
	return cmd
}
