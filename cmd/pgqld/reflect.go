package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arcflow/pgql/schemagen"
)

// reflectCmd introspects the configured schema and prints the projected
// GraphQL SDL to stdout, for inspecting what the engine would serve without
// running the full process.
func reflectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reflect",
		Short: "Introspect the schema and print the projected GraphQL SDL",
		RunE: func(c *cobra.Command, _ []string) error {
			return runReflect(c)
		},
	}
}

func runReflect(c *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	reflector := buildReflector(db, cfg, logger)
	snap, err := reflector.Snapshot(c.Context(), cfg.Schema)
	if err != nil {
		return fmt.Errorf("reflect schema %q: %w", cfg.Schema, err)
	}

	doc := schemagen.Project(snap)
	sdl := schemagen.Render(doc)
	fmt.Fprintln(c.OutOrStdout(), sdl)
	fmt.Fprintf(c.ErrOrStderr(), "# %d table(s), sha256 %s\n", len(snap.Tables), schemagen.HashSDL(doc))
	return nil
}
