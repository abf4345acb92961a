// Command pgqld runs the query translation engine as a standalone process:
// it introspects a Postgres schema, projects it into a GraphQL SDL document,
// and fans out CDC events, all wired
// together from a single YAML/environment configuration (pgqlconfig).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "pgqld",
		Short: "Postgres-to-GraphQL query translation engine",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (PGQL_* environment variables always take precedence)")

	root.AddCommand(serveCmd())
	root.AddCommand(reflectCmd())
	root.AddCommand(invalidateCacheCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
