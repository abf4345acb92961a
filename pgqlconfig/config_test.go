package pgqlconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadYAML(t *testing.T) {
	cfg, err := LoadYAML([]byte(`
database:
  url: postgres://localhost/app
schema: storefront
cache:
  schemaTTL: 5m
`))
	require.NoError(t, err)
	require.Equal(t, "postgres://localhost/app", cfg.Database.URL)
	require.Equal(t, "storefront", cfg.Schema)
	require.Equal(t, 5*time.Minute, cfg.Cache.SchemaTTL)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("PGQL_DATABASE_URL", "postgres://localhost/env")
	t.Setenv("PGQL_SCHEMA", "public")

	cfg, err := LoadEnv()
	require.NoError(t, err)
	require.Equal(t, "postgres://localhost/env", cfg.Database.URL)
	require.Equal(t, 30*time.Minute, cfg.Cache.SchemaTTL)
	require.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadEnvRequiresDatabaseURL(t *testing.T) {
	_, err := LoadEnv()
	require.Error(t, err)
}

func TestMergeOverridesOnlyNonZeroFields(t *testing.T) {
	base := &Config{
		Database: Database{URL: "postgres://base"},
		Schema:   "public",
		Server:   Server{Port: 8080},
	}
	override := &Config{
		Schema: "analytics",
	}

	merged := Merge(base, override)
	require.Equal(t, "postgres://base", merged.Database.URL)
	require.Equal(t, "analytics", merged.Schema)
	require.Equal(t, 8080, merged.Server.Port)
}
