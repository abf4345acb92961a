package schemagen

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadGQLGenConfigMissingFileReturnsEmpty(t *testing.T) {
	cfg, err := LoadGQLGenConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	require.NotNil(t, cfg.Models)
	require.Empty(t, cfg.SchemaFilename)
}

func TestInjectBindingsSetsSchemaPathAndScalars(t *testing.T) {
	cfg := &GQLGenConfig{Models: map[string]TypeMapEntry{}}
	cfg.InjectBindings("schema.graphql")

	require.Equal(t, StringList{"schema.graphql"}, cfg.SchemaFilename)
	require.Contains(t, cfg.Models["UUID"].Model, "github.com/99designs/gqlgen/graphql.UUID")
	require.Contains(t, cfg.Models["JSON"].Model, "github.com/99designs/gqlgen/graphql.Map")
	require.Contains(t, cfg.Models["Int64"].Model, "github.com/99designs/gqlgen/graphql.Int64")
}

func TestInjectBindingsIsIdempotent(t *testing.T) {
	cfg := &GQLGenConfig{Models: map[string]TypeMapEntry{}}
	cfg.InjectBindings("schema.graphql")
	cfg.InjectBindings("schema.graphql")

	require.Len(t, cfg.SchemaFilename, 1)
	require.Len(t, cfg.Models["UUID"].Model, 1)
}

func TestSaveAndLoadGQLGenConfigRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gqlgen.yml")
	cfg := &GQLGenConfig{Models: map[string]TypeMapEntry{}}
	cfg.InjectBindings("schema.graphql")

	require.NoError(t, SaveGQLGenConfig(path, cfg))

	loaded, err := LoadGQLGenConfig(path)
	require.NoError(t, err)
	require.Equal(t, cfg.SchemaFilename, loaded.SchemaFilename)
	require.Equal(t, cfg.Models["UUID"].Model, loaded.Models["UUID"].Model)
}
