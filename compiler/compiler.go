// Package compiler implements the Query Compiler (spec.md §4.7): for a
// single GraphQL field it resolves the target table from the catalog,
// turns the field's arguments into a WhereTree/pagination/orderBy, asks
// the SQL Builder for parameterized SQL, executes it through the driver,
// decodes the result rows and delegates nested selections to the
// Relationship Resolver. It also compiles the five mutation shapes of
// spec.md §4.7.
package compiler

import (
	"context"
	"strings"

	"github.com/arcflow/pgql"
	"github.com/arcflow/pgql/binder"
	"github.com/arcflow/pgql/catalog"
	"github.com/arcflow/pgql/dialect/sql"
	"github.com/arcflow/pgql/relate"
	"github.com/arcflow/pgql/schemagen"
	"github.com/go-openapi/inflect"
	"go.uber.org/zap"
)

// Compiler wires the catalog, SQL Builder, Parameter Binder and
// Relationship Resolver against a live driver connection (spec.md §3: "a
// shared, read-only handle to the database driver").
type Compiler struct {
	Reflector *catalog.Reflector
	Driver    *sql.Driver
	Schema    string

	// RelationPoolSize bounds the Relationship Resolver's concurrent
	// fan-out per GraphQL operation (spec.md §5).
	RelationPoolSize int

	Logger *zap.Logger
}

// New builds a Compiler. poolSize <= 0 disables the fan-out bound (every
// requested relationship is resolved concurrently, with no limit).
func New(reflector *catalog.Reflector, driver *sql.Driver, schema string, poolSize int, logger *zap.Logger) *Compiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{Reflector: reflector, Driver: driver, Schema: schema, RelationPoolSize: poolSize, Logger: logger}
}

func (c *Compiler) table(ctx context.Context, name string) (*catalog.Table, error) {
	snap, err := c.Reflector.Snapshot(ctx, c.Schema)
	if err != nil {
		return nil, err
	}
	t, ok := snap.Tables[name]
	if !ok {
		return nil, pgql.NewTableNotFoundError(name)
	}
	return t, nil
}

// bindAssignments normalizes a raw input object's fields against a
// table's column types via the Parameter Binder, skipping keys that don't
// name a column (e.g. relationship-input suffixes the mutation compiler
// already stripped out).
func bindAssignments(table *catalog.Table, input map[string]any) ([]assignment, error) {
	var out []assignment
	for _, col := range table.Columns {
		v, present := input[col.Name]
		if !present {
			continue
		}
		bound, err := binder.Bind(table.Name, col.Name, col.Type, v)
		if err != nil {
			return nil, err
		}
		out = append(out, assignment{Column: col.Name, Value: bound})
	}
	return out, nil
}

type assignment struct {
	Column string
	Value  any
}

// relationshipsFor builds the relate.Relationship set for a table: one
// BelongsTo per outgoing foreign key, one HasMany per table whose foreign
// key references this one (spec.md §4.5/§4.6). Names match the GraphQL
// field names the Schema Projector gives the same relationships, so a
// resolved field selection can look its data up by the name it was
// requested under.
func relationshipsFor(snap *catalog.Snapshot, t *catalog.Table) []relate.Relationship {
	var rels []relate.Relationship
	for _, fk := range t.ForeignKeys {
		ref, ok := snap.Tables[fk.ReferencedTable]
		if !ok {
			continue
		}
		rels = append(rels, relate.Relationship{
			Name:           singularName(fk.ReferencedTable),
			Direction:      relate.BelongsTo,
			LocalColumns:   fk.LocalColumns,
			ForeignTable:   ref.Name,
			ForeignColumns: fk.ReferencedColumns,
			SelectColumns:  columnNames(ref),
		})
	}
	for _, otherName := range snap.TableNames() {
		other := snap.Tables[otherName]
		for _, fk := range other.ForeignKeys {
			if fk.ReferencedTable != t.Name {
				continue
			}
			rels = append(rels, relate.Relationship{
				Name:           schemagen.FieldName(other.Name),
				Direction:      relate.HasMany,
				LocalColumns:   fk.ReferencedColumns,
				ForeignTable:   other.Name,
				ForeignColumns: fk.LocalColumns,
				SelectColumns:  columnNames(other),
			})
		}
	}
	return rels
}

func columnNames(t *catalog.Table) []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// singularName mirrors schemagen's unexported singularFieldName so a
// BelongsTo relationship resolves under the same name the projected
// schema gave it.
func singularName(table string) string {
	singular := inflect.Singularize(table)
	camel := inflect.Camelize(singular)
	if camel == "" {
		return camel
	}
	return strings.ToLower(camel[:1]) + camel[1:]
}
