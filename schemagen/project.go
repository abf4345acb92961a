package schemagen

import (
	"sort"
	"strings"

	"github.com/arcflow/pgql/catalog"
	"github.com/arcflow/pgql/typemap"
	"github.com/go-openapi/inflect"
	"github.com/vektah/gqlparser/v2/ast"
)

// Project turns a catalog Snapshot into a runtime GraphQL SDL document
// (spec.md §4.6): one object type, where input, orderBy input and
// connection type pair per table/view, mutation inputs for base tables
// (views are read-only and get no mutations), relationship fields derived
// from foreign keys, and root Query/Mutation/Subscription types.
func Project(snap *catalog.Snapshot) *ast.SchemaDocument {
	doc := &ast.SchemaDocument{}

	doc.Definitions = append(doc.Definitions,
		buildOrderDirectionEnum(), buildChangeKindEnum(), buildPageInfoType(), buildHeartbeatType(),
		&ast.Definition{Kind: ast.Scalar, Name: "UUID"},
		&ast.Definition{Kind: ast.Scalar, Name: "JSON"},
		&ast.Definition{Kind: ast.Scalar, Name: "Int64"},
	)

	for _, e := range sortedEnums(snap) {
		doc.Definitions = append(doc.Definitions, buildEnumType(e))
	}

	query := &ast.Definition{Kind: ast.Object, Name: "Query"}
	mutation := &ast.Definition{Kind: ast.Object, Name: "Mutation"}
	subscription := &ast.Definition{Kind: ast.Object, Name: "Subscription", Fields: ast.FieldList{
		{Name: "health", Type: ast.NonNullNamedType("Heartbeat", nil)},
	}}

	for _, name := range snap.TableNames() {
		t := snap.Tables[name]
		doc.Definitions = append(doc.Definitions, buildObjectType(snap, t))
		doc.Definitions = append(doc.Definitions, buildWhereInputType(t))
		doc.Definitions = append(doc.Definitions, buildOrderByInput(t))
		edge, conn := buildConnectionTypes(t)
		doc.Definitions = append(doc.Definitions, edge, conn)

		query.Fields = append(query.Fields, buildSingleQueryField(t), buildConnectionQueryField(t))

		if t.Kind == catalog.KindBaseTable {
			doc.Definitions = append(doc.Definitions, buildCreateInput(t), buildUpdateInput(t))
			mutation.Fields = append(mutation.Fields, buildMutationFields(t)...)

			if withRel := buildCreateWithRelationshipsInput(snap, t); withRel != nil {
				doc.Definitions = append(doc.Definitions, withRel)
				mutation.Fields = append(mutation.Fields, &ast.FieldDefinition{
					Name:      "createWithRelationships" + TypeName(t.Name),
					Arguments: ast.ArgumentDefinitionList{{Name: "input", Type: ast.NonNullNamedType(withRel.Name, nil)}},
					Type:      ast.NamedType(TypeName(t.Name), nil),
				})
			}
		}

		changeEvent := buildChangeEventType(t)
		doc.Definitions = append(doc.Definitions, changeEvent)
		subscription.Fields = append(subscription.Fields, &ast.FieldDefinition{
			Name: FieldName(t.Name) + "Changes",
			Type: ast.NonNullNamedType(changeEvent.Name, nil),
		})
	}

	doc.Definitions = append(doc.Definitions, query, mutation, subscription)
	return doc
}

func sortedEnums(snap *catalog.Snapshot) []*catalog.EnumType {
	names := make([]string, 0, len(snap.Enums))
	for n := range snap.Enums {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]*catalog.EnumType, 0, len(names))
	for _, n := range names {
		out = append(out, snap.Enums[n])
	}
	return out
}

// TypeName produces the PascalCase GraphQL object type name for a table,
// e.g. "customer_orders" -> "CustomerOrders".
func TypeName(table string) string {
	return inflect.Camelize(table)
}

// FieldName produces the camelCase connection-field name for a table on
// the root Query type, pluralized since it projects a collection,
// e.g. "customer" -> "customers".
func FieldName(table string) string {
	plural := inflect.Pluralize(table)
	camel := inflect.Camelize(plural)
	if camel == "" {
		return camel
	}
	return strings.ToLower(camel[:1]) + camel[1:]
}

// singularFieldName produces the camelCase field name for a BelongsTo
// relationship, e.g. "customers" referenced from "orders.customer_id"
// projects as the singular field "customer".
func singularFieldName(table string) string {
	singular := inflect.Singularize(table)
	camel := inflect.Camelize(singular)
	if camel == "" {
		return camel
	}
	return strings.ToLower(camel[:1]) + camel[1:]
}

func buildObjectType(snap *catalog.Snapshot, t *catalog.Table) *ast.Definition {
	def := &ast.Definition{Kind: ast.Object, Name: TypeName(t.Name)}
	for _, col := range t.Columns {
		def.Fields = append(def.Fields, &ast.FieldDefinition{
			Name: col.Name,
			Type: scalarType(col.Type, col.Nullable),
		})
	}
	def.Fields = append(def.Fields, buildRelationshipFields(snap, t)...)
	return def
}

// buildRelationshipFields derives nested object/list fields from foreign
// keys (spec.md §4.6: "relationships to nested object or list-of-object
// fields; directionality derived from the foreign-key side"). A table's
// own foreign keys project as nullable single-object (BelongsTo) fields;
// other tables' foreign keys pointing back at this one project as
// connection (HasMany) fields.
func buildRelationshipFields(snap *catalog.Snapshot, t *catalog.Table) ast.FieldList {
	var fields ast.FieldList
	for _, fk := range t.ForeignKeys {
		ref, ok := snap.Tables[fk.ReferencedTable]
		if !ok {
			continue
		}
		fields = append(fields, &ast.FieldDefinition{
			Name: singularFieldName(fk.ReferencedTable),
			Type: ast.NamedType(TypeName(ref.Name), nil),
		})
	}
	for _, otherName := range snap.TableNames() {
		if otherName == t.Name {
			continue
		}
		other := snap.Tables[otherName]
		for _, fk := range other.ForeignKeys {
			if fk.ReferencedTable != t.Name {
				continue
			}
			fields = append(fields, &ast.FieldDefinition{
				Name:      FieldName(other.Name),
				Arguments: buildListArgs(other),
				Type:      ast.NamedType(TypeName(other.Name)+"Connection", nil),
			})
		}
	}
	return fields
}

func buildEnumType(e *catalog.EnumType) *ast.Definition {
	def := &ast.Definition{Kind: ast.Enum, Name: TypeName(e.Name)}
	for _, v := range e.Values {
		def.EnumValues = append(def.EnumValues, &ast.EnumValueDefinition{Name: enumValueName(v)})
	}
	return def
}

func buildOrderDirectionEnum() *ast.Definition {
	return &ast.Definition{Kind: ast.Enum, Name: "OrderDirection", EnumValues: ast.EnumValueList{
		{Name: "ASC"}, {Name: "DESC"},
	}}
}

func buildChangeKindEnum() *ast.Definition {
	return &ast.Definition{Kind: ast.Enum, Name: "ChangeKind", EnumValues: ast.EnumValueList{
		{Name: "INSERT"}, {Name: "UPDATE"}, {Name: "DELETE"},
	}}
}

func buildHeartbeatType() *ast.Definition {
	return &ast.Definition{Kind: ast.Object, Name: "Heartbeat", Fields: ast.FieldList{
		{Name: "timestamp", Type: ast.NonNullNamedType("String", nil)},
	}}
}

func buildChangeEventType(t *catalog.Table) *ast.Definition {
	typeName := TypeName(t.Name)
	return &ast.Definition{Kind: ast.Object, Name: typeName + "ChangeEvent", Fields: ast.FieldList{
		{Name: "kind", Type: ast.NonNullNamedType("ChangeKind", nil)},
		{Name: "before", Type: ast.NamedType(typeName, nil)},
		{Name: "after", Type: ast.NamedType(typeName, nil)},
	}}
}

// enumValueName upper-snake-cases a Postgres enum label for GraphQL's enum
// value naming convention, e.g. "in progress" -> "IN_PROGRESS".
func enumValueName(label string) string {
	s := strings.ToUpper(label)
	s = strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return '_'
		}
		return r
	}, s)
	return s
}

// buildWhereInputType builds the "<Type>Where" input, one field per
// scalar column per applicable operator (spec.md §4.3/§6's operator
// table), plus "and"/"or" composition fields (spec.md §6's `where`/`or`
// argument keys).
func buildWhereInputType(t *catalog.Table) *ast.Definition {
	def := &ast.Definition{Kind: ast.InputObject, Name: TypeName(t.Name) + "Where"}
	for _, col := range t.Columns {
		scalar := scalarName(col.Type)
		for _, op := range operatorsFor(col.Type) {
			def.Fields = append(def.Fields, &ast.FieldDefinition{
				Name: col.Name + "_" + string(op),
				Type: operatorArgType(scalar, op),
			})
		}
	}
	def.Fields = append(def.Fields,
		&ast.FieldDefinition{Name: "and", Type: ast.ListType(ast.NonNullNamedType(def.Name, nil), nil)},
		&ast.FieldDefinition{Name: "or", Type: ast.ListType(ast.NonNullNamedType(def.Name, nil), nil)},
	)
	return def
}

// filterOp enumerates spec.md §4.3/§6's operator vocabulary. It is kept
// local to schemagen (rather than imported from sqlbuilder, which has no
// reason to depend on the Schema Projector) so the filter input field
// suffixes stay name-for-name with sqlbuilder.Op's own constants.
type filterOp string

const (
	opEq          filterOp = "eq"
	opNeq         filterOp = "neq"
	opGt          filterOp = "gt"
	opGte         filterOp = "gte"
	opLt          filterOp = "lt"
	opLte         filterOp = "lte"
	opLike        filterOp = "like"
	opILike       filterOp = "ilike"
	opContains    filterOp = "contains"
	opStartsWith  filterOp = "startsWith"
	opEndsWith    filterOp = "endsWith"
	opIn          filterOp = "in"
	opNotIn       filterOp = "notIn"
	opIsNull      filterOp = "isNull"
	opIsNotNull   filterOp = "isNotNull"
	opHasKey      filterOp = "hasKey"
	opHasKeys     filterOp = "hasKeys"
	opContainedBy filterOp = "containedBy"
	opHasAny      filterOp = "hasAny"
	opHasAll      filterOp = "hasAll"
	opLength      filterOp = "length"
)

func operatorsFor(ft typemap.FieldType) []filterOp {
	switch ft.Kind {
	case typemap.Text, typemap.UUID, typemap.EnumKind:
		return []filterOp{opEq, opNeq, opLike, opILike, opContains, opStartsWith, opEndsWith, opIn, opNotIn, opIsNull, opIsNotNull}
	case typemap.Int32, typemap.Int64, typemap.Float, typemap.Numeric,
		typemap.Date, typemap.Time, typemap.TimeTz, typemap.Timestamp, typemap.TimestampTz:
		return []filterOp{opEq, opNeq, opGt, opGte, opLt, opLte, opIn, opNotIn, opIsNull, opIsNotNull}
	case typemap.Bool:
		return []filterOp{opEq, opNeq, opIsNull, opIsNotNull}
	case typemap.JSON:
		return []filterOp{opHasKey, opHasKeys, opContainedBy, opIsNull, opIsNotNull}
	case typemap.ArrayKind:
		return []filterOp{opContains, opContainedBy, opHasAny, opHasAll, opLength, opIsNull, opIsNotNull}
	default:
		return []filterOp{opEq, opNeq, opIsNull, opIsNotNull}
	}
}

func operatorArgType(scalar string, op filterOp) *ast.Type {
	switch op {
	case opIsNull, opIsNotNull:
		return ast.NamedType("Boolean", nil)
	case opIn, opNotIn, opHasKeys, opHasAny, opHasAll:
		return ast.ListType(ast.NonNullNamedType(scalar, nil), nil)
	case opLength:
		return ast.NamedType("Int", nil)
	default:
		return ast.NamedType(scalar, nil)
	}
}

// buildOrderByInput builds "<Type>OrderBy": one optional OrderDirection
// field per orderable (scalar, non-JSON/array/composite) column, per
// spec.md §4.6 ("orderBy input per table with one field per orderable
// column, each typed as ASC|DESC").
func buildOrderByInput(t *catalog.Table) *ast.Definition {
	def := &ast.Definition{Kind: ast.InputObject, Name: TypeName(t.Name) + "OrderBy"}
	for _, col := range t.Columns {
		if col.Type.Kind == typemap.JSON || col.Type.Kind == typemap.ArrayKind || col.Type.Kind == typemap.CompositeKind {
			continue
		}
		def.Fields = append(def.Fields, &ast.FieldDefinition{
			Name: col.Name,
			Type: ast.NamedType("OrderDirection", nil),
		})
	}
	return def
}

func buildConnectionTypes(t *catalog.Table) (edge, conn *ast.Definition) {
	typeName := TypeName(t.Name)
	edge = &ast.Definition{
		Kind: ast.Object,
		Name: typeName + "Edge",
		Fields: ast.FieldList{
			{Name: "node", Type: ast.NonNullNamedType(typeName, nil)},
			{Name: "cursor", Type: ast.NonNullNamedType("String", nil)},
		},
	}
	conn = &ast.Definition{
		Kind: ast.Object,
		Name: typeName + "Connection",
		Fields: ast.FieldList{
			{Name: "edges", Type: ast.ListType(ast.NonNullNamedType(edge.Name, nil), nil)},
			{Name: "pageInfo", Type: ast.NonNullNamedType("PageInfo", nil)},
			{Name: "totalCount", Type: ast.NonNullNamedType("Int", nil)},
		},
	}
	return edge, conn
}

func buildPageInfoType() *ast.Definition {
	return &ast.Definition{
		Kind: ast.Object,
		Name: "PageInfo",
		Fields: ast.FieldList{
			{Name: "hasNextPage", Type: ast.NonNullNamedType("Boolean", nil)},
			{Name: "hasPreviousPage", Type: ast.NonNullNamedType("Boolean", nil)},
			{Name: "startCursor", Type: ast.NamedType("String", nil)},
			{Name: "endCursor", Type: ast.NamedType("String", nil)},
		},
	}
}

// buildListArgs builds the argument set shared by the root connection
// query field and HasMany relationship fields (spec.md §6's recognized
// argument keys: where/or, orderBy, limit/offset, first/after/last/before).
func buildListArgs(t *catalog.Table) ast.ArgumentDefinitionList {
	typeName := TypeName(t.Name)
	return ast.ArgumentDefinitionList{
		{Name: "where", Type: ast.NamedType(typeName+"Where", nil)},
		{Name: "or", Type: ast.ListType(ast.NonNullNamedType(typeName+"Where", nil), nil)},
		{Name: "orderBy", Type: ast.ListType(ast.NonNullNamedType(typeName+"OrderBy", nil), nil)},
		{Name: "limit", Type: ast.NamedType("Int", nil)},
		{Name: "offset", Type: ast.NamedType("Int", nil)},
		{Name: "first", Type: ast.NamedType("Int", nil)},
		{Name: "after", Type: ast.NamedType("String", nil)},
		{Name: "last", Type: ast.NamedType("Int", nil)},
		{Name: "before", Type: ast.NamedType("String", nil)},
	}
}

func buildSingleQueryField(t *catalog.Table) *ast.FieldDefinition {
	return &ast.FieldDefinition{
		Name:      singularFieldName(t.Name),
		Arguments: ast.ArgumentDefinitionList{{Name: "id", Type: ast.NonNullNamedType("ID", nil)}},
		Type:      ast.NamedType(TypeName(t.Name), nil),
	}
}

func buildConnectionQueryField(t *catalog.Table) *ast.FieldDefinition {
	return &ast.FieldDefinition{
		Name:      FieldName(t.Name),
		Arguments: buildListArgs(t),
		Type:      ast.NonNullNamedType(TypeName(t.Name)+"Connection", nil),
	}
}

// buildMutationFields builds create/bulkCreate/update/delete for a base
// table (spec.md §4.7).
func buildMutationFields(t *catalog.Table) ast.FieldList {
	typeName := TypeName(t.Name)
	createInput := "Create" + typeName + "Input"
	updateInput := "Update" + typeName + "Input"
	suffix := typeName

	return ast.FieldList{
		{
			Name:      "create" + suffix,
			Arguments: ast.ArgumentDefinitionList{{Name: "input", Type: ast.NonNullNamedType(createInput, nil)}},
			Type:      ast.NonNullNamedType(typeName, nil),
		},
		{
			Name:      "bulkCreate" + suffix,
			Arguments: ast.ArgumentDefinitionList{{Name: "inputs", Type: ast.ListType(ast.NonNullNamedType(createInput, nil), nil)}},
			Type:      ast.ListType(ast.NonNullNamedType(typeName, nil), nil),
		},
		{
			Name:      "update" + suffix,
			Arguments: ast.ArgumentDefinitionList{{Name: "input", Type: ast.NonNullNamedType(updateInput, nil)}},
			Type:      ast.NonNullNamedType(typeName, nil),
		},
		{
			Name:      "delete" + suffix,
			Arguments: ast.ArgumentDefinitionList{{Name: "id", Type: ast.NonNullNamedType("ID", nil)}},
			Type:      ast.NonNullNamedType("Boolean", nil),
		},
	}
}

// buildCreateInput builds "Create<Type>Input": every column but the
// primary key (assumed server-generated), required unless nullable.
func buildCreateInput(t *catalog.Table) *ast.Definition {
	def := &ast.Definition{Kind: ast.InputObject, Name: "Create" + TypeName(t.Name) + "Input"}
	for _, col := range t.Columns {
		if col.IsPrimaryKey {
			continue
		}
		def.Fields = append(def.Fields, &ast.FieldDefinition{
			Name: col.Name,
			Type: scalarType(col.Type, col.Nullable),
		})
	}
	return def
}

// buildUpdateInput builds "Update<Type>Input": the primary key (required)
// plus every other column as optional.
func buildUpdateInput(t *catalog.Table) *ast.Definition {
	def := &ast.Definition{Kind: ast.InputObject, Name: "Update" + TypeName(t.Name) + "Input"}
	for _, col := range t.Columns {
		nullable := col.Nullable || !col.IsPrimaryKey
		def.Fields = append(def.Fields, &ast.FieldDefinition{
			Name: col.Name,
			Type: scalarType(col.Type, nullable),
		})
	}
	return def
}

// buildCreateWithRelationshipsInput builds "Create<Type>WithRelationshipsInput"
// (spec.md §4.6/§4.7): the plain create input's fields, plus for every
// outgoing foreign key a "<fk>_connect" (link by primary key) and
// "<fk>_create" (create the referenced row first) field, and for every
// incoming foreign key (a child table referencing this one) a
// "<rel>_createMany" field. Returns nil when the table has no
// relationships to nest.
func buildCreateWithRelationshipsInput(snap *catalog.Snapshot, t *catalog.Table) *ast.Definition {
	if len(t.ForeignKeys) == 0 && !hasIncomingForeignKeys(snap, t) {
		return nil
	}

	def := &ast.Definition{Kind: ast.InputObject, Name: "Create" + TypeName(t.Name) + "WithRelationshipsInput"}
	fkCols := make(map[string]bool)
	for _, fk := range t.ForeignKeys {
		for _, c := range fk.LocalColumns {
			fkCols[c] = true
		}
	}
	for _, col := range t.Columns {
		if col.IsPrimaryKey || fkCols[col.Name] {
			continue
		}
		def.Fields = append(def.Fields, &ast.FieldDefinition{
			Name: col.Name,
			Type: scalarType(col.Type, col.Nullable),
		})
	}

	for _, fk := range t.ForeignKeys {
		ref, ok := snap.Tables[fk.ReferencedTable]
		if !ok {
			continue
		}
		name := singularFieldName(fk.ReferencedTable)
		def.Fields = append(def.Fields,
			&ast.FieldDefinition{Name: name + "_connect", Type: ast.NamedType("ID", nil)},
			&ast.FieldDefinition{Name: name + "_create", Type: ast.NamedType("Create"+TypeName(ref.Name)+"Input", nil)},
		)
	}

	for _, otherName := range snap.TableNames() {
		other := snap.Tables[otherName]
		for _, fk := range other.ForeignKeys {
			if fk.ReferencedTable != t.Name {
				continue
			}
			def.Fields = append(def.Fields, &ast.FieldDefinition{
				Name: FieldName(other.Name) + "_createMany",
				Type: ast.ListType(ast.NonNullNamedType("Create"+TypeName(other.Name)+"Input", nil), nil),
			})
		}
	}

	return def
}

func hasIncomingForeignKeys(snap *catalog.Snapshot, t *catalog.Table) bool {
	for _, otherName := range snap.TableNames() {
		if otherName == t.Name {
			continue
		}
		for _, fk := range snap.Tables[otherName].ForeignKeys {
			if fk.ReferencedTable == t.Name {
				return true
			}
		}
	}
	return false
}

// scalarName maps a FieldType to its GraphQL scalar name (without
// nullability wrapping).
func scalarName(ft typemap.FieldType) string {
	switch ft.Kind {
	case typemap.Int32:
		return "Int"
	case typemap.Int64:
		return "Int64"
	case typemap.Float, typemap.Numeric:
		return "Float"
	case typemap.Bool:
		return "Boolean"
	case typemap.UUID:
		return "UUID"
	case typemap.JSON:
		return "JSON"
	case typemap.EnumKind:
		return TypeName(ft.Name)
	case typemap.CompositeKind:
		return TypeName(ft.Name)
	case typemap.ArrayKind:
		if ft.Elem != nil {
			return scalarName(*ft.Elem)
		}
		return "String"
	default:
		return "String"
	}
}

// scalarType builds the field's GraphQL type, wrapping arrays as a list
// of non-null elements (NULL elements inside a Postgres array column are
// rare enough that spec.md §4.2 doesn't model them; the array itself is
// nullable/non-null per the column's own nullability).
func scalarType(ft typemap.FieldType, nullable bool) *ast.Type {
	name := scalarName(ft)
	if ft.Kind == typemap.ArrayKind {
		list := ast.ListType(ast.NonNullNamedType(name, nil), nil)
		if nullable {
			return list
		}
		return &ast.Type{NonNull: true, Elem: list}
	}
	if nullable {
		return ast.NamedType(name, nil)
	}
	return ast.NonNullNamedType(name, nil)
}
