package compiler

import (
	"fmt"
	"strings"

	"github.com/arcflow/pgql/binder"
	"github.com/arcflow/pgql/catalog"
	"github.com/arcflow/pgql/sqlbuilder"
	"github.com/arcflow/pgql/typemap"
)

// opSuffixes lists every recognized filter-operator suffix (spec.md §4.3/§6).
// splitColumnOp matches each one together with its leading underscore, so a
// suffix match never picks "eq" out of "neq" or "hasKey" out of "hasKeys".
var opSuffixes = []struct {
	suffix string
	op     sqlbuilder.Op
}{
	{"isNotNull", sqlbuilder.OpIsNotNull},
	{"startsWith", sqlbuilder.OpStartsWith},
	{"endsWith", sqlbuilder.OpEndsWith},
	{"containedBy", sqlbuilder.OpContainedBy},
	{"pathText", sqlbuilder.OpPathText},
	{"isNull", sqlbuilder.OpIsNull},
	{"contains", sqlbuilder.OpContains},
	{"hasKeys", sqlbuilder.OpHasKeys},
	{"hasKey", sqlbuilder.OpHasKey},
	{"hasAny", sqlbuilder.OpHasAny},
	{"hasAll", sqlbuilder.OpHasAll},
	{"notIn", sqlbuilder.OpNotIn},
	{"length", sqlbuilder.OpLength},
	{"path", sqlbuilder.OpPath},
	{"ilike", sqlbuilder.OpILike},
	{"like", sqlbuilder.OpLike},
	{"neq", sqlbuilder.OpNEQ},
	{"gte", sqlbuilder.OpGTE},
	{"lte", sqlbuilder.OpLTE},
	{"in", sqlbuilder.OpIn},
	{"gt", sqlbuilder.OpGT},
	{"lt", sqlbuilder.OpLT},
	{"eq", sqlbuilder.OpEQ},
}

// splitColumnOp matches a "<column>_<op>" key (where-input field or legacy
// flat-filter argument, spec.md Open Question (a)) against table's actual
// columns, since a column name may itself contain underscores.
func splitColumnOp(t *catalog.Table, key string) (string, sqlbuilder.Op, bool) {
	for _, candidate := range opSuffixes {
		suffix := "_" + candidate.suffix
		if !strings.HasSuffix(key, suffix) {
			continue
		}
		col := strings.TrimSuffix(key, suffix)
		if _, ok := t.Column(col); ok {
			return col, candidate.op, true
		}
	}
	return "", "", false
}

// ParseWhere builds the WhereTree for a connection field's arguments: the
// "where" object, ANDed with flat "<column>_<op>" arguments left over at
// the top level (legacy syntax, spec.md Open Question (a)); any "or" list
// of alternative where objects is ORed together and that group is then
// ANDed with the rest.
func ParseWhere(t *catalog.Table, args map[string]any) (*sqlbuilder.WhereTree, error) {
	var nodes []*sqlbuilder.WhereTree

	if w, ok := args["where"]; ok && w != nil {
		obj, ok := w.(map[string]any)
		if !ok {
			return nil, badWhereShape(t.Name)
		}
		tree, err := parseWhereInput(t, obj)
		if err != nil {
			return nil, err
		}
		if tree != nil {
			nodes = append(nodes, tree)
		}
	}

	var flat []*sqlbuilder.WhereTree
	for key, v := range args {
		if reservedArgs[key] {
			continue
		}
		col, op, ok := splitColumnOp(t, key)
		if !ok {
			continue
		}
		cond, err := buildCondition(t, col, op, v)
		if err != nil {
			return nil, err
		}
		flat = append(flat, &sqlbuilder.WhereTree{Cond: cond})
	}
	if len(flat) == 1 {
		nodes = append(nodes, flat[0])
	} else if len(flat) > 1 {
		nodes = append(nodes, &sqlbuilder.WhereTree{And: flat})
	}

	base := combineAnd(nodes)

	if orArg, ok := args["or"]; ok && orArg != nil {
		alts, ok := orArg.([]any)
		if !ok {
			return nil, badWhereShape(t.Name)
		}
		var orNodes []*sqlbuilder.WhereTree
		for _, a := range alts {
			obj, ok := a.(map[string]any)
			if !ok {
				return nil, badWhereShape(t.Name)
			}
			tree, err := parseWhereInput(t, obj)
			if err != nil {
				return nil, err
			}
			if tree != nil {
				orNodes = append(orNodes, tree)
			}
		}

		var or *sqlbuilder.WhereTree
		switch len(orNodes) {
		case 0:
			or = nil
		case 1:
			or = orNodes[0]
		default:
			or = &sqlbuilder.WhereTree{Or: orNodes}
		}

		// A top-level "where" AND-combines with a top-level "or" (spec.md
		// §4.3/§8); it does not flatten into the same Or list.
		switch {
		case base == nil:
			return or, nil
		case or == nil:
			return base, nil
		default:
			return &sqlbuilder.WhereTree{And: []*sqlbuilder.WhereTree{base, or}}, nil
		}
	}

	return base, nil
}

// parseWhereInput recursively walks one "<Type>Where" input object: "and"
// and "or" keys recurse and combine their children, everything else is an
// operator-suffixed column field.
func parseWhereInput(t *catalog.Table, input map[string]any) (*sqlbuilder.WhereTree, error) {
	var conds []*sqlbuilder.WhereTree

	for key, v := range input {
		if v == nil {
			continue
		}
		switch key {
		case "and":
			children, err := parseWhereList(t, v)
			if err != nil {
				return nil, err
			}
			if len(children) > 0 {
				conds = append(conds, &sqlbuilder.WhereTree{And: children})
			}
		case "or":
			children, err := parseWhereList(t, v)
			if err != nil {
				return nil, err
			}
			if len(children) > 0 {
				conds = append(conds, &sqlbuilder.WhereTree{Or: children})
			}
		default:
			col, op, ok := splitColumnOp(t, key)
			if !ok {
				continue
			}
			cond, err := buildCondition(t, col, op, v)
			if err != nil {
				return nil, err
			}
			conds = append(conds, &sqlbuilder.WhereTree{Cond: cond})
		}
	}

	return combineAnd(conds), nil
}

func parseWhereList(t *catalog.Table, v any) ([]*sqlbuilder.WhereTree, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, badWhereShape(t.Name)
	}
	var out []*sqlbuilder.WhereTree
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, badWhereShape(t.Name)
		}
		tree, err := parseWhereInput(t, obj)
		if err != nil {
			return nil, err
		}
		if tree != nil {
			out = append(out, tree)
		}
	}
	return out, nil
}

func combineAnd(nodes []*sqlbuilder.WhereTree) *sqlbuilder.WhereTree {
	switch len(nodes) {
	case 0:
		return nil
	case 1:
		return nodes[0]
	default:
		return &sqlbuilder.WhereTree{And: nodes}
	}
}

// buildCondition binds a filter operand through the Parameter Binder so the
// WhereTree carries the same normalized values a create/update mutation
// would (spec.md §4.4), except for the null-test and length operators,
// whose operand isn't a column-typed value.
func buildCondition(t *catalog.Table, col string, op sqlbuilder.Op, v any) (*sqlbuilder.Condition, error) {
	colMeta, _ := t.Column(col)

	if op == sqlbuilder.OpIsNull || op == sqlbuilder.OpIsNotNull {
		return &sqlbuilder.Condition{Column: col, Op: op}, nil
	}
	if op == sqlbuilder.OpLength {
		return &sqlbuilder.Condition{Column: col, Op: op, Value: v}, nil
	}
	if op == sqlbuilder.OpIn || op == sqlbuilder.OpNotIn || op == sqlbuilder.OpHasKeys ||
		op == sqlbuilder.OpHasAny || op == sqlbuilder.OpHasAll {
		items, _ := v.([]any)
		elemType := colMeta.Type
		if colMeta.Type.Kind == typemap.ArrayKind && colMeta.Type.Elem != nil {
			elemType = *colMeta.Type.Elem
		}
		bound := make([]any, len(items))
		for i, item := range items {
			b, err := binder.Bind(t.Name, col, elemType, item)
			if err != nil {
				return nil, err
			}
			bound[i] = b
		}
		return &sqlbuilder.Condition{Column: col, Op: op, Value: pqArrayLiteral(bound)}, nil
	}

	bound, err := binder.Bind(t.Name, col, colMeta.Type, v)
	if err != nil {
		return nil, err
	}
	return &sqlbuilder.Condition{Column: col, Op: op, Value: bound}, nil
}

// pqArrayLiteral renders a bound value list as a Postgres text[] literal
// for the ANY()/ALL() operators writeCondition emits for in/notIn, and for
// the ?&/?|/@> operators' list operands.
func pqArrayLiteral(values []any) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		if v == nil {
			b.WriteString("NULL")
			continue
		}
		b.WriteString(`"`)
		b.WriteString(strings.ReplaceAll(fmt.Sprintf("%v", v), `"`, `\"`))
		b.WriteString(`"`)
	}
	b.WriteByte('}')
	return b.String()
}

func badWhereShape(table string) error {
	return badShapeErr{table: table}
}

type badShapeErr struct{ table string }

func (e badShapeErr) Error() string {
	return "compiler: malformed where input for table " + e.table
}
