package sql

import (
	"regexp"
	"strings"

	"github.com/lib/pq"
)

// validIdentifierRe validates session-variable names (alphanumeric,
// underscores, dots for qualified names like "app.current_user").
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// isValidIdentifier reports whether s is safe to interpolate unquoted into
// a SET statement (session variable names cannot be bound as parameters).
func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// QuoteIdent double-quotes a SQL identifier (table/column/schema name),
// doubling any embedded quotes, per spec.md §4.3 ("Identifiers are
// double-quoted with internal quotes doubled"). Delegates to lib/pq's
// identifier quoting, which implements exactly this rule.
func QuoteIdent(name string) string {
	return pq.QuoteIdentifier(name)
}

// QualifyIdent double-quotes and schema-qualifies a table name, e.g.
// QualifyIdent("public", "customer") -> `"public"."customer"`.
func QualifyIdent(schema, name string) string {
	if schema == "" {
		return QuoteIdent(name)
	}
	return QuoteIdent(schema) + "." + QuoteIdent(name)
}

// QuoteLiteral safely quotes a string as a SQL literal. Used only for
// values that cannot be bound as parameters (session variables); user data
// is never rendered through this path — see spec.md §8 "Parametric safety".
func QuoteLiteral(s string) string {
	return pq.QuoteLiteral(s)
}

// joinIdents quotes and joins a list of identifiers with ", ".
func joinIdents(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = QuoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}

// JoinIdents is the exported form of joinIdents, used by the SQL Builder to
// render column lists.
func JoinIdents(names []string) string { return joinIdents(names) }
