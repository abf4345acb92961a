package schemagen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// Render serializes a projected SchemaDocument back to SDL text, sorted by
// definition name for deterministic output across runs over the same
// catalog snapshot. Definitions are written type-kind by type-kind rather
// than through a generic formatter, since the engine has no collaborator
// dependency on round-tripping the SDL through gqlparser's own parser —
// it only needs stable, readable text to hash and to hand to the
// transport layer that serves introspection.
func Render(doc *ast.SchemaDocument) string {
	defs := make([]*ast.Definition, len(doc.Definitions))
	copy(defs, doc.Definitions)
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })

	var b strings.Builder
	for i, def := range defs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		writeDefinition(&b, def)
	}
	b.WriteString("\n")
	return b.String()
}

// HashSDL content-addresses a projected schema document by the sha256 of
// its rendered SDL, so a collaborator transport layer can detect schema
// drift across catalog refreshes without re-parsing (spec.md §3's
// schema-projection lifecycle, supplemented per the design notes in
// DESIGN.md).
func HashSDL(doc *ast.SchemaDocument) string {
	sum := sha256.Sum256([]byte(Render(doc)))
	return hex.EncodeToString(sum[:])
}

func writeDefinition(b *strings.Builder, def *ast.Definition) {
	switch def.Kind {
	case ast.Object:
		writeFielded(b, "type", def)
	case ast.InputObject:
		writeFielded(b, "input", def)
	case ast.Interface:
		writeFielded(b, "interface", def)
	case ast.Enum:
		fmt.Fprintf(b, "enum %s {\n", def.Name)
		for _, v := range def.EnumValues {
			fmt.Fprintf(b, "  %s\n", v.Name)
		}
		b.WriteString("}")
	case ast.Union:
		fmt.Fprintf(b, "union %s = %s", def.Name, strings.Join(def.Types, " | "))
	case ast.Scalar:
		fmt.Fprintf(b, "scalar %s", def.Name)
	}
}

func writeFielded(b *strings.Builder, keyword string, def *ast.Definition) {
	fmt.Fprintf(b, "%s %s", keyword, def.Name)
	if len(def.Interfaces) > 0 {
		fmt.Fprintf(b, " implements %s", strings.Join(def.Interfaces, " & "))
	}
	b.WriteString(" {\n")
	for _, f := range def.Fields {
		fmt.Fprintf(b, "  %s", f.Name)
		if len(f.Arguments) > 0 {
			var args []string
			for _, a := range f.Arguments {
				args = append(args, fmt.Sprintf("%s: %s", a.Name, a.Type.String()))
			}
			fmt.Fprintf(b, "(%s)", strings.Join(args, ", "))
		}
		fmt.Fprintf(b, ": %s\n", f.Type.String())
	}
	b.WriteString("}")
}
