package graphql

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// Template is query text with ${name} placeholders. GraphQL variables such
// as $first are left alone.
type Template struct {
	name string
	text string
}

// NewTemplate returns a named template.
func NewTemplate(name, text string) *Template {
	return &Template{name: name, text: text}
}

// Name returns the template name.
func (t *Template) Name() string {
	return t.name
}

// Render substitutes every placeholder and checks that the result parses as
// a GraphQL document. An unknown placeholder is an error.
func (t *Template) Render(values map[string]string) (string, error) {
	var b strings.Builder
	rest := t.text
	for {
		i := strings.Index(rest, "${")
		if i < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[i:], '}')
		if end < 0 {
			return "", fmt.Errorf("template %s: unterminated placeholder", t.name)
		}
		key := rest[i+2 : i+end]
		val, ok := values[key]
		if !ok {
			return "", fmt.Errorf("template %s: no value for ${%s}", t.name, key)
		}
		b.WriteString(rest[:i])
		b.WriteString(val)
		rest = rest[i+end+1:]
	}

	query := b.String()
	if err := CheckSyntax(query); err != nil {
		return "", fmt.Errorf("template %s: %w", t.name, err)
	}
	return query, nil
}

// MustRender is Render for templates whose values are fixed at build time.
func (t *Template) MustRender(values map[string]string) string {
	q, err := t.Render(values)
	if err != nil {
		panic(err)
	}
	return q
}

// CheckSyntax parses query as an executable GraphQL document.
func CheckSyntax(query string) error {
	if _, err := parser.ParseQuery(&ast.Source{Input: query}); err != nil {
		return fmt.Errorf("invalid GraphQL document: %w", err)
	}
	return nil
}
