package graphql

import (
	"sort"
	"strings"
)

// Indent nests a resolved selection under "edges { node { ... } }".
const Indent = "                "

// IDField is the identifier leaf guaranteed in every resolved selection.
const IDField = "id"

// suspiciousTokens never appear in a legitimate field specifier.
var suspiciousTokens = []string{"...", "@", "#", "(", ")", "[", "]", "$", "!"}

// DefaultIdentifiedObjects are the nested object types that carry an id leaf
// in the console schemas. Value aggregates such as cloudInfo or scope do not.
var DefaultIdentifiedObjects = []string{"asset", "account", "site", "group", "cve", "policy"}

// Catalog is the static field registry of one resource type. It is safe for
// concurrent use once built.
type Catalog struct {
	defaults   []string
	allowed    map[string]bool
	nested     map[string]string
	identified map[string]bool
}

// NewCatalog builds a catalog from its default specifiers and the extra
// specifiers callers may request but which are not selected by default. When
// identified is empty, DefaultIdentifiedObjects is used.
func NewCatalog(defaults, additional, identified []string) *Catalog {
	if len(identified) == 0 {
		identified = DefaultIdentifiedObjects
	}
	c := &Catalog{
		defaults:   append([]string(nil), defaults...),
		allowed:    make(map[string]bool, len(defaults)+len(additional)),
		nested:     make(map[string]string),
		identified: make(map[string]bool, len(identified)),
	}
	for _, name := range identified {
		c.identified[name] = true
	}
	for _, list := range [][]string{defaults, additional} {
		for _, spec := range list {
			c.allowed[spec] = true
			if i := strings.Index(spec, "{"); i >= 0 {
				c.nested[strings.TrimSpace(spec[:i])] = spec
			}
		}
	}
	return c
}

// Defaults returns a copy of the default specifiers.
func (c *Catalog) Defaults() []string {
	return append([]string(nil), c.defaults...)
}

// NestedObjects returns the sorted names of the known nested objects.
func (c *Catalog) NestedObjects() []string {
	names := make([]string, 0, len(c.nested))
	for name := range c.nested {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve turns a field request into an indented selection block.
//
// A nil request selects the catalog defaults verbatim. An empty request
// selects only the identifier. Otherwise every specifier is validated, bare
// nested-object names are expanded to their catalog fragment, the id leaf is
// inserted into every identified object at any depth, and duplicate top-level
// fields are merged.
func (c *Catalog) Resolve(fields []string) (string, error) {
	if fields == nil {
		return indentLines(c.defaults), nil
	}

	hasID := false
	for _, f := range fields {
		if strings.TrimSpace(f) == IDField {
			hasID = true
			break
		}
	}
	if !hasID {
		fields = append([]string{IDField}, fields...)
	}

	var order []*Node
	byName := make(map[string]*Node)
	for _, f := range fields {
		node, err := c.resolveOne(f)
		if err != nil {
			return "", err
		}
		if existing, ok := byName[node.Name]; ok {
			existing.merge(node)
			continue
		}
		byName[node.Name] = node
		order = append(order, node)
	}

	lines := make([]string, len(order))
	for i, node := range order {
		lines[i] = node.String()
	}
	return indentLines(lines), nil
}

// resolveOne validates a single specifier and returns its expanded tree.
func (c *Catalog) resolveOne(field string) (*Node, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, &FormatError{Reason: "Empty field name is not allowed"}
	}
	if field == IDField {
		return &Node{Name: IDField}, nil
	}

	if expansion, ok := c.nested[field]; ok {
		return c.fragment(expansion, field)
	}
	if c.allowed[field] {
		if strings.Contains(field, "{") {
			return c.fragment(field, field)
		}
		return &Node{Name: field}, nil
	}

	if strings.Contains(field, "{") {
		node, err := ParseSelection(field)
		if err != nil || !node.IsFragment() {
			return nil, &FormatError{
				Field: field,
				Reason: "has invalid format. Must follow GraphQL fragment syntax with balanced braces and valid field names. " +
					"Examples: 'asset { id name }', 'scope { account { id } site { name } }'",
			}
		}
		if _, ok := c.nested[node.Name]; !ok {
			return nil, &UnknownFieldError{Field: node.Name, Nested: true, Valid: c.NestedObjects()}
		}
		c.ensureID(node)
		return node, nil
	}

	for _, tok := range suspiciousTokens {
		if strings.Contains(field, tok) {
			return nil, &FormatError{
				Field:  field,
				Reason: "contains suspicious character '" + tok + "' that could be used for GraphQL injection",
			}
		}
	}

	if identPattern.MatchString(field) {
		valid := make([]string, 0, len(c.allowed))
		for name := range c.allowed {
			valid = append(valid, name)
		}
		return nil, &UnknownFieldError{Field: field, Valid: valid}
	}

	return nil, &FormatError{
		Field:  field,
		Reason: "has invalid format. Field names must be alphanumeric identifiers or valid nested field patterns.",
	}
}

func (c *Catalog) fragment(spec, field string) (*Node, error) {
	node, err := ParseSelection(spec)
	if err != nil {
		return nil, &FormatError{Field: field, Reason: "has invalid catalog expansion: " + err.Error()}
	}
	c.ensureID(node)
	return node, nil
}

// ensureID prepends the id leaf to every identified fragment in the tree.
func (c *Catalog) ensureID(n *Node) {
	if !n.IsFragment() {
		return
	}
	for _, child := range n.Children {
		c.ensureID(child)
	}
	if !c.identified[n.Name] {
		return
	}
	if _, ok := n.Child(IDField); ok {
		return
	}
	n.Children = append([]*Node{{Name: IDField}}, n.Children...)
}

func indentLines(lines []string) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(Indent)
		b.WriteString(line)
	}
	return b.String()
}
