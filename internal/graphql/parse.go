package graphql

import (
	"fmt"
	"regexp"
	"strings"
)

// identPattern matches a bare GraphQL field name.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Node is one field of a selection set. A node with children is a fragment.
type Node struct {
	Name     string
	Children []*Node
}

// IsFragment reports whether the node selects sub-fields.
func (n *Node) IsFragment() bool {
	return len(n.Children) > 0
}

// Child returns the direct child with the given name.
func (n *Node) Child(name string) (*Node, bool) {
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// String renders the node on a single line, e.g. "asset { id name }".
func (n *Node) String() string {
	if !n.IsFragment() {
		return n.Name
	}
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	b.WriteString(n.Name)
	if !n.IsFragment() {
		return
	}
	b.WriteString(" {")
	for _, c := range n.Children {
		b.WriteByte(' ')
		c.write(b)
	}
	b.WriteString(" }")
}

// merge folds src's children into n, recursing into children present in both.
func (n *Node) merge(src *Node) {
	for _, sc := range src.Children {
		if dc, ok := n.Child(sc.Name); ok {
			dc.merge(sc)
			continue
		}
		n.Children = append(n.Children, sc)
	}
}

// ParseSelection parses a single field specifier: either a bare name or a
// fragment of the form "name { child child { ... } }".
func ParseSelection(spec string) (*Node, error) {
	p := &selectionParser{tokens: tokenize(spec)}
	if len(p.tokens) == 0 {
		return nil, fmt.Errorf("empty selection")
	}
	node, err := p.selection()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, fmt.Errorf("unexpected token %q after %q", p.peek(), node.Name)
	}
	return node, nil
}

// tokenize splits on whitespace and emits braces as standalone tokens.
func tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case r == '{' || r == '}':
			flush()
			tokens = append(tokens, string(r))
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

type selectionParser struct {
	tokens []string
	pos    int
}

func (p *selectionParser) done() bool { return p.pos >= len(p.tokens) }

func (p *selectionParser) peek() string {
	if p.done() {
		return ""
	}
	return p.tokens[p.pos]
}

// selection := name [ "{" selection+ "}" ]
func (p *selectionParser) selection() (*Node, error) {
	name := p.peek()
	if !identPattern.MatchString(name) {
		if name == "" {
			return nil, fmt.Errorf("unexpected end of selection")
		}
		return nil, fmt.Errorf("invalid field name %q", name)
	}
	p.pos++

	node := &Node{Name: name}
	if p.peek() != "{" {
		return node, nil
	}
	p.pos++

	for {
		switch p.peek() {
		case "":
			return nil, fmt.Errorf("unbalanced braces in %q", name)
		case "}":
			p.pos++
			if len(node.Children) == 0 {
				return nil, fmt.Errorf("empty selection body for %q", name)
			}
			return node, nil
		}
		child, err := p.selection()
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
}
