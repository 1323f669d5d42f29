package load

import (
	"fmt"
	"math/big"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// Schema is the ordered class hierarchy loaded from a schema source.
// Classes appear in declaration order.
type Schema struct {
	Classes []*Class `json:"classes,omitempty"`
}

// Class represents one object class as declared, before inheritance.
type Class struct {
	Name       string       `json:"name,omitempty"`
	Pos        string       `json:"-"`
	Superclass string       `json:"superclass,omitempty"`
	Concrete   bool         `json:"concrete,omitempty"`
	Attributes []*Attribute `json:"attributes,omitempty"`
}

// Attribute represents one attribute declaration on a class.
type Attribute struct {
	Name string    `json:"name,omitempty"`
	Pos  string    `json:"-"`
	Type *AttrType `json:"type,omitempty"`
	// Footnotes is nil when the declaration does not mention footnotes,
	// and non-nil (possibly empty) when it does.
	Footnotes     []int  `json:"footnotes,omitempty"`
	Default       *Value `json:"default,omitempty"`
	Value         *Value `json:"value,omitempty"`
	Unimplemented bool   `json:"unimplemented,omitempty"`
}

// Attribute returns the declared attribute with the given name.
func (c *Class) Attribute(name string) (*Attribute, bool) {
	for _, a := range c.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// Clone returns a deep copy of a.
func (a *Attribute) Clone() *Attribute {
	c := *a
	if a.Type != nil {
		t := *a.Type
		c.Type = &t
	}
	if a.Footnotes != nil {
		c.Footnotes = slices.Clone(a.Footnotes)
	}
	c.Default = a.Default.Clone()
	c.Value = a.Value.Clone()
	return &c
}

// Class record fields. Every other class-level key is an attribute identifier.
const (
	fieldName       = "name"
	fieldSuperclass = "superclass"
	fieldConcrete   = "concrete"
)

// Attribute record fields.
const (
	fieldType          = "type"
	fieldDefault       = "default"
	fieldValue         = "value"
	fieldFootnotes     = "footnotes"
	fieldUnimplemented = "unimplemented"
)

// LoadSchema reads and parses the schema file at path.
func LoadSchema(path string) (*Schema, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return ParseSchema(path, buf)
}

// ParseSchema parses a YAML schema: a sequence of class records.
//
//	- name: storage
//	  superclass: object
//	  token: {type: CK_BBOOL, default: false}
//	  label: {type: rfc2279string, default: ""}
//
// Unknown attribute-level keys, negative integers, unknown type tags and
// declarations with both a default and a value are errors.
func ParseSchema(file string, buf []byte) (*Schema, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(buf, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	s := &Schema{}
	if len(doc.Content) == 0 {
		return s, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%s:%d: schema must be a sequence of classes", file, root.Line)
	}
	p := &parser{file: file}
	seen := make(map[string]string)
	for _, n := range root.Content {
		c, err := p.class(n)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[c.Name]; ok {
			return nil, fmt.Errorf("%s: class %q already declared at %s", c.Pos, c.Name, prev)
		}
		seen[c.Name] = c.Pos
		s.Classes = append(s.Classes, c)
	}
	return s, nil
}

type parser struct {
	file string
}

func (p *parser) pos(n *yaml.Node) string {
	return fmt.Sprintf("%s:%d", p.file, n.Line)
}

func (p *parser) errorf(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("%s: %s", p.pos(n), fmt.Sprintf(format, args...))
}

func (p *parser) class(n *yaml.Node) (*Class, error) {
	if n.Kind != yaml.MappingNode {
		return nil, p.errorf(n, "class record must be a mapping")
	}
	c := &Class{Pos: p.pos(n)}
	keys := make(map[string]bool)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, p.errorf(k, "class key must be a scalar")
		}
		if keys[k.Value] {
			return nil, p.errorf(k, "duplicate key %q", k.Value)
		}
		keys[k.Value] = true
		switch k.Value {
		case fieldName:
			if err := v.Decode(&c.Name); err != nil {
				return nil, p.errorf(v, "class name: %v", err)
			}
		case fieldSuperclass:
			if v.ShortTag() == "!!null" {
				continue
			}
			if err := v.Decode(&c.Superclass); err != nil {
				return nil, p.errorf(v, "superclass: %v", err)
			}
		case fieldConcrete:
			if err := v.Decode(&c.Concrete); err != nil {
				return nil, p.errorf(v, "concrete: %v", err)
			}
		default:
			a, err := p.attribute(k.Value, v)
			if err != nil {
				return nil, err
			}
			a.Pos = p.pos(k)
			c.Attributes = append(c.Attributes, a)
		}
	}
	if c.Name == "" {
		return nil, p.errorf(n, "class record without a name")
	}
	return c, nil
}

func (p *parser) attribute(name string, n *yaml.Node) (*Attribute, error) {
	a := &Attribute{Name: name}
	if n.ShortTag() == "!!null" {
		return a, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, p.errorf(n, "attribute %q must be a mapping", name)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		var err error
		switch k.Value {
		case fieldType:
			var tag string
			if err = v.Decode(&tag); err == nil {
				a.Type, err = ParseType(tag)
			}
		case fieldDefault:
			a.Default, err = p.value(v)
		case fieldValue:
			a.Value, err = p.value(v)
		case fieldFootnotes:
			a.Footnotes, err = p.footnotes(v)
		case fieldUnimplemented:
			err = v.Decode(&a.Unimplemented)
		default:
			return nil, p.errorf(k, "attribute %q: unknown key %q", name, k.Value)
		}
		if err != nil {
			return nil, p.errorf(v, "attribute %q: %s: %v", name, k.Value, err)
		}
	}
	if a.Default != nil && a.Value != nil {
		return nil, p.errorf(n, "attribute %q: declares both a default and a value", name)
	}
	return a, nil
}

var (
	hexInteger   = regexp.MustCompile(`^0[xX][0-9a-fA-F_]+$`)
	digitInteger = regexp.MustCompile(`^[+-]?[0-9_]+$`)
)

// value decodes a default or fixed value. Large integers that YAML
// resolves to floats or plain strings are still read as integers.
func (p *parser) value(n *yaml.Node) (*Value, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		plain := n.Style&(yaml.SingleQuotedStyle|yaml.DoubleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) == 0
		switch tag := n.ShortTag(); {
		case tag == "!!null":
			return nil, nil
		case tag == "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return nil, err
			}
			return Bool(b), nil
		case tag == "!!int",
			tag == "!!float" && digitInteger.MatchString(n.Value),
			tag == "!!str" && plain && hexInteger.MatchString(n.Value):
			return parseInteger(n.Value)
		case tag == "!!str":
			return String(n.Value), nil
		default:
			return nil, fmt.Errorf("unsupported value %q (%s)", n.Value, tag)
		}
	case yaml.SequenceNode:
		b := make([]byte, 0, len(n.Content))
		for _, e := range n.Content {
			var x int
			if err := e.Decode(&x); err != nil || x < 0 || x > 0xff {
				return nil, fmt.Errorf("byte sequence element %q is not a byte", e.Value)
			}
			b = append(b, byte(x))
		}
		return Bytes(b...), nil
	default:
		return nil, fmt.Errorf("value must be a scalar or a byte sequence")
	}
}

func parseInteger(s string) (*Value, error) {
	n, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("malformed integer %q", s)
	}
	v, err := Uint(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, s)
	}
	return v, nil
}

func (p *parser) footnotes(n *yaml.Node) ([]int, error) {
	var notes []int
	if err := n.Decode(&notes); err != nil {
		return nil, err
	}
	out := make([]int, 0, len(notes))
	for _, x := range notes {
		if x <= 0 {
			return nil, fmt.Errorf("footnote %d out of range", x)
		}
		if !slices.Contains(out, x) {
			out = append(out, x)
		}
	}
	slices.Sort(out)
	return out, nil
}
