package gen

import (
	"fmt"
	"slices"

	"github.com/DiamondKeySecurity/pkcs11/compiler/load"
)

type (
	// Graph holds the resolved class hierarchy. Classes are resolved once,
	// in declaration order, and are read-only afterwards.
	Graph struct {
		*Config
		// Classes holds the resolved classes in declaration order.
		Classes []*Class
		classes map[string]*Class
	}

	// Class is a class with its inherited attributes merged in.
	Class struct {
		// Name of the class.
		Name string
		// Concrete classes get a descriptor table.
		Concrete bool
		// Parent is the resolved superclass, nil for the root.
		Parent *Class
		// Declared is the class as loaded, before inheritance.
		Declared *load.Class
		attrs    map[string]*load.Attribute
		order    []string
	}
)

// NewGraph resolves the schema. Superclasses must be declared before
// their subclasses, there is exactly one root, and every attribute
// identifier must be known to the registry.
func NewGraph(c *Config, schema *load.Schema) (*Graph, error) {
	if c == nil {
		return nil, NewConfigError("Config", nil, "config cannot be nil")
	}
	if c.Registry == nil {
		return nil, NewConfigError("Registry", nil, "a numeric-ID registry is required")
	}
	g := &Graph{
		Config:  c,
		classes: make(map[string]*Class),
	}
	var root *Class
	for _, decl := range schema.Classes {
		if err := g.check(decl); err != nil {
			return nil, err
		}
		var parent *Class
		if decl.Superclass != "" {
			p, ok := g.classes[decl.Superclass]
			if !ok {
				return nil, NewSchemaError(decl.Name, "", fmt.Sprintf("unknown superclass %q (superclasses must be declared first)", decl.Superclass), nil)
			}
			parent = p
		} else if root != nil {
			return nil, NewSchemaError(decl.Name, "", fmt.Sprintf("second root class (%q is the root)", root.Name), nil)
		}
		cls := resolve(decl, parent)
		if parent == nil {
			root = cls
		}
		if cls.Concrete {
			if err := cls.checkTypes(); err != nil {
				return nil, err
			}
		}
		g.classes[cls.Name] = cls
		g.Classes = append(g.Classes, cls)
		c.logger().Debug("resolved class", "class", cls.Name, "attributes", len(cls.order), "concrete", cls.Concrete)
	}
	return g, nil
}

// check validates one declaration before it is merged.
func (g *Graph) check(decl *load.Class) error {
	if _, ok := g.classes[decl.Name]; ok {
		return NewSchemaError(decl.Name, "", "duplicate class name", nil)
	}
	if decl.Superclass == decl.Name {
		return NewSchemaError(decl.Name, "", "class cannot inherit from itself", nil)
	}
	flags := g.flags()
	for _, a := range decl.Attributes {
		if _, ok := g.Registry.AttributeID(a.Name); !ok {
			return NewSchemaError(decl.Name, a.Name, fmt.Sprintf("%s: neither a class field nor an attribute identifier (no %s in registry)", a.Pos, load.AttributeSymbol(a.Name)), nil)
		}
		if a.Default != nil && a.Value != nil {
			return NewSchemaError(decl.Name, a.Name, "declares both a default and a value", nil)
		}
		for _, n := range a.Footnotes {
			if _, ok := flags.FlagForFootnote(n); !ok {
				return NewSchemaError(decl.Name, a.Name, fmt.Sprintf("footnote %d has no registered flag", n), nil)
			}
		}
	}
	return nil
}

// resolve merges decl with its resolved parent. The result lists the
// parent's attributes first, in the parent's order, followed by the
// attributes decl introduces.
func resolve(decl *load.Class, parent *Class) *Class {
	c := &Class{
		Name:     decl.Name,
		Concrete: decl.Concrete,
		Parent:   parent,
		Declared: decl,
		attrs:    make(map[string]*load.Attribute),
	}
	if parent != nil {
		for _, name := range parent.order {
			c.attrs[name] = parent.attrs[name]
			c.order = append(c.order, name)
		}
	}
	for _, a := range decl.Attributes {
		inherited, ok := c.attrs[a.Name]
		if !ok {
			c.order = append(c.order, a.Name)
			c.attrs[a.Name] = a.Clone()
			continue
		}
		c.attrs[a.Name] = Merge(a, inherited)
	}
	return c
}

// Merge fills the unset fields of child from parent and returns the
// result; neither argument is modified. Type and footnotes are inherited
// independently. Default and value are inherited together, and only when
// child sets neither, so a subclass's own default or value always wins.
// Unlike filling each field separately, a child default therefore hides
// an ancestor's fixed value.
// Unimplemented is the OR of both.
func Merge(child, parent *load.Attribute) *load.Attribute {
	m := child.Clone()
	if parent == nil {
		return m
	}
	if m.Type == nil && parent.Type != nil {
		t := *parent.Type
		m.Type = &t
	}
	if m.Footnotes == nil && parent.Footnotes != nil {
		m.Footnotes = slices.Clone(parent.Footnotes)
	}
	if m.Default == nil && m.Value == nil {
		m.Default = parent.Default.Clone()
		m.Value = parent.Value.Clone()
	}
	m.Unimplemented = m.Unimplemented || parent.Unimplemented
	return m
}

func (c *Class) checkTypes() error {
	for _, name := range c.order {
		a := c.attrs[name]
		if a.Type == nil && !a.Unimplemented {
			return NewSchemaError(c.Name, name, "attribute has no type", nil)
		}
	}
	return nil
}

// Class returns the resolved class with the given name.
func (g *Graph) Class(name string) (*Class, bool) {
	c, ok := g.classes[name]
	return c, ok
}

// Concrete returns the concrete classes in declaration order.
func (g *Graph) Concrete() []*Class {
	var cs []*Class
	for _, c := range g.Classes {
		if c.Concrete {
			cs = append(cs, c)
		}
	}
	return cs
}

// Names returns the resolved attribute names: inherited ones first, in
// the order the root-most ancestor introduced them.
func (c *Class) Names() []string {
	return slices.Clone(c.order)
}

// Attribute returns the resolved attribute with the given name.
// The returned value must not be modified.
func (c *Class) Attribute(name string) (*load.Attribute, bool) {
	a, ok := c.attrs[name]
	return a, ok
}

// Attributes returns the resolved attributes in Names order.
func (c *Class) Attributes() []*load.Attribute {
	attrs := make([]*load.Attribute, 0, len(c.order))
	for _, name := range c.order {
		attrs = append(attrs, c.attrs[name])
	}
	return attrs
}

// Ancestors returns the superclass chain, nearest first.
func (c *Class) Ancestors() []*Class {
	var cs []*Class
	for p := c.Parent; p != nil; p = p.Parent {
		cs = append(cs, p)
	}
	return cs
}

// Len returns the number of resolved attributes.
func (c *Class) Len() int {
	return len(c.order)
}
