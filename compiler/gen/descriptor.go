package gen

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/DiamondKeySecurity/pkcs11/compiler/load"
)

type (
	// Output is the compiled, renderer-independent form of a graph.
	Output struct {
		// Flags in registration order.
		Flags []Flag `json:"flags" msgpack:"flags"`
		// Constants ordered by rendering.
		Constants []*Constant `json:"constants" msgpack:"constants"`
		// Classes holds one descriptor per concrete class, in declaration order.
		Classes []*ClassDescriptor `json:"classes" msgpack:"classes"`
		// Category and Subtype name the lookup table keys.
		Category string `json:"category" msgpack:"category"`
		Subtype  string `json:"subtype" msgpack:"subtype"`
		// Lookup maps (category, subtype) pairs to classes.
		Lookup []*LookupRow `json:"lookup" msgpack:"lookup"`
	}

	// ClassDescriptor is the descriptor table of one concrete class.
	ClassDescriptor struct {
		Name string `json:"name" msgpack:"name"`
		// Rows sorted by attribute ID.
		Rows []*Row `json:"rows" msgpack:"rows"`
	}

	// Row describes one implemented attribute of a class.
	Row struct {
		// Name is the schema attribute identifier.
		Name string `json:"name" msgpack:"name"`
		// Symbol is the registry name of the attribute, e.g. CKA_CLASS.
		Symbol string `json:"symbol" msgpack:"symbol"`
		// ID is the numeric attribute type.
		ID   uint64         `json:"id" msgpack:"id"`
		Type *load.AttrType `json:"type" msgpack:"type"`
		// Size is the width of fixed-width scalar types, zero otherwise.
		Size uint64 `json:"size" msgpack:"size"`
		// Length is the byte count of a byte-sequence value, the type width
		// of a non-empty default on a scalar type, zero otherwise.
		Length uint64 `json:"length" msgpack:"length"`
		// Value is the pooled effective value, nil when there is none.
		Value *Constant `json:"value,omitempty" msgpack:"value,omitempty"`
		// Flags is the OR of the row's flag bits; FlagNames lists them.
		Flags     uint32   `json:"flags" msgpack:"flags"`
		FlagNames []string `json:"flag_names,omitempty" msgpack:"flag_names,omitempty"`
		// FromDefault is set when Value came from a default.
		FromDefault bool `json:"from_default,omitempty" msgpack:"from_default,omitempty"`
	}

	// LookupRow maps one (category, subtype) pair to a class.
	LookupRow struct {
		Category      *Constant `json:"category" msgpack:"category"`
		Subtype       *Constant `json:"subtype" msgpack:"subtype"`
		CategoryValue uint64    `json:"category_value" msgpack:"category_value"`
		SubtypeValue  uint64    `json:"subtype_value" msgpack:"subtype_value"`
		Class         string    `json:"class" msgpack:"class"`
	}
)

// N returns the number of rows.
func (d *ClassDescriptor) N() int {
	return len(d.Rows)
}

// Row returns the row of the named attribute.
func (d *ClassDescriptor) Row(name string) (*Row, bool) {
	for _, r := range d.Rows {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Class returns the descriptor of the named class.
func (o *Output) Class(name string) (*ClassDescriptor, bool) {
	for _, c := range o.Classes {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Compile emits the descriptor tables of the concrete classes of g and the
// lookup table. Any problem aborts the whole compilation.
func Compile(g *Graph) (*Output, error) {
	if g.Registry == nil {
		return nil, NewConfigError("Registry", nil, "a numeric-ID registry is required")
	}
	category, subtype := g.lookupKeys()
	e := &emitter{
		graph: g,
		flags: g.flags(),
		pool:  NewPool(g.Registry),
	}
	out := &Output{
		Flags:    e.flags.Flags(),
		Category: category,
		Subtype:  subtype,
	}
	for _, c := range g.Concrete() {
		d, err := e.class(c)
		if err != nil {
			return nil, err
		}
		out.Classes = append(out.Classes, d)
		g.logger().Debug("compiled class", "class", c.Name, "rows", d.N())
	}
	lookup, err := e.lookup(g.Concrete(), category, subtype)
	if err != nil {
		return nil, err
	}
	out.Lookup = lookup
	out.Constants = e.pool.Constants()
	g.logger().Info("compiled schema",
		"classes", len(out.Classes),
		"constants", len(out.Constants),
		"mappings", len(out.Lookup),
	)
	return out, nil
}

type emitter struct {
	graph *Graph
	flags *FlagRegistry
	pool  *Pool
}

func (e *emitter) class(c *Class) (*ClassDescriptor, error) {
	d := &ClassDescriptor{Name: c.Name}
	for _, a := range c.Attributes() {
		if a.Unimplemented {
			continue
		}
		r, err := e.row(c, a)
		if err != nil {
			return nil, err
		}
		d.Rows = append(d.Rows, r)
	}
	slices.SortFunc(d.Rows, func(a, b *Row) int {
		return cmp.Or(cmp.Compare(a.ID, b.ID), cmp.Compare(a.Name, b.Name))
	})
	return d, nil
}

func (e *emitter) row(c *Class, a *load.Attribute) (*Row, error) {
	id, ok := e.graph.Registry.AttributeID(a.Name)
	if !ok {
		return nil, NewSchemaError(c.Name, a.Name, "attribute identifier not in registry", nil)
	}
	r := &Row{
		Name:   a.Name,
		Symbol: load.AttributeSymbol(a.Name),
		ID:     id,
		Type:   a.Type,
	}
	if a.Type.IsScalar() {
		w, ok := e.graph.Registry.Width(a.Type.Scalar)
		if !ok {
			return nil, NewSchemaError(c.Name, a.Name, fmt.Sprintf("unknown width of scalar type %s", a.Type.Scalar), nil)
		}
		r.Size = w
	}
	value := a.Value
	if value == nil && a.Default != nil {
		value, r.FromDefault = a.Default, true
	}
	if value != nil {
		switch {
		case value.Kind == load.KindBytes:
			r.Length = uint64(len(value.Bytes))
		case a.Type.IsScalar() && r.FromDefault && !value.Empty():
			r.Length = r.Size
		}
		cst, err := e.pool.Intern(value)
		if err != nil {
			return nil, NewSchemaError(c.Name, a.Name, "", err)
		}
		r.Value = cst
	}
	mask, names, err := e.flags.Mask(a.Footnotes, r.FromDefault)
	if err != nil {
		return nil, NewSchemaError(c.Name, a.Name, "", err)
	}
	r.Flags, r.FlagNames = mask, names
	return r, nil
}

// lookup builds the (category, subtype) table from the fixed values of
// the concrete classes. Classes lacking either fixed value are skipped.
func (e *emitter) lookup(classes []*Class, category, subtype string) ([]*LookupRow, error) {
	var (
		rows []*LookupRow
		seen = make(map[[2]uint64]string)
	)
	for _, c := range classes {
		ca, ok1 := c.Attribute(category)
		sa, ok2 := c.Attribute(subtype)
		if !ok1 || !ok2 || ca.Value == nil || sa.Value == nil {
			continue
		}
		cc, err := e.pool.Intern(ca.Value)
		if err != nil {
			return nil, NewSchemaError(c.Name, category, "", err)
		}
		sc, err := e.pool.Intern(sa.Value)
		if err != nil {
			return nil, NewSchemaError(c.Name, subtype, "", err)
		}
		cv, ok := cc.Uint64()
		if !ok {
			return nil, NewValidationError(c.Name, category, cc.Key, "lookup key does not fit 64 bits")
		}
		sv, ok := sc.Uint64()
		if !ok {
			return nil, NewValidationError(c.Name, subtype, sc.Key, "lookup key does not fit 64 bits")
		}
		key := [2]uint64{cv, sv}
		if prev, ok := seen[key]; ok {
			return nil, NewSchemaError(c.Name, "", fmt.Sprintf("(%s, %s) = (%s, %s) already maps to class %s", category, subtype, cc.Key, sc.Key, prev), nil)
		}
		seen[key] = c.Name
		rows = append(rows, &LookupRow{
			Category:      cc,
			Subtype:       sc,
			CategoryValue: cv,
			SubtypeValue:  sv,
			Class:         c.Name,
		})
	}
	return rows, nil
}
