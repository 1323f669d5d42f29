// Package pkcs11 holds the descriptor types instantiated by code that
// pkcs11gen generates from an attribute schema.
//
// A generated package declares one ObjectDescriptor per concrete object
// class and a KeyTypeMapping table keyed by (CKA_CLASS, CKA_KEY_TYPE):
//
//	d, err := pkcs11.FindDescriptor(attributes.KeyTypeMappings, ckoPublicKey, ckkRSA)
//	if err != nil {
//	    return err
//	}
//	row, err := d.Attribute(ckaModulus)
package pkcs11

import (
	"bytes"
	"sort"
)

// Constant is an attribute value shared by every descriptor row that
// references it. Exactly one of Symbol or Bytes is meaningful.
type Constant struct {
	// Symbol is the name of a PKCS#11 constant (e.g. CKO_PUBLIC_KEY).
	Symbol string
	// Number is the numeric value of Symbol.
	Number uint64
	// Bytes is a literal byte string value.
	Bytes []byte
}

// Named reports whether c is a named constant rather than literal bytes.
func (c *Constant) Named() bool {
	return c != nil && c.Symbol != ""
}

// Equal reports whether c and o hold the same value.
func (c *Constant) Equal(o *Constant) bool {
	switch {
	case c == nil || o == nil:
		return c == o
	case c.Named() || o.Named():
		return c.Symbol == o.Symbol && c.Number == o.Number
	default:
		return bytes.Equal(c.Bytes, o.Bytes)
	}
}

// AttributeDescriptor is one row of an object descriptor.
type AttributeDescriptor struct {
	// Type is the CKA_* attribute type.
	Type uint64
	// Size is the storage width of fixed-width scalar attributes, zero otherwise.
	Size uint
	// Length is the length of the default or fixed value.
	Length uint
	// Value is the default or fixed value, nil when there is none.
	Value *Constant
	// Flags is the bitwise OR of the descriptor flags for this attribute.
	Flags uint32
}

// Has reports whether all the given flag bits are set.
func (a *AttributeDescriptor) Has(flags uint32) bool {
	return a.Flags&flags == flags
}

// ObjectDescriptor describes the attributes of one concrete object class.
// Attributes are sorted by Type.
type ObjectDescriptor struct {
	Attributes []AttributeDescriptor
	N          int
}

// Attribute returns the row for the given attribute type.
func (d *ObjectDescriptor) Attribute(typ uint64) (*AttributeDescriptor, error) {
	attrs := d.Attributes[:d.N]
	i := sort.Search(len(attrs), func(i int) bool { return attrs[i].Type >= typ })
	if i < len(attrs) && attrs[i].Type == typ {
		return &attrs[i], nil
	}
	return nil, NewAttributeError(typ)
}

// KeyTypeMapping maps a (class, key type) pair to its object descriptor.
type KeyTypeMapping struct {
	Class      uint64
	KeyType    uint64
	Descriptor *ObjectDescriptor
}

// FindDescriptor returns the descriptor registered for the given pair.
func FindDescriptor(mappings []KeyTypeMapping, class, keyType uint64) (*ObjectDescriptor, error) {
	for i := range mappings {
		if mappings[i].Class == class && mappings[i].KeyType == keyType {
			return mappings[i].Descriptor, nil
		}
	}
	return nil, NewNotFoundError(class, keyType)
}

// AttributeInfo is the introspectable form of a descriptor row, keyed by
// attribute name in generated dynamic registries.
type AttributeInfo struct {
	Name   string
	Type   uint64
	Size   uint
	Length uint
	Value  *Constant
	Flags  uint32
}

// Descriptor converts the info back to a descriptor row.
func (a AttributeInfo) Descriptor() AttributeDescriptor {
	return AttributeDescriptor{
		Type:   a.Type,
		Size:   a.Size,
		Length: a.Length,
		Value:  a.Value,
		Flags:  a.Flags,
	}
}
