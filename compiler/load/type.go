package load

import (
	"fmt"
	"regexp"
)

// TypeKind tags the variant held by an AttrType.
type TypeKind uint8

const (
	// TypeScalar is a fixed-width C scalar such as CK_BBOOL or CK_ULONG.
	TypeScalar TypeKind = iota + 1
	// TypeString is an RFC 2279 (UTF-8) string.
	TypeString
	// TypeBigInteger is a big-endian unsigned multi-precision integer.
	TypeBigInteger
	// TypeBytes is an opaque byte array.
	TypeBytes
)

// Type tags used in schema sources.
const (
	TagString     = "rfc2279string"
	TagBigInteger = "biginteger"
	TagBytes      = "bytearray"
)

var scalarType = regexp.MustCompile(`^CK_[A-Z][A-Z0-9_]*$`)

// AttrType is the declared type of an attribute.
type AttrType struct {
	Kind TypeKind `json:"kind" msgpack:"kind"`
	// Scalar holds the C type name when Kind is TypeScalar.
	Scalar string `json:"scalar,omitempty" msgpack:"scalar,omitempty"`
}

// ParseType parses a type tag. CK_* names are fixed-width scalars; the
// width itself is resolved against the numeric-ID registry.
func ParseType(tag string) (*AttrType, error) {
	switch tag {
	case TagString:
		return &AttrType{Kind: TypeString}, nil
	case TagBigInteger:
		return &AttrType{Kind: TypeBigInteger}, nil
	case TagBytes:
		return &AttrType{Kind: TypeBytes}, nil
	}
	if scalarType.MatchString(tag) {
		return &AttrType{Kind: TypeScalar, Scalar: tag}, nil
	}
	return nil, fmt.Errorf("unknown attribute type tag %q", tag)
}

// IsScalar reports whether t is a fixed-width scalar type.
func (t *AttrType) IsScalar() bool {
	return t != nil && t.Kind == TypeScalar
}

// String returns the type tag.
func (t *AttrType) String() string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case TypeScalar:
		return t.Scalar
	case TypeString:
		return TagString
	case TypeBigInteger:
		return TagBigInteger
	case TypeBytes:
		return TagBytes
	default:
		return "invalid"
	}
}
