package load

import (
	"bytes"
	"encoding/hex"
	"errors"
	"math/big"
	"regexp"
)

// ErrNegativeInteger is returned when an integer literal is negative.
var ErrNegativeInteger = errors.New("negative integer literal")

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	// KindNamed is a reference to a named PKCS#11 constant.
	KindNamed ValueKind = iota + 1
	// KindBytes is a literal byte sequence.
	KindBytes
)

// String returns the kind name.
func (k ValueKind) String() string {
	switch k {
	case KindNamed:
		return "named"
	case KindBytes:
		return "bytes"
	default:
		return "invalid"
	}
}

// Value is a default or fixed attribute value. Unsigned integer literals
// are normalized to KindBytes when the value is built.
type Value struct {
	Kind  ValueKind `json:"kind" msgpack:"kind"`
	Name  string    `json:"name,omitempty" msgpack:"name,omitempty"`
	Bytes []byte    `json:"bytes,omitempty" msgpack:"bytes,omitempty"`
}

// namedConstant matches identifiers that refer to PKCS#11 constants,
// such as CKO_PUBLIC_KEY, CKK_RSA or CK_TRUE.
var namedConstant = regexp.MustCompile(`^CK[A-Z]*_[A-Z0-9_]+$`)

// IsConstantName reports whether s is spelled like a PKCS#11 constant.
func IsConstantName(s string) bool {
	return namedConstant.MatchString(s)
}

// Named returns a value referring to the named constant.
func Named(name string) *Value {
	return &Value{Kind: KindNamed, Name: name}
}

// Bytes returns a literal byte sequence value.
func Bytes(b ...byte) *Value {
	v := &Value{Kind: KindBytes, Bytes: make([]byte, len(b))}
	copy(v.Bytes, b)
	return v
}

// Bool returns CK_TRUE or CK_FALSE.
func Bool(b bool) *Value {
	if b {
		return Named("CK_TRUE")
	}
	return Named("CK_FALSE")
}

// String returns the value of a string literal: a named constant when s is
// spelled like one, its UTF-8 bytes otherwise.
func String(s string) *Value {
	if IsConstantName(s) {
		return Named(s)
	}
	return Bytes([]byte(s)...)
}

// Uint normalizes a non-negative integer to its minimal big-endian byte
// encoding. Zero encodes as a single zero byte.
func Uint(n *big.Int) (*Value, error) {
	if n.Sign() < 0 {
		return nil, ErrNegativeInteger
	}
	if n.Sign() == 0 {
		return Bytes(0), nil
	}
	return &Value{Kind: KindBytes, Bytes: n.Bytes()}, nil
}

// Uint64 is Uint for machine integers.
func Uint64(n uint64) *Value {
	v, _ := Uint(new(big.Int).SetUint64(n))
	return v
}

// Key returns the canonical rendering of the value. Named constants render
// as their identifier, byte sequences as "0x" followed by lowercase hex.
// The two forms never collide since identifiers cannot start with a digit.
func (v *Value) Key() string {
	if v.Kind == KindNamed {
		return v.Name
	}
	return "0x" + hex.EncodeToString(v.Bytes)
}

// String implements fmt.Stringer.
func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	return v.Key()
}

// Empty reports whether the value is an empty byte sequence.
func (v *Value) Empty() bool {
	return v.Kind == KindBytes && len(v.Bytes) == 0
}

// Equal reports whether v and o have the same canonical rendering.
func (v *Value) Equal(o *Value) bool {
	if v == nil || o == nil {
		return v == o
	}
	return v.Kind == o.Kind && v.Name == o.Name && bytes.Equal(v.Bytes, o.Bytes)
}

// Clone returns a deep copy of v.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	c := &Value{Kind: v.Kind, Name: v.Name}
	if v.Bytes != nil {
		c.Bytes = append([]byte{}, v.Bytes...)
	}
	return c
}
