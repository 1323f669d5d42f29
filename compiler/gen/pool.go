package gen

import (
	"encoding/binary"
	"fmt"
	"maps"
	"slices"

	"github.com/DiamondKeySecurity/pkcs11/compiler/load"
)

// Constant is one pooled attribute value.
type Constant struct {
	// Symbol is the Go identifier of the constant in generated code.
	Symbol string `json:"symbol" msgpack:"symbol"`
	// Key is the canonical rendering the pool is keyed by.
	Key string `json:"key" msgpack:"key"`
	// Value is the pooled value.
	Value *load.Value `json:"value" msgpack:"value"`
	// Number is the registry value of a named constant.
	Number uint64 `json:"number,omitempty" msgpack:"number,omitempty"`
}

// Named reports whether the constant refers to a named PKCS#11 constant.
func (c *Constant) Named() bool {
	return c.Value.Kind == load.KindNamed
}

// Uint64 returns the numeric value of the constant: the registry value of
// a named constant, or a byte sequence of at most eight bytes read as a
// big-endian integer.
func (c *Constant) Uint64() (uint64, bool) {
	if c.Named() {
		return c.Number, true
	}
	b := c.Value.Bytes
	if len(b) == 0 || len(b) > 8 {
		return 0, false
	}
	var buf [8]byte
	copy(buf[8-len(b):], b)
	return binary.BigEndian.Uint64(buf[:]), true
}

// Pool deduplicates values by their canonical rendering.
type Pool struct {
	registry *load.Registry
	byKey    map[string]*Constant
}

// NewPool returns an empty pool resolving named constants through r.
func NewPool(r *load.Registry) *Pool {
	return &Pool{registry: r, byKey: make(map[string]*Constant)}
}

// Intern returns the pooled constant for v, creating it on first use.
// Interning values with the same rendering returns the same constant.
func (p *Pool) Intern(v *load.Value) (*Constant, error) {
	key := v.Key()
	if c, ok := p.byKey[key]; ok {
		return c, nil
	}
	c := &Constant{Symbol: Symbol(v), Key: key, Value: v.Clone()}
	if v.Kind == load.KindNamed {
		n, ok := p.registry.Lookup(v.Name)
		if !ok {
			return nil, fmt.Errorf("named constant %s not in registry", v.Name)
		}
		c.Number = n
	}
	p.byKey[key] = c
	return c, nil
}

// Constants returns the pooled constants ordered by rendering.
func (p *Pool) Constants() []*Constant {
	cs := make([]*Constant, 0, len(p.byKey))
	for _, k := range slices.Sorted(maps.Keys(p.byKey)) {
		cs = append(cs, p.byKey[k])
	}
	return cs
}

// Len returns the number of pooled constants.
func (p *Pool) Len() int {
	return len(p.byKey)
}

// Symbol returns the generated identifier of a pooled value:
// constCKO_PUBLIC_KEY, const0x010001, or constEmpty for the empty byte
// sequence.
func Symbol(v *load.Value) string {
	if v.Empty() {
		return "constEmpty"
	}
	return "const" + v.Key()
}
