package gen

import "fmt"

// MaxFlags is the number of flags a registry can hold. Flag masks are
// stored in one 32-bit field and bit 31 is kept free.
const MaxFlags = 31

// FlagDef declares one descriptor flag.
type FlagDef struct {
	// Name is the flag name, e.g. REQUIRED_BY_CREATE.
	Name string
	// Footnote is the attribute footnote number the flag encodes,
	// zero for flags that are not derived from a footnote.
	Footnote int
	// Note describes the constraint.
	Note string
	// Marker flags are set on rows whose value came from a default.
	Marker bool
}

// Flag is a registered flag with its assigned bit.
type Flag struct {
	Name     string `json:"name" msgpack:"name"`
	Bit      uint32 `json:"bit" msgpack:"bit"`
	Footnote int    `json:"footnote,omitempty" msgpack:"footnote,omitempty"`
	Note     string `json:"note,omitempty" msgpack:"note,omitempty"`
	Marker   bool   `json:"marker,omitempty" msgpack:"marker,omitempty"`
}

// FlagRegistry is an ordered, immutable set of flags. The i-th registered
// flag gets bit 1<<i.
type FlagRegistry struct {
	flags     []Flag
	byName    map[string]int
	footnotes map[int]string
	marker    string
}

// DefaultMarker is the name of the default-value marker in DefaultFlags.
const DefaultMarker = "HAS_DEFAULT_VALUE"

var defaultFlags = []FlagDef{
	{Name: "REQUIRED_BY_CREATE", Footnote: 1, Note: "Must be specified when object is created with C_CreateObject."},
	{Name: "FORBIDDEN_BY_CREATE", Footnote: 2, Note: "Must not be specified when object is created with C_CreateObject."},
	{Name: "REQUIRED_BY_GENERATE", Footnote: 3, Note: "Must be specified when object is generated with C_GenerateKey or C_GenerateKeyPair."},
	{Name: "FORBIDDEN_BY_GENERATE", Footnote: 4, Note: "Must not be specified when object is generated with C_GenerateKey or C_GenerateKeyPair."},
	{Name: "REQUIRED_BY_UNWRAP", Footnote: 5, Note: "Must be specified when object is unwrapped with C_UnwrapKey."},
	{Name: "FORBIDDEN_BY_UNWRAP", Footnote: 6, Note: "Must not be specified when object is unwrapped with C_UnwrapKey."},
	{Name: "SENSITIVE", Footnote: 7, Note: "Cannot be revealed if object has its CKA_SENSITIVE attribute set to CK_TRUE or its CKA_EXTRACTABLE attribute set to CK_FALSE."},
	{Name: "PERHAPS_MODIFIABLE", Footnote: 8, Note: "May be modified after object is created with a C_SetAttributeValue call, or in the process of copying object with a C_CopyObject call."},
	{Name: "DEFAULT_IS_TOKEN_SPECIFIC", Footnote: 9, Note: "Default value is token-specific, and may depend on the values of other attributes."},
	{Name: "ONLY_SO_USER_CAN_SET", Footnote: 10, Note: "Can only be set to CK_TRUE by the SO user."},
	{Name: "LATCHES_WHEN_TRUE", Footnote: 11, Note: "Attribute cannot be changed once set to CK_TRUE. It becomes a read only attribute."},
	{Name: "LATCHES_WHEN_FALSE", Footnote: 12, Note: "Attribute cannot be changed once set to CK_FALSE. It becomes a read only attribute."},
	{Name: DefaultMarker, Note: "Value comes from a default rather than a fixed value.", Marker: true},
}

// DefaultFlags returns the twelve PKCS#11 footnote flags followed by the
// default-value marker.
func DefaultFlags() []FlagDef {
	return append([]FlagDef(nil), defaultFlags...)
}

// DefaultFlagRegistry returns a registry of DefaultFlags.
func DefaultFlagRegistry() *FlagRegistry {
	r, err := NewFlagRegistry(defaultFlags...)
	if err != nil {
		panic(err)
	}
	return r
}

// NewFlagRegistry registers defs in order.
func NewFlagRegistry(defs ...FlagDef) (*FlagRegistry, error) {
	if len(defs) > MaxFlags {
		return nil, NewConfigError("Flags", len(defs), fmt.Sprintf("at most %d flags can be registered", MaxFlags))
	}
	r := &FlagRegistry{
		flags:     make([]Flag, 0, len(defs)),
		byName:    make(map[string]int, len(defs)),
		footnotes: make(map[int]string),
	}
	for i, d := range defs {
		switch {
		case d.Name == "":
			return nil, NewConfigError("Flags", i, "flag without a name")
		case d.Footnote < 0:
			return nil, NewConfigError("Flags", d.Name, "negative footnote number")
		case d.Marker && d.Footnote != 0:
			return nil, NewConfigError("Flags", d.Name, "the default marker cannot encode a footnote")
		case d.Marker && r.marker != "":
			return nil, NewConfigError("Flags", d.Name, "default marker already registered as "+r.marker)
		}
		if _, ok := r.byName[d.Name]; ok {
			return nil, NewConfigError("Flags", d.Name, "duplicate flag name")
		}
		if d.Footnote != 0 {
			if prev, ok := r.footnotes[d.Footnote]; ok {
				return nil, NewConfigError("Flags", d.Name, fmt.Sprintf("footnote %d already mapped to %s", d.Footnote, prev))
			}
			r.footnotes[d.Footnote] = d.Name
		}
		if d.Marker {
			r.marker = d.Name
		}
		r.byName[d.Name] = i
		r.flags = append(r.flags, Flag{
			Name:     d.Name,
			Bit:      1 << i,
			Footnote: d.Footnote,
			Note:     d.Note,
			Marker:   d.Marker,
		})
	}
	return r, nil
}

// Len returns the number of registered flags.
func (r *FlagRegistry) Len() int {
	return len(r.flags)
}

// Flags returns the flags in registration order.
func (r *FlagRegistry) Flags() []Flag {
	return append([]Flag(nil), r.flags...)
}

// Bit returns the bit assigned to the named flag.
func (r *FlagRegistry) Bit(name string) (uint32, bool) {
	i, ok := r.byName[name]
	if !ok {
		return 0, false
	}
	return r.flags[i].Bit, true
}

// FlagForFootnote returns the name of the flag encoding footnote n.
func (r *FlagRegistry) FlagForFootnote(n int) (string, bool) {
	name, ok := r.footnotes[n]
	return name, ok
}

// Marker returns the name of the default-value marker flag, if any.
func (r *FlagRegistry) Marker() (string, bool) {
	return r.marker, r.marker != ""
}

// Mask returns the OR of the bits of the flags encoding the footnotes,
// with the marker bit added when fromDefault is set. It also returns the
// contributing flag names in registration order.
func (r *FlagRegistry) Mask(footnotes []int, fromDefault bool) (uint32, []string, error) {
	var mask uint32
	for _, n := range footnotes {
		name, ok := r.footnotes[n]
		if !ok {
			return 0, nil, fmt.Errorf("footnote %d has no registered flag", n)
		}
		mask |= r.flags[r.byName[name]].Bit
	}
	if fromDefault && r.marker != "" {
		mask |= r.flags[r.byName[r.marker]].Bit
	}
	var names []string
	for _, f := range r.flags {
		if mask&f.Bit != 0 {
			names = append(names, f.Name)
		}
	}
	return mask, names, nil
}
