package load

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Registry maps PKCS#11 names to their numeric values. It is filled once
// from header-style sources and read-only afterwards.
type Registry struct {
	values  map[string]uint64
	skipped []string
}

// Built-in storage widths of the PKCS#11 scalar types on LP64 targets.
// A registry entry SIZEOF_<TYPE> overrides the width of <TYPE>.
var scalarWidths = map[string]uint64{
	"CK_BBOOL":            1,
	"CK_BYTE":             1,
	"CK_CHAR":             1,
	"CK_UTF8CHAR":         1,
	"CK_ULONG":            8,
	"CK_LONG":             8,
	"CK_FLAGS":            8,
	"CK_OBJECT_CLASS":     8,
	"CK_KEY_TYPE":         8,
	"CK_CERTIFICATE_TYPE": 8,
	"CK_HW_FEATURE_TYPE":  8,
	"CK_MECHANISM_TYPE":   8,
	"CK_ATTRIBUTE_TYPE":   8,
	"CK_PROFILE_ID":       8,
	"CK_VERSION":          2,
	"CK_DATE":             8,
}

// SizeofPrefix prefixes registry entries that override scalar widths.
const SizeofPrefix = "SIZEOF_"

// AttributePrefix prefixes the registry name of an attribute identifier.
const AttributePrefix = "CKA_"

var upper = cases.Upper(language.Und)

// AttributeSymbol returns the registry name of a schema attribute
// identifier: "key_type" becomes "CKA_KEY_TYPE". Names already carrying
// the prefix are returned upper-cased.
func AttributeSymbol(name string) string {
	s := upper.String(name)
	if strings.HasPrefix(s, AttributePrefix) {
		return s
	}
	return AttributePrefix + s
}

// NewRegistry returns a registry holding a copy of values.
func NewRegistry(values map[string]uint64) *Registry {
	r := &Registry{values: make(map[string]uint64, len(values))}
	maps.Copy(r.values, values)
	return r
}

// LoadRegistry parses the given header files into one registry.
// Later files override names defined by earlier ones.
func LoadRegistry(paths ...string) (*Registry, error) {
	r := NewRegistry(nil)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open registry: %w", err)
		}
		err = r.parse(path, f)
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ParseRegistry reads "#define NAME VALUE" lines from rd. Values may be
// decimal or hex with C integer suffixes, optionally parenthesized, or an
// OR of such literals and previously defined names. Malformed definitions
// are recorded in Skipped and otherwise ignored; all other lines are ignored.
func ParseRegistry(name string, rd io.Reader) (*Registry, error) {
	r := NewRegistry(nil)
	if err := r.parse(name, rd); err != nil {
		return nil, err
	}
	return r, nil
}

var define = regexp.MustCompile(`^\s*#\s*define\s+([A-Za-z_][A-Za-z0-9_]*)\s+(.+?)\s*(?://.*|/\*.*)?$`)

func (r *Registry) parse(name string, rd io.Reader) error {
	sc := bufio.NewScanner(rd)
	for line := 1; sc.Scan(); line++ {
		m := define.FindStringSubmatch(sc.Text())
		if m == nil {
			continue
		}
		v, ok := r.eval(m[2])
		if !ok {
			r.skipped = append(r.skipped, fmt.Sprintf("%s:%d: %s", name, line, m[1]))
			continue
		}
		r.values[m[1]] = v
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read registry %s: %w", name, err)
	}
	return nil
}

// eval evaluates a definition body: literals and known names joined by "|".
func (r *Registry) eval(expr string) (uint64, bool) {
	expr = strings.TrimSpace(expr)
	for strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		expr = strings.TrimSpace(expr[1 : len(expr)-1])
	}
	var v uint64
	for _, term := range strings.Split(expr, "|") {
		term = strings.Trim(strings.TrimSpace(term), "()")
		if n, ok := r.values[term]; ok {
			v |= n
			continue
		}
		n, err := strconv.ParseUint(strings.TrimRight(term, "uUlL"), 0, 64)
		if err != nil {
			return 0, false
		}
		v |= n
	}
	return v, true
}

// Lookup returns the value of a name.
func (r *Registry) Lookup(name string) (uint64, bool) {
	v, ok := r.values[name]
	return v, ok
}

// AttributeID returns the numeric ID of a schema attribute identifier.
func (r *Registry) AttributeID(name string) (uint64, bool) {
	return r.Lookup(AttributeSymbol(name))
}

// Width returns the storage width of a scalar type.
func (r *Registry) Width(scalar string) (uint64, bool) {
	if v, ok := r.values[SizeofPrefix+scalar]; ok {
		return v, true
	}
	v, ok := scalarWidths[scalar]
	return v, ok
}

// Len returns the number of defined names.
func (r *Registry) Len() int {
	return len(r.values)
}

// Names returns the defined names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.values))
}

// Skipped returns the definitions that could not be evaluated, as
// "file:line: NAME".
func (r *Registry) Skipped() []string {
	return r.skipped
}
