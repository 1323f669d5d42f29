package golang

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/DiamondKeySecurity/pkcs11/compiler/gen"
)

// Dynamic renders an introspectable registry: a map from class name to
// the attribute infos of the class keyed by attribute name, and a map of
// flag names to bits. The file is self-contained and can be generated
// into the same package as the Tables output.
type Dynamic struct {
	// File is the artifact path, DynamicFile by default.
	File string
}

// NewDynamic returns a Dynamic renderer writing DynamicFile.
func NewDynamic() *Dynamic {
	return &Dynamic{File: DynamicFile}
}

// Name returns "dynamic".
func (r *Dynamic) Name() string {
	return "dynamic"
}

var dynamicTemplate = template.Must(template.New("dynamic").Funcs(template.FuncMap{
	"comment":  comment,
	"quote":    strconv.Quote,
	"hex":      func(v uint64) string { return fmt.Sprintf("0x%x", v) },
	"hex32":    func(v uint32) string { return fmt.Sprintf("0x%08x", v) },
	"constant": constantLiteral,
}).Parse(`{{ comment .Header }}

package {{ .Package }}

import "{{ .Runtime }}"

// FlagBits maps descriptor flag names to their bits.
var FlagBits = map[string]uint32{
{{- range .Output.Flags }}
	{{ quote .Name }}: {{ hex32 .Bit }},
{{- end }}
}

// Classes maps each concrete class to its attributes, keyed by attribute name.
var Classes = map[string]map[string]pkcs11.AttributeInfo{
{{- range .Output.Classes }}
	{{ quote .Name }}: {
	{{- range .Rows }}
		{{ quote .Name }}: {Name: {{ quote .Name }}, Type: {{ hex .ID }}, Size: {{ .Size }}, Length: {{ .Length }}, Value: {{ constant .Value }}, Flags: {{ hex32 .Flags }}},
	{{- end }}
	},
{{- end }}
}

// LookupAttribute returns the attribute info of an attribute of a class.
func LookupAttribute(class, attribute string) (pkcs11.AttributeInfo, bool) {
	attrs, ok := Classes[class]
	if !ok {
		return pkcs11.AttributeInfo{}, false
	}
	info, ok := attrs[attribute]
	return info, ok
}
`))

// comment renders a header as line comments unless it already is one.
func comment(s string) string {
	if strings.HasPrefix(s, "//") || strings.HasPrefix(s, "/*") {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "// " + l
	}
	return strings.Join(lines, "\n")
}

func constantLiteral(c *gen.Constant) string {
	switch {
	case c == nil:
		return "nil"
	case c.Named():
		return fmt.Sprintf("&pkcs11.Constant{Symbol: %q, Number: 0x%x}", c.Value.Name, c.Number)
	}
	var b strings.Builder
	b.WriteString("&pkcs11.Constant{Bytes: []byte{")
	for i, x := range c.Value.Bytes {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "0x%02x", x)
	}
	b.WriteString("}}")
	return b.String()
}

// Render implements gen.Renderer.
func (r *Dynamic) Render(_ context.Context, h gen.Helper) ([]*gen.Artifact, error) {
	header := gen.DefaultHeader
	if c := h.Config(); c != nil && c.Header != "" {
		header = c.Header
	}
	var buf bytes.Buffer
	err := dynamicTemplate.Execute(&buf, struct {
		Header, Package, Runtime string
		Output                   *gen.Output
	}{
		Header:  header,
		Package: h.PackageName(),
		Runtime: gen.RuntimePackage,
		Output:  h.Output(),
	})
	if err != nil {
		return nil, gen.NewGenerationError(r.Name(), r.File, "execute template", err)
	}
	src, err := gen.FormatSource(r.File, buf.Bytes())
	if err != nil {
		return nil, gen.NewGenerationError(r.Name(), r.File, "", err)
	}
	return []*gen.Artifact{{Path: r.File, Data: src}}, nil
}
