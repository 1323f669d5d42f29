package golang

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dave/jennifer/jen"

	"github.com/DiamondKeySecurity/pkcs11/compiler/gen"
)

// Tables renders the static descriptor tables: flag constants, pooled
// constants, one attribute array and descriptor per concrete class, and
// the lookup table, in that order.
type Tables struct {
	// File is the artifact path, TablesFile by default.
	File string
}

// NewTables returns a Tables renderer writing TablesFile.
func NewTables() *Tables {
	return &Tables{File: TablesFile}
}

// Name returns "tables".
func (r *Tables) Name() string {
	return "tables"
}

// Render implements gen.Renderer.
func (r *Tables) Render(ctx context.Context, h gen.Helper) ([]*gen.Artifact, error) {
	out := h.Output()
	f := h.NewFile()
	genFlags(f, out)
	genConstants(f, out)
	for _, c := range out.Classes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		genClass(f, c)
	}
	genMappings(f, out)

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, gen.NewGenerationError(r.Name(), r.File, "render", err)
	}
	return []*gen.Artifact{{Path: r.File, Data: buf.Bytes()}}, nil
}

func hex32(v uint32) jen.Code {
	return jen.Id(fmt.Sprintf("0x%08x", v))
}

func hex64(v uint64) jen.Code {
	return jen.Id(fmt.Sprintf("0x%x", v))
}

// genFlags emits one typed constant per flag, in registration order.
func genFlags(f *jen.File, out *gen.Output) {
	f.Comment("Attribute descriptor flags.")
	f.Const().DefsFunc(func(defs *jen.Group) {
		for _, fl := range out.Flags {
			if fl.Note != "" {
				defs.Comment(fl.Note)
			}
			defs.Id(gen.FlagIdent(fl.Name)).Uint32().Op("=").Add(hex32(fl.Bit))
		}
	})
}

// genConstants emits the pooled constants in pool order.
func genConstants(f *jen.File, out *gen.Output) {
	if len(out.Constants) == 0 {
		return
	}
	f.Comment("Attribute values shared by the descriptor tables.")
	f.Var().DefsFunc(func(defs *jen.Group) {
		for _, c := range out.Constants {
			defs.Id(c.Symbol).Op("=").Op("&").Qual(gen.RuntimePackage, "Constant").Values(constantDict(c))
		}
	})
}

func constantDict(c *gen.Constant) jen.Dict {
	if c.Named() {
		return jen.Dict{
			jen.Id("Symbol"): jen.Lit(c.Value.Name),
			jen.Id("Number"): hex64(c.Number),
		}
	}
	return jen.Dict{
		jen.Id("Bytes"): jen.Index().Byte().ValuesFunc(func(g *jen.Group) {
			for _, b := range c.Value.Bytes {
				g.Id(fmt.Sprintf("0x%02x", b))
			}
		}),
	}
}

// genClass emits the attribute array and descriptor handle of one class.
func genClass(f *jen.File, c *gen.ClassDescriptor) {
	table := gen.TableIdent(c.Name)
	f.Var().Id(table).Op("=").Index(jen.Op("...")).Qual(gen.RuntimePackage, "AttributeDescriptor").ValuesFunc(func(rows *jen.Group) {
		for _, r := range c.Rows {
			rows.Line().Comment("/* " + r.Symbol + " */").Values(rowDict(r))
		}
	})
	f.Commentf("%s describes the attributes of %s objects.", gen.DescriptorIdent(c.Name), c.Name)
	f.Var().Id(gen.DescriptorIdent(c.Name)).Op("=").Qual(gen.RuntimePackage, "ObjectDescriptor").Values(jen.Dict{
		jen.Id("Attributes"): jen.Id(table).Index(jen.Op(":")),
		jen.Id("N"):          jen.Lit(c.N()),
	})
}

func rowDict(r *gen.Row) jen.Dict {
	value := jen.Nil()
	if r.Value != nil {
		value = jen.Id(r.Value.Symbol)
	}
	return jen.Dict{
		jen.Id("Type"):   hex64(r.ID),
		jen.Id("Size"):   jen.Lit(int(r.Size)),
		jen.Id("Length"): jen.Lit(int(r.Length)),
		jen.Id("Value"):  value,
		jen.Id("Flags"):  flagExpr(r.FlagNames),
	}
}

func flagExpr(names []string) jen.Code {
	if len(names) == 0 {
		return jen.Lit(0)
	}
	expr := jen.Id(gen.FlagIdent(names[0]))
	for _, n := range names[1:] {
		expr = expr.Op("|").Id(gen.FlagIdent(n))
	}
	return expr
}

// genMappings emits the (category, subtype) lookup table.
func genMappings(f *jen.File, out *gen.Output) {
	f.Commentf("%s maps (%s, %s) pairs to object descriptors.", gen.MappingsIdent, out.Category, out.Subtype)
	f.Var().Id(gen.MappingsIdent).Op("=").Index().Qual(gen.RuntimePackage, "KeyTypeMapping").ValuesFunc(func(rows *jen.Group) {
		for _, l := range out.Lookup {
			rows.Line().Comment(fmt.Sprintf("/* %s, %s */", l.Category.Key, l.Subtype.Key)).Values(jen.Dict{
				jen.Id("Class"):      hex64(l.CategoryValue),
				jen.Id("KeyType"):    hex64(l.SubtypeValue),
				jen.Id("Descriptor"): jen.Op("&").Id(gen.DescriptorIdent(l.Class)),
			})
		}
	})
}
