package view

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/rodaine/table"

	"github.com/DiamondKeySecurity/pkcs11/compiler/gen"
)

var (
	headerFmt = color.New(color.FgGreen, color.Bold).SprintfFunc()
	columnFmt = color.New(color.FgYellow).SprintfFunc()
	titleFmt  = color.RGB(50, 108, 229).SprintfFunc()
)

func newTable(w io.Writer, columns ...any) table.Table {
	return table.New(columns...).
		WithWriter(w).
		WithHeaderFormatter(headerFmt).
		WithFirstColumnFormatter(columnFmt)
}

// Flags prints the flag registry.
func Flags(w io.Writer, flags []gen.Flag) {
	fmt.Fprintln(w, titleFmt("Flags"))
	tbl := newTable(w, "Name", "Bit", "Footnote", "Note")
	for _, f := range flags {
		footnote := "-"
		if f.Footnote > 0 {
			footnote = fmt.Sprint(f.Footnote)
		}
		tbl.AddRow(f.Name, fmt.Sprintf("0x%08x", f.Bit), footnote, f.Note)
	}
	tbl.Print()
}

// Class prints the descriptor rows of one class.
func Class(w io.Writer, c *gen.ClassDescriptor) {
	fmt.Fprintln(w, titleFmt("%s (%d attributes)", c.Name, c.N()))
	tbl := newTable(w, "Attribute", "ID", "Type", "Size", "Length", "Value", "Flags")
	for _, r := range c.Rows {
		value := "-"
		if r.Value != nil {
			value = r.Value.Key
		}
		flags := strings.Join(r.FlagNames, "|")
		if flags == "" {
			flags = "-"
		}
		tbl.AddRow(r.Symbol, fmt.Sprintf("0x%x", r.ID), r.Type, r.Size, r.Length, value, flags)
	}
	tbl.Print()
}

// Lookup prints the lookup table.
func Lookup(w io.Writer, out *gen.Output) {
	fmt.Fprintln(w, titleFmt("Lookup (%s, %s)", out.Category, out.Subtype))
	tbl := newTable(w, "Class", out.Category, out.Subtype)
	for _, l := range out.Lookup {
		tbl.AddRow(l.Class, l.Category.Key, l.Subtype.Key)
	}
	tbl.Print()
}
