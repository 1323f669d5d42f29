package gen

import (
	"strings"

	"github.com/go-openapi/inflect"
)

// GoName returns the exported Go name of a schema identifier:
// "rsa_public_key" becomes "RsaPublicKey".
func GoName(name string) string {
	return inflect.Camelize(strings.ToLower(name))
}

// FlagIdent returns the Go identifier of a flag constant:
// "REQUIRED_BY_CREATE" becomes "FlagRequiredByCreate".
func FlagIdent(name string) string {
	return "Flag" + GoName(name)
}

// TableIdent returns the identifier of the attribute array of a class.
func TableIdent(class string) string {
	return "attributes" + GoName(class)
}

// DescriptorIdent returns the identifier of the descriptor handle of a class.
func DescriptorIdent(class string) string {
	return GoName(class) + "Descriptor"
}

// MappingsIdent is the identifier of the generated lookup table.
const MappingsIdent = "KeyTypeMappings"
