// Command pkcs11gen compiles a PKCS#11 attribute schema into descriptor
// tables.
//
//	pkcs11gen generate -r pkcs11t.h -o internal/attributes attributes.yaml
//	pkcs11gen inspect -r pkcs11t.h attributes.yaml rsa_public_key
//	pkcs11gen watch -r pkcs11t.h -o internal/attributes attributes.yaml
package main

import (
	"os"

	"github.com/DiamondKeySecurity/pkcs11/cmd/pkcs11gen/internal/command"
)

func main() {
	os.Exit(command.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
