package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNames(t *testing.T) {
	tests := []struct{ in, goName string }{
		{"rsa_public_key", "RsaPublicKey"},
		{"object", "Object"},
		{"prime_1", "Prime1"},
		{"REQUIRED_BY_CREATE", "RequiredByCreate"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.goName, GoName(tt.in))
		})
	}
	assert.Equal(t, "FlagHasDefaultValue", FlagIdent(DefaultMarker))
	assert.Equal(t, "attributesRsaPublicKey", TableIdent("rsa_public_key"))
	assert.Equal(t, "RsaPublicKeyDescriptor", DescriptorIdent("rsa_public_key"))
}
