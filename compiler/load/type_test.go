package load

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		tag    string
		kind   TypeKind
		scalar bool
	}{
		{"CK_BBOOL", TypeScalar, true},
		{"CK_ULONG", TypeScalar, true},
		{"CK_OBJECT_CLASS", TypeScalar, true},
		{"rfc2279string", TypeString, false},
		{"biginteger", TypeBigInteger, false},
		{"bytearray", TypeBytes, false},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			typ, err := ParseType(tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, typ.Kind)
			assert.Equal(t, tt.scalar, typ.IsScalar())
			assert.Equal(t, tt.tag, typ.String())
		})
	}

	for _, tag := range []string{"", "string", "ck_bbool", "CK_", "BigInteger"} {
		t.Run("invalid "+tag, func(t *testing.T) {
			_, err := ParseType(tag)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "unknown attribute type tag")
		})
	}
}
