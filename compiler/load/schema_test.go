package load

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchema(t *testing.T) {
	src := `
- name: object
  class: {type: CK_OBJECT_CLASS, footnotes: [1]}
- name: storage
  superclass: object
  token: {type: CK_BBOOL, default: false}
  label: {type: rfc2279string, default: ""}
- name: rsa_public_key
  superclass: storage
  concrete: true
  class: {value: CKO_PUBLIC_KEY}
  public_exponent: {type: biginteger, footnotes: [4, 1, 4], default: 65537}
  modulus: {type: biginteger, default: 0x00}
  id: {type: bytearray, default: [1, 2, 255]}
  wrap_template: {unimplemented: true}
  trusted:
`
	s, err := ParseSchema("attributes.yaml", []byte(src))
	require.NoError(t, err)
	require.Len(t, s.Classes, 3)

	object := s.Classes[0]
	assert.Equal(t, "object", object.Name)
	assert.Empty(t, object.Superclass)
	assert.False(t, object.Concrete)
	assert.Equal(t, "attributes.yaml:2", object.Pos)
	class, ok := object.Attribute("class")
	require.True(t, ok)
	assert.Equal(t, &AttrType{Kind: TypeScalar, Scalar: "CK_OBJECT_CLASS"}, class.Type)
	assert.Equal(t, []int{1}, class.Footnotes)

	storage := s.Classes[1]
	assert.Equal(t, "object", storage.Superclass)
	token, _ := storage.Attribute("token")
	assert.Equal(t, Named("CK_FALSE"), token.Default)
	assert.Nil(t, token.Footnotes)
	label, _ := storage.Attribute("label")
	require.NotNil(t, label.Default)
	assert.True(t, label.Default.Empty())

	rsa := s.Classes[2]
	assert.True(t, rsa.Concrete)
	names := make([]string, 0, len(rsa.Attributes))
	for _, a := range rsa.Attributes {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"class", "public_exponent", "modulus", "id", "wrap_template", "trusted"}, names)

	class, _ = rsa.Attribute("class")
	assert.Nil(t, class.Type)
	assert.Equal(t, Named("CKO_PUBLIC_KEY"), class.Value)

	exp, _ := rsa.Attribute("public_exponent")
	assert.Equal(t, []int{1, 4}, exp.Footnotes)
	assert.Equal(t, []byte{0x01, 0x00, 0x01}, exp.Default.Bytes)

	modulus, _ := rsa.Attribute("modulus")
	assert.Equal(t, []byte{0x00}, modulus.Default.Bytes)

	id, _ := rsa.Attribute("id")
	assert.Equal(t, []byte{1, 2, 255}, id.Default.Bytes)

	wrap, _ := rsa.Attribute("wrap_template")
	assert.True(t, wrap.Unimplemented)

	trusted, _ := rsa.Attribute("trusted")
	assert.Nil(t, trusted.Type)
	assert.Nil(t, trusted.Default)

	_, ok = rsa.Attribute("missing")
	assert.False(t, ok)
}

func TestParseSchemaLargeIntegers(t *testing.T) {
	src := `
- name: object
  a: {type: biginteger, default: 18446744073709551616}
  b: {type: biginteger, default: 0x0100000000000000000000}
  c: {type: rfc2279string, default: "0x10"}
`
	s, err := ParseSchema("big.yaml", []byte(src))
	require.NoError(t, err)
	a, _ := s.Classes[0].Attribute("a")
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 0, 0, 0, 0}, a.Default.Bytes)
	b, _ := s.Classes[0].Attribute("b")
	assert.Len(t, b.Default.Bytes, 11)
	c, _ := s.Classes[0].Attribute("c")
	assert.Equal(t, []byte("0x10"), c.Default.Bytes)
}

func TestParseSchemaErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "not a sequence",
			src:  "name: object\n",
			want: "schema must be a sequence of classes",
		},
		{
			name: "negative integer",
			src:  "- name: object\n  a: {type: CK_ULONG, default: -1}\n",
			want: "negative integer",
		},
		{
			name: "default and value",
			src:  "- name: object\n  a: {type: CK_ULONG, default: 1, value: 2}\n",
			want: "both a default and a value",
		},
		{
			name: "unknown attribute key",
			src:  "- name: object\n  a: {type: CK_ULONG, required: true}\n",
			want: `unknown key "required"`,
		},
		{
			name: "unknown type",
			src:  "- name: object\n  a: {type: integer}\n",
			want: "unknown attribute type tag",
		},
		{
			name: "duplicate class",
			src:  "- name: object\n- name: object\n",
			want: "already declared at",
		},
		{
			name: "missing name",
			src:  "- superclass: object\n",
			want: "without a name",
		},
		{
			name: "bad footnote",
			src:  "- name: object\n  a: {type: CK_ULONG, footnotes: [0]}\n",
			want: "footnote 0 out of range",
		},
		{
			name: "bad byte",
			src:  "- name: object\n  a: {type: bytearray, default: [256]}\n",
			want: "is not a byte",
		},
		{
			name: "attribute not a mapping",
			src:  "- name: object\n  a: CK_ULONG\n",
			want: "must be a mapping",
		},
		{
			name: "malformed yaml",
			src:  "- name: [object\n",
			want: "parse bad.yaml",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSchema("bad.yaml", []byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("line numbers", func(t *testing.T) {
		_, err := ParseSchema("bad.yaml", []byte("- name: object\n- name: key\n  a: {type: nope}\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad.yaml:3")
	})
}

func TestParseSchemaEmpty(t *testing.T) {
	s, err := ParseSchema("empty.yaml", nil)
	require.NoError(t, err)
	assert.Empty(t, s.Classes)
}

func TestLoadSchema(t *testing.T) {
	s, err := LoadSchema("testdata/attributes.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, s.Classes)
	assert.Equal(t, "object", s.Classes[0].Name)

	byName := make(map[string]*Class)
	for _, c := range s.Classes {
		byName[c.Name] = c
	}
	rsa := byName["rsa_public_key"]
	require.NotNil(t, rsa)
	assert.Equal(t, "public_key", rsa.Superclass)
	kt, ok := rsa.Attribute("key_type")
	require.True(t, ok)
	assert.Equal(t, Named("CKK_RSA"), kt.Value)

	_, err = LoadSchema("testdata/missing.yaml")
	require.Error(t, err)
}

func TestAttributeClone(t *testing.T) {
	a := &Attribute{
		Name:      "id",
		Type:      &AttrType{Kind: TypeBytes},
		Footnotes: []int{8},
		Default:   Bytes(1),
	}
	c := a.Clone()
	c.Type.Kind = TypeString
	c.Footnotes[0] = 1
	c.Default.Bytes[0] = 2
	assert.Equal(t, TypeBytes, a.Type.Kind)
	assert.Equal(t, []int{8}, a.Footnotes)
	assert.Equal(t, byte(1), a.Default.Bytes[0])
	assert.Nil(t, (&Attribute{}).Clone().Footnotes)
}
