package view_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DiamondKeySecurity/pkcs11/cmd/pkcs11gen/internal/view"
	"github.com/DiamondKeySecurity/pkcs11/compiler/gen"
	"github.com/DiamondKeySecurity/pkcs11/compiler/load"
)

func init() {
	color.NoColor = true
}

func TestParseLogFormat(t *testing.T) {
	for in, want := range map[string]view.LogFormat{
		"":      view.LogFormatHuman,
		"human": view.LogFormatHuman,
		"JSON":  view.LogFormatJSON,
	} {
		got, err := view.ParseLogFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := view.ParseLogFormat("xml")
	require.Error(t, err)
}

func TestHumanLogger(t *testing.T) {
	var buf bytes.Buffer
	l := view.NewLogger(&buf, view.LogFormatHuman, slog.LevelInfo)
	l.Debug("hidden")
	l.Info("generated", "files", 2)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "INFO")
	assert.Contains(t, buf.String(), "generated")
	assert.Contains(t, buf.String(), "files=2")
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := view.NewLogger(&buf, view.LogFormatJSON, slog.LevelDebug)
	l.Debug("resolved class", "class", "rsa_public_key")
	assert.Contains(t, buf.String(), `"level":"DEBUG"`)
	assert.Contains(t, buf.String(), `"class":"rsa_public_key"`)
}

func TestTables(t *testing.T) {
	pub := &gen.Constant{Symbol: "constCKO_PUBLIC_KEY", Key: "CKO_PUBLIC_KEY", Value: load.Named("CKO_PUBLIC_KEY"), Number: 2}
	rsa := &gen.Constant{Symbol: "constCKK_RSA", Key: "CKK_RSA", Value: load.Named("CKK_RSA")}
	out := &gen.Output{
		Flags:    gen.DefaultFlagRegistry().Flags(),
		Category: "class",
		Subtype:  "key_type",
		Classes: []*gen.ClassDescriptor{{
			Name: "rsa_public_key",
			Rows: []*gen.Row{
				{Name: "class", Symbol: "CKA_CLASS", Type: &load.AttrType{Kind: load.TypeScalar, Scalar: "CK_OBJECT_CLASS"}, Size: 8, Length: 0, Value: pub, FlagNames: []string{"REQUIRED_BY_CREATE"}},
				{Name: "modulus", Symbol: "CKA_MODULUS", ID: 0x120, Type: &load.AttrType{Kind: load.TypeBigInteger}},
			},
		}},
		Lookup: []*gen.LookupRow{{Category: pub, Subtype: rsa, CategoryValue: 2, Class: "rsa_public_key"}},
	}

	var buf bytes.Buffer
	view.Flags(&buf, out.Flags)
	view.Class(&buf, out.Classes[0])
	view.Lookup(&buf, out)
	s := buf.String()
	assert.Contains(t, s, "LATCHES_WHEN_FALSE")
	assert.Contains(t, s, "0x00001000")
	assert.Contains(t, s, "rsa_public_key (2 attributes)")
	assert.Contains(t, s, "CKA_MODULUS")
	assert.Contains(t, s, "biginteger")
	assert.Contains(t, s, "CKO_PUBLIC_KEY")
	assert.Contains(t, s, "Lookup (class, key_type)")
}
