package gen

import (
	"bytes"
	"log/slog"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DiamondKeySecurity/pkcs11/compiler/load"
)

func TestNewConfigDefaults(t *testing.T) {
	c, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultPackage, c.Package)
	assert.Equal(t, DefaultHeader, c.Header)
	assert.Equal(t, "class", c.Category)
	assert.Equal(t, "key_type", c.Subtype)
	assert.Equal(t, runtime.GOMAXPROCS(0), c.Workers)
	require.NotNil(t, c.Flags)
	assert.Equal(t, 13, c.Flags.Len())
	assert.NotNil(t, c.Logger)
	assert.Nil(t, c.Registry)
}

func TestWithPackage(t *testing.T) {
	tests := []struct {
		name    string
		pkg     string
		wantErr bool
	}{
		{"identifier", "attributes", false},
		{"underscore", "pkcs11_attrs", false},
		{"empty", "", true},
		{"path", "github.com/x/attributes", true},
		{"leading digit", "1attrs", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{}
			err := WithPackage(tt.pkg)(c)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsConfigError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.pkg, c.Package)
		})
	}
}

func TestWithTarget(t *testing.T) {
	c := &Config{}
	require.NoError(t, WithTarget("out")(c))
	assert.Equal(t, "out", c.Target)
	assert.True(t, IsConfigError(WithTarget("")(c)))
}

func TestWithHeader(t *testing.T) {
	c := &Config{Header: "existing"}
	require.NoError(t, WithHeader("// custom")(c))
	assert.Equal(t, "// custom", c.Header)
}

func TestWithFlags(t *testing.T) {
	c := &Config{}
	require.NoError(t, WithFlags(FlagDef{Name: "A", Footnote: 1})(c))
	assert.Equal(t, 1, c.Flags.Len())

	err := WithFlags(numbered(32)...)(c)
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Equal(t, 1, c.Flags.Len())
}

func TestWithRegistry(t *testing.T) {
	c := &Config{}
	r := load.NewRegistry(nil)
	require.NoError(t, WithRegistry(r)(c))
	assert.Same(t, r, c.Registry)
	assert.True(t, IsConfigError(WithRegistry(nil)(c)))
}

func TestWithRegistryFiles(t *testing.T) {
	var buf bytes.Buffer
	c, err := NewConfig(
		WithLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))),
		WithRegistryFiles("../load/testdata/pkcs11t.h"),
	)
	require.NoError(t, err)
	id, ok := c.Registry.AttributeID("public_exponent")
	require.True(t, ok)
	assert.Equal(t, uint64(0x122), id)
	assert.Contains(t, buf.String(), "CK_UNAVAILABLE_INFORMATION")

	_, err = NewConfig(WithRegistryFiles("testdata/missing.h"))
	assert.True(t, IsConfigError(err))
	_, err = NewConfig(WithRegistryFiles())
	assert.True(t, IsConfigError(err))
}

func TestWithLookupKeys(t *testing.T) {
	c := &Config{}
	require.NoError(t, WithLookupKeys("class", "certificate_type")(c))
	assert.Equal(t, "certificate_type", c.Subtype)
	assert.True(t, IsConfigError(WithLookupKeys("", "key_type")(c)))
	assert.True(t, IsConfigError(WithLookupKeys("class", "class")(c)))
}

func TestWithWorkers(t *testing.T) {
	c := &Config{}
	require.NoError(t, WithWorkers(3)(c))
	assert.Equal(t, 3, c.Workers)
	assert.True(t, IsConfigError(WithWorkers(0)(c)))
}

func TestWithRenderersAndHooks(t *testing.T) {
	c := &Config{}
	r := RendererFunc{ID: "noop"}
	require.NoError(t, WithRenderers(r)(c))
	assert.Len(t, c.Renderers, 1)
	assert.True(t, IsConfigError(WithRenderers(nil)(c)))

	require.NoError(t, WithHooks(func(next Generator) Generator { return next })(c))
	assert.Len(t, c.Hooks, 1)
}

func TestWithLogger(t *testing.T) {
	c := &Config{}
	assert.True(t, IsConfigError(WithLogger(nil)(c)))
	l := slog.Default()
	require.NoError(t, WithLogger(l)(c))
	assert.Same(t, l, c.Logger)
}

func TestApplyAll(t *testing.T) {
	c := &Config{}
	err := c.ApplyAll(WithTarget(""), WithWorkers(-1), WithPackage("ok"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Target")
	assert.Contains(t, err.Error(), "Workers")
	assert.Equal(t, "ok", c.Package)

	assert.Panics(t, func() { MustNewConfig(WithWorkers(0)) })
}
