package compiler

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DiamondKeySecurity/pkcs11/compiler/gen"
	"github.com/DiamondKeySecurity/pkcs11/compiler/gen/snapshot"
)

var (
	schemaPath   = filepath.Join("load", "testdata", "attributes.yaml")
	registryPath = filepath.Join("load", "testdata", "pkcs11t.h")
)

func TestRenderers(t *testing.T) {
	assert.Equal(t, []string{"catalog", "dynamic", "snapshot", "tables"}, RendererNames())

	rs, err := Renderers("tables", "snapshot")
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "tables", rs[0].Name())
	assert.Equal(t, "snapshot", rs[1].Name())

	_, err = Renderers("tables", "rust")
	require.Error(t, err)
	assert.True(t, gen.IsConfigError(err))
	assert.Contains(t, err.Error(), "catalog, dynamic, snapshot, tables")
}

func TestLoadGraph(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		g, err := LoadGraph(schemaPath, gen.WithRegistryFiles(registryPath))
		require.NoError(t, err)
		c, ok := g.Class("rsa_private_key")
		require.True(t, ok)
		assert.True(t, c.Concrete)
		assert.Len(t, g.Concrete(), 7)
	})

	t.Run("missing schema", func(t *testing.T) {
		_, err := LoadGraph("nope.yaml", gen.WithRegistryFiles(registryPath))
		require.Error(t, err)
		assert.True(t, gen.IsSchemaError(err))
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("missing registry", func(t *testing.T) {
		_, err := LoadGraph(schemaPath)
		require.Error(t, err)
		assert.True(t, gen.IsConfigError(err))
	})

	t.Run("bad option", func(t *testing.T) {
		_, err := LoadGraph(schemaPath, gen.WithPackage("not a package"))
		require.Error(t, err)
		assert.True(t, gen.IsConfigError(err))
	})
}

func TestGenerate(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, Generate(context.Background(), schemaPath,
			gen.WithRegistryFiles(registryPath),
			gen.WithTarget(dir),
		))
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		assert.ElementsMatch(t, []string{"attributes.go", "dynamic.go"}, names)
	})

	t.Run("all renderers", func(t *testing.T) {
		dir := t.TempDir()
		rs, err := Renderers(RendererNames()...)
		require.NoError(t, err)
		require.NoError(t, Generate(context.Background(), schemaPath,
			gen.WithRegistryFiles(registryPath),
			gen.WithTarget(dir),
			gen.WithRenderers(rs...),
		))
		for _, name := range []string{"attributes.go", "dynamic.go", "attributes.msgpack", "attributes.db"} {
			assert.FileExists(t, filepath.Join(dir, name))
		}
		data, err := os.ReadFile(filepath.Join(dir, snapshot.File))
		require.NoError(t, err)
		out, _, err := snapshot.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Len(t, out.Classes, 7)
		assert.Len(t, out.Lookup, 6)
	})

	t.Run("schema error writes nothing", func(t *testing.T) {
		dir := t.TempDir()
		bad := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(bad, []byte("- name: a\n  superclass: b\n"), 0o644))
		err := Generate(context.Background(), bad,
			gen.WithRegistryFiles(registryPath),
			gen.WithTarget(dir),
		)
		require.Error(t, err)
		assert.True(t, gen.IsSchemaError(err))
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("deterministic", func(t *testing.T) {
		a, b := t.TempDir(), t.TempDir()
		for _, dir := range []string{a, b} {
			require.NoError(t, Generate(context.Background(), schemaPath,
				gen.WithRegistryFiles(registryPath),
				gen.WithTarget(dir),
			))
		}
		for _, name := range []string{"attributes.go", "dynamic.go"} {
			x, err := os.ReadFile(filepath.Join(a, name))
			require.NoError(t, err)
			y, err := os.ReadFile(filepath.Join(b, name))
			require.NoError(t, err)
			assert.Equal(t, string(x), string(y), name)
		}
	})
}
