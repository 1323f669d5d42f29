package command

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testdata = filepath.Join("..", "..", "..", "..", "compiler", "load", "testdata")
	schema   = filepath.Join(testdata, "attributes.yaml")
	registry = filepath.Join(testdata, "pkcs11t.h")
)

func init() {
	color.NoColor = true
}

func run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := Execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestGenerate(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		dir := t.TempDir()
		code, _, stderr := run("generate", "-r", registry, "-o", dir, schema)
		require.Equal(t, 0, code, stderr)
		assert.FileExists(t, filepath.Join(dir, "attributes.go"))
		assert.FileExists(t, filepath.Join(dir, "dynamic.go"))
		assert.Contains(t, stderr, "generated")
	})

	t.Run("renderers and package", func(t *testing.T) {
		dir := t.TempDir()
		code, _, stderr := run("generate", "-r", registry, "-o", dir,
			"--renderer", "tables,snapshot,catalog", "--package", "p11", "--workers", "2", schema)
		require.Equal(t, 0, code, stderr)
		for _, name := range []string{"attributes.go", "attributes.msgpack", "attributes.db"} {
			assert.FileExists(t, filepath.Join(dir, name))
		}
		assert.NoFileExists(t, filepath.Join(dir, "dynamic.go"))
		data, err := os.ReadFile(filepath.Join(dir, "attributes.go"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "package p11")
	})

	t.Run("json logs", func(t *testing.T) {
		code, _, stderr := run("generate", "--log-format", "json", "--debug", "-r", registry, "-o", t.TempDir(), schema)
		require.Equal(t, 0, code, stderr)
		assert.Contains(t, stderr, `"msg":"resolved class"`)
	})

	t.Run("unknown renderer", func(t *testing.T) {
		code, _, stderr := run("generate", "-r", registry, "-o", t.TempDir(), "--renderer", "rust", schema)
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "unknown renderer")
	})

	t.Run("missing registry", func(t *testing.T) {
		dir := t.TempDir()
		code, _, stderr := run("generate", "-o", dir, schema)
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "registry")
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("missing out", func(t *testing.T) {
		code, _, stderr := run("generate", "-r", registry, schema)
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, `"out"`)
	})

	t.Run("bad log format", func(t *testing.T) {
		code, _, stderr := run("generate", "--log-format", "xml", "-r", registry, "-o", t.TempDir(), schema)
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, "invalid log format")
	})
}

func TestInspect(t *testing.T) {
	t.Run("one class", func(t *testing.T) {
		code, stdout, stderr := run("inspect", "-r", registry, "--flags", schema, "rsa_public_key")
		require.Equal(t, 0, code, stderr)
		assert.Contains(t, stdout, "REQUIRED_BY_CREATE")
		assert.Contains(t, stdout, "rsa_public_key (")
		assert.Contains(t, stdout, "CKA_PUBLIC_EXPONENT")
		assert.Contains(t, stdout, "0x010001")
		assert.NotContains(t, stdout, "CKA_PRIME_1")
		assert.Contains(t, stdout, "Lookup (class, key_type)")
		assert.Contains(t, stdout, "aes_secret_key")
	})

	t.Run("all classes", func(t *testing.T) {
		code, stdout, stderr := run("inspect", "-r", registry, schema)
		require.Equal(t, 0, code, stderr)
		assert.Contains(t, stdout, "CKA_PRIME_1")
	})

	t.Run("unknown class", func(t *testing.T) {
		code, _, stderr := run("inspect", "-r", registry, schema, "key")
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr, `no concrete class "key"`)
	})
}
