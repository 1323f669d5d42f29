// Package snapshot serializes compiled descriptor tables with msgpack so
// that other tools can consume them without re-reading the schema.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/DiamondKeySecurity/pkcs11/compiler/gen"
)

// File is the default artifact path.
const File = "attributes.msgpack"

// Version is written ahead of the encoded output and checked on decode.
const Version = 1

type envelope struct {
	Version int         `msgpack:"version"`
	Package string      `msgpack:"package"`
	Output  *gen.Output `msgpack:"output"`
}

// Encode writes out to w.
func Encode(w io.Writer, pkg string, out *gen.Output) error {
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	return enc.Encode(&envelope{Version: Version, Package: pkg, Output: out})
}

// Decode reads an output written by Encode, returning it with the
// package name it was generated for.
func Decode(r io.Reader) (*gen.Output, string, error) {
	var e envelope
	if err := msgpack.NewDecoder(r).Decode(&e); err != nil {
		return nil, "", fmt.Errorf("decode snapshot: %w", err)
	}
	if e.Version != Version {
		return nil, "", fmt.Errorf("decode snapshot: unsupported version %d", e.Version)
	}
	if e.Output == nil {
		return nil, "", fmt.Errorf("decode snapshot: missing output")
	}
	return e.Output, e.Package, nil
}

// Renderer writes the msgpack snapshot of the compiled output.
type Renderer struct {
	File string
}

// New returns a snapshot renderer writing File.
func New() *Renderer {
	return &Renderer{File: File}
}

// Name returns "snapshot".
func (r *Renderer) Name() string { return "snapshot" }

// Render implements gen.Renderer.
func (r *Renderer) Render(_ context.Context, h gen.Helper) ([]*gen.Artifact, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, h.PackageName(), h.Output()); err != nil {
		return nil, gen.NewGenerationError(r.Name(), r.File, "encode", err)
	}
	h.Logger().Debug("encoded snapshot", "bytes", buf.Len())
	return []*gen.Artifact{{Path: r.File, Data: buf.Bytes()}}, nil
}
