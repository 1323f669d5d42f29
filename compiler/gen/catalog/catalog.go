// Package catalog stores compiled descriptor tables in a SQLite database,
// for tools that prefer querying attributes over linking generated code.
//
//	SELECT a.symbol, a.flags FROM attributes a
//	JOIN lookup l ON l.class = a.class
//	WHERE l.category_key = 'CKO_PUBLIC_KEY' AND l.subtype_key = 'CKK_RSA';
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/DiamondKeySecurity/pkcs11/compiler/gen"
)

// File is the default artifact path.
const File = "attributes.db"

// DriverName is the database/sql driver used by the renderer.
const DriverName = "sqlite"

// Tables in creation order.
var Tables = []string{
	`CREATE TABLE flags (name TEXT PRIMARY KEY, position INTEGER NOT NULL, bit INTEGER NOT NULL, footnote INTEGER, note TEXT NOT NULL, marker INTEGER NOT NULL)`,
	`CREATE TABLE constants (symbol TEXT PRIMARY KEY, key TEXT NOT NULL UNIQUE, name TEXT, number INTEGER, bytes BLOB)`,
	`CREATE TABLE classes (name TEXT PRIMARY KEY, position INTEGER NOT NULL, n INTEGER NOT NULL)`,
	`CREATE TABLE attributes (class TEXT NOT NULL REFERENCES classes (name), name TEXT NOT NULL, symbol TEXT NOT NULL, id INTEGER NOT NULL, type TEXT NOT NULL, size INTEGER NOT NULL, length INTEGER NOT NULL, value TEXT REFERENCES constants (symbol), flags INTEGER NOT NULL, from_default INTEGER NOT NULL, PRIMARY KEY (class, name))`,
	`CREATE TABLE lookup (category INTEGER NOT NULL, subtype INTEGER NOT NULL, category_key TEXT NOT NULL, subtype_key TEXT NOT NULL, class TEXT NOT NULL REFERENCES classes (name), PRIMARY KEY (category, subtype))`,
}

const (
	insertFlag      = `INSERT INTO flags (name, position, bit, footnote, note, marker) VALUES (?, ?, ?, ?, ?, ?)`
	insertConstant  = `INSERT INTO constants (symbol, key, name, number, bytes) VALUES (?, ?, ?, ?, ?)`
	insertClass     = `INSERT INTO classes (name, position, n) VALUES (?, ?, ?)`
	insertAttribute = `INSERT INTO attributes (class, name, symbol, id, type, size, length, value, flags, from_default) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	insertLookup    = `INSERT INTO lookup (category, subtype, category_key, subtype_key, class) VALUES (?, ?, ?, ?, ?)`
)

// Write creates the catalog tables in db, which must not hold them yet,
// and fills them from out in a single transaction. SQLite integers are
// signed, so IDs and lookup values are stored as their int64 bit pattern.
func Write(ctx context.Context, db *sql.DB, out *gen.Output) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	for _, stmt := range Tables {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create catalog table: %w", err)
		}
	}
	w := &writer{ctx: ctx, tx: tx}
	for i, f := range out.Flags {
		var footnote any
		if f.Footnote > 0 {
			footnote = f.Footnote
		}
		w.exec(insertFlag, f.Name, i, int64(f.Bit), footnote, f.Note, f.Marker)
	}
	for _, c := range out.Constants {
		var name, number, data any
		if c.Named() {
			name, number = c.Value.Name, int64(c.Number)
		} else {
			data = nonNil(c.Value.Bytes)
		}
		w.exec(insertConstant, c.Symbol, c.Key, name, number, data)
	}
	for i, c := range out.Classes {
		w.exec(insertClass, c.Name, i, c.N())
		for _, r := range c.Rows {
			var value any
			if r.Value != nil {
				value = r.Value.Symbol
			}
			w.exec(insertAttribute, c.Name, r.Name, r.Symbol, int64(r.ID), r.Type.String(),
				int64(r.Size), int64(r.Length), value, int64(r.Flags), r.FromDefault)
		}
	}
	for _, l := range out.Lookup {
		w.exec(insertLookup, int64(l.CategoryValue), int64(l.SubtypeValue), l.Category.Key, l.Subtype.Key, l.Class)
	}
	if err = w.err; err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog: %w", err)
	}
	return nil
}

// writer stops at the first failed statement.
type writer struct {
	ctx context.Context
	tx  *sql.Tx
	err error
}

func (w *writer) exec(query string, args ...any) {
	if w.err != nil {
		return
	}
	if _, err := w.tx.ExecContext(w.ctx, query, args...); err != nil {
		w.err = fmt.Errorf("insert catalog row: %w", err)
	}
}

// nonNil keeps empty byte strings from being stored as NULL.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// Renderer builds the catalog in a scratch database file and returns its
// contents as an artifact.
type Renderer struct {
	File string
}

// New returns a catalog renderer writing File.
func New() *Renderer {
	return &Renderer{File: File}
}

// Name returns "catalog".
func (r *Renderer) Name() string { return "catalog" }

// Render implements gen.Renderer.
func (r *Renderer) Render(ctx context.Context, h gen.Helper) ([]*gen.Artifact, error) {
	dir, err := os.MkdirTemp("", "pkcs11-catalog-")
	if err != nil {
		return nil, gen.NewGenerationError(r.Name(), r.File, "scratch directory", err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "catalog.db")
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, gen.NewGenerationError(r.Name(), r.File, "open database", err)
	}
	err = Write(ctx, db, h.Output())
	if cerr := db.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, gen.NewGenerationError(r.Name(), r.File, "", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, gen.NewGenerationError(r.Name(), r.File, "read database", err)
	}
	h.Logger().Debug("built catalog", "classes", len(h.Output().Classes), "bytes", len(data))
	return []*gen.Artifact{{Path: r.File, Data: data}}, nil
}
