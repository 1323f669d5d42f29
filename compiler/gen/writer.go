package gen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/imports"
)

// WriterMetrics tracks write results.
type WriterMetrics struct {
	FilesWritten int
	TotalBytes   int64
}

// ArtifactWriter writes artifacts under a directory. Every artifact is
// first staged in a temporary file next to its destination. Destinations
// are replaced only once all of them were staged, and a failed replace
// restores the destinations already replaced.
type ArtifactWriter struct {
	dir     string
	metrics *WriterMetrics
}

// NewArtifactWriter creates a writer for dir.
func NewArtifactWriter(dir string) *ArtifactWriter {
	return &ArtifactWriter{dir: dir, metrics: &WriterMetrics{}}
}

// Metrics returns the write metrics.
func (w *ArtifactWriter) Metrics() *WriterMetrics {
	return w.metrics
}

// rename is replaced in tests.
var rename = os.Rename

type staged struct {
	tmp, path string
	// backup holds the previous destination while the write is pending.
	backup string
}

// commit moves the destination aside, if any, and the staged file in.
func (f *staged) commit() error {
	if _, err := os.Lstat(f.path); err == nil {
		backup := f.tmp + ".orig"
		if err := rename(f.path, backup); err != nil {
			return err
		}
		f.backup = backup
	}
	if err := rename(f.tmp, f.path); err != nil {
		if f.backup != "" {
			rename(f.backup, f.path)
			f.backup = ""
		}
		return err
	}
	return nil
}

// revert restores the previous destination of a committed file.
func (f *staged) revert() {
	if f.backup == "" {
		os.Remove(f.path)
		return
	}
	rename(f.backup, f.path)
}

// Write stages all artifacts and then replaces their destinations.
func (w *ArtifactWriter) Write(artifacts []*Artifact) error {
	var files []*staged
	defer func() {
		for _, f := range files {
			os.Remove(f.tmp)
		}
	}()
	for _, a := range artifacts {
		path, err := w.path(a.Path)
		if err != nil {
			return err
		}
		tmp, err := stage(path, a.Data)
		if err != nil {
			return NewGenerationError("", a.Path, "stage artifact", err)
		}
		files = append(files, &staged{tmp: tmp, path: path})
	}
	for i, f := range files {
		if err := f.commit(); err != nil {
			for j := i - 1; j >= 0; j-- {
				files[j].revert()
			}
			return NewGenerationError("", f.path, "rename artifact", err)
		}
	}
	for i, f := range files {
		if f.backup != "" {
			os.Remove(f.backup)
		}
		w.metrics.FilesWritten++
		w.metrics.TotalBytes += int64(len(artifacts[i].Data))
	}
	return nil
}

// path resolves an artifact path and rejects paths escaping the directory.
func (w *ArtifactWriter) path(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if rel == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", NewGenerationError("", rel, "artifact path must be relative to the target directory", nil)
	}
	return filepath.Join(w.dir, clean), nil
}

func stage(path string, data []byte) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Chmod(0o644); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// FormatSource formats Go source with goimports, which also removes unused
// imports and adds missing ones. filename is used for error positions.
func FormatSource(filename string, src []byte) ([]byte, error) {
	out, err := imports.Process(filename, src, nil)
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", filename, err)
	}
	return out, nil
}
