// Package loader reads and writes model files on disk.
package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"anm/internal/codec"
)

// ModelLoader replaces the editing session with a decoded model
type ModelLoader interface {
	LoadModel(ctx context.Context, r io.Reader, format string) (*codec.Loaded, error)
}

// ModelExporter writes the model of the editing session
type ModelExporter interface {
	ExportModel(w io.Writer, format string) error
}

// FormatForPath picks the codec format from the file extension
func FormatForPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	}
	return "", fmt.Errorf("%w: %s", codec.ErrUnknownFormat, path)
}

// LoadModelFile loads the model stored at path
func LoadModelFile(ctx context.Context, l ModelLoader, path string) (*codec.Loaded, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model file: %w", err)
	}
	defer f.Close()

	loaded, err := l.LoadModel(ctx, f, format)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return loaded, nil
}

// SaveModelFile writes the current model to path. The file is replaced in
// one rename so readers never see a partial model.
func SaveModelFile(e ModelExporter, path string) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := e.ExportModel(tmp, format); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace model file: %w", err)
	}
	return nil
}
