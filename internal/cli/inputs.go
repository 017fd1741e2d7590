package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/l5xst/internal/config"
	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/l5x"
	"github.com/roach88/l5xst/internal/pipeline"
)

// LoadError represents an error that occurred while reading inputs.
type LoadError struct {
	Code    string
	Message string
	Path    string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// loadConfig returns the settings file named by --config, or the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error(), Path: path}
	}
	return cfg, nil
}

// ProjectInput is a loaded set of controller documents.
type ProjectInput struct {
	Docs  []*l5x.Content
	Files []string

	// Digest identifies the raw bytes of every file, in load order.
	Digest string
}

// loadProject reads one L5X file or every L5X file of a directory.
func loadProject(path string) (*ProjectInput, error) {
	if err := checkExists(path); err != nil {
		return nil, err
	}
	docs, err := l5x.LoadPath(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Path: path}
	}
	files, err := inputFiles(path, ".l5x")
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Path: path}
	}

	var raw []byte
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Path: f}
		}
		raw = append(raw, data...)
		raw = append(raw, 0)
	}
	return &ProjectInput{Docs: docs, Files: files, Digest: ir.SourceDigest(raw)}, nil
}

// inputFiles lists path itself, or the files of directory path with the
// extension ext (any case), sorted. For ".l5x" this is the order
// l5x.LoadPath reads in.
func inputFiles(path, ext string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// STInput is a loaded ST unit, one file or every ST file of a directory.
type STInput struct {
	Path  string
	Files []pipeline.Source

	// Digest identifies the raw bytes of every file, in load order.
	Digest string
}

func loadST(path string) (*STInput, error) {
	if err := checkExists(path); err != nil {
		return nil, err
	}
	files, err := inputFiles(path, ".st")
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Path: path}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no .st files in directory", Path: path}
	}

	in := &STInput{Path: path}
	var raw []byte
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Path: f}
		}
		in.Files = append(in.Files, pipeline.Source{Name: f, Text: string(data)})
		raw = append(raw, data...)
		raw = append(raw, 0)
	}
	in.Digest = ir.SourceDigest(raw)
	return in, nil
}

func checkExists(path string) error {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &LoadError{Code: ErrCodeNotFound, Message: "input not found", Path: path}
	}
	if err != nil {
		return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing input: %v", err), Path: path}
	}
	return nil
}

// writeOutput writes data to path, creating parent directories.
func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
