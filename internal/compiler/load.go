package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ext is the extension of type-definition files.
const Ext = ".cue"

// LoadDir compiles every type-definition file directly inside dir and
// links them into a registry. Each file defines one type named after the
// file stem: "Counter.cue" defines type Counter. Subdirectories are not
// searched.
func LoadDir(dir string) (*Result, error) {
	files, err := FindTypeFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files found in %s", Ext, dir)
	}

	sources := make([]Source, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		sources = append(sources, Source{
			TypeName: TypeNameOf(path),
			Filename: path,
			Data:     data,
		})
	}

	res, err := Build(sources)
	if err != nil {
		return nil, err
	}
	res.Files = files
	return res, nil
}

// FindTypeFiles returns the type-definition files directly inside dir,
// sorted by path.
func FindTypeFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != Ext {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// TypeNameOf returns the type a file defines: its base name without the
// extension.
func TypeNameOf(path string) string {
	return strings.TrimSuffix(filepath.Base(path), Ext)
}
