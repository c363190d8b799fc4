package vox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// ConvertToAbsolute returns path joined onto dir unless it is already absolute.
func ConvertToAbsolute(path, dir string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}
	abs, err := filepath.Abs(filepath.Join(dir, path))
	if err != nil {
		return "", fmt.Errorf("could not make %q absolute relative to %q: %v", path, dir, err)
	}
	return abs, nil
}

// DataFromFile returns data from a file.
func DataFromFile(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("could not read file %q: %v", filename, err)
	}
	return data, nil
}

// NaturalSort sorts the names in place so embedded integers compare numerically,
// e.g. "brain2.ply" before "brain10.ply".  Equal names keep their order.
func NaturalSort(names []string) {
	sort.Stable(natural.StringSlice(names))
}

// FilesWithExt returns the natural-sorted paths of regular files in dir whose extension
// matches one of exts (case-insensitive, including the leading dot).
func FilesWithExt(dir string, exts ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		for _, want := range exts {
			if strings.EqualFold(ext, want) {
				names = append(names, e.Name())
				break
			}
		}
	}
	NaturalSort(names)
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}
