package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when the root handed to Enumerate does not exist.
var ErrNotFound = errors.New("path not found")

// Enumerate lists the regular files under root as slash-separated paths
// relative to root, in lexical walk order. A root that is itself a regular
// file yields its own base name. Symlinks and special files are skipped and
// never followed.
func Enumerate(root string) ([]string, error) {
	files, _, err := enumerate(root)
	return files, err
}

// enumerate also returns the directory the relative paths resolve against.
func enumerate(root string) ([]string, string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, "", err
	}

	switch {
	case info.Mode().IsRegular():
		return []string{filepath.Base(root)}, filepath.Dir(root), nil
	case !info.IsDir():
		return []string{}, root, nil
	}

	// WalkDir does not descend through a symlinked root, so resolve it first.
	walkRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return nil, "", err
	}

	files := []string{}
	err = filepath.WalkDir(walkRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == walkRoot || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(walkRoot, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return files, root, nil
}
