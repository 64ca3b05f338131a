// Package crawler enumerates source trees and mirrors their directory
// structure under a destination root.
package crawler

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ListFiles returns every regular file under root, recursively. Hidden files
// and directories (dot-prefixed) are excluded.
func ListFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		hidden := strings.HasPrefix(d.Name(), ".") && path != root
		if d.IsDir() {
			if hidden {
				return filepath.SkipDir
			}
			return nil
		}
		if !hidden && d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

// MirrorTree replicates the directory skeleton of src under dst, so that
// every subdirectory of src has a counterpart before any file is written
// into it. Existing destination directories are not an error.
func MirrorTree(src, dst string) error {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("create destination root %s: %w", dst, err)
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != src {
			return filepath.SkipDir
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", path, err)
		}
		if err := os.MkdirAll(filepath.Join(dst, rel), 0755); err != nil {
			return fmt.Errorf("mirror directory %s: %w", rel, err)
		}
		return nil
	})
}

// PruneEmptyDirs removes root and its subdirectories if they contain no
// regular files. Directories that still hold files are kept, and the call
// reports an error so the caller knows the tree was not fully removed.
// Hidden files do not count as content.
func PruneEmptyDirs(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("read %s: %w", root, err)
	}
	hasFiles := false
	for _, entry := range entries {
		if entry.IsDir() {
			if err := PruneEmptyDirs(filepath.Join(root, entry.Name())); err != nil {
				hasFiles = true
			}
			continue
		}
		if !strings.HasPrefix(entry.Name(), ".") {
			hasFiles = true
		}
	}
	if hasFiles {
		return fmt.Errorf("directory %s is not empty", root)
	}
	return os.RemoveAll(root)
}
