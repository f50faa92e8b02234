package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	kferrors "keyfort/internal/errors"
)

// planned pairs a file on disk with its slash-separated path inside the
// archive.
type planned struct {
	realPath    string
	archivePath string
}

// planSources expands user-provided paths and globs into the list of regular
// files to encrypt. A file source becomes a single top-level entry; a
// directory source contributes every regular file beneath it, rooted at the
// directory's base name so partial extraction still reconstructs the tree.
func planSources(patterns []string) ([]planned, error) {
	var plan []planned
	seen := make(map[string]bool)

	add := func(p planned) error {
		key := filepath.ToSlash(p.archivePath)
		if seen[key] {
			return fmt.Errorf("duplicate archive path %q from %s", p.archivePath, p.realPath)
		}
		seen[key] = true
		p.archivePath = key
		plan = append(plan, p)
		return nil
	}

	for _, pattern := range patterns {
		expanded, err := expandPattern(pattern)
		if err != nil {
			return nil, err
		}
		for _, path := range expanded {
			info, err := os.Stat(path)
			if err != nil {
				return nil, fmt.Errorf("failed to stat %s: %w", path, err)
			}

			if !info.IsDir() {
				if !info.Mode().IsRegular() {
					continue
				}
				if err := add(planned{realPath: path, archivePath: filepath.Base(path)}); err != nil {
					return nil, err
				}
				continue
			}

			root := filepath.Base(filepath.Clean(path))
			err = filepath.WalkDir(path, func(sub string, d os.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() || !d.Type().IsRegular() {
					return nil
				}
				rel, err := filepath.Rel(path, sub)
				if err != nil {
					return err
				}
				return add(planned{
					realPath:    sub,
					archivePath: filepath.Join(root, rel),
				})
			})
			if err != nil {
				return nil, fmt.Errorf("failed to walk %s: %w", path, err)
			}
		}
	}

	if len(plan) == 0 {
		return nil, kferrors.ErrNoFilesFound
	}
	return plan, nil
}

// expandPattern resolves one source argument. Literal paths must exist; glob
// patterns use doublestar so ** is supported.
func expandPattern(pattern string) ([]string, error) {
	if !strings.ContainsAny(pattern, "*?[") {
		if _, err := os.Stat(pattern); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", kferrors.ErrNoFilesFound, pattern)
			}
			return nil, fmt.Errorf("failed to stat %s: %w", pattern, err)
		}
		return []string{pattern}, nil
	}

	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", kferrors.ErrNoFilesFound, pattern)
	}
	return matches, nil
}
