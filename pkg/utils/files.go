// Package utils holds path helpers shared by the command line tools.
package utils

import (
	"path/filepath"
	"strings"
)

// SplitMain turns a path to a document into the absolute project root,
// the directory holding it, and the document's name relative to that root.
func SplitMain(file string) (root, main string, err error) {
	full, err := filepath.Abs(file)
	if err != nil {
		return "", "", err
	}
	return filepath.Dir(full), filepath.Base(full), nil
}

// RelToRoot returns the slash path of p inside root. It reports false
// when p lies outside root.
func RelToRoot(root, p string) (string, bool) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	absPath, err := filepath.Abs(p)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
