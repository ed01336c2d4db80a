// Package testutil holds fixtures shared by package tests: spec and
// scenario files written into temporary directories.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

// ProbeSpecs declares the load and store probe functions under the
// default policy.
const ProbeSpecs = `package specs

engine: ">=0.1.0"

policy: {
	polymorphic_bound:   4
	require_preparation: true
}

function: load: {
	op: "load"
	site: {kind: "load", key: "x"}
}

function: store: {
	op: "store"
	site: {kind: "store", key: "x"}
}
`

// WriteFile writes content to dir/name, creating parent directories,
// and returns the full path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteSpecs creates a temporary specs directory holding files
// (name to CUE source) and returns its path.
func WriteSpecs(t testing.TB, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "specs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	for name, content := range files {
		WriteFile(t, dir, name, content)
	}
	return dir
}

// CopyDir copies the tree at src into a fresh temporary directory and
// returns the copy's path. Tests that rewrite golden files use it to
// leave the checked-in testdata alone.
func CopyDir(t testing.TB, src string) string {
	t.Helper()
	dst := filepath.Join(t.TempDir(), filepath.Base(src))
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0644)
	})
	if err != nil {
		t.Fatalf("copy %s: %v", src, err)
	}
	return dst
}
