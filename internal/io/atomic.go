// Package io provides the temp-file-plus-rename atomic write primitives
// internal/recommend.Builder depends on: a bundle's JSON summary and a
// draft's markdown body must never be visible half-written to a human
// reviewer opening them off disk. The notifier sends only the draft's path
// and does not read either file.
package io

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// WriteJSONAtomic marshals v to indented JSON and writes it atomically
// using temp file + rename, for any stage that wants its output
// structured rather than a raw byte slice (internal/recommend.Builder
// marshals its bundle itself, to hash the exact bytes it writes, and
// calls WriteFileAtomic directly).
func WriteJSONAtomic(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// WriteLinesAtomic writes lines newline-joined, atomically, for callers
// that build output incrementally rather than holding one marshaled blob.
func WriteLinesAtomic(path string, lines [][]byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	file, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	for _, line := range lines {
		if _, err := file.Write(line); err != nil {
			file.Close()
			os.Remove(tmpPath)
			return err
		}
		if _, err := file.Write([]byte("\n")); err != nil {
			file.Close()
			os.Remove(tmpPath)
			return err
		}
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, path)
}

// WriteFileAtomic writes data atomically; internal/recommend.Builder uses
// it for both the bundle JSON and the draft markdown.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}

// FanoutWrite writes the same bytes to every path in paths, atomically
// per path, for a bundle or draft that needs to land in more than one
// output location (e.g. a per-day directory and a latest-draft copy).
func FanoutWrite(paths []string, data []byte) error {
	for _, path := range paths {
		if err := WriteFileAtomic(path, data); err != nil {
			return err
		}
	}
	return nil
}
