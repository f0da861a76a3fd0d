/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package source materialises screenplay documents as ordered line slices.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// ErrNotFound is returned when no file matches a document name.
var ErrNotFound = errors.New("document not found")

// Provider maps a document name to its lines.
type Provider interface {
	Lines(ctx context.Context, name string) ([]string, error)
}

// Dir resolves documents inside a directory of extracted text files.
type Dir struct {
	Root string
}

// Resolve finds the file for name. An existing path is used as is; otherwise
// the first file (sorted) whose name contains name case-insensitively wins,
// retrying with ':' replaced by '-' since colons rarely survive in file names.
func (d Dir) Resolve(name string) (string, error) {
	if fi, err := os.Stat(name); err == nil && !fi.IsDir() {
		return name, nil
	}
	entries, err := os.ReadDir(d.Root)
	if err != nil {
		return "", fmt.Errorf("list %s: %w", d.Root, err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	candidates := []string{name}
	if strings.Contains(name, ":") {
		candidates = append(candidates, strings.ReplaceAll(name, ":", "-"))
	}
	for _, c := range candidates {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		for _, f := range files {
			if strings.Contains(strings.ToLower(f), c) {
				return filepath.Join(d.Root, f), nil
			}
		}
	}
	return "", fmt.Errorf("%q in %s: %w", name, d.Root, ErrNotFound)
}

// List returns the document names of every .txt file in Root, sorted.
func (d Dir) List() ([]string, error) {
	entries, err := os.ReadDir(d.Root)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", d.Root, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".txt") {
			continue
		}
		names = append(names, DocumentName(e.Name()))
	}
	sort.Strings(names)
	return names, nil
}

// Lines resolves name and reads the file.
func (d Dir) Lines(ctx context.Context, name string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := d.Resolve(name)
	if err != nil {
		return nil, err
	}
	return ReadFile(path)
}

// ReadFile reads and normalises a text file into lines.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLines(f)
}

// ReadLines decodes r as UTF-8 (invalid bytes are dropped), applies NFC and splits into lines.
func ReadLines(r io.Reader) ([]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s := string(b)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	s = strings.TrimPrefix(s, "\ufeff")
	return SplitLines(norm.NFC.String(s)), nil
}

// SplitLines splits on \n, \r\n and lone \r. A trailing newline does not yield an empty last line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

// DocumentName derives a document name from a file path.
func DocumentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Static serves documents from memory.
type Static map[string][]string

func (s Static) Lines(ctx context.Context, name string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lines, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return lines, nil
}
