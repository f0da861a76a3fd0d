/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package corpus

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Format selects the on-disk encoding of a record file.
type Format string

const (
	FormatTSV   Format = "tsv"
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
)

// Column names understood by the tabular writer and reader.
const (
	ColDocument    = "document"
	ColCharacter   = "character"
	ColSpeechID    = "speech_id"
	ColCharacterID = "character_id"
	ColText        = "text"
	ColLineIndex   = "line_index"
)

// DefaultColumns is the minimum header every tabular export carries.
var DefaultColumns = []string{ColCharacter, ColSpeechID, ColText}

var knownColumns = map[string]struct{}{
	ColDocument: {}, ColCharacter: {}, ColSpeechID: {}, ColCharacterID: {}, ColText: {}, ColLineIndex: {},
}

// ParseFormat maps a config or flag value to a Format. Empty means TSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatTSV:
		return FormatTSV, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSONL:
		return FormatJSONL, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// FormatForPath guesses the format from a file extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".jsonl", ".ndjson":
		return FormatJSONL
	}
	return FormatTSV
}

// WriterOptions controls tabular output.
type WriterOptions struct {
	Format    Format
	Columns   []string // nil means DefaultColumns
	ASCIIOnly bool
}

func (o WriterOptions) columns() ([]string, error) {
	cols := o.Columns
	if len(cols) == 0 {
		cols = DefaultColumns
	}
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, ok := knownColumns[c]; !ok {
			return nil, fmt.Errorf("unknown column %q", c)
		}
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = struct{}{}
	}
	return cols, nil
}

// Write encodes recs to w.
func Write(w io.Writer, recs []Record, opts WriterOptions) error {
	if opts.Format == FormatJSONL {
		return WriteJSONL(w, recs)
	}
	cols, err := opts.columns()
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if opts.Format == FormatTSV || opts.Format == "" {
		cw.Comma = '\t'
	}
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(cols))
	for _, r := range recs {
		for i, c := range cols {
			row[i] = cell(r, c, opts)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record %s: %w", r.CharacterID(), err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(r Record, col string, opts WriterOptions) string {
	var v string
	switch col {
	case ColDocument:
		v = r.Document
	case ColCharacter:
		v = r.Character
	case ColSpeechID:
		return strconv.Itoa(r.SpeechID)
	case ColCharacterID:
		v = r.CharacterID()
	case ColText:
		v = r.Text
	case ColLineIndex:
		return strconv.Itoa(r.LineIndex)
	}
	if opts.Format != FormatCSV {
		v = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(v)
	}
	if opts.ASCIIOnly {
		v = StripNonASCII(v)
	}
	return v
}

// WriteFile encodes recs and atomically replaces path.
func WriteFile(path string, recs []Record, opts WriterOptions) error {
	var buf bytes.Buffer
	if err := Write(&buf, recs, opts); err != nil {
		return err
	}
	return WriteAtomic(path, buf.Bytes())
}

// Read decodes a record file previously written by Write. The header decides
// which fields are populated; "movie" is accepted for the document column.
func Read(r io.Reader, format Format) ([]Record, error) {
	if format == FormatJSONL {
		return ReadJSONL(r)
	}
	cr := csv.NewReader(r)
	if format == FormatTSV || format == "" {
		// older corpora wrote TSV cells unquoted
		cr.Comma = '\t'
		cr.LazyQuotes = true
	}
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := indexHeader(header)
	if _, ok := idx[ColText]; !ok {
		return nil, fmt.Errorf("missing %q column", ColText)
	}
	var out []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		rec, err := decodeRow(row, idx)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReadFile opens path and decodes it using the format implied by its extension.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	recs, err := Read(f, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return recs, nil
}

func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if h == "movie" {
			h = ColDocument
		}
		idx[h] = i
	}
	return idx
}

func decodeRow(row []string, idx map[string]int) (Record, error) {
	get := func(col string) string {
		if i, ok := idx[col]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	rec := Record{
		Document:  get(ColDocument),
		Character: get(ColCharacter),
		Text:      get(ColText),
	}
	if v := get(ColSpeechID); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Record{}, fmt.Errorf("speech_id %q: %w", v, err)
		}
		rec.SpeechID = n
	}
	if v := get(ColLineIndex); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Record{}, fmt.Errorf("line_index %q: %w", v, err)
		}
		rec.LineIndex = n
	}
	return rec, nil
}
