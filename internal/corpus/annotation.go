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
	"strconv"
	"strings"
)

// AnnotationHeader is the column layout of an annotation dataset.
var AnnotationHeader = []string{"annotation_id", ColDocument, ColCharacter, ColSpeechID, ColText, "annotation_label"}

// Annotation is a sampled speech act awaiting (or carrying) a manual label.
type Annotation struct {
	ID int `json:"annotation_id"`
	Record
	Label string `json:"annotation_label"`
}

// NewAnnotations numbers recs from 1 with empty labels.
func NewAnnotations(recs []Record) []Annotation {
	out := make([]Annotation, len(recs))
	for i, r := range recs {
		out[i] = Annotation{ID: i + 1, Record: r}
	}
	return out
}

// WriteAnnotations writes anns as CSV with AnnotationHeader.
func WriteAnnotations(w io.Writer, anns []Annotation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(AnnotationHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, a := range anns {
		row := []string{strconv.Itoa(a.ID), a.Document, a.Character, strconv.Itoa(a.SpeechID), a.Text, a.Label}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write annotation %d: %w", a.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAnnotationsFile atomically replaces path with the dataset.
func WriteAnnotationsFile(path string, anns []Annotation) error {
	var buf bytes.Buffer
	if err := WriteAnnotations(&buf, anns); err != nil {
		return err
	}
	return WriteAtomic(path, buf.Bytes())
}

// ReadAnnotations parses an annotation CSV, rewriting labels through fixes
// (e.g. misspelled label names).
func ReadAnnotations(r io.Reader, fixes map[string]string) ([]Annotation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := indexHeader(header)
	for _, col := range []string{"annotation_id", ColText} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing %q column", col)
		}
	}
	var out []Annotation
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
		raw := strings.TrimSpace(row[idx["annotation_id"]])
		id, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("row %d: annotation_id %q: %w", line, raw, err)
		}
		a := Annotation{ID: id, Record: rec}
		if i, ok := idx["annotation_label"]; ok && i < len(row) {
			a.Label = strings.TrimSpace(row[i])
			if fixed, ok := fixes[a.Label]; ok {
				a.Label = fixed
			}
		}
		out = append(out, a)
	}
	return out, nil
}

// ReadAnnotationsFile opens path and calls ReadAnnotations.
func ReadAnnotationsFile(path string, fixes map[string]string) ([]Annotation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	anns, err := ReadAnnotations(f, fixes)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return anns, nil
}

// LabelCounts tallies labels; unlabelled rows count under "".
func LabelCounts(anns []Annotation) map[string]int {
	out := map[string]int{}
	for _, a := range anns {
		out[a.Label]++
	}
	return out
}
