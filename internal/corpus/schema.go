/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package corpus

import (
	"bufio"
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

// ErrSchema is returned when a JSONL line does not conform to the record schema.
var ErrSchema = errors.New("record does not conform to schema")

//go:embed speech_act.schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

// Schema returns the embedded JSON schema for one speech-act line.
func Schema() []byte { return bytes.Clone(schemaJSON) }

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// WriteJSONL writes one JSON object per record.
func WriteJSONL(w io.Writer, recs []Record) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode %s: %w", r.CharacterID(), err)
		}
	}
	return bw.Flush()
}

// ReadJSONL decodes records written by WriteJSONL. Lines are not validated.
func ReadJSONL(r io.Reader) ([]Record, error) {
	var out []Record
	err := scanJSONL(r, func(n int, line []byte) error {
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		out = append(out, rec)
		return nil
	})
	return out, err
}

// ValidateJSONL checks every non-empty line against the record schema and
// returns the number of valid lines. Violations wrap ErrSchema and name the
// offending line.
func ValidateJSONL(r io.Reader) (int, error) {
	s, err := compiledSchema()
	if err != nil {
		return 0, fmt.Errorf("compile schema: %w", err)
	}
	valid := 0
	err = scanJSONL(r, func(n int, line []byte) error {
		res, err := s.Validate(gojsonschema.NewBytesLoader(line))
		if err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		if !res.Valid() {
			msgs := make([]string, 0, len(res.Errors()))
			for _, e := range res.Errors() {
				msgs = append(msgs, e.String())
			}
			return fmt.Errorf("line %d: %w: %s", n, ErrSchema, strings.Join(msgs, "; "))
		}
		valid++
		return nil
	})
	return valid, err
}

func scanJSONL(r io.Reader, fn func(n int, line []byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for n := 1; sc.Scan(); n++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := fn(n, line); err != nil {
			return err
		}
	}
	return sc.Err()
}
