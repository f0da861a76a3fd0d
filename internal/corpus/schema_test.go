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
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestEmbeddedSchemaIsJSON(t *testing.T) {
	var v map[string]any
	if err := json.Unmarshal(Schema(), &v); err != nil {
		t.Fatalf("schema is not valid JSON: %v", err)
	}
	if _, err := compiledSchema(); err != nil {
		t.Fatalf("schema does not compile: %v", err)
	}
}

func TestJSONLConformsToSchema(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSONL(&buf, sampleRecords()); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	n, err := ValidateJSONL(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ValidateJSONL: %v", err)
	}
	if n != 3 {
		t.Fatalf("valid lines = %d", n)
	}
	recs, err := ReadJSONL(&buf)
	if err != nil || len(recs) != 3 || recs[2].SpeechID != 2 {
		t.Fatalf("ReadJSONL = %+v, %v", recs, err)
	}
}

func TestValidateJSONLRejects(t *testing.T) {
	cases := map[string]string{
		"zero speech id": `{"document":"A","character":"RON","speech_id":0,"text":"hi"}`,
		"missing text":   `{"document":"A","character":"RON","speech_id":1}`,
		"extra field":    `{"document":"A","character":"RON","speech_id":1,"text":"hi","label":"x"}`,
	}
	for name, line := range cases {
		in := `{"document":"A","character":"RON","speech_id":1,"text":"ok"}` + "\n\n" + line + "\n"
		n, err := ValidateJSONL(strings.NewReader(in))
		if !errors.Is(err, ErrSchema) {
			t.Fatalf("%s: expected ErrSchema, got %v", name, err)
		}
		if n != 1 || !strings.Contains(err.Error(), "line 3") {
			t.Fatalf("%s: n=%d err=%v", name, n, err)
		}
	}
	if _, err := ValidateJSONL(strings.NewReader("{not json}\n")); err == nil || errors.Is(err, ErrSchema) {
		t.Fatalf("malformed JSON should fail without ErrSchema, got %v", err)
	}
}
