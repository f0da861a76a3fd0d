/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package corpus holds the speech-act records produced from parsed screenplays
// and the collaborators that consume them: tabular writers, the non-trivial
// filter, the stratified sampler and the annotation dataset.
package corpus

import (
	"strconv"
	"strings"

	"scriptturns/internal/script"
)

// Record is one speech act as exported to downstream analysis.
type Record struct {
	Document  string `json:"document"`
	Character string `json:"character"`
	SpeechID  int    `json:"speech_id"`
	Text      string `json:"text"`
	LineIndex int    `json:"line_index"`
}

// CharacterID is the per-character identifier, e.g. SNAPE_12.
func (r Record) CharacterID() string {
	return r.Character + "_" + strconv.Itoa(r.SpeechID)
}

// FromTurns converts parsed turns into records for document.
func FromTurns(document string, turns []script.Turn) []Record {
	out := make([]Record, 0, len(turns))
	for _, t := range turns {
		out = append(out, Record{
			Document:  document,
			Character: t.Character,
			SpeechID:  t.Seq,
			Text:      t.Text,
			LineIndex: t.SourceLine,
		})
	}
	return out
}

// FilterCharacters keeps records whose character is in chars (case-insensitive).
// An empty chars keeps everything.
func FilterCharacters(recs []Record, chars []string) []Record {
	if len(chars) == 0 {
		return recs
	}
	keep := make(map[string]struct{}, len(chars))
	for _, c := range chars {
		keep[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if _, ok := keep[strings.ToUpper(r.Character)]; ok {
			out = append(out, r)
		}
	}
	return out
}

// StripNonASCII drops every rune outside the ASCII range and trims the result.
func StripNonASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] < 0x80 {
			b.WriteByte(s[i])
		}
	}
	return strings.TrimSpace(b.String())
}
