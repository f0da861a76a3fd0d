/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package corpus

import (
	"regexp"
	"strings"
)

var reWord = regexp.MustCompile(`[A-Za-z']+`)

// TrivialFilter drops short speech acts ("Yes.", "What?") unless they mention
// an important term such as a spell or a proper name.
type TrivialFilter struct {
	MinWords int
	terms    map[string]struct{}
}

// NewTrivialFilter builds a filter; terms are matched case-insensitively.
func NewTrivialFilter(minWords int, terms []string) *TrivialFilter {
	f := &TrivialFilter{MinWords: minWords, terms: make(map[string]struct{}, len(terms))}
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			f.terms[t] = struct{}{}
		}
	}
	return f
}

// Keep reports whether text is non-trivial.
func (f *TrivialFilter) Keep(text string) bool {
	words := reWord.FindAllString(text, -1)
	if len(words) >= f.MinWords {
		return true
	}
	for _, w := range words {
		if _, ok := f.terms[strings.ToLower(w)]; ok {
			return true
		}
	}
	return false
}

// Apply returns the non-trivial records, preserving order.
func (f *TrivialFilter) Apply(recs []Record) []Record {
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if f.Keep(r.Text) {
			out = append(out, r)
		}
	}
	return out
}
