/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NameRegistry is the set of character names known for one document. It is
// built once and only read afterwards.
type NameRegistry struct {
	names  map[string]struct{}
	sorted []string
}

// BuildNameRegistry scans all lines and registers, for every character cue, the
// cue text, its first token in title case and its first token in upper case.
func BuildNameRegistry(lines []string, c *Classifier) *NameRegistry {
	var cues []string
	for _, l := range lines {
		if name, ok := c.Cue(l); ok {
			cues = append(cues, name)
		}
	}
	return NewNameRegistry(cues...)
}

// NewNameRegistry registers the given cue texts.
func NewNameRegistry(cues ...string) *NameRegistry {
	// a Caser keeps state between calls, so each registry gets its own
	title := cases.Title(language.Und)
	r := &NameRegistry{names: map[string]struct{}{}}
	for _, cue := range cues {
		cue = strings.TrimSpace(cue)
		if cue == "" {
			continue
		}
		r.add(cue)
		first := strings.Fields(cue)[0]
		r.add(title.String(first))
		r.add(strings.ToUpper(first))
	}
	r.sorted = make([]string, 0, len(r.names))
	for n := range r.names {
		r.sorted = append(r.sorted, n)
	}
	sort.Strings(r.sorted)
	return r
}

func (r *NameRegistry) add(name string) {
	r.names[name] = struct{}{}
}

// Has reports exact membership.
func (r *NameRegistry) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.names[name]
	return ok
}

// ContainedIn reports whether any registered name occurs as a substring of line.
func (r *NameRegistry) ContainedIn(line string) bool {
	if r == nil {
		return false
	}
	for _, n := range r.sorted {
		if strings.Contains(line, n) {
			return true
		}
	}
	return false
}

// Names returns the registered names in sorted order.
func (r *NameRegistry) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.sorted...)
}

func (r *NameRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.sorted)
}
