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

	"github.com/antzucaro/matchr"
)

// DefaultFuzzyThreshold is the minimum Jaro-Winkler similarity for a fuzzy alias hit.
const DefaultFuzzyThreshold = 0.93

// AliasMap maps raw cue texts to canonical character names. A nil *AliasMap
// resolves every cue to itself.
type AliasMap struct {
	exact     map[string]string
	keys      []string
	fuzzy     bool
	threshold float64
}

// AliasOption configures an AliasMap.
type AliasOption func(*AliasMap)

// WithFuzzy enables Jaro-Winkler matching against alias keys for cues that have
// no exact entry. threshold <= 0 selects DefaultFuzzyThreshold.
func WithFuzzy(threshold float64) AliasOption {
	return func(a *AliasMap) {
		if threshold <= 0 {
			threshold = DefaultFuzzyThreshold
		}
		a.fuzzy = true
		a.threshold = threshold
	}
}

// NewAliasMap builds an alias map. Keys are matched upper-cased with collapsed
// whitespace. Canonical names map to themselves implicitly.
func NewAliasMap(aliases map[string]string, opts ...AliasOption) *AliasMap {
	a := &AliasMap{exact: make(map[string]string, len(aliases)*2)}
	for k, v := range aliases {
		k, v = normalizeCue(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		a.exact[k] = v
		if _, ok := a.exact[normalizeCue(v)]; !ok {
			a.exact[normalizeCue(v)] = v
		}
	}
	for k := range a.exact {
		a.keys = append(a.keys, k)
	}
	sort.Strings(a.keys)
	for _, o := range opts {
		o(a)
	}
	return a
}

// Resolve returns the canonical name for cue, or cue itself when no alias applies.
func (a *AliasMap) Resolve(cue string) string {
	if a == nil || len(a.exact) == 0 {
		return cue
	}
	key := normalizeCue(cue)
	if v, ok := a.exact[key]; ok {
		return v
	}
	if !a.fuzzy {
		return cue
	}
	best, bestScore := "", a.threshold
	for _, k := range a.keys {
		if s := matchr.JaroWinkler(key, k, false); s >= bestScore && (best == "" || s > bestScore) {
			best, bestScore = k, s
		}
	}
	if best == "" {
		return cue
	}
	return a.exact[best]
}

// Len returns the number of alias keys including implicit canonical entries.
func (a *AliasMap) Len() int {
	if a == nil {
		return 0
	}
	return len(a.keys)
}

func normalizeCue(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
