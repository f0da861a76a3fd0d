/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"reflect"
	"testing"
)

func TestBuildNameRegistry(t *testing.T) {
	lines := []string{
		"MRS. WEASLEY",
		"Eat up.",
		"RON (O.S.)",
		"Mum!",
		"THE END",
	}
	r := BuildNameRegistry(lines, NewClassifier(StrictProfile(), nil))
	want := []string{"MRS.", "MRS. WEASLEY", "Mrs.", "RON", "Ron"}
	if got := r.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	if !r.Has("Ron") || r.Has("ron") || r.Has("THE END") {
		t.Fatalf("unexpected membership")
	}
	if !r.ContainedIn("Later, Ron leaves.") || r.ContainedIn("nobody here") {
		t.Fatalf("unexpected ContainedIn result")
	}
	if r.Len() != len(want) {
		t.Fatalf("Len() = %d", r.Len())
	}
}

func TestNilRegistry(t *testing.T) {
	var r *NameRegistry
	if r.Has("X") || r.ContainedIn("X") || r.Names() != nil || r.Len() != 0 {
		t.Fatalf("nil registry must be empty")
	}
}

func TestAliasMapResolve(t *testing.T) {
	a := NewAliasMap(map[string]string{
		"SEVERUS SNAPE":   "SNAPE",
		"PROFESSOR SNAPE": "SNAPE",
		"MR. WEASLEY":     "ARTHUR",
	})
	cases := map[string]string{
		"SEVERUS SNAPE":  "SNAPE",
		"severus  snape": "SNAPE",
		"SNAPE":          "SNAPE",
		"ARTHUR":         "ARTHUR",
		"HARRY":          "HARRY",
		"PROFESOR SNAPE": "PROFESOR SNAPE",
	}
	for in, want := range cases {
		if got := a.Resolve(in); got != want {
			t.Fatalf("Resolve(%q) = %q, want %q", in, got, want)
		}
	}

	var none *AliasMap
	if none.Resolve("RON") != "RON" || none.Len() != 0 {
		t.Fatalf("nil alias map must be identity")
	}
}

func TestAliasMapFuzzy(t *testing.T) {
	a := NewAliasMap(map[string]string{"PROFESSOR SNAPE": "SNAPE"}, WithFuzzy(0))
	if got := a.Resolve("PROFESOR SNAPE"); got != "SNAPE" {
		t.Fatalf("fuzzy Resolve = %q, want SNAPE", got)
	}
	if got := a.Resolve("HAGRID"); got != "HAGRID" {
		t.Fatalf("unrelated cue must pass through, got %q", got)
	}
}
