/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package corpus

import (
	"reflect"
	"strconv"
	"testing"
)

func TestLargestRemainderQuota(t *testing.T) {
	got := LargestRemainderQuota(4, map[string]int{"A": 5, "B": 3, "C": 2})
	want := map[string]int{"A": 2, "B": 1, "C": 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("quota = %v, want %v", got, want)
	}

	// equal remainders break ties by key
	got = LargestRemainderQuota(1, map[string]int{"b": 1, "a": 1})
	if got["a"] != 1 || got["b"] != 0 {
		t.Fatalf("tie-break quota = %v", got)
	}

	zero := LargestRemainderQuota(10, map[string]int{"x": 0})
	if zero["x"] != 0 {
		t.Fatalf("zero counts must yield zero quotas: %v", zero)
	}
}

func TestLargestRemainderQuotaSumsToTarget(t *testing.T) {
	counts := map[string]int{"PS": 211, "CoS": 187, "PoA": 240, "GoF": 129, "OotP": 98, "HBP": 143, "DH1": 77, "DH2": 59}
	for _, total := range []int{1, 7, 100, 300, 999} {
		sum := 0
		for _, q := range LargestRemainderQuota(total, counts) {
			sum += q
		}
		if sum != total {
			t.Fatalf("quotas for %d sum to %d", total, sum)
		}
	}
}

func corpusFor(doc string, n int) []Record {
	out := make([]Record, n)
	for i := range out {
		out[i] = Record{Document: doc, Character: "RON", SpeechID: i + 1, Text: doc + " line " + strconv.Itoa(i)}
	}
	return out
}

func TestStratifiedSample(t *testing.T) {
	var recs []Record
	recs = append(recs, corpusFor("A", 50)...)
	recs = append(recs, corpusFor("B", 30)...)
	recs = append(recs, corpusFor("C", 20)...)

	a := StratifiedSample(recs, 10, ByDocument, NewRand(42))
	b := StratifiedSample(recs, 10, ByDocument, NewRand(42))
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed produced different samples")
	}
	if len(a) != 10 {
		t.Fatalf("sample size = %d", len(a))
	}
	per := map[string]int{}
	for _, r := range a {
		per[r.Document]++
	}
	if per["A"] != 5 || per["B"] != 3 || per["C"] != 2 {
		t.Fatalf("unexpected strata %v", per)
	}
	pos := map[string]int{}
	for i, r := range recs {
		pos[r.Text] = i
	}
	for i := 1; i < len(a); i++ {
		if pos[a[i].Text] < pos[a[i-1].Text] {
			t.Fatalf("sample does not keep input order")
		}
	}

	small := StratifiedSample(recs[:5], 10, ByDocument, NewRand(1))
	if len(small) != 5 {
		t.Fatalf("expected every record when under target, got %d", len(small))
	}
	if StratifiedSample(recs, 0, ByDocument, NewRand(1)) != nil {
		t.Fatalf("zero target must return nil")
	}
}

func TestSamplePerCharacter(t *testing.T) {
	var recs []Record
	for i := 0; i < 6; i++ {
		recs = append(recs, Record{Document: "A", Character: "DUMBLEDORE", SpeechID: i + 1})
		recs = append(recs, Record{Document: "A", Character: "RON", SpeechID: i + 1})
	}
	got := SamplePerCharacter(recs, 2, ByDocument, NewRand(7))
	if len(got) != 4 || got[0].Character != "DUMBLEDORE" || got[2].Character != "RON" {
		t.Fatalf("unexpected per-character sample %+v", got)
	}
	if all := SamplePerCharacter(recs, 0, ByDocument, NewRand(7)); len(all) != len(recs) {
		t.Fatalf("non-positive target keeps everything, got %d", len(all))
	}
}

func TestKeyFor(t *testing.T) {
	k, err := KeyFor("character")
	if err != nil || k(Record{Character: "X", Document: "Y"}) != "X" {
		t.Fatalf("KeyFor(character) wrong")
	}
	if _, err := KeyFor("scene"); err == nil {
		t.Fatalf("expected error for unknown stratum")
	}
}
