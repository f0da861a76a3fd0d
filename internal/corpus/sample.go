/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package corpus

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"strings"
)

// KeyFunc assigns a record to a sampling stratum.
type KeyFunc func(Record) string

// ByDocument stratifies by source document.
func ByDocument(r Record) string { return r.Document }

// ByCharacter stratifies by speaker.
func ByCharacter(r Record) string { return r.Character }

// KeyFor returns the stratum function named in configuration.
func KeyFor(groupBy string) (KeyFunc, error) {
	switch strings.ToLower(strings.TrimSpace(groupBy)) {
	case "", "document":
		return ByDocument, nil
	case "character":
		return ByCharacter, nil
	}
	return nil, fmt.Errorf("unknown group_by %q", groupBy)
}

// NewRand returns a seeded generator so samples are reproducible.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// LargestRemainderQuota splits total across keys proportionally to counts.
// The quotas sum to total unless every count is zero. Remainder ties go to
// the lexically smaller key.
func LargestRemainderQuota(total int, counts map[string]int) map[string]int {
	quotas := make(map[string]int, len(counts))
	sum := 0
	for k, c := range counts {
		quotas[k] = 0
		sum += c
	}
	if sum == 0 || total <= 0 {
		return quotas
	}
	type rem struct {
		key  string
		frac float64
	}
	rems := make([]rem, 0, len(counts))
	assigned := 0
	for k, c := range counts {
		raw := float64(c) * float64(total) / float64(sum)
		base := int(raw)
		quotas[k] = base
		assigned += base
		rems = append(rems, rem{key: k, frac: raw - float64(base)})
	}
	sort.Slice(rems, func(i, j int) bool {
		if rems[i].frac != rems[j].frac {
			return rems[i].frac > rems[j].frac
		}
		return rems[i].key < rems[j].key
	})
	for i := 0; assigned < total && i < len(rems); i++ {
		quotas[rems[i].key]++
		assigned++
	}
	return quotas
}

// StratifiedSample draws up to target records with per-stratum quotas from
// LargestRemainderQuota. Strata short of their quota are topped up from the
// leftovers of the others. The result keeps the input order.
func StratifiedSample(recs []Record, target int, key KeyFunc, rng *rand.Rand) []Record {
	if target <= 0 || len(recs) == 0 {
		return nil
	}
	if len(recs) <= target {
		return slices.Clone(recs)
	}
	groups := map[string][]int{}
	counts := map[string]int{}
	for i, r := range recs {
		k := key(r)
		groups[k] = append(groups[k], i)
		counts[k]++
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	quotas := LargestRemainderQuota(target, counts)

	var picked, leftover []int
	for _, k := range keys {
		idx := groups[k]
		q := quotas[k]
		switch {
		case q <= 0:
			leftover = append(leftover, idx...)
		case q >= len(idx):
			picked = append(picked, idx...)
		default:
			perm := rng.Perm(len(idx))
			for n, p := range perm {
				if n < q {
					picked = append(picked, idx[p])
				} else {
					leftover = append(leftover, idx[p])
				}
			}
		}
	}
	if need := target - len(picked); need > 0 && len(leftover) > 0 {
		rng.Shuffle(len(leftover), func(i, j int) { leftover[i], leftover[j] = leftover[j], leftover[i] })
		picked = append(picked, leftover[:min(need, len(leftover))]...)
	}
	sort.Ints(picked)
	out := make([]Record, 0, len(picked))
	for _, i := range picked {
		out = append(out, recs[i])
	}
	return out
}

// SamplePerCharacter samples each character separately with the same target,
// keeping characters in order of first appearance. A target <= 0 keeps every
// record of that character.
func SamplePerCharacter(recs []Record, target int, key KeyFunc, rng *rand.Rand) []Record {
	var order []string
	byChar := map[string][]Record{}
	for _, r := range recs {
		if _, ok := byChar[r.Character]; !ok {
			order = append(order, r.Character)
		}
		byChar[r.Character] = append(byChar[r.Character], r)
	}
	var out []Record
	for _, c := range order {
		if target <= 0 {
			out = append(out, byChar[c]...)
			continue
		}
		out = append(out, StratifiedSample(byChar[c], target, key, rng)...)
	}
	return out
}
