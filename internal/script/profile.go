/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"
	"regexp"
)

// CuePattern selects how strictly a line must look like a speaker name.
type CuePattern int

const (
	// CueRelaxed accepts 1-5 upper-case tokens of letters, apostrophes, periods and hyphens,
	// optionally followed by a parenthetical.
	CueRelaxed CuePattern = iota
	// CueStrict additionally restricts the charset to [A-Z .], caps length and word count
	// and rejects transition-like prefixes.
	CueStrict
)

func (c CuePattern) String() string {
	if c == CueStrict {
		return "strict"
	}
	return "relaxed"
}

// NoisePolicy decides what a non-blank noise line does to an open turn.
// Blank lines always end the turn.
type NoisePolicy int

const (
	NoiseEndsTurn NoisePolicy = iota
	NoiseSkipped
)

func (p NoisePolicy) String() string {
	if p == NoiseSkipped {
		return "skip"
	}
	return "end_turn"
}

// Profile bundles the per-document knobs of the engine.
type Profile struct {
	Name        string
	Cue         CuePattern
	StartGate   bool
	WatchNames  []string
	Aliases     *AliasMap
	NoisePolicy NoisePolicy
	ExtraNoise  []*regexp.Regexp
}

// StrictProfile is the strict-boundary profile: gated start, relaxed cue shape and
// watch-list narration breaks.
func StrictProfile(watch ...string) Profile {
	return Profile{
		Name:       "strict",
		Cue:        CueRelaxed,
		StartGate:  true,
		WatchNames: append([]string(nil), watch...),
	}
}

// PermissiveProfile has no start gate, uses the strict cue shape and canonicalises
// speakers through aliases.
func PermissiveProfile(aliases *AliasMap) Profile {
	return Profile{
		Name:    "permissive",
		Cue:     CueStrict,
		Aliases: aliases,
	}
}

// ParseCuePattern maps a configuration value to a CuePattern.
func ParseCuePattern(s string) (CuePattern, error) {
	switch s {
	case "", "relaxed":
		return CueRelaxed, nil
	case "strict":
		return CueStrict, nil
	}
	return CueRelaxed, fmt.Errorf("unknown cue pattern %q", s)
}

// ParseNoisePolicy maps a configuration value to a NoisePolicy.
func ParseNoisePolicy(s string) (NoisePolicy, error) {
	switch s {
	case "", "end_turn":
		return NoiseEndsTurn, nil
	case "skip":
		return NoiseSkipped, nil
	}
	return NoiseEndsTurn, fmt.Errorf("unknown noise policy %q", s)
}
