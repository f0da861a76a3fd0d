/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Action rule names, reported in LineTrace.Rule.
const (
	RuleSceneMarker       = "scene-marker"
	RuleNumberedContinued = "numbered-continued"
	RuleParenthetical     = "parenthetical"
	RuleSpeakerNarration  = "speaker-narration"
	RuleWatchedName       = "watched-name"
	RuleWatchedVocative   = "watched-vocative"
	RuleOtherCharacter    = "other-character"
	RuleLongAside         = "long-aside"
	RuleThirdPerson       = "third-person"
	RuleFirstSecondPerson = "first-second-person"
	RuleDefault           = "default"
)

// asides longer than this many tokens that mention a character read as narration
const longAsideTokens = 15

var (
	reSceneHeader = regexp.MustCompile(`^\s*(\d+[A-Z]?\s+)?(INT\.|EXT\.)`)
	reDigit       = regexp.MustCompile(`\d`)
)

type actionInput struct {
	line    string
	tokens  []string
	speaker string
	names   *NameRegistry
	watch   map[string]struct{}
	first   bool // first or second person pronoun present
	third   bool // third person pronoun present
	watched watchVerdict
}

// watchVerdict is the watch-list decision for a line.
type watchVerdict int

const (
	watchNone  watchVerdict = iota // no watched name leads the line
	watchBreak                     // narration break
	watchKeep                      // vocative, stays dialogue
)

type actionRule struct {
	name   string
	action bool
	match  func(in *actionInput) bool
}

// rules are evaluated in order; the first match decides
var actionRules = []actionRule{
	{name: RuleSceneMarker, action: true, match: func(in *actionInput) bool {
		return strings.Contains(in.line, "INT.") || strings.Contains(in.line, "EXT.") || reSceneHeader.MatchString(in.line)
	}},
	{name: RuleNumberedContinued, action: true, match: func(in *actionInput) bool {
		return strings.Contains(in.line, "CONTINUED") && reDigit.MatchString(in.line)
	}},
	{name: RuleParenthetical, action: true, match: func(in *actionInput) bool {
		return strings.HasPrefix(in.line, "(")
	}},
	{name: RuleSpeakerNarration, action: true, match: speakerNarration},
	{name: RuleWatchedName, action: true, match: func(in *actionInput) bool {
		return in.watched == watchBreak
	}},
	{name: RuleWatchedVocative, action: false, match: func(in *actionInput) bool {
		return in.watched == watchKeep
	}},
	{name: RuleOtherCharacter, action: true, match: otherCharacter},
	{name: RuleLongAside, action: true, match: func(in *actionInput) bool {
		return len(in.tokens) > longAsideTokens && !in.first && in.names.ContainedIn(in.line)
	}},
	{name: RuleThirdPerson, action: true, match: func(in *actionInput) bool {
		return in.third && !in.first
	}},
	{name: RuleFirstSecondPerson, action: false, match: func(in *actionInput) bool {
		return in.first
	}},
}

// ActionRules returns the names of the detector rules in evaluation order.
func ActionRules() []string {
	out := make([]string, 0, len(actionRules)+1)
	for _, r := range actionRules {
		out = append(out, r.name)
	}
	return append(out, RuleDefault)
}

// "Ron smiles." under speaker RON: the speaker's name followed by a lower-case verb
func speakerNarration(in *actionInput) bool {
	if in.speaker == "" || len(in.tokens) < 2 || len(in.line) < len(in.speaker) {
		return false
	}
	if !strings.EqualFold(in.line[:len(in.speaker)], in.speaker) {
		return false
	}
	if rest := in.line[len(in.speaker):]; rest == "" || !unicode.IsSpace(rune(rest[0])) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(in.tokens[1])
	return unicode.IsLower(r)
}

// watchedLead looks at the letters leading the line. A watched first name
// followed by a space or an apostrophe starts narration; followed by
// , ? ! : or ; it addresses someone and the line stays dialogue.
func watchedLead(line string, watch map[string]struct{}) watchVerdict {
	if len(watch) == 0 {
		return watchNone
	}
	end := 0
	for end < len(line) {
		r, size := utf8.DecodeRuneInString(line[end:])
		if !unicode.IsLetter(r) {
			break
		}
		end += size
	}
	if end == 0 || end == len(line) {
		return watchNone
	}
	if _, ok := watch[line[:end]]; !ok {
		return watchNone
	}
	next, _ := utf8.DecodeRuneInString(line[end:])
	switch next {
	case ' ', '\'', '’':
		return watchBreak
	case ',', '?', '!', ':', ';':
		return watchKeep
	}
	return watchNone
}

func otherCharacter(in *actionInput) bool {
	if len(in.tokens) < 2 || in.tokens[1] == "," {
		return false
	}
	first := in.tokens[0]
	upper := strings.ToUpper(first)
	if !in.names.Has(first) && !in.names.Has(upper) {
		return false
	}
	return upper != in.speaker
}

// Detector decides whether a non-structural line is narration rather than speech.
type Detector struct {
	names *NameRegistry
	watch map[string]struct{}
}

// NewDetector builds a detector over the document's names. Watch names from the
// profile enable the watched-name rule.
func NewDetector(names *NameRegistry, p Profile) *Detector {
	d := &Detector{names: names}
	if len(p.WatchNames) > 0 {
		d.watch = make(map[string]struct{}, len(p.WatchNames))
		for _, n := range p.WatchNames {
			if n = strings.TrimSpace(n); n != "" {
				d.watch[n] = struct{}{}
			}
		}
	}
	return d
}

// IsAction reports whether line is an action line given the current speaker.
func (d *Detector) IsAction(line, speaker string) bool {
	_, action := d.Decide(line, speaker)
	return action
}

// Decide returns the name of the rule that decided the line and its verdict.
func (d *Detector) Decide(line, speaker string) (string, bool) {
	in := d.input(line, speaker)
	for _, r := range actionRules {
		if r.match(in) {
			return r.name, r.action
		}
	}
	return RuleDefault, false
}

// MatchRule evaluates a single named rule in isolation.
func (d *Detector) MatchRule(rule, line, speaker string) bool {
	in := d.input(line, speaker)
	for _, r := range actionRules {
		if r.name == rule {
			return r.match(in)
		}
	}
	return false
}

func (d *Detector) input(line, speaker string) *actionInput {
	line = strings.TrimSpace(line)
	in := &actionInput{
		line:    line,
		tokens:  strings.Fields(line),
		speaker: speaker,
		names:   d.names,
		watch:   d.watch,
	}
	in.first, in.third = pronounSignals(line)
	in.watched = watchedLead(line, d.watch)
	return in
}
