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
	"strconv"
	"strings"
	"testing"
)

func TestParseTwoSpeakers(t *testing.T) {
	lines := []string{"HERMIONE", "We have to go now.", "", "RON", "Blimey."}
	res := Parse(lines, PermissiveProfile(nil))
	want := []Turn{
		{Character: "HERMIONE", Cue: "HERMIONE", Seq: 1, Text: "We have to go now.", SourceLine: 0},
		{Character: "RON", Cue: "RON", Seq: 1, Text: "Blimey.", SourceLine: 3},
	}
	if !reflect.DeepEqual(res.Turns, want) {
		t.Fatalf("unexpected turns:\n got %+v\nwant %+v", res.Turns, want)
	}
}

func TestParseSpeakerNarrationOpensActionBlock(t *testing.T) {
	lines := []string{"RON", "Ron smiles.", "That was close."}
	res := Parse(lines, PermissiveProfile(nil), WithTrace())
	if len(res.Turns) != 0 {
		t.Fatalf("expected no turns, got %+v", res.Turns)
	}
	if res.Trace[1].Kind != KindAction || res.Trace[1].Rule != RuleSpeakerNarration {
		t.Fatalf("expected line 1 to be speaker narration, got %+v", res.Trace[1])
	}
	if res.Trace[2].State != StateInActionBlock {
		t.Fatalf("expected line 2 to be skipped inside the action block, got %+v", res.Trace[2])
	}

	// the next cue ends the action block and a fresh buffer starts
	lines = append(lines, "RON", "That was close.")
	res = Parse(lines, PermissiveProfile(nil))
	if len(res.Turns) != 1 || res.Turns[0].Text != "That was close." || res.Turns[0].Seq != 1 || res.Turns[0].SourceLine != 3 {
		t.Fatalf("unexpected turns: %+v", res.Turns)
	}
	for _, tr := range res.Turns {
		if strings.TrimSpace(tr.Text) == "" {
			t.Fatalf("turn created from empty buffer: %+v", tr)
		}
	}
}

func TestParseSceneHeadingEndsTurn(t *testing.T) {
	lines := []string{"HARRY", "Come on.", "INT. GREAT HALL - NIGHT", "The candles float.", "HARRY", "Look."}
	res := Parse(lines, PermissiveProfile(nil), WithTrace())
	if len(res.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %+v", res.Turns)
	}
	if res.Trace[2].Kind != KindSceneHeading || res.Trace[2].State != StateInActionBlock {
		t.Fatalf("unexpected trace for heading: %+v", res.Trace[2])
	}
	if res.Turns[1].Seq != 2 {
		t.Fatalf("expected second HARRY turn to have seq 2, got %d", res.Turns[1].Seq)
	}
}

func TestParseMultiLineTurnJoinsWithSpaces(t *testing.T) {
	lines := []string{"DUMBLEDORE", "It does not do", "  to dwell on dreams  ", "and forget to live."}
	res := Parse(lines, PermissiveProfile(nil))
	if len(res.Turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(res.Turns))
	}
	if got := res.Turns[0].Text; got != "It does not do to dwell on dreams and forget to live." {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestParseCueFlushesPreviousTurn(t *testing.T) {
	lines := []string{"HARRY", "Ready?", "RON", "No.", "HARRY", "Too bad."}
	res := Parse(lines, PermissiveProfile(nil))
	got := make([]string, 0, len(res.Turns))
	for _, tr := range res.Turns {
		got = append(got, tr.Character+"#"+strconv.Itoa(tr.Seq)+":"+tr.Text)
	}
	want := []string{"HARRY#1:Ready?", "RON#1:No.", "HARRY#2:Too bad."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestParseBlacklistNeverOpensTurn(t *testing.T) {
	for _, marker := range []string{"FADE IN", "THE END", "CUT TO", "DARKNESS", "FADE OUT"} {
		lines := []string{marker, "Something spoken.", "HARRY", "Hi.", marker, "More words."}
		res := Parse(lines, PermissiveProfile(nil))
		if len(res.Turns) != 1 || res.Turns[0].Character != "HARRY" || res.Turns[0].Text != "Hi." {
			t.Fatalf("%s: unexpected turns %+v", marker, res.Turns)
		}
		for _, n := range res.Names {
			if n == marker {
				t.Fatalf("%s registered as a name", marker)
			}
		}
	}
}

func TestParseNoisePolicies(t *testing.T) {
	lines := []string{"HARRY", "I solemnly swear", "CONTINUED:", "that I am up to no good.", "", "left over"}

	p := PermissiveProfile(nil)
	res := Parse(lines, p)
	if len(res.Turns) != 1 || res.Turns[0].Text != "I solemnly swear" {
		t.Fatalf("end-turn policy: unexpected turns %+v", res.Turns)
	}

	p.NoisePolicy = NoiseSkipped
	res = Parse(lines, p)
	if len(res.Turns) != 1 || res.Turns[0].Text != "I solemnly swear that I am up to no good." {
		t.Fatalf("skip policy: unexpected turns %+v", res.Turns)
	}
}

func TestParseStartGate(t *testing.T) {
	lines := []string{
		"HARRY POTTER AND THE",
		"HARRY",
		"Title page chatter.",
		"FADE IN:",
		"HARRY",
		"Hello.",
	}
	res := Parse(lines, StrictProfile(), WithTrace())
	if len(res.Turns) != 1 || res.Turns[0].Text != "Hello." || res.Turns[0].SourceLine != 4 {
		t.Fatalf("unexpected turns %+v", res.Turns)
	}
	if res.Stats.Gated != 3 || !res.Stats.Started {
		t.Fatalf("unexpected stats %+v", res.Stats)
	}
	if !res.Trace[1].Gated {
		t.Fatalf("expected cue before the marker to be gated")
	}

	never := Parse([]string{"HARRY", "Hello."}, StrictProfile())
	if len(never.Turns) != 0 || never.Stats.Started {
		t.Fatalf("expected nothing before a start marker, got %+v", never)
	}

	heading := Parse([]string{"1 INT. PRIVET DRIVE - NIGHT", "HARRY", "Hello."}, StrictProfile())
	if len(heading.Turns) != 1 {
		t.Fatalf("scene heading should open the gate, got %+v", heading.Turns)
	}
}

func TestParseWatchListKeepsVocatives(t *testing.T) {
	lines := []string{
		"FADE IN:",
		"HERMIONE",
		"Harry, listen to me.",
		"Harry looks away.",
		"RON",
		"Ron's here.",
	}
	res := Parse(lines, StrictProfile("Harry", "Ron"))
	if len(res.Turns) != 1 || res.Turns[0].Text != "Harry, listen to me." {
		t.Fatalf("unexpected turns %+v", res.Turns)
	}
}

func TestParseWatchListVocativeBeatsPronouns(t *testing.T) {
	lines := []string{"FADE IN:", "HERMIONE", "Ron, he is not coming back.", "Ron, they said so."}
	res := Parse(lines, StrictProfile("Ron"), WithTrace())
	if len(res.Turns) != 1 || res.Turns[0].Text != "Ron, he is not coming back. Ron, they said so." {
		t.Fatalf("unexpected turns %+v", res.Turns)
	}
	for _, i := range []int{2, 3} {
		if tl := res.Trace[i]; tl.Kind != KindDialogue || tl.Rule != RuleWatchedVocative || tl.State != StateCollecting {
			t.Fatalf("line %d: unexpected trace %+v", i, tl)
		}
	}
}

func TestParseAliasesCanonicalise(t *testing.T) {
	aliases := NewAliasMap(map[string]string{
		"SEVERUS SNAPE":   "SNAPE",
		"PROFESSOR SNAPE": "SNAPE",
	})
	lines := []string{
		"SEVERUS SNAPE", "Turn to page three hundred and ninety-four.",
		"HARRY", "Sir?",
		"PROFESSOR SNAPE", "Silence.",
		"SNAPE", "Always.",
	}
	res := Parse(lines, PermissiveProfile(aliases))
	var snape []Turn
	for _, tr := range res.Turns {
		if tr.Character == "SNAPE" {
			snape = append(snape, tr)
		}
	}
	if len(snape) != 3 {
		t.Fatalf("expected 3 SNAPE turns, got %+v", res.Turns)
	}
	for i, tr := range snape {
		if tr.Seq != i+1 {
			t.Fatalf("expected seq %d, got %+v", i+1, tr)
		}
	}
	if snape[0].Cue != "SEVERUS SNAPE" || snape[1].Cue != "PROFESSOR SNAPE" {
		t.Fatalf("raw cue not preserved: %+v", snape)
	}
}

func TestParseProperties(t *testing.T) {
	lines := []string{
		"FADE IN:",
		"EXT. HOGWARTS - DAY",
		"Owls circle the tower.",
		"HARRY",
		"Where is everyone?",
		"I thought they'd be here.",
		"Hermione runs up, breathless.",
		"HERMIONE (O.S.)",
		"Harry! Over here!",
		"",
		"RON",
		"Bloody hell.",
		"(beat)",
		"You two are mental.",
		"HARRY",
		"We know.",
		"THE END",
	}
	a := Parse(lines, StrictProfile("Harry", "Ron", "Hermione"), WithTrace())
	b := Parse(lines, StrictProfile("Harry", "Ron", "Hermione"), WithTrace())
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("parse is not deterministic")
	}

	for i := 1; i < len(a.Turns); i++ {
		if a.Turns[i].SourceLine < a.Turns[i-1].SourceLine {
			t.Fatalf("turns out of order: %+v", a.Turns)
		}
	}

	next := map[string]int{}
	for _, tr := range a.Turns {
		next[tr.Character]++
		if tr.Seq != next[tr.Character] {
			t.Fatalf("non-monotonic seq for %s: %+v", tr.Character, a.Turns)
		}
	}

	// every dialogue line collected appears in exactly one turn
	joined := make([]string, 0, len(a.Turns))
	for _, tr := range a.Turns {
		joined = append(joined, tr.Text)
	}
	all := strings.Join(joined, "\n")
	for _, tl := range a.Trace {
		if tl.Kind == KindDialogue && tl.State == StateCollecting {
			if strings.Count(all, tl.Text) != 1 {
				t.Fatalf("dialogue line %q appears %d times", tl.Text, strings.Count(all, tl.Text))
			}
		}
	}

	want := []string{
		"HARRY:Where is everyone? I thought they'd be here.",
		"HERMIONE:Harry! Over here!",
		"RON:Bloody hell.",
		"HARRY:We know.",
	}
	got := make([]string, 0, len(a.Turns))
	for _, tr := range a.Turns {
		got = append(got, tr.Character+":"+tr.Text)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v\nwant %v", got, want)
	}
}

func TestParseZeroCues(t *testing.T) {
	res := Parse([]string{"just some prose", "without any speaker"}, PermissiveProfile(nil))
	if len(res.Turns) != 0 || len(res.Names) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
	if res.Stats.Lines != 2 {
		t.Fatalf("expected 2 lines counted, got %d", res.Stats.Lines)
	}
}
