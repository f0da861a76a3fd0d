/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import "testing"

func TestParseProfileKnobs(t *testing.T) {
	cues := []struct {
		in      string
		want    CuePattern
		wantErr bool
	}{
		{"", CueRelaxed, false},
		{"relaxed", CueRelaxed, false},
		{"strict", CueStrict, false},
		{"loose", CueRelaxed, true},
	}
	for _, c := range cues {
		got, err := ParseCuePattern(c.in)
		if (err != nil) != c.wantErr || got != c.want {
			t.Fatalf("ParseCuePattern(%q) = %v, %v", c.in, got, err)
		}
		if !c.wantErr && c.in != "" && got.String() != c.in {
			t.Fatalf("String() = %q, want %q", got.String(), c.in)
		}
	}

	policies := []struct {
		in      string
		want    NoisePolicy
		wantErr bool
	}{
		{"", NoiseEndsTurn, false},
		{"end_turn", NoiseEndsTurn, false},
		{"skip", NoiseSkipped, false},
		{"ignore", NoiseEndsTurn, true},
	}
	for _, c := range policies {
		got, err := ParseNoisePolicy(c.in)
		if (err != nil) != c.wantErr || got != c.want {
			t.Fatalf("ParseNoisePolicy(%q) = %v, %v", c.in, got, err)
		}
	}
}

func TestBuiltInProfiles(t *testing.T) {
	s := StrictProfile("Harry")
	if s.Name != "strict" || !s.StartGate || s.Cue != CueRelaxed || s.NoisePolicy != NoiseEndsTurn || len(s.WatchNames) != 1 {
		t.Fatalf("unexpected strict profile %+v", s)
	}
	p := PermissiveProfile(nil)
	if p.Name != "permissive" || p.StartGate || p.Cue != CueStrict || p.NoisePolicy != NoiseEndsTurn {
		t.Fatalf("unexpected permissive profile %+v", p)
	}
}
