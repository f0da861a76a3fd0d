/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"strings"
)

// Option configures a Parse call.
type Option func(*parseOptions)

type parseOptions struct {
	trace bool
}

// WithTrace records a LineTrace for every input line in Result.Trace.
func WithTrace() Option {
	return func(o *parseOptions) { o.trace = true }
}

// Parse segments screenplay lines into dialogue turns.
//
// Two passes over lines:
//   - the first collects character cues into a NameRegistry
//   - the second walks the lines with a small state machine
//     (no speaker, collecting, action block) and flushes a Turn whenever an
//     open dialogue buffer is closed by a cue, a boundary line or the end of input.
//
// Parse never fails; lines it cannot place are dropped.
func Parse(lines []string, p Profile, opts ...Option) Result {
	var o parseOptions
	for _, fn := range opts {
		fn(&o)
	}
	names := BuildNameRegistry(lines, NewClassifier(p, nil))
	seg := newSegmenter(p, names, o.trace)
	for i, l := range lines {
		seg.step(i, l)
	}
	seg.flush()
	seg.stats.Started = seg.started
	return Result{
		Turns: seg.turns,
		Names: names.Names(),
		Stats: seg.stats,
		Trace: seg.trace,
	}
}

type segmenter struct {
	profile  Profile
	cls      *Classifier
	det      *Detector
	state    State
	speaker  string
	cueLine  int
	buffer   []string
	counters map[string]int
	started  bool
	turns    []Turn
	stats    Stats
	tracing  bool
	trace    []LineTrace
}

func newSegmenter(p Profile, names *NameRegistry, tracing bool) *segmenter {
	s := &segmenter{
		profile:  p,
		cls:      NewClassifier(p, nil),
		det:      NewDetector(names, p),
		counters: map[string]int{},
		started:  !p.StartGate,
		tracing:  tracing,
		stats:    Stats{Kinds: map[LineKind]int{}},
	}
	return s
}

func (s *segmenter) step(i int, raw string) {
	line := strings.TrimSpace(raw)
	s.stats.Lines++
	if !s.started {
		if !strings.Contains(line, "FADE IN") && !reSceneHeading.MatchString(line) {
			s.stats.Gated++
			s.record(LineTrace{Index: i, Text: line, Kind: s.cls.Structural(line), State: s.state, Gated: true})
			return
		}
		s.started = true
	}

	kind, cue := s.cls.structural(line)
	rule := ""
	switch {
	case kind == KindCharacterCue:
		s.flush()
		s.speaker = cue
		s.cueLine = i
		s.state = StateCollecting
	case s.state != StateCollecting:
		// outside a turn only cues matter
	case kind == KindNoise:
		if line != "" && s.profile.NoisePolicy == NoiseSkipped {
			break
		}
		s.flush()
		s.speaker = ""
		s.state = StateNoSpeaker
	case kind == KindSceneHeading || kind == KindCameraDirection:
		s.flush()
		s.state = StateInActionBlock
	default:
		var action bool
		rule, action = s.det.Decide(line, s.speaker)
		if action {
			kind = KindAction
			s.flush()
			s.state = StateInActionBlock
		} else {
			s.buffer = append(s.buffer, line)
		}
	}
	s.stats.Kinds[kind]++
	s.record(LineTrace{Index: i, Text: line, Kind: kind, Rule: rule, State: s.state})
}

// flush turns a non-empty buffer into a Turn owned by the current speaker.
func (s *segmenter) flush() {
	if len(s.buffer) == 0 {
		return
	}
	character := s.profile.Aliases.Resolve(s.speaker)
	s.counters[character]++
	s.turns = append(s.turns, Turn{
		Character:  character,
		Cue:        s.speaker,
		Seq:        s.counters[character],
		Text:       strings.TrimSpace(strings.Join(s.buffer, " ")),
		SourceLine: s.cueLine,
	})
	s.buffer = s.buffer[:0]
}

func (s *segmenter) record(t LineTrace) {
	if s.tracing {
		s.trace = append(s.trace, t)
	}
}
