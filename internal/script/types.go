/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

// LineKind indicates the kind of a screenplay line.
// Dialogue:        spoken words, also the fallback for anything unresolved
// SceneHeading:    INT./EXT./EST./I/E./TITLE CARD, optionally numbered
// CameraDirection: CAMERA, WE SEE, CUT TO: and friends
// Noise:           blank lines, revision stamps, CONTINUED markers, page numbers
// CharacterCue:    upper-case speaker name on its own line
// Action:          narration or stage direction

type LineKind int

const (
	KindDialogue LineKind = iota
	KindSceneHeading
	KindCameraDirection
	KindNoise
	KindCharacterCue
	KindAction
)

// Kinds lists every LineKind in declaration order.
var Kinds = []LineKind{KindDialogue, KindSceneHeading, KindCameraDirection, KindNoise, KindCharacterCue, KindAction}

func (k LineKind) String() string {
	switch k {
	case KindDialogue:
		return "dialogue"
	case KindSceneHeading:
		return "scene_heading"
	case KindCameraDirection:
		return "camera"
	case KindNoise:
		return "noise"
	case KindCharacterCue:
		return "cue"
	case KindAction:
		return "action"
	default:
		return "unknown"
	}
}

// State is the segmenter state after a line has been handled.
type State int

const (
	StateNoSpeaker State = iota
	StateCollecting
	StateInActionBlock
)

func (s State) String() string {
	switch s {
	case StateNoSpeaker:
		return "no_speaker"
	case StateCollecting:
		return "collecting"
	case StateInActionBlock:
		return "action_block"
	default:
		return "unknown"
	}
}

// Turn is one contiguous block of dialogue attributed to a single speaker.
// Character holds the canonical name (alias-resolved when the profile carries an alias map),
// Cue the raw cue text. Seq is 1-based and scoped to Character.
// SourceLine is the 0-based index of the cue line that opened the turn.
type Turn struct {
	Character  string
	Cue        string
	Seq        int
	Text       string
	SourceLine int
}

// LineTrace captures how a single line was handled during segmentation.
type LineTrace struct {
	Index int
	Text  string
	Kind  LineKind
	Rule  string // action rule that decided the line, empty when the detector was not consulted
	State State
	Gated bool // line preceded the script start marker
}

// Stats summarises one Parse call.
type Stats struct {
	Lines   int
	Gated   int
	Kinds   map[LineKind]int
	Started bool
}

// Result is the outcome of parsing one document.
type Result struct {
	Turns []Turn
	Names []string
	Stats Stats
	Trace []LineTrace
}
