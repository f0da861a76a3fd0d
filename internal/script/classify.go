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
)

var (
	reSceneHeading  = regexp.MustCompile(`^\s*(\d+[A-Z]?\s+)?(INT\.|EXT\.|EST\.|I/E\.|TITLE CARD)`)
	reNoise         = regexp.MustCompile(`Rev\.\s\d+|CONTINUED:|\(CONTINUED\)|FINAL WHITE DRAFT|Warner Bros\.|Screenplay by|Blue Revisions|Pink Revisions|^\d+\.?$`)
	reCamera        = regexp.MustCompile(`^\s*(CAMERA|WE\s+SEE|WE\s+PUSH|WE\s+ZOOM|WE\s+FLY|FADE\s+IN:|CUT\s+TO:|DISSOLVE\s+TO:)`)
	reParenthetical = regexp.MustCompile(`^(.*?)\s*\([^()]*\)$`)
	reRelaxedCue    = regexp.MustCompile(`^[A-Z’.\-']+(?:\s+[A-Z’.\-']+){0,4}$`)
	reStrictCue     = regexp.MustCompile(`^[A-Z .]+$`)
)

// cue text that looks like a name but is a transition or end marker
var cueBlacklist = map[string]struct{}{
	"THE END":  {},
	"FADE OUT": {},
	"CUT TO":   {},
	"DARKNESS": {},
	"FADE IN":  {},
}

var strictBadPrefixes = []string{"INT.", "CONTINUED", "CUT TO", "DISSOLVE TO", "FADE OUT", "FADE IN"}

const (
	strictMaxLen   = 30
	strictMaxWords = 4
)

// Classifier assigns a LineKind to single lines. It is stateless apart from the
// profile and the optional action detector and may be shared by goroutines.
type Classifier struct {
	profile  Profile
	detector *Detector
}

// NewClassifier returns a classifier for the profile. names may be nil, in which
// case Classify never reports KindAction.
func NewClassifier(p Profile, names *NameRegistry) *Classifier {
	c := &Classifier{profile: p}
	if names != nil {
		c.detector = NewDetector(names, p)
	}
	return c
}

// Structural applies scene, noise, camera and cue rules. Lines matching none of
// them are reported as KindDialogue.
func (c *Classifier) Structural(line string) LineKind {
	k, _ := c.structural(line)
	return k
}

// Cue returns the normalised cue text when line is a character cue.
func (c *Classifier) Cue(line string) (string, bool) {
	k, name := c.structural(line)
	return name, k == KindCharacterCue
}

// Classify runs the full cascade, consulting the action detector for lines that
// are not structural. speaker is the currently active raw cue, or "".
func (c *Classifier) Classify(line, speaker string) LineKind {
	k, _ := c.structural(line)
	if k != KindDialogue || c.detector == nil {
		return k
	}
	if c.detector.IsAction(strings.TrimSpace(line), speaker) {
		return KindAction
	}
	return KindDialogue
}

func (c *Classifier) structural(line string) (LineKind, string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return KindNoise, ""
	}
	if reSceneHeading.MatchString(line) {
		return KindSceneHeading, ""
	}
	if c.isNoise(line) {
		return KindNoise, ""
	}
	if reCamera.MatchString(line) {
		return KindCameraDirection, ""
	}
	if name, ok := cueName(line); ok {
		if _, bad := cueBlacklist[name]; bad {
			return KindNoise, ""
		}
		if c.profile.Cue != CueStrict || strictCue(name) {
			return KindCharacterCue, name
		}
	}
	return KindDialogue, ""
}

func (c *Classifier) isNoise(line string) bool {
	if reNoise.MatchString(line) {
		return true
	}
	for _, re := range c.profile.ExtraNoise {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// cueName strips a trailing parenthetical and checks the remaining text against
// the relaxed cue shape. The returned name has its whitespace collapsed.
func cueName(line string) (string, bool) {
	name := line
	if m := reParenthetical.FindStringSubmatch(line); m != nil {
		name = m[1]
	}
	name = strings.Join(strings.Fields(name), " ")
	if name == "" || !reRelaxedCue.MatchString(name) || !hasLetter(name) {
		return "", false
	}
	return name, true
}

func strictCue(name string) bool {
	for _, p := range strictBadPrefixes {
		if strings.HasPrefix(name, p) {
			return false
		}
	}
	if !reStrictCue.MatchString(name) || strings.Contains(name, "...") {
		return false
	}
	if len(name) > strictMaxLen {
		return false
	}
	return len(strings.Fields(name)) <= strictMaxWords
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
