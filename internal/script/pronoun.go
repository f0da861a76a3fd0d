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
)

var reWordToken = regexp.MustCompile(`[A-Za-z']+`)

// Contractions appear without apostrophes ("im", "youre") because OCR output
// frequently drops them.
var firstSecondPerson = map[string]struct{}{
	"i": {}, "im": {}, "ive": {}, "id": {}, "we": {}, "were": {}, "you": {},
	"youre": {}, "youll": {}, "youve": {}, "us": {}, "my": {}, "our": {},
}

var thirdPerson = map[string]struct{}{
	"he": {}, "she": {}, "they": {}, "him": {}, "her": {}, "them": {},
	"his": {}, "hers": {}, "their": {}, "theirs": {},
}

// FirstOrSecondPerson reports whether line contains a first- or second-person pronoun.
func FirstOrSecondPerson(line string) bool {
	first, _ := pronounSignals(line)
	return first
}

// ThirdPersonOnly reports whether line contains a third-person pronoun and no
// first- or second-person pronoun.
func ThirdPersonOnly(line string) bool {
	first, third := pronounSignals(line)
	return third && !first
}

func pronounSignals(line string) (first, third bool) {
	for _, tok := range reWordToken.FindAllString(line, -1) {
		tok = strings.ToLower(tok)
		if _, ok := firstSecondPerson[tok]; ok {
			first = true
		}
		if _, ok := thirdPerson[tok]; ok {
			third = true
		}
	}
	return first, third
}
