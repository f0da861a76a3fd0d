/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"scriptturns/internal/script"
)

// first names that, at the start of a dialogue line, usually open narration
var defaultWatchNames = []string{
	"Harry", "Ron", "Hermione", "Snape", "Dumbledore", "Voldemort",
	"Hagrid", "Draco", "Ginny", "Arthur", "Molly", "Bellatrix",
	"Lucius", "Sirius", "Lupin", "Fred", "George", "Neville", "Luna",
}

var defaultAliases = map[string]string{
	"SEVERUS SNAPE":        "SNAPE",
	"PROFESSOR SNAPE":      "SNAPE",
	"SEVERUS":              "SNAPE",
	"YOUNG SEVERUS":        "SNAPE",
	"RON WEASLEY":          "RON",
	"HERMIONE GRANGER":     "HERMIONE",
	"ALBUS DUMBLEDORE":     "DUMBLEDORE",
	"PROFESSOR DUMBLEDORE": "DUMBLEDORE",
	"HEADMASTER":           "DUMBLEDORE",
	"ALBUS":                "DUMBLEDORE",
}

// spells and key names that make even a one-word line worth keeping
var defaultTerms = []string{
	"obliviate", "expelliarmus", "lumos", "nox", "stupefy",
	"crucio", "imperio", "avadakedavra", "avada", "kedavra",
	"expectopatronum", "expecto", "patronum", "protego",
	"harry", "ron", "hermione",
	"dumbledore", "voldemort", "snape", "ginny", "draco",
	"sirius", "lupin", "hagrid", "mcgonagall", "bellatrix",
	"weasley", "malfoy", "neville", "luna",
	"hogwarts", "ministry", "azkaban", "order", "phoenix",
	"deathly", "hallows", "horcrux", "horcruxes",
	"dementor", "dementors", "muggle", "muggles",
	"auror", "aurors", "deatheater", "deatheaters",
	"wand", "wands", "gryffindor", "slytherin", "hufflepuff", "ravenclaw",
}

// Build turns the configured knobs into an engine profile.
func (pc ProfileConfig) Build(name string) (script.Profile, error) {
	cue, err := script.ParseCuePattern(strings.ToLower(strings.TrimSpace(pc.Cue)))
	if err != nil {
		return script.Profile{}, fmt.Errorf("profile %s: %w", name, err)
	}
	noise, err := script.ParseNoisePolicy(strings.ToLower(strings.TrimSpace(pc.NoisePolicy)))
	if err != nil {
		return script.Profile{}, fmt.Errorf("profile %s: %w", name, err)
	}
	p := script.Profile{
		Name:        name,
		Cue:         cue,
		StartGate:   pc.StartGate,
		WatchNames:  append([]string(nil), pc.WatchNames...),
		NoisePolicy: noise,
	}
	for _, expr := range pc.ExtraNoise {
		re, err := regexp.Compile(expr)
		if err != nil {
			return script.Profile{}, fmt.Errorf("profile %s: extra noise %q: %w", name, expr, err)
		}
		p.ExtraNoise = append(p.ExtraNoise, re)
	}
	if len(pc.Aliases) > 0 {
		var opts []script.AliasOption
		if pc.FuzzyAliases {
			opts = append(opts, script.WithFuzzy(pc.FuzzyThreshold))
		}
		p.Aliases = script.NewAliasMap(pc.Aliases, opts...)
	}
	return p, nil
}

// Profile builds the named profile.
func (c AppConfig) Profile(name string) (script.Profile, error) {
	pc, ok := c.Profiles[name]
	if !ok {
		return script.Profile{}, fmt.Errorf("unknown profile %q (have %s)", name, strings.Join(c.ProfileNames(), ", "))
	}
	return pc.Build(name)
}

// ProfileNames lists configured profiles in sorted order.
func (c AppConfig) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for n := range c.Profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ProfileName returns the profile name for d, defaulting to "strict".
func (d DocumentConfig) ProfileName() string {
	if p := strings.TrimSpace(d.Profile); p != "" {
		return p
	}
	return "strict"
}

// MatchText is the file name fragment used to locate the document.
func (d DocumentConfig) MatchText() string {
	if m := strings.TrimSpace(d.Match); m != "" {
		return m
	}
	return d.Name
}

// Validate checks cross-field constraints that the decoders cannot express.
func (c AppConfig) Validate() error {
	var errs []error
	for _, name := range c.ProfileNames() {
		if _, err := c.Profiles[name].Build(name); err != nil {
			errs = append(errs, err)
		}
	}
	seen := map[string]bool{}
	for i, d := range c.Documents {
		if strings.TrimSpace(d.Name) == "" {
			errs = append(errs, fmt.Errorf("documents[%d]: name is required", i))
			continue
		}
		if seen[d.Name] {
			errs = append(errs, fmt.Errorf("documents[%d]: duplicate name %q", i, d.Name))
		}
		seen[d.Name] = true
		if _, ok := c.Profiles[d.ProfileName()]; !ok {
			errs = append(errs, fmt.Errorf("documents[%d]: unknown profile %q", i, d.ProfileName()))
		}
	}
	switch c.Corpus.Format {
	case "tsv", "csv", "jsonl":
	default:
		errs = append(errs, fmt.Errorf("corpus.format: unsupported %q", c.Corpus.Format))
	}
	switch c.Sampling.GroupBy {
	case "document", "character":
	default:
		errs = append(errs, fmt.Errorf("sampling.group_by: unsupported %q", c.Sampling.GroupBy))
	}
	if c.Corpus.Concurrency < 1 {
		errs = append(errs, errors.New("corpus.concurrency must be at least 1"))
	}
	return errors.Join(errs...)
}
