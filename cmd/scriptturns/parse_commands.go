/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"scriptturns/internal/config"
	"scriptturns/internal/corpus"
	applog "scriptturns/internal/log"
	"scriptturns/internal/script"
	"scriptturns/internal/source"
)

// profileFor picks the profile named by flag, else the one configured for
// document, else "strict".
func profileFor(cfg config.AppConfig, flag, document string) (string, script.Profile, error) {
	name := strings.TrimSpace(flag)
	if name == "" {
		name = "strict"
		for _, d := range cfg.Documents {
			if strings.EqualFold(d.Name, document) || strings.Contains(strings.ToLower(document), strings.ToLower(d.MatchText())) {
				name = d.ProfileName()
				break
			}
		}
	}
	p, err := cfg.Profile(name)
	return name, p, err
}

func newParseCommand(cc *commandContext) *cobra.Command {
	var (
		profileFlag string
		document    string
		formatFlag  string
		outPath     string
		columns     []string
		characters  []string
		filter      bool
		asciiOnly   bool
	)
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Segment one screenplay and write its speech acts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			lines, err := source.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			if document == "" {
				document = source.DocumentName(args[0])
			}
			name, profile, err := profileFor(cfg, profileFlag, document)
			if err != nil {
				return err
			}
			res := script.Parse(lines, profile)

			recs := corpus.FromTurns(document, res.Turns)
			if len(characters) == 0 {
				characters = cfg.Corpus.Characters
			}
			recs = corpus.FilterCharacters(recs, characters)
			if filter || cfg.Filter.Enabled {
				recs = corpus.NewTrivialFilter(cfg.Filter.MinWords, cfg.Filter.Terms).Apply(recs)
			}

			if formatFlag == "" {
				formatFlag = cfg.Corpus.Format
				if outPath != "" {
					formatFlag = string(corpus.FormatForPath(outPath))
				}
			}
			format, err := corpus.ParseFormat(formatFlag)
			if err != nil {
				return err
			}
			if len(columns) == 0 {
				columns = cfg.Corpus.Columns
			}
			opts := corpus.WriterOptions{Format: format, Columns: columns, ASCIIOnly: asciiOnly || cfg.Corpus.ASCIIOnly}
			applog.WithComponent("cli").Info("parsed",
				slog.String("doc", document),
				slog.String("profile", name),
				slog.Int("lines", res.Stats.Lines),
				slog.Int("turns", len(res.Turns)),
				slog.Int("records", len(recs)),
			)
			switch {
			case !res.Stats.Started:
				applog.WithComponent("cli").Warn("start marker not found", slog.String("doc", document), slog.Int("names", len(res.Names)))
			case res.Stats.Kinds[script.KindCharacterCue] == 0:
				applog.WithComponent("cli").Warn("no cues detected", slog.String("doc", document))
			}
			if outPath == "" {
				return corpus.Write(cmd.OutOrStdout(), recs, opts)
			}
			return corpus.WriteFile(outPath, recs, opts)
		},
	}
	cmd.Flags().StringVarP(&profileFlag, "profile", "p", "", "Profile name (default: configured for the document, else strict)")
	cmd.Flags().StringVar(&document, "document", "", "Document name recorded on every speech act (default: file name)")
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Output format: tsv, csv or jsonl")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Columns for tsv/csv output")
	cmd.Flags().StringSliceVar(&characters, "characters", nil, "Keep only these characters")
	cmd.Flags().BoolVar(&filter, "non-trivial", false, "Drop trivial speech acts")
	cmd.Flags().BoolVar(&asciiOnly, "ascii", false, "Strip non-ASCII characters from text cells")
	return cmd
}

func newClassifyCommand(cc *commandContext) *cobra.Command {
	var (
		profileFlag string
		width       int
		kinds       []string
	)
	cmd := &cobra.Command{
		Use:   "classify <file>",
		Short: "Show how every line of a screenplay was classified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			lines, err := source.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			_, profile, err := profileFor(cfg, profileFlag, source.DocumentName(args[0]))
			if err != nil {
				return err
			}
			res := script.Parse(lines, profile, script.WithTrace())
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderTrace(res.Trace, kinds, width))
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderKindSummary(res))
			return nil
		},
	}
	cmd.Flags().StringVarP(&profileFlag, "profile", "p", "", "Profile name")
	cmd.Flags().IntVar(&width, "width", 60, "Truncate line text to this many characters (0 keeps everything)")
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "Only show lines of these kinds (dialogue, cue, action, noise, scene_heading, camera)")
	return cmd
}

func renderTrace(trace []script.LineTrace, kinds []string, width int) string {
	keep := map[string]bool{}
	for _, k := range kinds {
		keep[strings.ToLower(strings.TrimSpace(k))] = true
	}
	rows := make([][]string, 0, len(trace))
	for _, tl := range trace {
		if len(keep) > 0 && !keep[tl.Kind.String()] {
			continue
		}
		gate := ""
		if tl.Gated {
			gate = "gated"
		}
		rows = append(rows, []string{itoa(tl.Index), tl.Kind.String(), tl.Rule, tl.State.String(), gate, truncate(tl.Text, width)})
	}
	return renderTable([]string{"#", "Kind", "Rule", "State", "Gate", "Text"}, rows, []columnAlignment{alignRight})
}

func renderKindSummary(res script.Result) string {
	rows := make([][]string, 0, len(script.Kinds)+2)
	for _, k := range script.Kinds {
		rows = append(rows, []string{k.String(), itoa(res.Stats.Kinds[k])})
	}
	rows = append(rows, []string{"gated", itoa(res.Stats.Gated)}, []string{"turns", itoa(len(res.Turns))})
	return renderTable([]string{"Lines", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
}
