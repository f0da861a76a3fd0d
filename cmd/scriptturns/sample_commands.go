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
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"scriptturns/internal/corpus"
	"scriptturns/internal/export"
)

func newSampleCommand(cc *commandContext) *cobra.Command {
	var (
		inPath       string
		outPath      string
		pdfPath      string
		target       int
		seed         uint64
		groupBy      string
		perCharacter bool
	)
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Draw a stratified annotation dataset from a corpus file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			if inPath == "" {
				inPath = cfg.OutputPath()
			}
			if outPath == "" {
				outPath = filepath.Join(cfg.Corpus.OutputDir, cfg.Sampling.Output)
			}
			if !cmd.Flags().Changed("target") {
				target = cfg.Sampling.Target
			}
			if !cmd.Flags().Changed("seed") {
				seed = cfg.Sampling.Seed
			}
			if groupBy == "" {
				groupBy = cfg.Sampling.GroupBy
			}
			key, err := corpus.KeyFor(groupBy)
			if err != nil {
				return err
			}
			recs, err := corpus.ReadFile(inPath)
			if err != nil {
				return err
			}
			rng := corpus.NewRand(seed)
			var picked []corpus.Record
			if perCharacter {
				picked = corpus.SamplePerCharacter(recs, target, key, rng)
			} else {
				picked = corpus.StratifiedSample(recs, target, key, rng)
			}
			anns := corpus.NewAnnotations(picked)
			if err := corpus.WriteAnnotationsFile(outPath, anns); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Sampled %d of %d speech acts into %s\n", len(anns), len(recs), outPath)
			if pdfPath != "" {
				if err := export.AnnotationPDF(anns, pdfPath, export.PDFOptions{Title: "Annotation sheet: " + filepath.Base(outPath)}); err != nil {
					return err
				}
				fmt.Fprintf(out, "Annotation sheet written to %s\n", pdfPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&inPath, "in", "i", "", "Corpus file to sample from (default: batch output)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Annotation CSV to write")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "Also render a printable annotation sheet")
	cmd.Flags().IntVarP(&target, "target", "n", 0, "Number of speech acts to sample")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed")
	cmd.Flags().StringVar(&groupBy, "group-by", "", "Stratify by document or character")
	cmd.Flags().BoolVar(&perCharacter, "per-character", false, "Sample every character separately with the same target")
	return cmd
}

func newLabelsCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "labels <annotation.csv>",
		Short: "Count the labels of an annotated dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			anns, err := corpus.ReadAnnotationsFile(args[0], cfg.Annotation.LabelFixes)
			if err != nil {
				return err
			}
			counts := corpus.LabelCounts(anns)
			labels := make([]string, 0, len(counts))
			for l := range counts {
				labels = append(labels, l)
			}
			sort.Strings(labels)
			rows := make([][]string, 0, len(labels)+1)
			for _, l := range labels {
				name := l
				if name == "" {
					name = "(unlabelled)"
				}
				rows = append(rows, []string{name, itoa(counts[l])})
			}
			rows = append(rows, []string{"total", itoa(len(anns))})
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Label", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}
