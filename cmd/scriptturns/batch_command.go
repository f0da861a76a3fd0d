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
	"strconv"

	"github.com/spf13/cobra"

	"scriptturns/internal/pipeline"
	"scriptturns/internal/script"
	"scriptturns/internal/telemetry"
)

func newBatchCommand(cc *commandContext) *cobra.Command {
	var (
		index       bool
		concurrency int
		metrics     bool
	)
	cmd := &cobra.Command{
		Use:   "batch [document...]",
		Short: "Segment every configured document and write the corpus",
		Long: "Segments the configured documents (or every .txt file in the input directory when none are\n" +
			"configured) and writes one corpus file. Naming documents restricts the batch to them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.ensureConfig()
			if err != nil {
				return err
			}
			if index {
				cfg.Index.Enabled = true
			}
			if concurrency > 0 {
				cfg.Corpus.Concurrency = concurrency
			}
			provider, reader := telemetry.NewManualProvider()
			defer func() { _ = provider.Shutdown(cmd.Context()) }()
			m, err := telemetry.NewMetrics(provider)
			if err != nil {
				return err
			}
			rep, err := pipeline.Batch(cmd.Context(), cfg, args, m)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderReport(rep))
			if metrics {
				samples, err := telemetry.Snapshot(cmd.Context(), reader)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderSamples(samples))
			}
			t := rep.Totals()
			fmt.Fprintf(out, "Wrote %d speech acts to %s (run %s)\n", t.Records, cfg.OutputPath(), rep.RunID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&index, "index", false, "Record the run in the local search index")
	cmd.Flags().IntVarP(&concurrency, "jobs", "j", 0, "Documents parsed in parallel (default: configured)")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "Print the collected metrics")
	return cmd
}

func renderReport(rep pipeline.Report) string {
	rows := make([][]string, 0, len(rep.Documents)+1)
	for _, d := range rep.Documents {
		if d.Missing {
			rows = append(rows, []string{d.Document.Name, d.Document.ProfileName, "missing", "", "", "", ""})
			continue
		}
		status := "ok"
		switch {
		case d.Gated():
			status = "no start marker"
		case d.Stats.Kinds[script.KindCharacterCue] == 0:
			status = "no cues"
		}
		rows = append(rows, []string{
			d.Document.Name, d.Document.ProfileName, status,
			itoa(d.Stats.Lines), itoa(d.Stats.Kinds[script.KindCharacterCue]), itoa(d.Turns), itoa(len(d.Records)),
		})
	}
	t := rep.Totals()
	rows = append(rows, []string{"total", "", itoa(t.Documents - t.Missing) + "/" + itoa(t.Documents), itoa(t.Lines), itoa(t.Cues), itoa(t.Turns), itoa(t.Records)})
	return renderTable(
		[]string{"Document", "Profile", "Status", "Lines", "Cues", "Turns", "Records"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
}

func renderSamples(samples []telemetry.Sample) string {
	rows := make([][]string, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, []string{s.Name, s.Attrs, strconv.FormatInt(s.Value, 10)})
	}
	return renderTable([]string{"Metric", "Attributes", "Value"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight})
}
