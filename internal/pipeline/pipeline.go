/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pipeline runs the segmenter over a batch of documents and turns the
// result into a corpus of speech acts.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"scriptturns/internal/corpus"
	applog "scriptturns/internal/log"
	"scriptturns/internal/script"
	"scriptturns/internal/source"
	"scriptturns/internal/telemetry"
)

// Document is one screenplay of a batch.
type Document struct {
	Name        string
	Match       string // file name fragment; Name when empty
	ProfileName string
	Profile     script.Profile
}

func (d Document) match() string {
	if d.Match != "" {
		return d.Match
	}
	return d.Name
}

// Options configure Run.
type Options struct {
	Provider    source.Provider
	Documents   []Document
	Concurrency int
	// Characters keeps only these speakers; empty keeps everyone.
	Characters []string
	// Filter drops trivial speech acts when set.
	Filter  *corpus.TrivialFilter
	Metrics *telemetry.Metrics
	Logger  *slog.Logger
	// RunID identifies the run in logs and the index; generated when empty.
	RunID string
}

// DocumentResult is the outcome for one document. Missing is set when the
// provider could not find it; Records is empty then.
type DocumentResult struct {
	Document Document
	Missing  bool
	Stats    script.Stats
	Turns    int
	Records  []corpus.Record
	Elapsed  time.Duration
}

// Gated reports whether the document never reached its start marker, so
// every line was skipped before segmentation.
func (d DocumentResult) Gated() bool {
	return !d.Missing && !d.Stats.Started
}

// Report is the outcome of a run, with documents in configured order.
type Report struct {
	RunID     string
	Started   time.Time
	Finished  time.Time
	Documents []DocumentResult
}

// Records concatenates the records of every document in order.
func (r Report) Records() []corpus.Record {
	var out []corpus.Record
	for _, d := range r.Documents {
		out = append(out, d.Records...)
	}
	return out
}

// Totals summarises a report.
type Totals struct {
	Documents int
	Missing   int
	NoCues    int
	Gated     int
	Lines     int
	Cues      int
	Turns     int
	Records   int
}

func (r Report) Totals() Totals {
	var t Totals
	for _, d := range r.Documents {
		t.Documents++
		if d.Missing {
			t.Missing++
			continue
		}
		cues := d.Stats.Kinds[script.KindCharacterCue]
		switch {
		case d.Gated():
			t.Gated++
		case cues == 0:
			t.NoCues++
		}
		t.Lines += d.Stats.Lines
		t.Cues += cues
		t.Turns += d.Turns
		t.Records += len(d.Records)
	}
	return t
}

// Summary condenses the report into the anonymous telemetry payload.
func (r Report) Summary(format string, concurrency int, indexed bool) telemetry.RunSummary {
	t := r.Totals()
	seen := map[string]bool{}
	var profiles []string
	for _, d := range r.Documents {
		if name := d.Document.ProfileName; name != "" && !seen[name] {
			seen[name] = true
			profiles = append(profiles, name)
		}
	}
	slices.Sort(profiles)
	return telemetry.RunSummary{
		RunID:       r.RunID,
		Documents:   t.Documents,
		Missing:     t.Missing,
		NoCues:      t.NoCues,
		Gated:       t.Gated,
		Lines:       t.Lines,
		Cues:        t.Cues,
		Turns:       t.Turns,
		Records:     t.Records,
		Format:      format,
		Profiles:    profiles,
		Concurrency: max(concurrency, 1),
		Indexed:     indexed,
		ElapsedMs:   r.Finished.Sub(r.Started).Milliseconds(),
	}
}

// Run parses every document concurrently. A missing document is logged and
// skipped; any other provider error aborts the run.
func Run(ctx context.Context, opts Options) (Report, error) {
	if opts.Provider == nil {
		return Report{}, errors.New("pipeline: provider is required")
	}
	rep := Report{RunID: opts.RunID, Started: time.Now().UTC()}
	if rep.RunID == "" {
		rep.RunID = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.WithComponent("pipeline")
	}
	ctx = applog.ContextWithRun(ctx, rep.RunID)
	logger.InfoContext(ctx, "run started", slog.Int("documents", len(opts.Documents)))

	results := make([]DocumentResult, len(opts.Documents))
	g, gctx := errgroup.WithContext(ctx)
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, doc := range opts.Documents {
		g.Go(func() error {
			res, err := runDocument(applog.ContextWithDocument(gctx, doc.Name), doc, opts, logger)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}
	rep.Documents = results
	rep.Finished = time.Now().UTC()
	t := rep.Totals()
	logger.InfoContext(ctx, "run finished",
		slog.Int("documents", t.Documents),
		slog.Int("missing", t.Missing),
		slog.Int("turns", t.Turns),
		slog.Int("records", t.Records),
		slog.Duration("elapsed", rep.Finished.Sub(rep.Started)),
	)
	return rep, nil
}

func runDocument(ctx context.Context, doc Document, opts Options, logger *slog.Logger) (DocumentResult, error) {
	out := DocumentResult{Document: doc}
	lines, err := opts.Provider.Lines(ctx, doc.match())
	if errors.Is(err, source.ErrNotFound) {
		logger.WarnContext(ctx, "could not find document", slog.String("match", doc.match()))
		opts.Metrics.DocumentStatus(ctx, telemetry.StatusMissing)
		out.Missing = true
		return out, nil
	}
	if err != nil {
		opts.Metrics.DocumentStatus(ctx, telemetry.StatusFailed)
		return out, fmt.Errorf("read %s: %w", doc.Name, err)
	}

	start := time.Now()
	res := script.Parse(lines, doc.Profile)
	out.Elapsed = time.Since(start)
	opts.Metrics.RecordDocument(ctx, doc.Name, res, out.Elapsed)

	out.Stats = res.Stats
	out.Turns = len(res.Turns)
	switch {
	case !res.Stats.Started:
		logger.WarnContext(ctx, "start marker not found",
			slog.Int("gated", res.Stats.Gated),
			slog.Int("names", len(res.Names)),
		)
	case res.Stats.Kinds[script.KindCharacterCue] == 0:
		logger.WarnContext(ctx, "no cues detected", slog.Int("lines", res.Stats.Lines))
	}
	recs := corpus.FromTurns(doc.Name, res.Turns)
	recs = corpus.FilterCharacters(recs, opts.Characters)
	if opts.Filter != nil {
		recs = opts.Filter.Apply(recs)
	}
	out.Records = recs
	logger.DebugContext(ctx, "document parsed",
		slog.String("profile", doc.ProfileName),
		slog.Int("lines", res.Stats.Lines),
		slog.Int("turns", len(res.Turns)),
		slog.Int("records", len(recs)),
	)
	return out, nil
}
