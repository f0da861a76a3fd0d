/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"scriptturns/internal/config"
	"scriptturns/internal/corpus"
	applog "scriptturns/internal/log"
	"scriptturns/internal/source"
	"scriptturns/internal/storage"
	"scriptturns/internal/telemetry"
	"scriptturns/internal/version"
)

// LockFileName is the lock held in the output directory during a batch.
const LockFileName = ".scriptturns.lock"

// ErrLocked is returned when another batch holds the output directory.
var ErrLocked = errors.New("output directory is locked by another run")

// Plan resolves the documents of a batch. With only set, just those names are
// planned; a name that is not configured gets the default profile. With no
// configured documents every .txt file in dir is planned.
func Plan(cfg config.AppConfig, dir source.Dir, only []string) ([]Document, error) {
	configured := cfg.Documents
	if len(configured) == 0 && len(only) == 0 {
		names, err := dir.List()
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			configured = append(configured, config.DocumentConfig{Name: n})
		}
	}
	if len(only) > 0 {
		byName := make(map[string]config.DocumentConfig, len(configured))
		for _, d := range configured {
			byName[strings.ToLower(d.Name)] = d
		}
		picked := make([]config.DocumentConfig, 0, len(only))
		for _, n := range only {
			if d, ok := byName[strings.ToLower(n)]; ok {
				picked = append(picked, d)
				continue
			}
			picked = append(picked, config.DocumentConfig{Name: n})
		}
		configured = picked
	}

	docs := make([]Document, 0, len(configured))
	for _, d := range configured {
		p, err := cfg.Profile(d.ProfileName())
		if err != nil {
			return nil, fmt.Errorf("document %q: %w", d.Name, err)
		}
		docs = append(docs, Document{Name: d.Name, Match: d.MatchText(), ProfileName: d.ProfileName(), Profile: p})
	}
	return docs, nil
}

// LockOutput takes an exclusive lock on dir, creating it when needed.
func LockOutput(dir string) (*flock.Flock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	lock := flock.New(filepath.Join(dir, LockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return lock, nil
}

// Batch plans, runs and writes a corpus as configured by cfg. The run is
// recorded in the local index when the index is enabled.
func Batch(ctx context.Context, cfg config.AppConfig, only []string, metrics *telemetry.Metrics) (Report, error) {
	logger := applog.WithOperation(applog.WithComponent("pipeline"), "batch")
	docs, err := Plan(cfg, source.Dir{Root: cfg.Corpus.InputDir}, only)
	if err != nil {
		return Report{}, err
	}
	format, err := corpus.ParseFormat(cfg.Corpus.Format)
	if err != nil {
		return Report{}, err
	}
	outPath := cfg.OutputPath()
	lock, err := LockOutput(filepath.Dir(outPath))
	if err != nil {
		return Report{}, err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release output lock", slog.Any("err", err))
		}
	}()

	opts := Options{
		Provider:    source.Dir{Root: cfg.Corpus.InputDir},
		Documents:   docs,
		Concurrency: cfg.Corpus.Concurrency,
		Characters:  cfg.Corpus.Characters,
		Metrics:     metrics,
		Logger:      logger,
	}
	if cfg.Filter.Enabled {
		opts.Filter = corpus.NewTrivialFilter(cfg.Filter.MinWords, cfg.Filter.Terms)
	}
	rep, err := Run(ctx, opts)
	if err != nil {
		return Report{}, err
	}
	recs := rep.Records()
	wo := corpus.WriterOptions{Format: format, Columns: cfg.Corpus.Columns, ASCIIOnly: cfg.Corpus.ASCIIOnly}
	if err := corpus.WriteFile(outPath, recs, wo); err != nil {
		return Report{}, fmt.Errorf("write corpus: %w", err)
	}
	logger.InfoContext(ctx, "corpus written", slog.String("path", outPath), slog.Int("records", len(recs)))

	if cfg.Index.Enabled {
		if err := recordRun(ctx, cfg.IndexPath(), rep); err != nil {
			return rep, err
		}
	}
	telemetry.RunCompleted(rep.Summary(string(format), opts.Concurrency, cfg.Index.Enabled))
	return rep, nil
}

func recordRun(ctx context.Context, path string, rep Report) error {
	ix, _, err := storage.OpenOrRebuild(ctx, path)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer func() { _ = ix.Close() }()
	run := storage.Run{
		ID:        rep.RunID,
		Started:   rep.Started,
		Finished:  rep.Finished,
		App:       version.String(),
		Documents: len(rep.Documents),
	}
	if err := ix.RecordRun(ctx, run, rep.Records()); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}
