/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"scriptturns/internal/corpus"
	"scriptturns/internal/version"
)

// ErrNoRuns is returned when the index holds no recorded run.
var ErrNoRuns = errors.New("no runs recorded")

// Run describes one batch run stored in the index.
type Run struct {
	ID        string
	Started   time.Time
	Finished  time.Time
	App       string
	Documents int
	Records   int
}

// RecordRun stores run and its records in one transaction. Records counts are
// taken from recs; a run id that already exists is replaced.
func (ix *Index) RecordRun(ctx context.Context, run Run, recs []corpus.Record) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	if run.App == "" {
		run.App = version.String()
	}
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE run_id=?;", run.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("replace run: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO runs(run_id, started_at, finished_at, app, documents, records) VALUES(?,?,?,?,?,?);",
		run.ID, formatTime(run.Started), formatTime(run.Finished), run.App, run.Documents, len(recs),
	); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert run: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, "INSERT INTO speech_acts(run_id, document, character, speech_id, line_index, text) VALUES(?,?,?,?,?,?);")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	for _, r := range recs {
		if _, err := ins.ExecContext(ctx, run.ID, r.Document, r.Character, r.SpeechID, r.LineIndex, r.Text); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert speech act %s: %w", r.CharacterID(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	ix.log.InfoContext(ctx, "run indexed", slog.String("run", run.ID), slog.Int("records", len(recs)))
	return nil
}

// Runs lists recorded runs, newest first.
func (ix *Index) Runs(ctx context.Context) ([]Run, error) {
	rows, err := ix.db.QueryContext(ctx, "SELECT run_id, started_at, finished_at, COALESCE(app,''), documents, records FROM runs ORDER BY started_at DESC, run_id;")
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestRun returns the most recently started run or ErrNoRuns.
func (ix *Index) LatestRun(ctx context.Context) (Run, error) {
	row := ix.db.QueryRowContext(ctx, "SELECT run_id, started_at, finished_at, COALESCE(app,''), documents, records FROM runs ORDER BY started_at DESC, run_id LIMIT 1;")
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNoRuns
	}
	return r, err
}

// RunRecords returns the records of runID in insertion order.
func (ix *Index) RunRecords(ctx context.Context, runID string) ([]corpus.Record, error) {
	rows, err := ix.db.QueryContext(ctx, "SELECT document, character, speech_id, line_index, text FROM speech_acts WHERE run_id=? ORDER BY id;", runID)
	if err != nil {
		return nil, fmt.Errorf("run records: %w", err)
	}
	defer rows.Close()
	var out []corpus.Record
	for rows.Next() {
		var r corpus.Record
		if err := rows.Scan(&r.Document, &r.Character, &r.SpeechID, &r.LineIndex, &r.Text); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its speech acts.
func (ix *Index) DeleteRun(ctx context.Context, runID string) error {
	if _, err := ix.db.ExecContext(ctx, "DELETE FROM runs WHERE run_id=?;", runID); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

// CharacterCount is the number of speech acts one character has in a run.
type CharacterCount struct {
	Character string
	Count     int
}

// CharacterCounts tallies speech acts per character for runID, most frequent first.
func (ix *Index) CharacterCounts(ctx context.Context, runID string) ([]CharacterCount, error) {
	rows, err := ix.db.QueryContext(ctx, "SELECT character, COUNT(*) AS n FROM speech_acts WHERE run_id=? GROUP BY character ORDER BY n DESC, character;", runID)
	if err != nil {
		return nil, fmt.Errorf("character counts: %w", err)
	}
	defer rows.Close()
	var out []CharacterCount
	for rows.Next() {
		var c CharacterCount
		if err := rows.Scan(&c.Character, &c.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// fixed-width so stored timestamps sort lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (Run, error) {
	var r Run
	var started, finished string
	if err := s.Scan(&r.ID, &started, &finished, &r.App, &r.Documents, &r.Records); err != nil {
		return Run{}, err
	}
	r.Started, _ = time.Parse(timeLayout, started)
	r.Finished, _ = time.Parse(timeLayout, finished)
	return r, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}
