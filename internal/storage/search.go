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
	"errors"
	"fmt"
	"strings"

	"scriptturns/internal/corpus"
)

// SearchQuery describes a corpus search.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT).
// Character and Document are exact (case-insensitive) filters.
// RunID selects the run; empty means the latest run.
// Limit/Offset implement pagination; reasonable defaults applied if zero.
type SearchQuery struct {
	Text      string
	Character string
	Document  string
	RunID     string
	Limit     int
	Offset    int
}

// SearchResult is a single matching speech act. Snippet marks matches with
// [ ] when Text was used.
type SearchResult struct {
	ID    int64
	RunID string
	corpus.Record
	Snippet string
}

// Search performs full-text search with optional filters. When q.Text is
// empty it falls back to a plain scan with filters applied.
func (ix *Index) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	if q.RunID == "" {
		run, err := ix.LatestRun(ctx)
		if errors.Is(err, ErrNoRuns) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		q.RunID = run.ID
	}
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT s.id, s.run_id, s.document, s.character, s.speech_id, s.line_index, s.text, snippet(fts_speech_acts, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_speech_acts JOIN speech_acts s ON fts_speech_acts.rowid = s.id\n")
		sb.WriteString("WHERE fts_speech_acts MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT s.id, s.run_id, s.document, s.character, s.speech_id, s.line_index, s.text, ''\n")
		sb.WriteString("FROM speech_acts s\nWHERE 1=1\n")
	}
	sb.WriteString(" AND s.run_id = ?\n")
	args = append(args, q.RunID)
	if c := strings.TrimSpace(q.Character); c != "" {
		sb.WriteString(" AND lower(s.character) = ?\n")
		args = append(args, strings.ToLower(c))
	}
	if d := strings.TrimSpace(q.Document); d != "" {
		sb.WriteString(" AND lower(s.document) = ?\n")
		args = append(args, strings.ToLower(d))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY s.id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := ix.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.ID, &r.RunID, &r.Document, &r.Character, &r.SpeechID, &r.LineIndex, &r.Text, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
