/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"scriptturns/internal/storage"
)

// Search runs a full-text query over published speech acts. Text is parsed
// with plainto_tsquery; Character and Document are case-insensitive exact
// filters. An empty RunID searches every published run.
func (p *Publisher) Search(ctx context.Context, q storage.SearchQuery) ([]storage.SearchResult, error) {
	var args []any
	place := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	var sb strings.Builder
	if t := strings.TrimSpace(q.Text); t != "" {
		ph := place(t)
		sb.WriteString("SELECT id, run_id, document, character, speech_id, line_index, text, ")
		sb.WriteString("ts_headline('simple', text, plainto_tsquery('simple', " + ph + "), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=10, MinWords=3')\n")
		sb.WriteString("FROM speech_acts\nWHERE search_vector @@ plainto_tsquery('simple', " + ph + ")\n")
	} else {
		sb.WriteString("SELECT id, run_id, document, character, speech_id, line_index, text, ''\nFROM speech_acts\nWHERE TRUE\n")
	}
	if q.RunID != "" {
		sb.WriteString(" AND run_id = " + place(q.RunID) + "\n")
	}
	if c := strings.TrimSpace(q.Character); c != "" {
		sb.WriteString(" AND lower(character) = " + place(strings.ToLower(c)) + "\n")
	}
	if d := strings.TrimSpace(q.Document); d != "" {
		sb.WriteString(" AND lower(document) = " + place(strings.ToLower(d)) + "\n")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := max(q.Offset, 0)
	sb.WriteString("ORDER BY id\n")
	sb.WriteString("LIMIT " + place(limit) + " OFFSET " + place(offset))

	rows, err := p.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []storage.SearchResult
	for rows.Next() {
		var r storage.SearchResult
		if err := rows.Scan(&r.ID, &r.RunID, &r.Document, &r.Character, &r.SpeechID, &r.LineIndex, &r.Text, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
