/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"scriptturns/internal/corpus"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(filepath.Join(t.TempDir(), IndexFileName))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func testRecords() []corpus.Record {
	return []corpus.Record{
		{Document: "Order of the Phoenix", Character: "LUNA", SpeechID: 1, Text: "You're just as sane as I am.", LineIndex: 10},
		{Document: "Order of the Phoenix", Character: "HARRY", SpeechID: 1, Text: "Thanks, Luna.", LineIndex: 12},
		{Document: "Half-Blood Prince", Character: "LUNA", SpeechID: 2, Text: "Wrackspurts float in through your ears.", LineIndex: 3},
	}
}

func TestRecordRunAndQuery(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()

	if _, err := ix.LatestRun(ctx); !errors.Is(err, ErrNoRuns) {
		t.Fatalf("expected ErrNoRuns, got %v", err)
	}
	if res, err := ix.Search(ctx, SearchQuery{Text: "luna"}); err != nil || res != nil {
		t.Fatalf("search on empty index: %v %v", res, err)
	}

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := ix.RecordRun(ctx, Run{ID: "run-a", Started: t0, Finished: t0.Add(time.Second), Documents: 2}, testRecords()[:2]); err != nil {
		t.Fatalf("RecordRun a: %v", err)
	}
	if err := ix.RecordRun(ctx, Run{ID: "run-b", Started: t0.Add(time.Hour), Finished: t0.Add(time.Hour + time.Second), Documents: 2}, testRecords()); err != nil {
		t.Fatalf("RecordRun b: %v", err)
	}

	runs, err := ix.Runs(ctx)
	if err != nil || len(runs) != 2 || runs[0].ID != "run-b" || runs[0].Records != 3 || !runs[0].Started.Equal(t0.Add(time.Hour)) {
		t.Fatalf("Runs = %+v, %v", runs, err)
	}
	latest, err := ix.LatestRun(ctx)
	if err != nil || latest.ID != "run-b" || latest.App == "" {
		t.Fatalf("LatestRun = %+v, %v", latest, err)
	}

	recs, err := ix.RunRecords(ctx, "run-b")
	if err != nil || !reflect.DeepEqual(recs, testRecords()) {
		t.Fatalf("RunRecords = %+v, %v", recs, err)
	}

	counts, err := ix.CharacterCounts(ctx, "run-b")
	if err != nil || len(counts) != 2 || counts[0] != (CharacterCount{Character: "LUNA", Count: 2}) {
		t.Fatalf("CharacterCounts = %+v, %v", counts, err)
	}
}

func TestSearch(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()
	if err := ix.RecordRun(ctx, Run{ID: "r1"}, testRecords()); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	res, err := ix.Search(ctx, SearchQuery{Text: "wrackspurts"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].Character != "LUNA" || res[0].RunID != "r1" || !strings.Contains(res[0].Snippet, "[Wrackspurts]") {
		t.Fatalf("unexpected FTS result %+v", res)
	}

	res, err = ix.Search(ctx, SearchQuery{Character: "luna"})
	if err != nil || len(res) != 2 || res[0].Snippet != "" {
		t.Fatalf("character filter: %+v, %v", res, err)
	}

	res, err = ix.Search(ctx, SearchQuery{Character: "LUNA", Document: "half-blood prince"})
	if err != nil || len(res) != 1 || res[0].SpeechID != 2 {
		t.Fatalf("document filter: %+v, %v", res, err)
	}

	res, err = ix.Search(ctx, SearchQuery{Limit: 1, Offset: 1})
	if err != nil || len(res) != 1 || res[0].Character != "HARRY" {
		t.Fatalf("pagination: %+v, %v", res, err)
	}
}

func TestRecordRunReplacesAndDeleteCascades(t *testing.T) {
	ix := openTestIndex(t)
	ctx := context.Background()
	if err := ix.RecordRun(ctx, Run{ID: "r1"}, testRecords()); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if err := ix.RecordRun(ctx, Run{ID: "r1"}, testRecords()[:1]); err != nil {
		t.Fatalf("RecordRun replace: %v", err)
	}
	recs, err := ix.RunRecords(ctx, "r1")
	if err != nil || len(recs) != 1 {
		t.Fatalf("replace did not drop old rows: %+v, %v", recs, err)
	}
	if res, _ := ix.Search(ctx, SearchQuery{Text: "wrackspurts", RunID: "r1"}); len(res) != 0 {
		t.Fatalf("FTS still returns replaced rows: %+v", res)
	}
	if err := ix.DeleteRun(ctx, "r1"); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	if recs, _ := ix.RunRecords(ctx, "r1"); len(recs) != 0 {
		t.Fatalf("speech acts survived run deletion: %+v", recs)
	}
	if err := ix.RecordRun(ctx, Run{}, nil); err == nil {
		t.Fatalf("expected error for empty run id")
	}
}

func TestOpenOrRebuild_OnCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, IndexFileName)
	if err := os.WriteFile(path, []byte("THIS IS NOT SQLITE, JUST SOME BYTES THAT ARE LONG ENOUGH"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ix, rebuilt, err := OpenOrRebuild(ctx, path)
	if err != nil {
		t.Fatalf("OpenOrRebuild: %v", err)
	}
	defer ix.Close()
	if !rebuilt {
		t.Fatalf("expected rebuild to occur")
	}
	if err := ix.RecordRun(ctx, Run{ID: "after"}, testRecords()); err != nil {
		t.Fatalf("rebuilt index unusable: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(dir, BackupsDirName))
	if len(entries) == 0 {
		t.Fatalf("expected backup file")
	}

	ix2, rebuilt, err := OpenOrRebuild(ctx, filepath.Join(dir, "healthy.sqlite"))
	if err != nil || rebuilt {
		t.Fatalf("healthy index rebuilt=%v err=%v", rebuilt, err)
	}
	_ = ix2.Close()
}
