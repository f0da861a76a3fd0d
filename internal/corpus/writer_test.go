/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package corpus

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func sampleRecords() []Record {
	return []Record{
		{Document: "Chamber of Secrets", Character: "DOBBY", SpeechID: 1, Text: "Harry Potter must not go back\tto Hogwarts.", LineIndex: 40},
		{Document: "Chamber of Secrets", Character: "HARRY", SpeechID: 1, Text: "Why?", LineIndex: 43},
		{Document: "Chamber of Secrets", Character: "DOBBY", SpeechID: 2, Text: "There is a plot, \"a plot\".", LineIndex: 45},
	}
}

func TestWriteTSVDefaultHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleRecords(), WriterOptions{}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if lines[0] != "character\tspeech_id\ttext" {
		t.Fatalf("header = %q", lines[0])
	}
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[1] != "DOBBY\t1\tHarry Potter must not go back to Hogwarts." {
		t.Fatalf("tab inside text not replaced: %q", lines[1])
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	cols := []string{ColDocument, ColCharacter, ColSpeechID, ColText, ColLineIndex}
	for _, f := range []Format{FormatTSV, FormatCSV, FormatJSONL} {
		var buf bytes.Buffer
		if err := Write(&buf, sampleRecords(), WriterOptions{Format: f, Columns: cols}); err != nil {
			t.Fatalf("%s: Write: %v", f, err)
		}
		got, err := Read(&buf, f)
		if err != nil {
			t.Fatalf("%s: Read: %v", f, err)
		}
		want := sampleRecords()
		if f != FormatCSV && f != FormatJSONL {
			want[0].Text = "Harry Potter must not go back to Hogwarts."
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: round trip mismatch:\n got %+v\nwant %+v", f, got, want)
		}
	}
}

func TestWriteASCIIOnlyAndCharacterID(t *testing.T) {
	var buf bytes.Buffer
	recs := []Record{{Character: "LUNA", SpeechID: 3, Text: "“Wrackspurts”"}}
	if err := Write(&buf, recs, WriterOptions{Format: FormatCSV, Columns: []string{ColCharacterID, ColText}, ASCIIOnly: true}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := buf.String(); got != "character_id,text\nLUNA_3,Wrackspurts\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestWriteRejectsBadColumns(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil, WriterOptions{Columns: []string{"speaker"}}); err == nil {
		t.Fatalf("expected unknown column error")
	}
	if err := Write(&buf, nil, WriterOptions{Columns: []string{ColText, ColText}}); err == nil {
		t.Fatalf("expected duplicate column error")
	}
}

func TestReadAcceptsMovieColumn(t *testing.T) {
	in := "movie,character,speech_id,text\nGoblet of Fire,CEDRIC,1,Take the cup.\n"
	got, err := Read(strings.NewReader(in), FormatCSV)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 1 || got[0].Document != "Goblet of Fire" || got[0].SpeechID != 1 {
		t.Fatalf("unexpected records %+v", got)
	}
	if _, err := Read(strings.NewReader("character,speech_id\nX,1\n"), FormatCSV); err == nil {
		t.Fatalf("expected missing text column error")
	}
	if _, err := Read(strings.NewReader("text,speech_id\nhi,one\n"), FormatCSV); err == nil {
		t.Fatalf("expected bad speech_id error")
	}
}

func TestReadUnquotedTSV(t *testing.T) {
	in := "movie\tcharacter\tspeech_id\ttext\n" +
		"Order of the Phoenix\tRON\t1\tHe said \"run\" twice\n" +
		"Order of the Phoenix\tLUNA\t1\tThey call me \"Loony\", you know.\n"
	got, err := Read(strings.NewReader(in), FormatTSV)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 || got[0].Text != `He said "run" twice` || got[1].Text != `They call me "Loony", you know.` {
		t.Fatalf("unexpected records %+v", got)
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": FormatTSV, "TSV": FormatTSV, "csv": FormatCSV, " jsonl ": FormatJSONL}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xlsx"); err == nil {
		t.Fatalf("expected error for xlsx")
	}
	if FormatForPath("a/b.CSV") != FormatCSV || FormatForPath("x.jsonl") != FormatJSONL || FormatForPath("x.tsv") != FormatTSV {
		t.Fatalf("FormatForPath mismatch")
	}
}

func TestWriteFileKeepsBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "speech_acts.tsv")
	if err := WriteFile(path, sampleRecords()[:1], WriterOptions{}); err != nil {
		t.Fatalf("first WriteFile: %v", err)
	}
	if err := WriteFile(path, sampleRecords(), WriterOptions{}); err != nil {
		t.Fatalf("second WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	backups, err := os.ReadDir(filepath.Join(dir, BackupsDirName))
	if err != nil || len(backups) != 1 {
		t.Fatalf("expected one backup, got %v (%v)", backups, err)
	}
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}
