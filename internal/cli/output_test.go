package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/notionrag/internal/indexer"
	"github.com/hyperjump/notionrag/internal/models"
	"github.com/hyperjump/notionrag/internal/rag"
	"github.com/hyperjump/notionrag/internal/search"
)

func TestWriteAnswer_debug(t *testing.T) {
	a := models.Answer{
		Question: "q",
		Text:     "Sessions are 45 minutes.",
		Chunks: []models.RetrievedChunk{
			{Content: "short chunk"},
			{Content: strings.Repeat("x", 250)},
		},
	}
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, a, true, 200, OutputText); err != nil {
		t.Fatal(err)
	}
	want := "--- Retrieved chunks ---\n\n[1] short chunk\n\n\n[2] " + strings.Repeat("x", 200) + "...\n\n--- Answer ---\n\nSessions are 45 minutes.\n"
	if buf.String() != want {
		t.Errorf("got:\n%q\nwant:\n%q", buf.String(), want)
	}
}

func TestWriteAnswer_plain(t *testing.T) {
	var buf bytes.Buffer
	a := models.Answer{Text: "hello", Chunks: []models.RetrievedChunk{{Content: "c"}}}
	if err := WriteAnswer(&buf, a, false, 200, OutputText); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "hello\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteAnswer_JSON(t *testing.T) {
	var buf bytes.Buffer
	a := models.Answer{Question: "q", Text: "hello", Chunks: []models.RetrievedChunk{{ChunkID: "c1"}}}
	if err := WriteAnswer(&buf, a, false, 200, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.Answer
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Text != "hello" || len(decoded.Chunks) != 0 {
		t.Errorf("decoded: %+v", decoded)
	}
}

func TestWriteExplore(t *testing.T) {
	docs := make([]models.Document, 30)
	for i := range docs {
		docs[i] = models.Document{ID: fmt.Sprint(i), Title: fmt.Sprintf("Note %d", i), Content: "line one\nline two"}
	}
	docs[1].Title = ""
	var buf bytes.Buffer
	if err := WriteExplore(&buf, docs, 200, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"WHAT'S IN YOUR NOTION (30 notes)",
		"  • Note 24\n",
		"  ... and 5 more",
		"  [Untitled]\n  line one line two",
		"What coaching services are offered?",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "Note 25") {
		t.Error("only the first 25 titles should be listed")
	}
	if strings.Count(out, "  [") != ExploreSamples {
		t.Errorf("expected %d samples", ExploreSamples)
	}
}

func TestWriteTitles(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTitles(&buf, []string{"A", "B"}, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "YOUR NOTION NOTES (2 titles)") || !strings.Contains(buf.String(), "  • B\n") {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteNoteHits(t *testing.T) {
	hits := []search.NoteHit{{DocumentID: "p2", Title: "Mindset", URL: "https://notion.so/p2", Score: 1.5, Snippet: "growth mindset"}}
	var buf bytes.Buffer
	if err := WriteNoteHits(&buf, "mindset", hits, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "1. Mindset (score 1.500)") || !strings.Contains(buf.String(), "https://notion.so/p2") {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteStatus(t *testing.T) {
	st := &rag.Status{
		Dir:       "rag_index",
		Documents: 3,
		Chunks:    7,
		DiskBytes: 2048,
		Manifest:  indexer.Manifest{EmbeddingModel: "text-embedding-3-small", Dimensions: 1536, ChunkSize: 800, ChunkOverlap: 150, VectorBackend: "memory"},
	}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, st, OutputText); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Documents:      3", "text-embedding-3-small (1536 dims)", "800 / 150 overlap", "2.0 KiB"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestWriteUsage(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteUsage(&buf, models.NewUsage("ana", 3, 10), OutputText); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "ana: 3 of 10 prompts used today (7 remaining)\n" {
		t.Errorf("got %q", buf.String())
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{0: "0 B", 1023: "1023 B", 1024: "1.0 KiB", 1536: "1.5 KiB", 5 << 20: "5.0 MiB"}
	for in, want := range tests {
		if got := FormatBytes(in); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
