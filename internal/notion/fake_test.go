package notion

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeNotion serves a small in-memory workspace over the Notion REST shapes.
type fakeNotion struct {
	mu          sync.Mutex
	pages       map[string]map[string]any
	children    map[string][][]map[string]any
	rows        map[string][]map[string]any
	rowPageSize int
	search      []map[string]any
	databases   map[string]map[string]any
	fail        map[string]int
	hits        map[string]int
	lastHeaders http.Header
}

func newFakeNotion() *fakeNotion {
	return &fakeNotion{
		pages:       map[string]map[string]any{},
		children:    map[string][][]map[string]any{},
		rows:        map[string][]map[string]any{},
		rowPageSize: 100,
		databases:   map[string]map[string]any{},
		fail:        map[string]int{},
		hits:        map[string]int{},
	}
}

func (f *fakeNotion) start(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	client := NewClient("secret-token",
		WithBaseURL(srv.URL),
		WithRateLimit(0),
		WithRetryBackoff(time.Millisecond),
	)
	return srv, client
}

func (f *fakeNotion) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits[r.URL.Path]++
	f.lastHeaders = r.Header.Clone()
	if status, ok := f.fail[r.URL.Path]; ok {
		writeJSON(w, status, map[string]any{"object": "error", "status": status, "code": "forced_failure", "message": "forced"})
		return
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "pages":
		page, ok := f.pages[parts[1]]
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, http.StatusOK, page)
	case len(parts) == 3 && parts[0] == "blocks" && parts[2] == "children":
		batches := f.children[parts[1]]
		idx := 0
		if c := r.URL.Query().Get("start_cursor"); c != "" {
			idx, _ = strconv.Atoi(c)
		}
		var results []map[string]any
		if idx < len(batches) {
			results = batches[idx]
		}
		writeJSON(w, http.StatusOK, listBody(results, idx+1 < len(batches), strconv.Itoa(idx+1)))
	case len(parts) == 3 && parts[0] == "data_sources" && parts[2] == "query":
		rows, ok := f.rows[parts[1]]
		if !ok {
			notFound(w)
			return
		}
		var body struct {
			PageSize    int    `json:"page_size"`
			StartCursor string `json:"start_cursor"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		size := min(body.PageSize, f.rowPageSize)
		start, _ := strconv.Atoi(body.StartCursor)
		end := min(start+size, len(rows))
		writeJSON(w, http.StatusOK, listBody(rows[start:end], end < len(rows), strconv.Itoa(end)))
	case len(parts) == 1 && parts[0] == "search":
		writeJSON(w, http.StatusOK, listBody(f.search, false, ""))
	case len(parts) == 2 && parts[0] == "databases":
		db, ok := f.databases[parts[1]]
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, http.StatusOK, db)
	default:
		notFound(w)
	}
}

func (f *fakeNotion) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeNotion) header(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastHeaders.Get(name)
}

func listBody(results []map[string]any, hasMore bool, cursor string) map[string]any {
	if results == nil {
		results = []map[string]any{}
	}
	body := map[string]any{"object": "list", "results": results, "has_more": hasMore, "next_cursor": nil}
	if hasMore {
		body["next_cursor"] = cursor
	}
	return body
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{"object": "error", "status": 404, "code": "object_not_found", "message": "not found"})
}

func testID(n int) string {
	return fmt.Sprintf("%08x-0000-4000-8000-%012x", n, n)
}

func pageJSON(id, title string) map[string]any {
	return map[string]any{
		"object":           "page",
		"id":               id,
		"url":              "https://www.notion.so/" + strings.ReplaceAll(id, "-", ""),
		"last_edited_time": "2025-01-01T00:00:00.000Z",
		"properties": map[string]any{
			"Status": map[string]any{"id": "s", "type": "select"},
			"Name": map[string]any{
				"id":    "title",
				"type":  "title",
				"title": []map[string]any{{"plain_text": title}},
			},
		},
	}
}

func textBlock(id, blockType, text string, hasChildren bool) map[string]any {
	return map[string]any{
		"object":       "block",
		"id":           id,
		"type":         blockType,
		"has_children": hasChildren,
		blockType:      map[string]any{"rich_text": []map[string]any{{"plain_text": text}}},
	}
}

func para(id, text string) map[string]any {
	return textBlock(id, "paragraph", text, false)
}
