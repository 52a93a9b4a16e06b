package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"classkitd/internal/studio"
)

func TestEventsStreamNDJSON(t *testing.T) {
	svc := &mockService{events: make(chan studio.Event, 2)}
	svc.events <- studio.Event{Name: "generation_started", ProjectID: "p1", Fields: map[string]any{"kind": "slides"}}
	svc.events <- studio.Event{Name: "generation_finished", ProjectID: "p1"}
	close(svc.events)

	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/x-ndjson") {
		t.Fatalf("content-type=%s", ct)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 ndjson lines, got %d: %q", len(lines), w.Body.String())
	}
	var first eventLine
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("json: %v", err)
	}
	if first.Name != "generation_started" || first.ProjectID != "p1" {
		t.Fatalf("unexpected first line: %+v", first)
	}
}
