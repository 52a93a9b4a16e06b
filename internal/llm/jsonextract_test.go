package llm

import "testing"

type tinyDoc struct {
	Title string `json:"title"`
}

func TestExtractJSON_Plain(t *testing.T) {
	var d tinyDoc
	if err := ExtractJSON(`{"title":"x"}`, &d); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if d.Title != "x" {
		t.Fatalf("title=%q", d.Title)
	}
}

func TestExtractJSON_Fenced(t *testing.T) {
	raw := "```json\n{\"title\":\"fenced\"}\n```"
	var d tinyDoc
	if err := ExtractJSON(raw, &d); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if d.Title != "fenced" {
		t.Fatalf("title=%q", d.Title)
	}
}

func TestExtractJSON_LeadingChatter(t *testing.T) {
	raw := "Sure! Here is the JSON you asked for:\n{\"title\":\"ok\"}"
	var d tinyDoc
	if err := ExtractJSON(raw, &d); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if d.Title != "ok" {
		t.Fatalf("title=%q", d.Title)
	}
}

func TestExtractJSON_Errors(t *testing.T) {
	var d tinyDoc
	if err := ExtractJSON("", &d); err == nil {
		t.Fatalf("expected error on empty input")
	}
	if err := ExtractJSON("not json at all", &d); err == nil {
		t.Fatalf("expected error on garbage")
	}
}
