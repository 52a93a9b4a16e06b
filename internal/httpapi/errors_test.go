package httpapi

import (
	"errors"
	"net/http"
	"testing"

	"classkitd/internal/llm"
	"classkitd/internal/studio"
)

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{studio.ErrInvalidInput("bad"), http.StatusBadRequest},
		{studio.ErrNotFound("project"), http.StatusNotFound},
		{llm.ErrUnavailable("no backend"), http.StatusServiceUnavailable},
		{mockHTTPError{msg: "busy", code: http.StatusTooManyRequests}, http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := statusForError(c.err); got != c.want {
			t.Fatalf("statusForError(%v)=%d want %d", c.err, got, c.want)
		}
	}
}

func TestWriteServiceErrorReportsServerFailures(t *testing.T) {
	var captured []error
	orig := reportError
	reportError = func(err error) { captured = append(captured, err) }
	t.Cleanup(func() { reportError = orig })

	svc := &mockService{generateErr: llm.ErrUnavailable("backend down")}
	r := NewMux(svc)
	if w := postJSON(r, "/projects/p1/generate/slides", `{}`); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if len(captured) != 1 {
		t.Fatalf("expected one report for 503, got %d", len(captured))
	}

	svc.generateErr = errors.New("boom")
	if w := postJSON(r, "/projects/p1/generate/slides", `{}`); w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	if len(captured) != 2 {
		t.Fatalf("expected report for 500, got %d", len(captured))
	}

	// Client-side errors stay out of Sentry.
	svc.generateErr = studio.ErrNotFound("project")
	if w := postJSON(r, "/projects/p1/generate/slides", `{}`); w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	svc.generateErr = mockHTTPError{msg: "busy", code: http.StatusTooManyRequests}
	if w := postJSON(r, "/projects/p1/generate/slides", `{}`); w.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", w.Code)
	}
	if len(captured) != 2 {
		t.Fatalf("4xx must not be reported, got %d reports", len(captured))
	}
}
