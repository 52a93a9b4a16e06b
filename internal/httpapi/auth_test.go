package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func withAccessCode(t *testing.T, code, hash string) {
	t.Helper()
	SetAccessCode(code)
	SetAccessCodeHash(hash)
	t.Cleanup(func() {
		SetAccessCode("")
		SetAccessCodeHash("")
	})
}

func TestAccessCodeRequired(t *testing.T) {
	withAccessCode(t, "letmein", "")
	r := NewMux(&mockService{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without code, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("X-Access-Code", "wrong")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong code, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("X-Access-Code", "letmein")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with code, got %d", w.Code)
	}
}

func TestAccessCodeBearer(t *testing.T) {
	withAccessCode(t, "letmein", "")
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("Authorization", "Bearer letmein")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with bearer code, got %d", w.Code)
	}
}

func TestAccessCodeBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	withAccessCode(t, "", string(hash))
	r := NewMux(&mockService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("X-Access-Code", "letmein")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with hashed code, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.Header.Set("X-Access-Code", "nope")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong code, got %d", w.Code)
	}
}

func TestShareRoutesSkipAuth(t *testing.T) {
	withAccessCode(t, "letmein", "")
	r := NewMux(&mockService{project: fullProject()})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/share/st", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("share must not require the access code, got %d", w.Code)
	}
}

func TestGenerateRateLimit(t *testing.T) {
	SetGenerateRateLimit(0.001, 1)
	t.Cleanup(func() { SetGenerateRateLimit(0, 0) })
	r := NewMux(&mockService{project: fullProject()})

	if w := postJSON(r, "/projects/p1/generate/slides", `{}`); w.Code != http.StatusOK {
		t.Fatalf("first request status=%d", w.Code)
	}
	if w := postJSON(r, "/projects/p1/generate/slides", `{}`); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request should be rate limited, got %d", w.Code)
	}
}
