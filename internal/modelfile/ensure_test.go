package modelfile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestEnsure_AlreadyCached(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "m.gguf")
	if err := os.WriteFile(p, []byte("GGUFdata"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	// No URL configured: must still succeed because the file exists.
	info, err := Ensure(context.Background(), Options{Path: p})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !info.Present || info.SizeBytes != 8 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestEnsure_DownloadsOnce(t *testing.T) {
	payload := []byte("GGUF fake model bytes")
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(payload)
	}))
	defer srv.Close()

	d := t.TempDir()
	p := filepath.Join(d, "models", "m.gguf")
	sum := sha256.Sum256(payload)
	opts := Options{Path: p, URL: srv.URL, SHA256: hex.EncodeToString(sum[:])}

	info, err := Ensure(context.Background(), opts)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !info.Present || info.SizeBytes != int64(len(payload)) {
		t.Fatalf("unexpected info: %+v", info)
	}
	// Second call reuses the cache.
	if _, err := Ensure(context.Background(), opts); err != nil {
		t.Fatalf("Ensure second: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected one download, got %d", hits)
	}
	if _, err := os.Stat(p + ".partial"); !os.IsNotExist(err) {
		t.Fatalf("partial file left behind")
	}
}

func TestEnsure_ChecksumMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("wrong bytes"))
	}))
	defer srv.Close()
	d := t.TempDir()
	p := filepath.Join(d, "m.gguf")
	_, err := Ensure(context.Background(), Options{Path: p, URL: srv.URL, SHA256: "deadbeef"})
	if err == nil {
		t.Fatalf("expected checksum error")
	}
	if _, statErr := os.Stat(p); !os.IsNotExist(statErr) {
		t.Fatalf("final file must not exist after checksum failure")
	}
}

func TestEnsure_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()
	d := t.TempDir()
	p := filepath.Join(d, "m.gguf")
	if _, err := Ensure(context.Background(), Options{Path: p, URL: srv.URL}); err == nil {
		t.Fatalf("expected http error")
	}
}

func TestEnsure_MissingNoURL(t *testing.T) {
	d := t.TempDir()
	if _, err := Ensure(context.Background(), Options{Path: filepath.Join(d, "m.gguf")}); err == nil {
		t.Fatalf("expected error for missing file without url")
	}
}

func TestInfo_Missing(t *testing.T) {
	info := Info(filepath.Join(t.TempDir(), "nope.gguf"))
	if info.Present || info.SizeBytes != 0 {
		t.Fatalf("unexpected info: %+v", info)
	}
}
