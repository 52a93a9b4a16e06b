package modelfile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"classkitd/internal/common/fsutil"
	"classkitd/pkg/types"
)

// Options controls Ensure.
type Options struct {
	// Path is the final on-disk location of the GGUF file.
	Path string
	// URL to fetch from when the file is missing. Empty means never download.
	URL string
	// SHA256 is the optional expected hex digest of the file.
	SHA256 string
	// Client is the HTTP client used for the download; nil uses a default
	// with no overall timeout (large files; cancellation via ctx).
	Client *http.Client
	// Logger for progress; a zerolog.Nop() is used when unset.
	Logger *zerolog.Logger
}

// Info returns metadata for the model file at path.
func Info(path string) types.ModelFileInfo {
	expanded, err := fsutil.ExpandHome(path)
	if err != nil {
		return types.ModelFileInfo{Path: path}
	}
	st, err := os.Stat(expanded)
	if err != nil {
		return types.ModelFileInfo{Path: expanded}
	}
	return types.ModelFileInfo{Path: expanded, SizeBytes: st.Size(), Present: true}
}

// Ensure makes sure the model file exists at opts.Path, downloading it on
// first run. The download streams to "<path>.partial" and is renamed into
// place only after it completes (and the checksum matches, when given), so
// a crash or cancellation never leaves a torn final file.
func Ensure(ctx context.Context, opts Options) (types.ModelFileInfo, error) {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	path, err := fsutil.ExpandHome(opts.Path)
	if err != nil {
		return types.ModelFileInfo{}, err
	}
	if path == "" {
		return types.ModelFileInfo{}, fmt.Errorf("model path not configured")
	}
	if fsutil.PathExists(path) {
		info := Info(path)
		logger.Debug().Str("path", path).Int64("size", info.SizeBytes).Msg("model file cached")
		return info, nil
	}
	if opts.URL == "" {
		return types.ModelFileInfo{}, fmt.Errorf("model file %s missing and no model_url configured", path)
	}
	if err := fsutil.EnsureDir(filepath.Dir(path)); err != nil {
		return types.ModelFileInfo{}, fmt.Errorf("create model dir: %w", err)
	}

	logger.Info().Str("url", opts.URL).Str("path", path).Msg("downloading model file (first run)")
	start := time.Now()
	if err := download(ctx, opts, path, logger); err != nil {
		return types.ModelFileInfo{}, err
	}
	info := Info(path)
	logger.Info().Str("path", path).Int64("size", info.SizeBytes).Dur("dur", time.Since(start)).Msg("model file ready")
	return info, nil
}

func download(ctx context.Context, opts Options, path string, logger zerolog.Logger) error {
	cli := opts.Client
	if cli == nil {
		cli = &http.Client{Timeout: 0}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return err
	}
	resp, err := cli.Do(req)
	if err != nil {
		return fmt.Errorf("model download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("model download: unexpected status %s", resp.Status)
	}

	tmp := path + ".partial"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create partial file: %w", err)
	}
	// Remove the partial file on any failure path.
	ok := false
	defer func() {
		f.Close()
		if !ok {
			os.Remove(tmp)
		}
	}()

	h := sha256.New()
	pw := &progressWriter{logger: logger, total: resp.ContentLength, every: 256 << 20}
	if _, err := io.Copy(io.MultiWriter(f, h, pw), resp.Body); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("model download: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync partial file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close partial file: %w", err)
	}
	if want := strings.ToLower(strings.TrimSpace(opts.SHA256)); want != "" {
		got := hex.EncodeToString(h.Sum(nil))
		if got != want {
			return fmt.Errorf("model checksum mismatch: got %s want %s", got, want)
		}
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize model file: %w", err)
	}
	ok = true
	return nil
}

// progressWriter logs download progress at byte-count intervals.
type progressWriter struct {
	logger  zerolog.Logger
	total   int64
	written int64
	every   int64
	next    int64
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if p.every > 0 && p.written >= p.next {
		p.next = p.written + p.every
		ev := p.logger.Info().Int64("bytes", p.written)
		if p.total > 0 {
			ev = ev.Int64("total", p.total)
		}
		ev.Msg("model download progress")
	}
	return len(b), nil
}
