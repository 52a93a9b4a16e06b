package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"classkitd/internal/export"
	"classkitd/internal/store"
	"classkitd/internal/studio"
	"classkitd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	CreateProject(ctx context.Context, req types.CreateProjectRequest) (*types.Project, error)
	GetProject(ctx context.Context, id string) (*types.Project, error)
	ListProjects(ctx context.Context) ([]types.ProjectSummary, error)
	Generate(ctx context.Context, projectID string, kind types.DocKind, req types.GenerateRequest) (*types.Project, error)
	ResolveToken(ctx context.Context, token string) (*types.Project, store.Role, error)
	SubscribeEvents() (<-chan studio.Event, func())
	Status() types.StatusResponse
	Ready() bool
}

func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.Route("/projects", func(r chi.Router) {
		r.Use(requireAccessCode)
		r.Post("/", handleCreateProject(svc))
		r.Get("/", handleListProjects(svc))
		r.Route("/{projectID}", func(r chi.Router) {
			r.Get("/", handleGetProject(svc))
			r.With(rateLimitGenerate).Post("/generate/{kind}", handleGenerate(svc))
			r.Get("/slides.pptx", handleExportSlides(svc))
			r.Get("/poster.pdf", handleExportPoster(svc))
			r.Get("/assignment.docx", handleExportAssignment(svc))
		})
	})

	// Share links carry their own capability; no access code here.
	r.Route("/share/{token}", func(r chi.Router) {
		r.Get("/", handleShare(svc))
		r.Get("/slides.pptx", handleShareSlides(svc))
		r.Get("/poster.pdf", handleSharePoster(svc))
		r.Get("/assignment.docx", handleShareAssignment(svc))
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(svc.Status()); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
			return
		}
	})

	r.Get("/events", handleEvents(svc))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// decodeJSONBody enforces the JSON content type and body size limit before
// decoding into v.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Error().Err(err).Msg("encode response")
	}
}

func handleCreateProject(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateProjectRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}
		p, err := svc.CreateProject(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func handleListProjects(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListProjects(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.ProjectsResponse{Projects: list})
	}
}

func handleGetProject(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetProject(r.Context(), chi.URLParam(r, "projectID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleGenerate(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, err := types.ParseDocKind(chi.URLParam(r, "kind"))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		var req types.GenerateRequest
		if !decodeJSONBody(w, r, &req) {
			return
		}

		lvl := requestLogLevel(r)
		if lvl >= LevelInfo && zlog != nil {
			z := zlog.Info().Str("path", r.URL.Path).Str("kind", string(kind))
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Msg("generate start")
		}
		start := time.Now()

		// Join server base context with request context so shutdown cancels work too.
		joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		p, err := svc.Generate(joinedCtx, chi.URLParam(r, "projectID"), kind, req)
		countGeneration(string(kind), err)
		if err != nil {
			// If context was canceled (client disconnect), just return.
			if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
				return
			}
			writeServiceError(w, err)
			if lvl >= LevelInfo && zlog != nil {
				z := zlog.Info().Int("status", statusForError(err)).Dur("dur", time.Since(start))
				if rid := middleware.GetReqID(r.Context()); rid != "" {
					z = z.Str("request_id", rid)
				}
				z.Err(err).Msg("generate end")
			}
			return
		}
		writeJSON(w, http.StatusOK, p)
		if lvl >= LevelInfo && zlog != nil {
			z := zlog.Info().Int("status", http.StatusOK).Dur("dur", time.Since(start))
			if rid := middleware.GetReqID(r.Context()); rid != "" {
				z = z.Str("request_id", rid)
			}
			z.Msg("generate end")
		}
	}
}

// sendFile streams a rendered document with download headers. The render
// callback writes directly to the response, so render errors after the first
// byte cannot change the status anymore; all three exporters validate before
// writing to keep that window small.
func sendFile(w http.ResponseWriter, contentType, filename string, render func() error) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := render(); err != nil {
		w.Header().Del("Content-Disposition")
		writeServiceError(w, err)
	}
}

const (
	ctPptx = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	ctPdf  = "application/pdf"
	ctDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// safeFilename builds "<title>-suffix" with characters unsafe in a
// Content-Disposition filename replaced.
func safeFilename(title, suffix string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		}
		return -1
	}, title)
	mapped = strings.Trim(mapped, "-")
	if mapped == "" {
		mapped = "classkit"
	}
	return mapped + suffix
}

func handleExportSlides(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetProject(r.Context(), chi.URLParam(r, "projectID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if p.Slides == nil {
			writeJSONError(w, http.StatusNotFound, "slides not generated yet")
			return
		}
		countExport("pptx")
		sendFile(w, ctPptx, safeFilename(p.Title, "-slides.pptx"), func() error {
			return export.WriteDeckPptx(w, p.Slides)
		})
	}
}

func handleExportPoster(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetProject(r.Context(), chi.URLParam(r, "projectID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if p.Poster == nil {
			writeJSONError(w, http.StatusNotFound, "poster not generated yet")
			return
		}
		countExport("pdf")
		sendFile(w, ctPdf, safeFilename(p.Title, "-poster.pdf"), func() error {
			return export.WritePosterPDF(w, p.Poster)
		})
	}
}

func handleExportAssignment(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetProject(r.Context(), chi.URLParam(r, "projectID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if p.Assignment == nil {
			writeJSONError(w, http.StatusNotFound, "assignment not generated yet")
			return
		}
		// ?key=1 downloads the answer key; default is the student copy.
		includeAnswers := r.URL.Query().Get("key") == "1"
		doc := p.Assignment
		suffix := "-assignment.docx"
		if includeAnswers {
			suffix = "-answer-key.docx"
		} else {
			doc = doc.StudentCopy()
		}
		countExport("docx")
		sendFile(w, ctDocx, safeFilename(p.Title, suffix), func() error {
			return export.WriteAssignmentDocx(w, doc, includeAnswers)
		})
	}
}

// resolveShare resolves a share token and strips answers for student
// tokens before any handler can touch the project. Every share handler
// goes through here so a student token can never see an answer key.
func resolveShare(svc Service, r *http.Request) (*types.Project, store.Role, error) {
	p, role, err := svc.ResolveToken(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		return nil, role, err
	}
	if role == store.RoleStudent {
		p = p.StudentView()
	}
	return p, role, nil
}

func handleShare(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, role, err := resolveShare(svc, r)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.ShareResponse{Role: string(role), Project: p})
	}
}

func handleShareSlides(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _, err := resolveShare(svc, r)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if p.Slides == nil {
			writeJSONError(w, http.StatusNotFound, "slides not generated yet")
			return
		}
		countExport("pptx")
		sendFile(w, ctPptx, safeFilename(p.Title, "-slides.pptx"), func() error {
			return export.WriteDeckPptx(w, p.Slides)
		})
	}
}

func handleSharePoster(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _, err := resolveShare(svc, r)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if p.Poster == nil {
			writeJSONError(w, http.StatusNotFound, "poster not generated yet")
			return
		}
		countExport("pdf")
		sendFile(w, ctPdf, safeFilename(p.Title, "-poster.pdf"), func() error {
			return export.WritePosterPDF(w, p.Poster)
		})
	}
}

func handleShareAssignment(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, _, err := resolveShare(svc, r)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if p.Assignment == nil {
			writeJSONError(w, http.StatusNotFound, "assignment not generated yet")
			return
		}
		// Share links only ever hand out the student copy. The answer key is
		// reachable solely through the authenticated project route.
		countExport("docx")
		sendFile(w, ctDocx, safeFilename(p.Title, "-assignment.docx"), func() error {
			return export.WriteAssignmentDocx(w, p.Assignment.StudentCopy(), false)
		})
	}
}

// eventLine is the NDJSON wire form of a studio event.
type eventLine struct {
	Name      string         `json:"name"`
	ProjectID string         `json:"project_id,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
	TimeUnix  int64          `json:"ts"`
}

func handleEvents(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}
		ch, cancel := svc.SubscribeEvents()
		defer cancel()

		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		enc := json.NewEncoder(w)
		for {
			select {
			case e, open := <-ch:
				if !open {
					return
				}
				line := eventLine{Name: e.Name, ProjectID: e.ProjectID, Fields: e.Fields, TimeUnix: time.Now().Unix()}
				if err := enc.Encode(line); err != nil {
					return
				}
				flusher.Flush()
			case <-r.Context().Done():
				return
			case <-serverBaseCtx.Done():
				return
			}
		}
	}
}
