package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"classkitd/internal/llm"
	"classkitd/internal/store"
	"classkitd/internal/studio"
	"classkitd/pkg/types"
)

type mockService struct {
	project     *types.Project
	projects    []types.ProjectSummary
	status      types.StatusResponse
	ready       bool
	createErr   error
	getErr      error
	generateErr error
	tokenRole   store.Role
	tokenErr    error
	events      chan studio.Event
}

func (m *mockService) CreateProject(ctx context.Context, req types.CreateProjectRequest) (*types.Project, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.project, nil
}

func (m *mockService) GetProject(ctx context.Context, id string) (*types.Project, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.project, nil
}

func (m *mockService) ListProjects(ctx context.Context) ([]types.ProjectSummary, error) {
	return append([]types.ProjectSummary(nil), m.projects...), nil
}

func (m *mockService) Generate(ctx context.Context, projectID string, kind types.DocKind, req types.GenerateRequest) (*types.Project, error) {
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	return m.project, nil
}

func (m *mockService) ResolveToken(ctx context.Context, token string) (*types.Project, store.Role, error) {
	if m.tokenErr != nil {
		return nil, "", m.tokenErr
	}
	return m.project, m.tokenRole, nil
}

func (m *mockService) SubscribeEvents() (<-chan studio.Event, func()) {
	if m.events == nil {
		m.events = make(chan studio.Event, 16)
	}
	return m.events, func() {}
}

func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func fullProject() *types.Project {
	return &types.Project{
		ID:    "p1",
		Title: "The Solar System",
		Slides: &types.SlideDeck{DeckTitle: "The Solar System", Slides: []types.Slide{
			{Type: "title", Title: "The Solar System", Bullets: []string{}},
		}},
		Poster: &types.Poster{PosterTitle: "The Solar System", Sections: []types.PosterSection{
			{Heading: "Planets", BodyBullets: []string{"Eight of them"}},
		}},
		Assignment: &types.Assignment{AssignmentTitle: "Quiz", Questions: []types.Question{
			{Type: "short", Prompt: "Name a planet.", Answer: "Mars", Explanation: "Any planet counts."},
		}},
		TeacherToken: "tt",
		StudentToken: "st",
	}
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCreateProjectHandler(t *testing.T) {
	svc := &mockService{project: fullProject()}
	r := NewMux(svc)
	w := postJSON(r, "/projects", `{"title":"The Solar System","safety_ack":true}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var got types.Project
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("json: %v", err)
	}
	if got.ID != "p1" || got.TeacherToken == "" {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestCreateProjectBadJSON(t *testing.T) {
	r := NewMux(&mockService{})
	if w := postJSON(r, "/projects", "not-json"); w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestCreateProjectUnsupportedMediaType(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestCreateProjectBodyTooLarge(t *testing.T) {
	r := NewMux(&mockService{})
	big := make([]byte, (1<<20)+10)
	for i := range big {
		big[i] = 'a'
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/projects", bytes.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too-large body, got %d", w.Code)
	}
}

func TestCreateProjectInvalidInputMaps400(t *testing.T) {
	svc := &mockService{createErr: studio.ErrInvalidInput("safety confirmation is required")}
	r := NewMux(svc)
	if w := postJSON(r, "/projects", `{"title":"x"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestListProjectsHandler(t *testing.T) {
	svc := &mockService{projects: []types.ProjectSummary{{ID: "a"}, {ID: "b"}}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.ProjectsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Projects) != 2 {
		t.Fatalf("projects len=%d", len(body.Projects))
	}
}

func TestGetProjectNotFoundMaps404(t *testing.T) {
	svc := &mockService{getErr: studio.ErrNotFound("project")}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/ghost", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGenerateHandler(t *testing.T) {
	svc := &mockService{project: fullProject()}
	r := NewMux(svc)
	w := postJSON(r, "/projects/p1/generate/slides", `{}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestGenerateUnknownKind(t *testing.T) {
	r := NewMux(&mockService{project: fullProject()})
	if w := postJSON(r, "/projects/p1/generate/essay", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGenerateHTTPErrorMapping(t *testing.T) {
	svc := &mockService{generateErr: mockHTTPError{msg: "too busy", code: http.StatusTooManyRequests}}
	r := NewMux(svc)
	if w := postJSON(r, "/projects/p1/generate/slides", `{}`); w.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGenerateUnavailableMaps503(t *testing.T) {
	svc := &mockService{generateErr: llm.ErrUnavailable("backend not built")}
	r := NewMux(svc)
	if w := postJSON(r, "/projects/p1/generate/slides", `{}`); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestGenerateGenericErrorMaps500(t *testing.T) {
	svc := &mockService{generateErr: errors.New("boom")}
	r := NewMux(svc)
	if w := postJSON(r, "/projects/p1/generate/slides", `{}`); w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestExportAssignmentStudentVsKey(t *testing.T) {
	svc := &mockService{project: fullProject()}
	r := NewMux(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/p1/assignment.docx", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "assignment.docx") {
		t.Fatalf("content-disposition=%q", cd)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/p1/assignment.docx?key=1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "answer-key.docx") {
		t.Fatalf("content-disposition=%q", cd)
	}
}

func TestExportSlidesNotGenerated(t *testing.T) {
	p := fullProject()
	p.Slides = nil
	r := NewMux(&mockService{project: p})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/p1/slides.pptx", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestExportPoster(t *testing.T) {
	r := NewMux(&mockService{project: fullProject()})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects/p1/poster.pdf", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("not a pdf: %q", w.Body.String()[:8])
	}
}

func TestShareStudentStripsAnswers(t *testing.T) {
	svc := &mockService{project: fullProject(), tokenRole: store.RoleStudent}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/share/st", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.ShareResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Role != "student" {
		t.Fatalf("role=%s", body.Role)
	}
	if body.Project.TeacherToken != "" || body.Project.StudentToken != "" {
		t.Fatalf("tokens leaked: %+v", body.Project)
	}
	for _, q := range body.Project.Assignment.Questions {
		if q.Answer != "" || q.Explanation != "" {
			t.Fatalf("answers leaked: %+v", q)
		}
	}
}

func TestShareTeacherKeepsAnswers(t *testing.T) {
	svc := &mockService{project: fullProject(), tokenRole: store.RoleTeacher}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/share/tt", nil))
	var body types.ShareResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Role != "teacher" || body.Project.Assignment.Questions[0].Answer == "" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestShareUnknownToken(t *testing.T) {
	svc := &mockService{tokenErr: studio.ErrNotFound("share token")}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/share/bogus", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestShareAssignmentStudentNeverGetsKey(t *testing.T) {
	svc := &mockService{project: fullProject(), tokenRole: store.RoleStudent}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/share/st/assignment.docx?key=1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if cd := w.Header().Get("Content-Disposition"); strings.Contains(cd, "answer-key") {
		t.Fatalf("student got answer key: %q", cd)
	}
}

func TestResolveShareStripsStudentProject(t *testing.T) {
	proj := fullProject()
	proj.Slides.Slides[0].SpeakerNotes = "remind them about Pluto"
	svc := &mockService{project: proj, tokenRole: store.RoleStudent}

	req := httptest.NewRequest(http.MethodGet, "/share/st/poster.pdf", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("token", "st")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	p, role, err := resolveShare(svc, req)
	if err != nil {
		t.Fatalf("resolveShare: %v", err)
	}
	if role != store.RoleStudent {
		t.Fatalf("role=%s", role)
	}
	if p.TeacherToken != "" || p.StudentToken != "" || p.SourceNotes != "" {
		t.Fatalf("teacher fields leaked: %+v", p)
	}
	if q := p.Assignment.Questions[0]; q.Answer != "" || q.Explanation != "" {
		t.Fatalf("answers leaked: %+v", q)
	}
	if p.Slides.Slides[0].SpeakerNotes != "" {
		t.Fatalf("speaker notes leaked")
	}
	// Exports students are allowed to fetch survive the stripped view.
	if p.Poster == nil || len(p.Poster.Sections) == 0 {
		t.Fatalf("poster lost in student view: %+v", p.Poster)
	}

	svc.tokenRole = store.RoleTeacher
	p, role, err = resolveShare(svc, req)
	if err != nil || role != store.RoleTeacher {
		t.Fatalf("teacher resolve: %v %s", err, role)
	}
	if p.Assignment.Questions[0].Answer == "" {
		t.Fatalf("teacher view lost answers")
	}
}

func TestSharePosterStudentToken(t *testing.T) {
	svc := &mockService{project: fullProject(), tokenRole: store.RoleStudent}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/share/st/poster.pdf", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if !bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("not a pdf: %q", w.Body.Bytes()[:min(8, w.Body.Len())])
	}
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{State: "ready", Backend: "mock"}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Backend != "mock" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestHealthz(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz(t *testing.T) {
	r := NewMux(&mockService{ready: true})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz_NotReady(t *testing.T) {
	r := NewMux(&mockService{ready: false})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "loading") {
		t.Fatalf("body=%q", w.Body.String())
	}
}
