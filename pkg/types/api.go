package types

// CreateProjectRequest is the payload for POST /projects.
type CreateProjectRequest struct {
	// Required project title.
	// example: The Solar System
	Title string `json:"title" example:"The Solar System"`
	// Subject, free-form.
	// example: Science
	Subject string `json:"subject,omitempty" example:"Science"`
	// Grade level, free-form.
	// example: 5th
	Grade string `json:"grade,omitempty" example:"5th"`
	// Topic notes the documents will be generated from.
	SourceNotes string `json:"source_notes,omitempty"`
	// Required confirmation that the materials are for instruction.
	// example: true
	SafetyAck bool `json:"safety_ack" example:"true"`
}

// GenerateRequest optionally overrides sampling parameters for one
// generation. Zero values fall back to the server defaults.
type GenerateRequest struct {
	// Maximum number of new tokens to generate.
	// example: 1024
	MaxTokens int `json:"max_tokens,omitempty" example:"1024"`
	// Sampling temperature (higher = more random).
	// example: 0.7
	Temperature float64 `json:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP float64 `json:"top_p,omitempty" example:"0.9"`
	// Top-K sampling: limit candidates to top K tokens.
	// example: 40
	TopK int `json:"top_k,omitempty" example:"40"`
}

// ProjectSummary is the list entry returned by GET /projects.
type ProjectSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Subject   string `json:"subject,omitempty"`
	Grade     string `json:"grade,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ProjectsResponse wraps the list of projects.
type ProjectsResponse struct {
	Projects []ProjectSummary `json:"projects"`
}

// ShareResponse is returned by GET /share/{token}.
type ShareResponse struct {
	// Role the token grants: teacher or student.
	// example: student
	Role    string   `json:"role" example:"student"`
	Project *Project `json:"project"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// ModelFileInfo describes the cached model file, if any.
type ModelFileInfo struct {
	// Absolute path of the cached GGUF file.
	// example: /home/user/.classkit/models/gemma-2b.Q4_K_M.gguf
	Path string `json:"path,omitempty"`
	// Size in bytes.
	// example: 1678774272
	SizeBytes int64 `json:"size_bytes,omitempty" example:"1678774272"`
	// Whether the file is present on disk.
	// example: true
	Present bool `json:"present" example:"true"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Overall service state (loading, ready, error).
	// example: ready
	State string `json:"state" example:"ready"`
	// Active inference backend (server, ollama, cgo, mock).
	// example: server
	Backend string `json:"backend" example:"server"`
	// Cached model file details.
	Model ModelFileInfo `json:"model"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Total completed generations by kind.
	GenerationsTotal map[string]uint64 `json:"generations_total"`
	// Current queue length for generation requests.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Number of in-flight generations (0 or 1).
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Maximum queued generations before backpressure triggers.
	// example: 8
	MaxQueueDepth int `json:"max_queue_depth" example:"8"`
	// Last error observed (if any).
	LastError string `json:"last_error,omitempty"`
}
