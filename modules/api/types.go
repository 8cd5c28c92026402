package api

import "github.com/example/taskboard/modules/team"

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// ActorRequest carries the optional actor identity for lifecycle
// operations.
type ActorRequest struct {
	By string `json:"by,omitempty"`
}

// CommentRequest is the body for POST /tasks/:id/comments.
type CommentRequest struct {
	Text string `json:"text"`
	By   string `json:"by,omitempty"`
}

// LinkRequest is the body for POST /tasks/:id/documents.
type LinkRequest struct {
	Path  string `json:"path"`
	Title string `json:"title,omitempty"`
	Type  string `json:"type,omitempty"`
	By    string `json:"by,omitempty"`
}

// TeamResponse is the response for GET /team.
type TeamResponse struct {
	Members []team.PeerStatus `json:"members"`
}

// TaskDocumentsResponse is the reverse index for GET /task-documents.
type TaskDocumentsResponse struct {
	Documents map[string]int `json:"documents"`
}
