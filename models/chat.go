package models

type ChatPostRequest struct {
	// Question asked by the student.
	Question string `json:"question"`

	// SessionID of an existing conversation to append to. When empty, and the
	// caller is authenticated, a new session is created.
	SessionID string `json:"session_id,omitempty"`

	// FilterDocument restricts retrieval to a single document.
	FilterDocument string `json:"filter_document,omitempty"`
}

type ChatPostResponse struct {
	Answer       string  `json:"answer"`
	Query        string  `json:"query"`
	Sources      []Chunk `json:"sources"`
	TopChunks    []Chunk `json:"top_chunks"`
	HasContext   bool    `json:"has_context"`
	OutOfContext bool    `json:"out_of_context"`
	// Saved is the session the turn was written to, or null if it wasn't.
	Saved *string `json:"saved"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
