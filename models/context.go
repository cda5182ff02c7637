package models

type ContextPostRequest struct {
	Question       string `json:"question"`
	FilterDocument string `json:"filter_document,omitempty"`
	K              int    `json:"k,omitempty"`
}

type ContextPostResponse struct {
	Query        string  `json:"query"`
	Results      []Chunk `json:"results"`
	HasContext   bool    `json:"has_context"`
	OutOfContext bool    `json:"out_of_context"`
}

// Chunk is a span of a source document returned by the retrieval backend.
type Chunk struct {
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	ChunkIndex    int     `json:"chunk_index"`
	Similarity    float64 `json:"similarity"`
	Text          string  `json:"text"`
	URL           string  `json:"url,omitempty"`
}
