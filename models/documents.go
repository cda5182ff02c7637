package models

type DocumentsPostRequest struct {
	Document Document `json:"document"`
}

type Document struct {
	ID    string `json:"id,omitempty"`
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text,omitempty"`
}

type DocumentsPostResponse struct {
	ID string `json:"id"`
	// Indexing is true when the indexer accepted the document.
	Indexing bool `json:"indexing"`
}

type DocumentsGetResponse struct {
	Documents []Document `json:"documents"`
}
