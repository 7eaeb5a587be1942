package models

// Chunk is a retrieval-sized slice of leaf content. It carries enough
// provenance (source node, title path, pages) to cite its way back into
// the structure tree without reloading it.
type Chunk struct {
	ID         string    `json:"chunk_id"`
	Textbook   string    `json:"textbook"`
	NodeID     string    `json:"node_id"`
	Breadcrumb string    `json:"breadcrumb"`
	Pages      []int     `json:"page_number,omitempty"`
	Content    string    `json:"content"`
	Embedding  []float64 `json:"embedding,omitempty"`
}

// SearchResult pairs a stored chunk with its similarity score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}
