package entity

// Chunk is a slice of an ingested document, the unit stored in the
// vector store.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
}

// RetrievedChunk is a chunk returned from a similarity search.
type RetrievedChunk struct {
	Chunk
	Score float32 `json:"score"`
}

// SearchQuery is a vector similarity query against the store.
type SearchQuery struct {
	Vector []float32
	TopK   int
}
