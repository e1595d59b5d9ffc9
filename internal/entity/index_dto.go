package entity

// IndexStatusDTO reports the state of the knowledge base index.
type IndexStatusDTO struct {
	ChunkCount int           `json:"chunk_count"`
	InFlight   bool          `json:"indexing_in_progress"`
	Documents  []DocumentDTO `json:"documents"`
}
