package models

// Chunk represents a window of extracted text
type Chunk struct {
	Content string `json:"content"`
	Offset  int    `json:"offset"` // rune offset into the extracted text
	ChunkID int    `json:"chunk_id"`
}

// ChunkEmbedding pairs a chunk with its embedding vector
type ChunkEmbedding struct {
	Content   string
	Embedding []float32
	Source    string
	ChunkID   int
}

// PromptResponse is one answered question with the context it was grounded on
type PromptResponse struct {
	Query            string
	Context          []string
	Content          string
	PromptTokens     int
	CompletionTokens int
}
