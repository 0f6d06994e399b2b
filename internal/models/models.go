package models

// PageUnit is one page of extracted text with its provenance. Pages that
// yield no text are still emitted so page accounting stays consistent.
type PageUnit struct {
	Text       string
	SourceName string
	PageNumber int
}

// Chunk represents a bounded text window derived from one source file
type Chunk struct {
	Text          string
	SourceName    string
	PageNumber    int
	SequenceIndex int
}

// RetrievedChunk is a single search hit, produced fresh per query
type RetrievedChunk struct {
	Text       string
	SourceName string
	PageNumber int
	Rank       int
}

// PromptResponse is the final result of a RAG query
type PromptResponse struct {
	Query   string
	Sources []RetrievedChunk
	Content string
}
