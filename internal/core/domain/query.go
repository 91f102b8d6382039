package domain

// NoRelevantContextAnswer is returned when retrieval finds nothing to ground
// an answer on. The generation collaborator is not called in that case.
const NoRelevantContextAnswer = "No relevant context was found in the ingested documents."

// SourceRef cites one retrieved chunk in an answer.
type SourceRef struct {
	DocumentID    string  `json:"document_id"`
	DocumentName  string  `json:"document_name"`
	ChunkID       string  `json:"chunk_id"`
	SequenceIndex int     `json:"sequence_index"`
	Score         float64 `json:"score"`
}

// RetrievedChunk is a chunk returned by similarity search with its score.
type RetrievedChunk struct {
	ChunkID  string
	Metadata ChunkMetadata
	Score    float64
}

// Ref returns the citation for the chunk.
func (r RetrievedChunk) Ref() SourceRef {
	return SourceRef{
		DocumentID:    r.Metadata.DocumentID,
		DocumentName:  r.Metadata.DocumentName,
		ChunkID:       r.ChunkID,
		SequenceIndex: r.Metadata.SequenceIndex,
		Score:         r.Score,
	}
}

// Less orders retrieved chunks by descending score, then ascending
// document ID, then ascending sequence index.
func (r RetrievedChunk) Less(other RetrievedChunk) bool {
	if r.Score != other.Score {
		return r.Score > other.Score
	}
	if r.Metadata.DocumentID != other.Metadata.DocumentID {
		return r.Metadata.DocumentID < other.Metadata.DocumentID
	}
	return r.Metadata.SequenceIndex < other.Metadata.SequenceIndex
}

// QueryContext is the transient state of one question/answer request.
type QueryContext struct {
	// QueryText is the user question.
	QueryText string

	// QueryEmbedding is the embedded question.
	QueryEmbedding []float32

	// Retrieved holds the chunks used as context in rank order.
	Retrieved []RetrievedChunk

	// Answer is the generated answer, or NoRelevantContextAnswer.
	Answer string

	// NoContext is true when retrieval returned nothing.
	NoContext bool
}

// Sources returns the ordered citations for the answer.
func (q *QueryContext) Sources() []SourceRef {
	refs := make([]SourceRef, len(q.Retrieved))
	for i, r := range q.Retrieved {
		refs[i] = r.Ref()
	}
	return refs
}
