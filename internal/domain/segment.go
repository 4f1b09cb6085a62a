package domain

import "fmt"

// Segment is the unit of retrieval: one speaker-prefixed utterance with
// its embedding. Immutable and append-only; Seq preserves transcript order.
type Segment struct {
	Text      string
	SessionID SessionID
	Seq       int
	Vector    []float32
}

// BuildSegments pairs utterances with their embeddings under one session id,
// preserving utterance order. Vector count must match utterance count.
func BuildSegments(session SessionID, utterances []Utterance, vectors [][]float32) ([]Segment, error) {
	if len(utterances) != len(vectors) {
		return nil, fmt.Errorf("%d utterances but %d vectors: %w",
			len(utterances), len(vectors), ErrVectorDimMismatch)
	}

	segments := make([]Segment, len(utterances))
	for i, u := range utterances {
		segments[i] = Segment{
			Text:      u.SegmentText(),
			SessionID: session,
			Seq:       i,
			Vector:    vectors[i],
		}
	}
	return segments, nil
}
