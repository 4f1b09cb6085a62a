package domain

import "errors"

var (
	// ErrTranscription signals a speech-to-text provider failure.
	ErrTranscription = errors.New("transcription failed")
	// ErrEmbedding signals an embedding provider failure.
	ErrEmbedding = errors.New("embedding failed")
	// ErrStoreWrite signals a vector store write failure.
	ErrStoreWrite = errors.New("store write failed")
	// ErrStoreQuery signals a vector store query failure.
	ErrStoreQuery = errors.New("store query failed")
	// ErrSynthesis signals an answer generation failure.
	ErrSynthesis = errors.New("answer synthesis failed")
	// ErrIndexStatusUnknown is a warning: segments are persisted but index
	// creation could not be confirmed. Ingestion still succeeds.
	ErrIndexStatusUnknown = errors.New("index status unknown")
	// ErrEmptyInput signals an empty transcript, query, or audio payload.
	ErrEmptyInput = errors.New("empty input")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrSessionNotFound signals that no segments exist for a session.
	ErrSessionNotFound = errors.New("session not found")
)
