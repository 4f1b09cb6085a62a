package domain

import (
	"context"
	"fmt"
	"io"
)

// Utterance is a single diarized speech turn, in chronological order.
type Utterance struct {
	Speaker string
	Text    string
}

// SegmentText renders the utterance in the stored segment format.
func (u Utterance) SegmentText() string {
	return fmt.Sprintf("%s: %s", u.Speaker, u.Text)
}

// Transcriber converts raw audio into an ordered diarized transcript.
// Implementations must preserve the order returned by the provider.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) ([]Utterance, error)
}
