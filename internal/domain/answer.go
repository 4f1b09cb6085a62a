package domain

import "context"

// Hit is a single retrieval result, ranked by descending similarity.
type Hit struct {
	Text      string
	SessionID SessionID
	Score     float64
}

// Citation is a retrieved snippet surfaced alongside an answer for audit.
type Citation struct {
	Text  string
	Score float64
}

// Outcome classifies how an answer was produced, so callers can tell
// "nothing retrieved" from "a remote call failed" without string matching.
type Outcome string

const (
	// OutcomeGrounded is an answer synthesized from retrieved context.
	OutcomeGrounded Outcome = "grounded"
	// OutcomeNoContext means retrieval returned nothing; fixed answer, no LLM call.
	OutcomeNoContext Outcome = "no_context"
	// OutcomeRetrievalFailed means embedding or search failed; no citations.
	OutcomeRetrievalFailed Outcome = "retrieval_failed"
	// OutcomeSynthesisFailed means retrieval succeeded but generation failed;
	// citations are still returned.
	OutcomeSynthesisFailed Outcome = "synthesis_failed"
)

// Answer is the query pipeline result. Always populated: remote failures
// are folded into Text and Outcome, never propagated as errors.
type Answer struct {
	Text      string
	Outcome   Outcome
	Citations []Citation
}

// Synthesizer composes a natural-language answer grounded in the given
// context snippets.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, snippets []string) (string, error)
}
