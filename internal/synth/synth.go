package synth

import (
	"context"
	"fmt"
)

// Answer is the structured output of a synthesis call.
type Answer struct {
	Answer    string   `json:"answer" validate:"required"`
	Citations []string `json:"citations" validate:"required,dive,required"`
}

// Synthesizer produces a grounded answer with citations for a query given a
// pre-built source context.
type Synthesizer interface {
	Synthesize(ctx context.Context, query, sourceContext string) (*Answer, error)
}

// SynthesisError wraps any failure while producing the answer: transport,
// refusals, malformed or schema-violating output. The pipeline treats it as
// fatal.
type SynthesisError struct {
	Model string
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis with %s: %v", e.Model, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}
