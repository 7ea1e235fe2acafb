package agent

import (
	"errors"
	"fmt"
)

// Agent errors.
var (
	// ErrNoProvider indicates the loop was built without a language model.
	ErrNoProvider = errors.New("no provider configured")

	// ErrNoTools indicates the loop has no tools to offer.
	ErrNoTools = errors.New("no tools configured")
)

// ParseError reports model output that is neither a single action nor a
// final answer. Text holds the raw output.
type ParseError struct {
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse LLM output (%s): %q", e.Reason, e.Text)
}
