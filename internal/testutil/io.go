package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/sobootstrap/internal/ir"
	"github.com/roach88/sobootstrap/internal/registry"
)

// ErrNoMoreInput is returned once a ScriptedIO runs out of answers.
var ErrNoMoreInput = errors.New("scripted io: no more input")

// ScriptedIO is an evaluator.IO double. Answers are handed out in order;
// prompts and printed values are recorded for assertions.
type ScriptedIO struct {
	mu      sync.Mutex
	answers []string
	Prompts []string
	Printed []ir.Value
}

// NewScriptedIO returns an IO double that answers prompts with answers.
func NewScriptedIO(answers ...string) *ScriptedIO {
	return &ScriptedIO{answers: answers}
}

// Print records v.
func (s *ScriptedIO) Print(v ir.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Printed = append(s.Printed, v)
	return nil
}

// Input records prompt and returns the next scripted answer.
func (s *ScriptedIO) Input(ctx context.Context, prompt string) (ir.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prompts = append(s.Prompts, prompt)
	if len(s.answers) == 0 {
		return nil, ErrNoMoreInput
	}
	a := s.answers[0]
	s.answers = s.answers[1:]
	return ir.String(a), nil
}

// Lines returns the printed values in their string form.
func (s *ScriptedIO) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Printed))
	for i, v := range s.Printed {
		out[i] = registry.ToString(v)
	}
	return out
}
