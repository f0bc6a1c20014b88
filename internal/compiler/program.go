package compiler

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sobootstrap/internal/ir"
)

// ParseProgram decodes a YAML program. Unknown fields are rejected so typos
// in operand keys surface here rather than as empty operands.
func ParseProgram(data []byte) (*ir.Program, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var prog ir.Program
	if err := dec.Decode(&prog); err != nil {
		return nil, fmt.Errorf("parse program: %w", err)
	}
	return &prog, nil
}
