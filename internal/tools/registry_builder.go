package tools

import (
	"fmt"

	"github.com/jarvis-assistant/jarvis/internal/schema"
)

// RegistryBuilder accumulates tools during the construction phase.
// Call Build() to produce an immutable, validated Registry.
type RegistryBuilder struct {
	tools map[string]schema.Tool
	dup   string
}

// NewRegistryBuilder returns a fresh RegistryBuilder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{tools: make(map[string]schema.Tool)}
}

// WithTool adds a tool and returns the builder, enabling chaining.
func (b *RegistryBuilder) WithTool(tool schema.Tool) *RegistryBuilder {
	if _, exists := b.tools[tool.Name()]; exists && b.dup == "" {
		b.dup = tool.Name()
	}
	b.tools[tool.Name()] = tool
	return b
}

// Build produces an immutable Registry from the accumulated tools, failing
// fast on duplicate names, missing required tools, or malformed schemas.
func (b *RegistryBuilder) Build() (*Registry, error) {
	if b.dup != "" {
		return nil, fmt.Errorf("tool registry: duplicate tool %q", b.dup)
	}

	tools := make(map[string]schema.Tool, len(b.tools))
	for k, v := range b.tools {
		tools[k] = v
	}
	r := &Registry{tools: tools}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}
