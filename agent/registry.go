package agent

import (
	"fmt"

	"github.com/collegecompass/compass/core"
)

// Registry maps role identifiers to their immutable configuration and
// resolved instruction source. Built once at startup from configuration;
// never mutated at runtime.
type Registry struct {
	configs      map[string]core.AgentConfig
	instructions map[string]Instruction
}

// NewRegistry builds a registry from agent configs and a prompt template
// set keyed by template reference. A config whose PromptTemplate names a
// missing template falls back to the built-in prompt for its role, then to
// a generic counselor prompt.
func NewRegistry(configs []core.AgentConfig, prompts map[string]string) (*Registry, error) {
	r := &Registry{
		configs:      make(map[string]core.AgentConfig, len(configs)),
		instructions: make(map[string]Instruction, len(configs)),
	}

	for _, cfg := range configs {
		if cfg.ID == "" {
			return nil, fmt.Errorf("agent config with empty id")
		}
		if cfg.Provider == "" || cfg.Model == "" {
			return nil, fmt.Errorf("agent %s: provider and model are required", cfg.ID)
		}
		if _, dup := r.configs[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate agent config: %s", cfg.ID)
		}

		text, ok := prompts[cfg.PromptTemplate]
		if !ok {
			text, ok = defaultPrompts[cfg.ID]
			if !ok {
				text = defaultPrompts[RoleCounselor]
			}
		}

		r.configs[cfg.ID] = cfg
		r.instructions[cfg.ID] = NewInstructionFromText(text)
	}

	if len(r.configs) == 0 {
		return nil, fmt.Errorf("no agent configs provided")
	}

	return r, nil
}

// Config returns the configuration for a role.
func (r *Registry) Config(id string) (core.AgentConfig, error) {
	cfg, ok := r.configs[id]
	if !ok {
		return core.AgentConfig{}, fmt.Errorf("unknown agent: %s", id)
	}
	return cfg, nil
}

// Instruction returns the instruction source for a role.
func (r *Registry) Instruction(id string) (Instruction, error) {
	instr, ok := r.instructions[id]
	if !ok {
		return Instruction{}, fmt.Errorf("unknown agent: %s", id)
	}
	return instr, nil
}

// Has reports whether a role is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.configs[id]
	return ok
}

// IDs returns the registered role identifiers.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.configs))
	for _, id := range Roles() {
		if r.Has(id) {
			ids = append(ids, id)
		}
	}
	for id := range r.configs {
		if !isKnownRole(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

func isKnownRole(id string) bool {
	for _, role := range Roles() {
		if role == id {
			return true
		}
	}
	return false
}
