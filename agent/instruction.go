package agent

import (
	"strings"

	"github.com/collegecompass/compass/core"
	"github.com/collegecompass/compass/internal/util"
)

// InstructionProvider supplies dynamic instruction text at runtime.
// Implementations can derive instructions from the profile snapshot,
// session scratch state, environment, etc.
type InstructionProvider interface {
	Instruction(profile *core.StudentProfile, scratch map[string]any) (string, error)
}

// InstructionFunc is a functional adapter to allow ordinary functions to be
// used as InstructionProviders.
type InstructionFunc func(profile *core.StudentProfile, scratch map[string]any) (string, error)

// Instruction implements InstructionProvider.
func (f InstructionFunc) Instruction(profile *core.StudentProfile, scratch map[string]any) (string, error) {
	return f(profile, scratch)
}

// Instruction represents either a static template string or a dynamic
// provider. Templates are rendered with the student's profile fields.
type Instruction struct {
	text     string
	provider InstructionProvider
}

// NewInstructionFromText creates an Instruction from a template string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p InstructionProvider) Instruction {
	return Instruction{provider: p}
}

// IsStatic reports whether the instruction is backed by a static template.
func (i Instruction) IsStatic() bool { return i.provider == nil }

// Resolve returns the final system prompt, rendering the template against
// the profile snapshot or invoking the dynamic provider.
func (i Instruction) Resolve(profile *core.StudentProfile, scratch map[string]any) (string, error) {
	if i.provider != nil {
		return i.provider.Instruction(profile, scratch)
	}
	return util.RenderTemplate(i.text, templateState(profile, scratch))
}

// templateState flattens the profile snapshot into template variables.
func templateState(profile *core.StudentProfile, scratch map[string]any) map[string]any {
	state := map[string]any{
		"Grade":        "",
		"Interests":    "",
		"TargetMajors": "",
		"Colleges":     "",
	}
	if profile != nil {
		if profile.Grade != 0 {
			state["Grade"] = core.NewGradeSet(profile.Grade).String()
		}
		state["Interests"] = strings.Join(profile.Interests, ", ")
		state["TargetMajors"] = strings.Join(profile.TargetMajors, ", ")
		state["Colleges"] = strings.Join(profile.FavoriteColleges, ", ")
	}
	for k, v := range scratch {
		state[k] = v
	}
	return state
}
