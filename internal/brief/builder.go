// Package brief composes the directive text handed to the agent for one
// attempt: the task directive, the constraint set, and (from the second
// attempt on) the full wisdom ledger rendered as a "do not repeat these
// mistakes" section.
package brief

import (
	"fmt"
	"strings"

	"wiggum/internal/config"
	"wiggum/internal/wisdom"
)

// FileName is where the brief is written inside a workspace.
const FileName = ".wiggum/brief.md"

// Builder renders mission briefs from a fixed template. Build is a pure
// function of its arguments: the template text is resolved once at
// construction, so identical inputs always produce identical output.
type Builder struct {
	template       string
	maxWisdomBytes int
}

// NewBuilder resolves the task's brief template (config override first,
// builtin default otherwise) and returns a Builder bound to it.
func NewBuilder(task *config.Task) (*Builder, error) {
	name := task.BriefTemplate
	if name == "" {
		name = DefaultTemplateName
	}
	tmpl, err := LoadTemplate(name, task.Baseline)
	if err != nil {
		if task.BriefTemplate != "" {
			return nil, fmt.Errorf("load brief template: %w", err)
		}
		// No installed builtin either; fall back to the compiled-in text.
		tmpl = defaultTemplate
	}
	return &Builder{template: tmpl, maxWisdomBytes: task.MaxWisdomBytes}, nil
}

// Build renders the brief for one attempt. Attempt 1 carries only the
// directive and constraints; later attempts fold in the entire wisdom
// snapshot.
func (b *Builder) Build(task *config.Task, attemptNumber int, entries []wisdom.Entry) (string, error) {
	wisdomText := ""
	if attemptNumber > 1 {
		wisdomText = wisdom.Render(entries, b.maxWisdomBytes)
	}

	vars := Vars{
		"task_id":         task.ID,
		"attempt":         fmt.Sprintf("%d", attemptNumber),
		"max_attempts":    fmt.Sprintf("%d", task.MaxRetries),
		"directive":       task.Directive,
		"protected_files": strings.Join(task.ProtectedPaths, ", "),
		"verify_command":  task.VerifyCommand,
		"timeout":         task.Timeout.String(),
		"wisdom":          wisdomText,
	}

	return Render(b.template, vars)
}
