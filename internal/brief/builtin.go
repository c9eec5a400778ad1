package brief

// DefaultTemplateName is the builtin mission brief template.
const DefaultTemplateName = "mission-brief.md"

var builtinTemplates = map[string]string{
	DefaultTemplateName: defaultTemplate,
}

const defaultTemplate = `# Mission brief — {{task_id}} (attempt {{attempt}} of {{max_attempts}})

## Directive

{{directive}}

## Constraints

- Work only inside this workspace. Your changes are merged into the baseline for you if verification passes.
- Do not rely on network state or wall-clock time; the result is judged purely on the workspace's file contents.
{{#if protected_files}}- The following files are protected and will be reverted to baseline content before verification, discarding any edits: {{protected_files}}
{{/if}}{{#if verify_command}}- Your work is verified by running: ` + "`{{verify_command}}`" + ` (exit code zero means pass).
{{/if}}- Hard timeout: {{timeout}}. The session is terminated without warning when it elapses, so commit to a working state early.
{{#if wisdom}}
## Do not repeat these mistakes

Previous attempts at this task failed. Their failure records follow. A
change-set identical to one of these is rejected without being verified,
so take a different approach.

{{wisdom}}
{{/if}}`
