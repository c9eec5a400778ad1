package config

// Config is the top-level structure parsed from wiggum YAML.
type Config struct {
	Wiggum Wiggum `yaml:"wiggum"`
}

// Wiggum defines one task line's controller settings. Everything here can
// be overridden per invocation on the command line except the sandbox and
// state locations, which are fixed per deployment.
type Wiggum struct {
	// AgentCommand is the template invoking the opaque external agent.
	// {{brief}} expands to the brief file path, {{workspace}} to the
	// workspace root.
	AgentCommand string `yaml:"agent_command"`

	// SandboxPrefix is the base path under which attempt workspaces are
	// created. Empty means <baseline>/.wiggum-sandboxes.
	SandboxPrefix string `yaml:"sandbox_prefix"`

	// StateDir is where task state, history and the event log live.
	// Empty means ~/.wiggum.
	StateDir string `yaml:"state_dir"`

	DefaultRetries int    `yaml:"default_retries"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	VerifyCommand  string `yaml:"verify_command"`
	MergeStrategy  string `yaml:"merge_strategy"`

	// ProtectedFiles are reverted to baseline content before hashing and
	// verification, so the agent cannot durably alter them.
	ProtectedFiles []string `yaml:"protected_files"`

	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	BootDelaySeconds    int `yaml:"boot_delay_seconds"`

	// MaxVerifyOutput bounds captured verification output in bytes.
	MaxVerifyOutput int `yaml:"max_verify_output"`

	// MaxWisdomBytes bounds the wisdom section rendered into briefs.
	// 0 keeps full recall; the durable ledger is never pruned either way.
	MaxWisdomBytes int `yaml:"max_wisdom_bytes"`

	// BriefTemplate optionally names a template file, resolved inside the
	// workspace first and the builtin directory second.
	BriefTemplate string `yaml:"brief_template"`
}

// Defaults applied by the loader when a field is unset.
const (
	DefaultRetries         = 3
	DefaultTimeoutSeconds  = 1800
	DefaultMergeStrategy   = "squash"
	DefaultPollSeconds     = 10
	DefaultBootDelaySecs   = 5
	DefaultMaxVerifyOutput = 4096
)

// MergeStrategies lists the accepted merge_strategy values.
var MergeStrategies = []string{"squash", "merge", "rebase"}
