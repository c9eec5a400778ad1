// Package cycle recognizes unproductive repetition: an attempt whose
// change-set hash matches a previously failed attempt has returned to a
// state already proven broken, and re-verifying it would be wasted work.
package cycle

import "wiggum/internal/sandbox"

// Verdict classifies a change hash before verification.
type Verdict string

const (
	// VerdictOk means the change-set is new and should be verified.
	VerdictOk Verdict = "ok"
	// VerdictEmptyChange means the agent produced no modifications.
	VerdictEmptyChange Verdict = "empty_change"
	// VerdictCycle means the change-set matches a failed attempt.
	VerdictCycle Verdict = "cycle_detected"
)

// Check classifies hash against the set of hashes from previously failed
// attempts. Empty change is checked first: a no-op attempt is a failure
// regardless of what verification would say. Success hashes never enter
// failedHashes — a success ends the run.
func Check(hash string, failedHashes map[string]bool) Verdict {
	if hash == sandbox.EmptyHash {
		return VerdictEmptyChange
	}
	if failedHashes[hash] {
		return VerdictCycle
	}
	return VerdictOk
}
