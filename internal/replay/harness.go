// Package replay rebuilds BreathState aggregates from recorded
// envelope sequences and verifies the determinism contract.
package replay

import (
	"fmt"

	"github.com/zenb-io/zenb/go-core/internal/domain"
)

// #region replay

// Replay folds an ordered envelope sequence into a fresh aggregate.
// Any protocol fault (gap, duplicate, regression, unknown event)
// aborts the replay with the position attached.
func Replay(envs []domain.Envelope) (domain.BreathState, error) {
	var state domain.BreathState
	for i, env := range envs {
		next, err := state.Apply(env)
		if err != nil {
			return state, fmt.Errorf("replay envelope %d (seq %d): %w", i, env.Seq, err)
		}
		state = next
	}
	return state, nil
}

// #endregion replay

// #region verify

// VerifyDeterminism replays the sequence into two independently
// constructed aggregates and returns the shared hash. A disagreement
// means the determinism contract is broken, not that the input is bad.
func VerifyDeterminism(envs []domain.Envelope) (string, error) {
	first, err := Replay(envs)
	if err != nil {
		return "", err
	}
	second, err := Replay(envs)
	if err != nil {
		return "", err
	}

	h1, err := first.Hash()
	if err != nil {
		return "", fmt.Errorf("hash first replay: %w", err)
	}
	h2, err := second.Hash()
	if err != nil {
		return "", fmt.Errorf("hash second replay: %w", err)
	}
	if h1 != h2 {
		return "", fmt.Errorf("replay hashes diverge: %s vs %s", h1, h2)
	}
	return h1, nil
}

// #endregion verify
