package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/zenb-io/zenb/go-core/internal/domain"
)

// #region fixture-types

// Fixture is the JSON shape of a recorded session used for hash
// regression: the envelope sequence plus the hash it must replay to.
type Fixture struct {
	Description  string            `json:"description"`
	Envelopes    []json.RawMessage `json:"envelopes"`
	ExpectedHash string            `json:"expected_hash"`
}

// #endregion fixture-types

// #region load-save

// LoadFixture reads and parses a fixture file, decoding its envelopes
// through the domain codec.
func LoadFixture(path string) (*Fixture, []domain.Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}

	envs := make([]domain.Envelope, len(f.Envelopes))
	for i, raw := range f.Envelopes {
		env, err := domain.UnmarshalEnvelope(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("fixture envelope %d: %w", i, err)
		}
		envs[i] = env
	}
	return &f, envs, nil
}

// SaveFixture serializes a session into a fixture file, recording the
// hash the sequence currently replays to.
func SaveFixture(path, description string, envs []domain.Envelope) error {
	hash, err := VerifyDeterminism(envs)
	if err != nil {
		return fmt.Errorf("hash session: %w", err)
	}

	raws := make([]json.RawMessage, len(envs))
	for i, env := range envs {
		data, err := domain.MarshalEnvelope(env)
		if err != nil {
			return fmt.Errorf("marshal envelope %d: %w", i, err)
		}
		raws[i] = data
	}

	data, err := json.MarshalIndent(Fixture{
		Description:  description,
		Envelopes:    raws,
		ExpectedHash: hash,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion load-save

// #region verify-fixture

// VerifyFixture replays a fixture's envelopes and compares the
// resulting hash against the recorded one. A mismatch is the
// regression signal this package exists for.
func VerifyFixture(path string) (string, error) {
	f, envs, err := LoadFixture(path)
	if err != nil {
		return "", err
	}
	hash, err := VerifyDeterminism(envs)
	if err != nil {
		return "", err
	}
	if hash != f.ExpectedHash {
		return hash, fmt.Errorf("fixture %s: replayed hash %s, expected %s", path, hash, f.ExpectedHash)
	}
	return hash, nil
}

// #endregion verify-fixture
