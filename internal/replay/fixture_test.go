package replay

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestFixtureSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	envs := recordedSession()

	if err := SaveFixture(path, "coherent session regression", envs); err != nil {
		t.Fatalf("SaveFixture: %v", err)
	}

	f, loaded, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if f.Description != "coherent session regression" {
		t.Fatalf("description lost: %q", f.Description)
	}
	if len(loaded) != len(envs) {
		t.Fatalf("expected %d envelopes, got %d", len(envs), len(loaded))
	}
	for i := range loaded {
		if loaded[i].Seq != envs[i].Seq || loaded[i].Event != envs[i].Event {
			t.Fatalf("envelope %d changed: %+v vs %+v", i, loaded[i], envs[i])
		}
	}
}

func TestSavedFixtureVerifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	envs := recordedSession()

	if err := SaveFixture(path, "regression", envs); err != nil {
		t.Fatalf("SaveFixture: %v", err)
	}

	hash, err := VerifyFixture(path)
	if err != nil {
		t.Fatalf("VerifyFixture: %v", err)
	}

	want, err := VerifyDeterminism(envs)
	if err != nil {
		t.Fatalf("VerifyDeterminism: %v", err)
	}
	if hash != want {
		t.Fatalf("fixture hash %s differs from live replay %s", hash, want)
	}
}

func TestTamperedFixtureFailsVerification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := SaveFixture(path, "regression", recordedSession()); err != nil {
		t.Fatalf("SaveFixture: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	f.ExpectedHash = "00000000000000000000000000000000"
	tampered, _ := json.Marshal(f)
	if err := os.WriteFile(path, tampered, 0o644); err != nil {
		t.Fatalf("write tampered fixture: %v", err)
	}

	if _, err := VerifyFixture(path); err == nil {
		t.Fatal("tampered expected hash passed verification")
	}
}

func TestSaveFixtureRejectsBrokenSequence(t *testing.T) {
	envs := recordedSession()
	broken := append(envs[:1], envs[2:]...) // drop seq 2

	err := SaveFixture(filepath.Join(t.TempDir(), "broken.json"), "x", broken)
	if err == nil {
		t.Fatal("fixture captured a corrupt sequence")
	}
}

func TestLoadFixtureMissingFile(t *testing.T) {
	if _, _, err := LoadFixture(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}
