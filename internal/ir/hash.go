package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainFixture = "opfixture/fixture/v1"
	DomainExample = "opfixture/example/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FixtureID computes the content-addressed ID of a fixture.
// Two fixtures with the same canonical form share an ID regardless of the
// format (CUE, YAML, JSON) they were authored in.
func FixtureID(m *Model) (string, error) {
	canonical, err := MarshalModel(m)
	if err != nil {
		return "", fmt.Errorf("FixtureID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainFixture, canonical), nil
}

// ExampleHash identifies a single worked example within its fixture.
func ExampleHash(fixtureID string, index int, ex Example) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"fixture_id": fixtureID,
		"index":      index,
		"inputs":     ex.Inputs,
		"outputs":    ex.Outputs,
	})
	if err != nil {
		return "", fmt.Errorf("ExampleHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainExample, canonical), nil
}

// MustFixtureID is like FixtureID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFixtureID(m *Model) string {
	id, err := FixtureID(m)
	if err != nil {
		panic(err)
	}
	return id
}
