package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Digest returns the hex SHA-256 of domain, a 0x00 separator and the
// canonical encoding of v. The separator keeps domain and payload from
// running into each other.
func Digest(domain string, v Value) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", domain, err)
	}

	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestOf digests any JSON-marshalable value. The value goes through
// encoding/json first, so struct tags and omitempty decide its shape.
func DigestOf(domain string, v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("digest %s: marshal: %w", domain, err)
	}
	val, err := FromJSON(raw)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", domain, err)
	}
	return Digest(domain, val)
}

// Encode returns the canonical bytes of any JSON-marshalable value.
func Encode(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical encode: %w", err)
	}
	val, err := FromJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("canonical encode: %w", err)
	}
	return Marshal(val)
}
