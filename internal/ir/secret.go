package ir

import (
	"encoding/json"
	"log/slog"
)

const redacted = "[REDACTED]"

// Secret holds the webhook shared secret. The value belongs to the
// source-control collaborator; it is carried on the trigger and revealed
// only to compute an HMAC. Every encoding prints a placeholder.
type Secret struct {
	value string
}

// NewSecret wraps a secret value.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Reveal returns the raw secret. Callers must not log or store the result.
func (s Secret) Reveal() []byte {
	return []byte(s.value)
}

// IsZero reports whether no secret was supplied.
func (s Secret) IsZero() bool {
	return s.value == ""
}

// String implements fmt.Stringer.
func (s Secret) String() string {
	if s.IsZero() {
		return ""
	}
	return redacted
}

// GoString keeps %#v from printing the value.
func (s Secret) GoString() string {
	return "ir.Secret(" + s.String() + ")"
}

// LogValue implements slog.LogValuer.
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

// MarshalJSON emits the placeholder, never the value.
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the placeholder (stored definitions) and yields a
// zero secret; raw secrets are never read back from JSON.
func (s *Secret) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Secret{}
	return nil
}
