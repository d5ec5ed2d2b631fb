package execution

import "github.com/google/uuid"

// IDGenerator issues execution IDs.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator issues time-sortable UUIDv7 strings, so execution IDs
// order by start time in listings. Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7. Panics if the random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
