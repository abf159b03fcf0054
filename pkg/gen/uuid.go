package gen

import (
	"github.com/google/uuid"
)

// UUIDGenerator produces identifiers for export snapshots. The function type
// lets tests pin predictable IDs.
type UUIDGenerator func() uuid.UUID

// UUID returns a generator of random v4 identifiers.
func UUID() UUIDGenerator {
	return uuid.New
}

func (g UUIDGenerator) Next() uuid.UUID {
	if g == nil {
		return uuid.Nil
	}

	return g()
}

// Fixed always yields id. Meant for tests.
func Fixed(id uuid.UUID) UUIDGenerator {
	return func() uuid.UUID {
		return id
	}
}
