// Package ecs implements the entity-component-system registries a cosmos
// owns: the entity registry (live-entity set, signatures, id pool), the
// component registry (packed per-type storage with binary serialization),
// and the synchro registry (systems dispatched by signature match).
package ecs

import "fmt"

// MaxComponentTypes bounds the width of a Signature (spec §3).
const MaxComponentTypes = 32

// Signature is a fixed-width bitset over registered component types,
// indexed by each type's dense registration-order index.
type Signature uint32

// Set returns a copy of s with bit index set.
func (s Signature) Set(index int) Signature {
	return s | (1 << uint(index))
}

// Clear returns a copy of s with bit index cleared.
func (s Signature) Clear(index int) Signature {
	return s &^ (1 << uint(index))
}

// Has reports whether bit index is set.
func (s Signature) Has(index int) bool {
	return s&(1<<uint(index)) != 0
}

// Contains reports whether s has every bit set that other has
// (s ⊇ other).
func (s Signature) Contains(other Signature) bool {
	return s&other == other
}

// IsZero reports whether no bits are set.
func (s Signature) IsZero() bool { return s == 0 }

func checkIndex(index int) error {
	if index < 0 || index >= MaxComponentTypes {
		return fmt.Errorf("ecs: component index %d exceeds MaxComponentTypes=%d", index, MaxComponentTypes)
	}
	return nil
}
