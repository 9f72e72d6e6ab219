// Stator snapshots and restores an entity's full component state as a
// single opaque blob, independent of any one timestream entry. Named after
// original_source/source/ecs/stator.h, which the distilled spec folded
// anonymously into "ECS registries" (spec §2) — this module keeps it as a
// named facility because the parallel context's Load/Extract steps (spec
// §4.5) need exactly this: take a whole entity's state out of one cosmos
// and put an equivalent state into another.
package ecs

import (
	"holodeck1/entity"
	"holodeck1/event"
)

// Stator bundles the three registries a snapshot/restore needs.
type Stator struct {
	Entities   *EntityRegistry
	Components *ComponentRegistry
	Synchros   *SynchroRegistry
}

// NewStator wraps an existing registry trio.
func NewStator(entities *EntityRegistry, components *ComponentRegistry, synchros *SynchroRegistry) *Stator {
	return &Stator{Entities: entities, Components: components, Synchros: synchros}
}

// SnapshotEntity serializes every present component body of e into a
// fresh buffer in descending type-index order (spec §6 entity-update
// layout, minus the entity id and the signature) and returns e's signature
// alongside the buffer rather than inside it.
func (s *Stator) SnapshotEntity(e entity.Entity) (*event.MessageBuffer, Signature, error) {
	sig, err := s.Entities.Signature(e)
	if err != nil {
		return nil, 0, err
	}
	buf := event.NewMessageBuffer(128)
	if err := s.Components.Serialize(buf, e, sig); err != nil {
		return nil, 0, err
	}
	return buf, sig, nil
}

// RestoreEntity applies a previously captured snapshot to entity dst,
// registering it in the destination registries first if it is not already
// present, then deserializing every component the signature names,
// inserting any the destination lacks (a full-category write, spec §4.1).
func (s *Stator) RestoreEntity(dst entity.Entity, sig Signature, buf *event.MessageBuffer) error {
	if !s.Entities.Has(dst) {
		s.Entities.RegisterCopy(dst)
	}
	if err := s.Components.Deserialize(buf, dst, sig, true); err != nil {
		return err
	}
	if err := s.Entities.SetSignature(dst, sig); err != nil {
		return err
	}
	s.Synchros.OnSignatureChanged(dst, sig)
	return nil
}
