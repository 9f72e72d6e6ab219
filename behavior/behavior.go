// Package behavior implements per-entity scripted dispatch: a process-wide
// tag-keyed registry of factories (grounded on holodeck1/plugins's
// Manager.hooks map[string][]Hook registry-by-tag idiom, generalized from
// HTTP plugin hooks to in-process simulation behaviors) and the
// capability-flag plumbing that lets a behavior opt into fixed-update,
// frame-update, and collision callbacks independently.
package behavior

import (
	"fmt"
	"sync"

	"holodeck1/entity"
	"holodeck1/logging"
	"holodeck1/physics"
)

// Capability is a bitset of the callback hooks a Behavior implements
// (spec §4.3). A behavior that errors out of one capability during a tick
// has that capability disabled going forward; the entity and its other
// capabilities are unaffected (spec §4.3 "soft-fail disables the flag,
// never the whole entity").
type Capability uint8

const (
	OnFixedUpdate Capability = 1 << iota
	OnFrameUpdate
	OnCollision
)

func (c Capability) Has(flag Capability) bool { return c&flag != 0 }

// Behavior is the interface a scripted entity controller implements.
// Each method is only called when the owning Instance's capability flags
// say so; a behavior need not populate every method meaningfully, but it
// must not rely on being called for a capability it never reports.
type Behavior interface {
	Capabilities() Capability
	FixedUpdate(e entity.Entity, dt float32) error
	FrameUpdate(e entity.Entity, dt float32) error
	OnCollide(e entity.Entity, ev physics.CollisionEvent) error
}

// Instance binds a Behavior to one entity along with the live capability
// flags, which may have been narrowed from the behavior's declared
// capabilities by prior soft-fails.
type Instance struct {
	Entity  entity.Entity
	Tag     string
	Impl    Behavior
	Enabled Capability
}

// NewInstance creates an Instance with every capability the behavior
// declares initially enabled.
func NewInstance(e entity.Entity, tag string, impl Behavior) *Instance {
	return &Instance{Entity: e, Tag: tag, Impl: impl, Enabled: impl.Capabilities()}
}

// RunFixedUpdate invokes FixedUpdate if enabled, disabling the flag on error.
func (inst *Instance) RunFixedUpdate(dt float32) {
	if !inst.Enabled.Has(OnFixedUpdate) {
		return
	}
	if err := inst.Impl.FixedUpdate(inst.Entity, dt); err != nil {
		logging.Warn("fixed update failed, disabling capability", map[string]interface{}{
			"entity": inst.Entity.String(), "tag": inst.Tag, "error": err.Error(),
		})
		inst.Enabled &^= OnFixedUpdate
	}
}

// RunFrameUpdate invokes FrameUpdate if enabled, disabling the flag on error.
func (inst *Instance) RunFrameUpdate(dt float32) {
	if !inst.Enabled.Has(OnFrameUpdate) {
		return
	}
	if err := inst.Impl.FrameUpdate(inst.Entity, dt); err != nil {
		logging.Warn("frame update failed, disabling capability", map[string]interface{}{
			"entity": inst.Entity.String(), "tag": inst.Tag, "error": err.Error(),
		})
		inst.Enabled &^= OnFrameUpdate
	}
}

// RunOnCollide invokes OnCollide if enabled, disabling the flag on error.
func (inst *Instance) RunOnCollide(ev physics.CollisionEvent) {
	if !inst.Enabled.Has(OnCollision) {
		return
	}
	if err := inst.Impl.OnCollide(inst.Entity, ev); err != nil {
		logging.Warn("collision callback failed, disabling capability", map[string]interface{}{
			"entity": inst.Entity.String(), "tag": inst.Tag, "error": err.Error(),
		})
		inst.Enabled &^= OnCollision
	}
}

// Factory constructs a fresh Behavior for a newly-attached entity.
type Factory func() Behavior

// Library is the process-wide tag -> factory registry (grounded on
// plugins.Manager.hooks map[string][]Hook).
type Library struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewLibrary() *Library {
	return &Library{factories: make(map[string]Factory)}
}

// Register adds a factory under tag, replacing any prior registration.
func (l *Library) Register(tag string, f Factory) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.factories[tag] = f
}

// Create instantiates the behavior registered under tag for e.
func (l *Library) Create(e entity.Entity, tag string) (*Instance, error) {
	l.mu.RLock()
	f, ok := l.factories[tag]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("behavior: no factory registered for tag %q", tag)
	}
	return NewInstance(e, tag, f()), nil
}

// Tags returns every registered tag, for diagnostics.
func (l *Library) Tags() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.factories))
	for tag := range l.factories {
		out = append(out, tag)
	}
	return out
}
