package cosmos

import (
	"fmt"
	"sync"

	"holodeck1/ecs"
	"holodeck1/entity"
	"holodeck1/event"
	"holodeck1/logging"
	"holodeck1/timestream"
)

// condemnedPair is one entry of the condemned set: the entity marked for
// deletion and the source entity whose condemn request caused it, so
// duplicate condemn events from peers idempotently no-op (spec §3).
type condemnedPair struct {
	Target entity.Entity
	Source entity.Entity
}

// Cosmos is the aggregate simulation context for one timeslice's present
// (or one parallel context's headless replay): the three ECS registries,
// the broker, the timestream state machine, and per-tick bookkeeping
// (spec §3 "Cosmos"). Grounded on holodeck1/server's Hub, the teacher's
// analogous "owns everything, drives the tick" aggregate.
type Cosmos struct {
	mu sync.Mutex

	Stator   *ecs.Stator
	Broker   *event.Broker
	States   *StateMachine

	HostID      uint8 // the owning timeslice id, 0..13
	IsHost      bool  // true for a server cosmos, false for a client
	Coherency   uint16
	FocalEntity entity.Entity

	condemned map[condemnedPair]bool

	// Linked, when non-nil, arbitrates entity-id allocation for this
	// cosmos (spec §3 "an optional linked cosmos that arbitrates
	// entity-id allocation"), used by clients deferring to their server.
	Linked *Cosmos
}

// New constructs an empty Cosmos for timeslice hostID.
func New(hostID uint8, isHost bool) *Cosmos {
	entities := ecs.NewEntityRegistry()
	components := ecs.NewComponentRegistry()
	synchros := ecs.NewSynchroRegistry()
	return &Cosmos{
		Stator:    ecs.NewStator(entities, components, synchros),
		Broker:    event.NewBroker(),
		States:    NewStateMachine(),
		HostID:    hostID,
		IsHost:    isHost,
		condemned: make(map[condemnedPair]bool),
	}
}

// createAllowed implements the §4.1 dedup precondition: "creation
// proceeds only if source == NULL or (link(source)==0 and this is a
// server) or the source entity is currently forked/forking in this
// cosmos."
func (c *Cosmos) createAllowed(source entity.Entity) bool {
	if source.IsNull() {
		return true
	}
	if source.Link() == 0 && c.IsHost {
		return true
	}
	return c.States.Get(source).State.IsDivergent()
}

// deriveLink implements the §4.1 link-derivation formula for a new
// entity, given that createAllowed has already passed.
func (c *Cosmos) deriveLink(atemporal bool, source entity.Entity) uint8 {
	if atemporal {
		return entity.NullOrAtemporalLink
	}
	if !c.IsHost {
		return 0
	}
	if source.IsNull() {
		return c.HostID
	}
	return source.Link()
}

// CreateEntity allocates and registers a new entity (spec §4.1
// "creation"). Returns entity.NULL_ENTITY with no error when the dedup
// precondition rejects the request (spec invariant: "create_entity(source=e)
// where e is Merged and link(e) > 0 and this cosmos is not a server
// returns NULL_ENTITY").
func (c *Cosmos) CreateEntity(atemporal bool, source entity.Entity) (entity.Entity, error) {
	c.mu.Lock()
	allowed := c.createAllowed(source)
	link := c.deriveLink(atemporal, source)
	hostID := c.HostID
	c.mu.Unlock()

	if !allowed {
		return entity.NULL_ENTITY, nil
	}

	allocator := c.Stator.Entities
	if c.Linked != nil {
		allocator = c.Linked.Stator.Entities
	}
	e, err := allocator.Allocate(hostID, link)
	if err != nil {
		return entity.NULL_ENTITY, err
	}
	if allocator != c.Stator.Entities {
		c.Stator.Entities.RegisterCopy(e)
	}

	msg := event.NewMessage(event.EntityCreated, c.Coherency)
	msg.Body.PushU16(uint16(e))
	msg.Finalize()
	c.Broker.Publish(msg)
	msg.Release()

	return e, nil
}

// Condemn marks target for deletion, attributing the request to source so
// that a duplicate condemn from a peer's propagated event idempotently
// no-ops (spec §3 "condemned ... so duplicate deletions from peers
// idempotently no-op").
func (c *Cosmos) Condemn(target, source entity.Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.condemned[condemnedPair{Target: target, Source: source}] = true
}

// FlushCondemned destroys every entity condemned since the last flush,
// publishing at most one ENTITY_REMOVED per distinct target even if it was
// condemned by multiple sources in the same tick (spec testable property:
// "Condemn the same entity twice in one tick -> at most one ENTITY_REMOVED
// event published"). Called at the start of each tick (spec §3 "destroyed
// before the next tick").
func (c *Cosmos) FlushCondemned() {
	c.mu.Lock()
	pending := c.condemned
	c.condemned = make(map[condemnedPair]bool)
	c.mu.Unlock()

	seen := make(map[entity.Entity]bool, len(pending))
	for pair := range pending {
		if seen[pair.Target] {
			continue
		}
		seen[pair.Target] = true

		c.Stator.Entities.Destroy(pair.Target)
		c.Stator.Synchros.OnEntityDestroyed(pair.Target)
		c.States.Forget(pair.Target)

		msg := event.NewMessage(event.EntityRemoved, c.Coherency)
		msg.Body.PushU16(uint16(pair.Target))
		msg.Finalize()
		c.Broker.Publish(msg)
		msg.Release()
	}
}

// ApplyInbound consumes every entry from conduit and applies it to this
// cosmos: ENTITY_UPDATE registers or restores the named entity's snapshot,
// ENTITY_REMOVED condemns it, and every other message type (ENTITY_CREATED
// included) is republished on the cosmos's broker (spec §2 "inbound
// future-timestream events are applied to local entities"). Divergent
// entities (Forking/Forked) have their future-side updates ignored (spec
// §4.4: "their state is still emitted past-ward, but future-side state
// updates are ignored").
func (c *Cosmos) ApplyInbound(conduit *timestream.Conduit) {
	c.ApplyEntries(conduit.DrainInbound())
}

// ApplyEntries applies a pre-drained slice of entries the same way
// ApplyInbound applies a conduit's inbound backlog — used by the parallel
// context's Load (spec §4.5), which is handed a future-side timestream
// snapshot rather than a live conduit.
func (c *Cosmos) ApplyEntries(entries []timestream.Entry) {
	for _, entry := range entries {
		c.applyEntry(entry)
	}
}

func (c *Cosmos) applyEntry(e timestream.Entry) {
	msg := e.Msg
	defer msg.Release()

	switch msg.Header.ID {
	case event.EntityUpdate:
		rawTarget, err := msg.Body.PopU16()
		if err != nil {
			logging.Warn("dropping malformed entity update", map[string]interface{}{"error": err.Error()})
			return
		}
		target := entity.Entity(rawTarget)
		if c.States.Get(target).State.IsDivergent() {
			return
		}
		rawSig, err := msg.Body.PopU32()
		if err != nil {
			logging.Warn("dropping malformed entity update", map[string]interface{}{
				"entity": target.String(), "error": err.Error(),
			})
			return
		}
		sig := ecs.Signature(rawSig)
		if err := c.Stator.RestoreEntity(target, sig, msg.Body); err != nil {
			logging.Warn("dropping malformed entity update", map[string]interface{}{
				"entity": target.String(), "error": err.Error(),
			})
		}
	case event.EntityRemoved:
		rawTarget, err := msg.Body.PopU16()
		if err != nil {
			logging.Warn("dropping malformed entity removal", map[string]interface{}{"error": err.Error()})
			return
		}
		c.Condemn(entity.Entity(rawTarget), entity.NULL_ENTITY)
	default:
		c.Broker.Publish(msg)
	}
}

// PublishOutbound serializes every live entity's current state onto
// conduit's past-ward side (spec §2 "outbound state for each local entity
// is appended to the past-ward timestream").
func (c *Cosmos) PublishOutbound(conduit *timestream.Conduit) error {
	for _, e := range c.Stator.Entities.Live() {
		buf, sig, err := c.Stator.SnapshotEntity(e)
		if err != nil {
			return fmt.Errorf("cosmos: snapshot %s: %w", e, err)
		}
		msg := event.NewMessage(event.EntityUpdate, c.Coherency)
		// Component data is pushed first (bottom), then signature, then
		// entity id last (top): since a reader pops from the top, this
		// makes the read order id -> signature -> component data, the
		// logical field order of an entity update (spec §6), even though
		// the physical write order is its reverse.
		msg.Body.SetBytes(buf.Bytes())
		msg.Body.PushU32(uint32(sig))
		msg.Body.PushU16(uint16(e))
		msg.Finalize()
		conduit.PushPastward(timestream.Entry{Msg: msg})
	}
	return nil
}

// Advance increments the wrapping coherency counter by one tick.
func (c *Cosmos) Advance() {
	c.Coherency++
}
