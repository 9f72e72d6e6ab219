// Package timeslice drives one cosmos's fixed/frame cadence and wires it
// to its future and past timestream neighbors (spec §2 "Timeslice
// context", §4.2, §4.3). Grounded on holodeck1/server's Hub: Context.Run
// generalizes Hub.Run's register/unregister/broadcast channel-select loop
// from "WebSocket client fan-in" to "future-timestream fan-in plus
// ticker-driven simulation cadence".
package timeslice

import (
	"context"
	"fmt"
	"time"

	"holodeck1/behavior"
	"holodeck1/cosmos"
	"holodeck1/ecs"
	"holodeck1/entity"
	"holodeck1/logging"
	"holodeck1/physics"
	"holodeck1/timestream"
)

// Dynamo is a long-lived service a Context's synchros submit work to
// within a tick (spec Glossary: "a long-lived service object that
// synchros submit work to within a tick"). The physics relay and the
// behavior library both satisfy this role implicitly; Dynamo exists as a
// named seam for a future service (e.g. a network relay) to plug into
// Context without Context growing a bespoke field per service.
type Dynamo interface {
	// Name identifies the dynamo for logging.
	Name() string
}

// relayDynamo and libraryDynamo adapt the physics relay and behavior
// library to Dynamo purely for diagnostic listing (Context talks to them
// through their own concrete APIs for everything else).
type relayDynamo struct{ *physics.Relay }

func (relayDynamo) Name() string { return "physics.Relay" }

type libraryDynamo struct{ *behavior.Library }

func (libraryDynamo) Name() string { return "behavior.Library" }

// Context owns one cosmos and drives its fixed-step and frame-step
// cadence, consuming the future-side conduit and producing to the
// past-side one each fixed tick (spec §2).
type Context struct {
	Cosmos    *cosmos.Cosmos
	Relay     *physics.Relay
	Behaviors *behavior.Library

	Future *timestream.Conduit
	Past   *timestream.Conduit

	FixedInterval time.Duration
	FrameInterval time.Duration

	transformIdx int
	bodyIdx      int
	colliderIdx  int
	behaviorIdx  int

	physicsSig  ecs.Signature
	behaviorSig ecs.Signature

	instances map[entity.Entity]*behavior.Instance
}

// NewContext builds a Context around c, registering the physics and
// behavior component types on c's component registry. future and past may
// be nil for a headless cosmos with no timestream neighbors (e.g. a
// parallel context's source cosmos before it is Loaded).
func NewContext(c *cosmos.Cosmos, relay *physics.Relay, lib *behavior.Library, future, past *timestream.Conduit, fixedDt time.Duration) (*Context, error) {
	ctx := &Context{
		Cosmos:        c,
		Relay:         relay,
		Behaviors:     lib,
		Future:        future,
		Past:          past,
		FixedInterval: fixedDt,
		FrameInterval: fixedDt,
		instances:     make(map[entity.Entity]*behavior.Instance),
	}

	var err error
	if ctx.transformIdx, err = c.Stator.Components.RegisterType("transform", ecs.All, transformCodec{}); err != nil {
		return nil, err
	}
	if ctx.bodyIdx, err = c.Stator.Components.RegisterType("body", ecs.All, bodyCodec{}); err != nil {
		return nil, err
	}
	if ctx.colliderIdx, err = c.Stator.Components.RegisterType("colliders", ecs.All, colliderArrayCodec{}); err != nil {
		return nil, err
	}
	if ctx.behaviorIdx, err = c.Stator.Components.RegisterType("behavior_tag", ecs.All, behaviorTagCodec{}); err != nil {
		return nil, err
	}

	ctx.physicsSig = ecs.Signature(0).Set(ctx.transformIdx).Set(ctx.bodyIdx)
	ctx.behaviorSig = ecs.Signature(0).Set(ctx.behaviorIdx)

	if _, err := c.Stator.Synchros.Register("physics", ctx.physicsSig); err != nil {
		return nil, err
	}
	if _, err := c.Stator.Synchros.Register("behavior", ctx.behaviorSig); err != nil {
		return nil, err
	}

	relay.OnCollision = ctx.dispatchCollision

	return ctx, nil
}

// TransformIndex returns the component type index Transform was
// registered under, for callers (e.g. parallel.Context) that need to read
// a component directly rather than through a synchro.
func (ctx *Context) TransformIndex() int { return ctx.transformIdx }

// Dynamos lists the long-lived services this Context's synchros submit
// work to, for diagnostics.
func (ctx *Context) Dynamos() []Dynamo {
	return []Dynamo{relayDynamo{ctx.Relay}, libraryDynamo{ctx.Behaviors}}
}

func (ctx *Context) attach(index int, e entity.Entity, value interface{}) error {
	if err := ctx.Cosmos.Stator.Components.Insert(index, e, value); err != nil {
		return err
	}
	_, next, err := ctx.Cosmos.Stator.Entities.SetBit(e, index)
	if err != nil {
		return err
	}
	ctx.Cosmos.Stator.Synchros.OnSignatureChanged(e, next)
	return nil
}

// AttachTransform gives e a Transform component.
func (ctx *Context) AttachTransform(e entity.Entity, t physics.Transform) error {
	return ctx.attach(ctx.transformIdx, e, &t)
}

// AttachBody gives e a Body component.
func (ctx *Context) AttachBody(e entity.Entity, b physics.Body) error {
	return ctx.attach(ctx.bodyIdx, e, &b)
}

// AttachColliders gives e its collider array.
func (ctx *Context) AttachColliders(e entity.Entity, colliders [physics.CollidersPerEntity]physics.Collider) error {
	return ctx.attach(ctx.colliderIdx, e, &colliders)
}

// AttachBehavior binds e to the behavior registered under tag, creating
// its Instance immediately from ctx.Behaviors (spec §4.3).
func (ctx *Context) AttachBehavior(e entity.Entity, tag string) error {
	if err := ctx.attach(ctx.behaviorIdx, e, &tag); err != nil {
		return err
	}
	inst, err := ctx.Behaviors.Create(e, tag)
	if err != nil {
		return err
	}
	ctx.instances[e] = inst
	return nil
}

// ensureBehaviorInstances re-resolves an Instance for any behavior-tagged
// entity that lacks one in this Context's cache — the path a restored
// entity takes, since only its tag was transmitted (spec §4.3).
func (ctx *Context) ensureBehaviorInstances() {
	synchro, ok := ctx.Cosmos.Stator.Synchros.ByName("behavior")
	if !ok {
		return
	}
	for _, e := range synchro.Entities() {
		if _, ok := ctx.instances[e]; ok {
			continue
		}
		raw, err := ctx.Cosmos.Stator.Components.Get(ctx.behaviorIdx, e)
		if err != nil {
			continue
		}
		tag := *raw.(*string)
		inst, err := ctx.Behaviors.Create(e, tag)
		if err != nil {
			logging.Warn("behavior tag did not resolve in local library", map[string]interface{}{
				"entity": e.String(), "tag": tag, "error": err.Error(),
			})
			continue
		}
		ctx.instances[e] = inst
	}
}

// pruneDestroyedInstances drops cached Instances for entities FlushCondemned
// has just destroyed, so a later genesis-index reuse can't inherit a stale
// behavior.
func (ctx *Context) pruneDestroyedInstances() {
	for e := range ctx.instances {
		if !ctx.Cosmos.Stator.Entities.Has(e) {
			delete(ctx.instances, e)
		}
	}
}

// collectParticipants builds the physics submission batch from every
// entity matching the physics signature (spec §4.2 step 1 "submission").
// Colliders are optional; an entity lacking them submits an all-nil
// collider array and still integrates.
func (ctx *Context) collectParticipants() []physics.Participant {
	synchro, ok := ctx.Cosmos.Stator.Synchros.ByName("physics")
	if !ok {
		return nil
	}
	entities := synchro.Entities()
	out := make([]physics.Participant, 0, len(entities))
	for _, e := range entities {
		rawT, err := ctx.Cosmos.Stator.Components.Get(ctx.transformIdx, e)
		if err != nil {
			continue
		}
		rawB, err := ctx.Cosmos.Stator.Components.Get(ctx.bodyIdx, e)
		if err != nil {
			continue
		}
		p := physics.Participant{
			Entity:    e,
			Transform: rawT.(*physics.Transform),
			Body:      rawB.(*physics.Body),
		}
		if ctx.Cosmos.Stator.Components.Has(ctx.colliderIdx, e) {
			rawC, err := ctx.Cosmos.Stator.Components.Get(ctx.colliderIdx, e)
			if err == nil {
				arr := rawC.(*[physics.CollidersPerEntity]physics.Collider)
				for i := range arr {
					p.Colliders[i] = &arr[i]
				}
			}
		}
		out = append(out, p)
	}
	return out
}

func (ctx *Context) dispatchCollision(ev physics.CollisionEvent) {
	if inst, ok := ctx.instances[ev.A]; ok {
		inst.RunOnCollide(ev)
	}
	if inst, ok := ctx.instances[ev.B]; ok {
		flipped := ev
		flipped.A, flipped.B = ev.B, ev.A
		flipped.Contact.Normal = flipped.Contact.Normal.Neg()
		inst.RunOnCollide(flipped)
	}
}

// Tick runs one fixed step (spec §2 data flow): flush condemned entities,
// apply inbound future-timestream events, run fixed-update behaviors,
// step physics, publish outbound state, advance coherency.
func (ctx *Context) Tick(dt float32) error {
	ctx.Cosmos.FlushCondemned()
	ctx.pruneDestroyedInstances()

	if ctx.Future != nil {
		ctx.Cosmos.ApplyInbound(ctx.Future)
	}

	ctx.ensureBehaviorInstances()
	synchro, ok := ctx.Cosmos.Stator.Synchros.ByName("behavior")
	if ok {
		for _, e := range synchro.Entities() {
			if inst, ok := ctx.instances[e]; ok {
				inst.RunFixedUpdate(dt)
			}
		}
	}

	participants := ctx.collectParticipants()
	ctx.Relay.Step(participants, dt)

	if ctx.Past != nil {
		if err := ctx.Cosmos.PublishOutbound(ctx.Past); err != nil {
			return fmt.Errorf("timeslice: publish outbound: %w", err)
		}
	}

	ctx.Cosmos.Advance()
	return nil
}

// FrameTick runs frame-cadence-only work: behavior frame-update callbacks,
// decoupled from the fixed physics step (spec §4.3 on_frame_update).
func (ctx *Context) FrameTick(dt float32) {
	synchro, ok := ctx.Cosmos.Stator.Synchros.ByName("behavior")
	if !ok {
		return
	}
	for _, e := range synchro.Entities() {
		if inst, ok := ctx.instances[e]; ok {
			inst.RunFrameUpdate(dt)
		}
	}
}

// Run drives Context until ctx (the standard library context, not this
// Context) is cancelled: a fixed-step ticker and a frame ticker feed one
// select loop, generalizing Hub.Run's register/unregister/broadcast
// channel-select to "whichever cadence is due fires next".
func (ctx *Context) Run(stop context.Context) error {
	fixed := time.NewTicker(ctx.FixedInterval)
	defer fixed.Stop()
	frame := time.NewTicker(ctx.FrameInterval)
	defer frame.Stop()

	fixedDt := float32(ctx.FixedInterval.Seconds())
	frameDt := float32(ctx.FrameInterval.Seconds())

	logging.Info("timeslice context started", map[string]interface{}{
		"host_id": ctx.Cosmos.HostID,
		"is_host": ctx.Cosmos.IsHost,
	})

	for {
		select {
		case <-stop.Done():
			logging.Info("timeslice context stopped", map[string]interface{}{
				"host_id": ctx.Cosmos.HostID,
			})
			return stop.Err()

		case <-fixed.C:
			if err := ctx.Tick(fixedDt); err != nil {
				logging.Warn("fixed tick failed", map[string]interface{}{"error": err.Error()})
			}

		case <-frame.C:
			ctx.FrameTick(frameDt)
		}
	}
}
