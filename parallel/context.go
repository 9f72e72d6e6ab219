// Package parallel implements the headless replay-and-reconcile context
// (spec §4.5 "Parallel cosmos context"): Load a diverged past slice's
// snapshot plus its recorded future, Run fixed steps up to a target
// coherency, Extract the result back into the slice it diverged from, and
// Recycle if a newer divergence surfaced mid-run. Grounded on the
// teacher's own sync.SyncProtocol (VectorClock/Delta/WorldState causal
// replay design, generalized here from per-client CRDT merge to
// per-timeslice past-ward replay) and on the pack's clock-simulation and
// vector-clock reference files for the general "replay a causally-ordered
// log to a target" shape.
package parallel

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"holodeck1/behavior"
	"holodeck1/cosmos"
	"holodeck1/entity"
	"holodeck1/event"
	"holodeck1/logging"
	"holodeck1/physics"
	"holodeck1/timeslice"
	"holodeck1/timestream"
)

// mandelaMinVelocity is the minimum outgoing speed for a synthesized
// worldline-shift artifact (spec S5 "randomized outgoing velocity >= 10
// magnitude").
const mandelaMinVelocity = 10

// Context is a headless, lockable parallel cosmos: a runtime lock guards
// start/stop and coherency-target updates, a cosmos lock guards the
// aggregate during Load/Extract (spec §4.5/§5).
type Context struct {
	runtimeMu sync.Mutex
	running   bool
	target    uint16

	cosmosMu sync.Mutex

	// RunID correlates this pass's log lines across Load/Run/Extract;
	// it is a debug/trace handle only, never serialized on the wire
	// (the packed Entity id remains the wire identity throughout).
	RunID uuid.UUID

	TS             *timeslice.Context
	Broker         *event.Broker
	startCoherency uint16

	// shifted holds destination-space entities (spec's "corresponding
	// entity in the previous slice") whose extraction this run decided to
	// skip in favor of a worldline shift (see markShifted).
	shifted map[entity.Entity]bool

	// initialLive is the set of entities registered right after Load,
	// used by Extract to detect which ones the run condemned: any entity
	// present here but no longer live is condemned in the destination
	// too (spec §4.5 "Condemned entities from the parallel run are
	// condemned in the destination").
	initialLive map[entity.Entity]bool

	// newestDivergence tracks the latest StateRecord.Coherency at which a
	// Forking/Forked transition was observed during this run, strictly
	// after startCoherency, for Recycle's "a divergence newer than this
	// parallel's start was observed" check.
	newestDivergence    uint16
	sawNewerDivergence  bool
}

// New constructs an empty parallel Context around a fresh headless cosmos
// driven by its own timeslice.Context. relay and lib are independent from
// the primary timeslice's (a parallel run must not share mutable physics/
// behavior state with the cosmos it is replaying).
func New(hostID uint8, relay *physics.Relay, lib *behavior.Library, fixedDt float32) (*Context, error) {
	c := cosmos.New(hostID, false)
	ts, err := timeslice.NewContext(c, relay, lib, nil, nil, time.Duration(fixedDt*float32(time.Second)))
	if err != nil {
		return nil, fmt.Errorf("parallel: new context: %w", err)
	}
	return &Context{
		RunID:   uuid.New(),
		TS:      ts,
		Broker:  c.Broker,
		shifted: make(map[entity.Entity]bool),
	}, nil
}

// Load builds this parallel cosmos at source's coherency from a
// previously-drained future-side timestream snapshot (spec §4.5 "Load").
// Entities absent from entries ("time travellers") are never registered.
// An entity copied over whose source state is Forked is rewritten Forked
// here and Merged on source — "the parallel now owns the divergence".
func (ctx *Context) Load(source *cosmos.Cosmos, entries []timestream.Entry) {
	ctx.cosmosMu.Lock()
	defer ctx.cosmosMu.Unlock()

	ctx.TS.Cosmos.Coherency = source.Coherency
	ctx.startCoherency = source.Coherency
	ctx.TS.Cosmos.ApplyEntries(entries)

	ctx.initialLive = make(map[entity.Entity]bool)
	for _, e := range ctx.TS.Cosmos.Stator.Entities.Live() {
		ctx.initialLive[e] = true

		rec := source.States.Get(e)
		if rec.State == cosmos.Forked {
			ctx.TS.Cosmos.States.Set(e, cosmos.StateRecord{State: cosmos.Forked, Coherency: source.Coherency})
			source.States.Set(e, cosmos.StateRecord{State: cosmos.Merged, Coherency: source.Coherency})
		}
	}
}

// Run drives fixed steps, consuming future as its upstream conduit, until
// this context's coherency reaches target (modular-wrap-aware comparison)
// or Stop is called (spec §4.5 "Run", §5 cooperative cancellation).
func (ctx *Context) Run(future *timestream.Conduit, target uint16, dt float32) error {
	ctx.TS.Future = future

	ctx.runtimeMu.Lock()
	ctx.running = true
	ctx.target = target
	ctx.runtimeMu.Unlock()

	for {
		ctx.runtimeMu.Lock()
		running, tgt := ctx.running, ctx.target
		ctx.runtimeMu.Unlock()
		if !running {
			return nil
		}

		cur := ctx.TS.Cosmos.Coherency
		if !timestream.Before(cur, tgt) {
			ctx.runtimeMu.Lock()
			ctx.running = false
			ctx.runtimeMu.Unlock()
			return nil
		}

		if err := ctx.TS.Tick(dt); err != nil {
			return fmt.Errorf("parallel: run tick: %w", err)
		}
		ctx.observeDivergences()
	}
}

// Stop cooperatively halts a running Run loop before its next tick.
func (ctx *Context) Stop() {
	ctx.runtimeMu.Lock()
	ctx.running = false
	ctx.runtimeMu.Unlock()
}

// SetTarget updates the coherency-target of a running pass.
func (ctx *Context) SetTarget(target uint16) {
	ctx.runtimeMu.Lock()
	ctx.target = target
	ctx.runtimeMu.Unlock()
}

// observeDivergences records any entity that transitioned into Forking or
// Forked at a coherency after this run's start, for Recycle's decision,
// and marks an entity Reichenbach-shifted the moment its resolution lands
// in Ghost — a paradox "ignoring an entity's would-be extraction" (spec
// Glossary "Worldline shift"; the terminal Ghost state is the concrete,
// decidable trigger this module uses for the spec's otherwise-undefined
// "marked as Reichenbach-shifted" condition).
func (ctx *Context) observeDivergences() {
	for _, e := range ctx.TS.Cosmos.Stator.Entities.Live() {
		rec := ctx.TS.Cosmos.States.Get(e)
		switch rec.State {
		case cosmos.Forking, cosmos.Forked:
			if timestream.Before(ctx.startCoherency, rec.Coherency) {
				if !ctx.sawNewerDivergence || timestream.Before(ctx.newestDivergence, rec.Coherency) {
					ctx.newestDivergence = rec.Coherency
					ctx.sawNewerDivergence = true
				}
			}
		case cosmos.Ghost:
			dst, err := entity.DecrementLink(e)
			if err == nil {
				ctx.shifted[dst] = true
			}
		}
	}
}

// Extract copies every non-shifted entity in this parallel cosmos back
// into destination, one causal-chain-link hop toward the past (spec
// §4.5 "Extract"). Entities that were Reichenbach-shifted are skipped
// here; instead a WORLDLINE_SHIFT entry carrying destination's own
// current state is pushed onto destTS.Past, and a mandela artifact is
// synthesized there (spec §4.5, S5). Extract is unconditional — every
// entity overwrites its destination regardless of divergence state (spec
// §9 Open Question 1 resolution: "implemented as unconditional").
func (ctx *Context) Extract(destTS *timeslice.Context) error {
	ctx.cosmosMu.Lock()
	defer ctx.cosmosMu.Unlock()

	destination := destTS.Cosmos
	stillLive := make(map[entity.Entity]bool)
	for _, e := range ctx.TS.Cosmos.Stator.Entities.Live() {
		stillLive[e] = true
	}

	for e := range ctx.initialLive {
		if stillLive[e] {
			continue
		}
		dst, err := entity.DecrementLink(e)
		if err != nil {
			continue
		}
		destination.Condemn(dst, entity.NULL_ENTITY)
	}

	for e := range stillLive {
		dst, err := entity.DecrementLink(e)
		if err != nil {
			logging.Warn("parallel: cannot decrement link for extraction", map[string]interface{}{
				"run": ctx.RunID.String(), "entity": e.String(), "error": err.Error(),
			})
			continue
		}
		if ctx.shifted[dst] {
			continue
		}
		buf, sig, err := ctx.TS.Cosmos.Stator.SnapshotEntity(e)
		if err != nil {
			return fmt.Errorf("parallel: snapshot %s: %w", e, err)
		}
		if err := destination.Stator.RestoreEntity(dst, sig, buf); err != nil {
			return fmt.Errorf("parallel: restore %s: %w", dst, err)
		}
	}

	for dst := range ctx.shifted {
		if err := ctx.emitWorldlineShift(destTS, dst); err != nil {
			logging.Warn("parallel: worldline shift emission failed", map[string]interface{}{
				"entity": dst.String(), "error": err.Error(),
			})
		}
	}
	ctx.shifted = make(map[entity.Entity]bool)
	ctx.initialLive = nil

	return nil
}

// emitWorldlineShift pushes destination's own current state for dst onto
// its past-ward timestream as a WORLDLINE_SHIFT entry, then synthesizes a
// visible mandela artifact at dst's current location (spec §4.5, S5).
func (ctx *Context) emitWorldlineShift(destTS *timeslice.Context, dst entity.Entity) error {
	destination := destTS.Cosmos
	if !destination.Stator.Entities.Has(dst) {
		return nil
	}
	buf, sig, err := destination.Stator.SnapshotEntity(dst)
	if err != nil {
		return err
	}

	if destTS.Past != nil {
		msg := event.NewMessage(event.WorldlineShift, destination.Coherency)
		msg.Body.SetBytes(buf.Bytes())
		msg.Body.PushU32(uint32(sig))
		msg.Body.PushU16(uint16(dst))
		msg.Finalize()
		destTS.Past.PushPastward(timestream.Entry{Msg: msg})
	}

	raw, err := destination.Stator.Components.Get(destTS.TransformIndex(), dst)
	if err != nil {
		return nil // no transform: nowhere to place a visible artifact
	}
	location := *raw.(*physics.Transform)

	// Atemporal: a mandela artifact is a standing record of the shift
	// itself, not a new participant in any timeslice's causal chain
	// (spec §8 S5 "a new atemporal mandela entity").
	artifact, err := destination.CreateEntity(true, entity.NULL_ENTITY)
	if err != nil {
		return err
	}
	if err := destTS.AttachTransform(artifact, physics.Transform{
		Origin:      location.Origin,
		Orientation: physics.QIdentity(),
		Scale:       physics.Vec3{X: 0.1, Y: 0.1, Z: 0.1},
	}); err != nil {
		return err
	}
	away := ctx.interceptorOrigin(dst, location.Origin)
	return destTS.AttachBody(artifact, physics.Body{
		Velocity: mandelaVelocity(destination.Coherency, dst, location.Origin, away),
		Mass:     1,
	})
}

// interceptorOrigin returns the parallel cosmos's own position for the
// entity one chain-link ahead of dst — the replayed "interceder" whose
// state override is what caused this worldline shift (spec S5 "away from
// the interceder") — falling back to dst's own location when that
// counterpart cannot be found (e.g. it was itself condemned mid-run).
func (ctx *Context) interceptorOrigin(dst entity.Entity, fallback physics.Vec3) physics.Vec3 {
	src, err := entity.IncrementLink(dst)
	if err != nil {
		return fallback
	}
	raw, err := ctx.TS.Cosmos.Stator.Components.Get(ctx.TS.TransformIndex(), src)
	if err != nil {
		return fallback
	}
	return raw.(*physics.Transform).Origin
}

// Recycle decides, after Extract, whether another pass is needed: if a
// divergence newer than this run's start surfaced during Run, it reports
// true (the caller schedules another pass from the past-most slice);
// otherwise it publishes PARALLEL_FINISHED and reports false (spec §4.5
// "Recycle").
func (ctx *Context) Recycle() bool {
	if ctx.sawNewerDivergence {
		ctx.sawNewerDivergence = false
		return true
	}

	msg := event.NewMessage(event.ParallelFinished, ctx.TS.Cosmos.Coherency)
	msg.Finalize()
	ctx.Broker.Publish(msg)
	msg.Release()
	return false
}

// RequestResolution is lock-free: it only publishes a PARALLEL_INIT event
// naming the requesting timeslice, consumed by whatever runtime thread
// owns this Context's Run loop (spec §4.5, §5 "request_resolution ... is
// lock-free; it only publishes an event").
func (ctx *Context) RequestResolution(requester uint8) {
	msg := event.NewMessage(event.ParallelInit, ctx.TS.Cosmos.Coherency)
	msg.Body.PushU8(requester)
	msg.Finalize()
	ctx.Broker.Publish(msg)
	msg.Release()
}

// mandelaVelocity derives a worldline-shift artifact's outgoing velocity:
// its direction points from away toward location — away from the
// interceder whose replayed state caused the shift (spec S5 "random
// velocity >= 10 magnitude away from the interceder") — and its magnitude
// is a reproducible-but-unpredictable value >= mandelaMinVelocity drawn
// from HKDF(coherency, origin entity) rather than a bare math/rand global
// (DESIGN.md notes this follows the teacher's general preference for
// x/crypto over ad hoc randomness). location and away coinciding (no
// interceder counterpart could be found, or it sits exactly where the
// artifact is placed) falls back to an HKDF-derived direction so the
// artifact still moves rather than sitting inert.
func mandelaVelocity(coherency uint16, origin entity.Entity, location, away physics.Vec3) physics.Vec3 {
	seed := make([]byte, 4)
	binary.LittleEndian.PutUint16(seed[0:2], coherency)
	binary.LittleEndian.PutUint16(seed[2:4], uint16(origin))

	r := hkdf.New(sha256.New, seed, nil, []byte("parallel-mandela-velocity"))
	var raw [16]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return physics.Vec3{X: mandelaMinVelocity}
	}

	unitComponent := func(b []byte) float32 {
		v := int32(binary.LittleEndian.Uint32(b))
		return float32(v) / float32(1<<31)
	}

	dir := location.Sub(away).Normalize()
	if dir.IsZero() {
		dir = physics.Vec3{
			X: unitComponent(raw[0:4]),
			Y: unitComponent(raw[4:8]),
			Z: unitComponent(raw[8:12]),
		}.Normalize()
		if dir.IsZero() {
			dir = physics.Vec3{X: 1}
		}
	}

	extra := unitComponent(raw[12:16])
	if extra < 0 {
		extra = -extra
	}
	magnitude := float32(mandelaMinVelocity) + extra*mandelaMinVelocity

	return dir.Scale(magnitude)
}
