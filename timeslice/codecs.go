package timeslice

import (
	"fmt"

	"holodeck1/event"
	"holodeck1/physics"
)

// transformCodec serializes a *physics.Transform as ten floats: origin,
// orientation, scale (spec §3 Transform).
type transformCodec struct{}

func pushTransform(buf *event.MessageBuffer, t physics.Transform) {
	buf.PushF32(t.Origin.X)
	buf.PushF32(t.Origin.Y)
	buf.PushF32(t.Origin.Z)
	buf.PushF32(t.Orientation.W)
	buf.PushF32(t.Orientation.X)
	buf.PushF32(t.Orientation.Y)
	buf.PushF32(t.Orientation.Z)
	buf.PushF32(t.Scale.X)
	buf.PushF32(t.Scale.Y)
	buf.PushF32(t.Scale.Z)
}

func popTransform(buf *event.MessageBuffer) (physics.Transform, error) {
	var t physics.Transform
	var err error
	if t.Scale.Z, err = buf.PopF32(); err != nil {
		return t, err
	}
	if t.Scale.Y, err = buf.PopF32(); err != nil {
		return t, err
	}
	if t.Scale.X, err = buf.PopF32(); err != nil {
		return t, err
	}
	if t.Orientation.Z, err = buf.PopF32(); err != nil {
		return t, err
	}
	if t.Orientation.Y, err = buf.PopF32(); err != nil {
		return t, err
	}
	if t.Orientation.X, err = buf.PopF32(); err != nil {
		return t, err
	}
	if t.Orientation.W, err = buf.PopF32(); err != nil {
		return t, err
	}
	if t.Origin.Z, err = buf.PopF32(); err != nil {
		return t, err
	}
	if t.Origin.Y, err = buf.PopF32(); err != nil {
		return t, err
	}
	if t.Origin.X, err = buf.PopF32(); err != nil {
		return t, err
	}
	return t, nil
}

func (transformCodec) Push(buf *event.MessageBuffer, value interface{}) {
	t, ok := value.(*physics.Transform)
	if !ok {
		panic(fmt.Sprintf("timeslice: transformCodec.Push got %T", value))
	}
	pushTransform(buf, *t)
}

func (transformCodec) Pop(buf *event.MessageBuffer) (interface{}, error) {
	t, err := popTransform(buf)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// bodyCodec serializes a *physics.Body (spec §3 "Physics body").
type bodyCodec struct{}

func (bodyCodec) Push(buf *event.MessageBuffer, value interface{}) {
	b, ok := value.(*physics.Body)
	if !ok {
		panic(fmt.Sprintf("timeslice: bodyCodec.Push got %T", value))
	}
	buf.PushF32(b.Velocity.X)
	buf.PushF32(b.Velocity.Y)
	buf.PushF32(b.Velocity.Z)
	buf.PushF32(b.Acceleration.X)
	buf.PushF32(b.Acceleration.Y)
	buf.PushF32(b.Acceleration.Z)
	buf.PushF32(b.AngularVelocity.X)
	buf.PushF32(b.AngularVelocity.Y)
	buf.PushF32(b.AngularVelocity.Z)
	buf.PushF32(b.AngularAcceleration.X)
	buf.PushF32(b.AngularAcceleration.Y)
	buf.PushF32(b.AngularAcceleration.Z)
	buf.PushF32(b.LinearDrag)
	buf.PushF32(b.AngularDrag)
	buf.PushF32(b.CollisionLinearDrag)
	buf.PushF32(b.CollisionAngularDrag)
	buf.PushF32(b.Mass)
	buf.PushBool(b.OriginLock)
	buf.PushBool(b.OrientationLock)
	buf.PushBool(b.Asleep)
}

func (bodyCodec) Pop(buf *event.MessageBuffer) (interface{}, error) {
	var b physics.Body
	var err error
	if b.Asleep, err = buf.PopBool(); err != nil {
		return nil, err
	}
	if b.OrientationLock, err = buf.PopBool(); err != nil {
		return nil, err
	}
	if b.OriginLock, err = buf.PopBool(); err != nil {
		return nil, err
	}
	if b.Mass, err = buf.PopF32(); err != nil {
		return nil, err
	}
	if b.CollisionAngularDrag, err = buf.PopF32(); err != nil {
		return nil, err
	}
	if b.CollisionLinearDrag, err = buf.PopF32(); err != nil {
		return nil, err
	}
	if b.AngularDrag, err = buf.PopF32(); err != nil {
		return nil, err
	}
	if b.LinearDrag, err = buf.PopF32(); err != nil {
		return nil, err
	}
	if b.AngularAcceleration.Z, err = buf.PopF32(); err != nil {
		return nil, err
	}
	if b.AngularAcceleration.Y, err = buf.PopF32(); err != nil {
		return nil, err
	}
	if b.AngularAcceleration.X, err = buf.PopF32(); err != nil {
		return nil, err
	}
	if b.AngularVelocity.Z, err = buf.PopF32(); err != nil {
		return nil, err
	}
	if b.AngularVelocity.Y, err = buf.PopF32(); err != nil {
		return nil, err
	}
	if b.AngularVelocity.X, err = buf.PopF32(); err != nil {
		return nil, err
	}
	if b.Acceleration.Z, err = buf.PopF32(); err != nil {
		return nil, err
	}
	if b.Acceleration.Y, err = buf.PopF32(); err != nil {
		return nil, err
	}
	if b.Acceleration.X, err = buf.PopF32(); err != nil {
		return nil, err
	}
	if b.Velocity.Z, err = buf.PopF32(); err != nil {
		return nil, err
	}
	if b.Velocity.Y, err = buf.PopF32(); err != nil {
		return nil, err
	}
	if b.Velocity.X, err = buf.PopF32(); err != nil {
		return nil, err
	}
	return &b, nil
}

// colliderArrayCodec serializes the fixed-size per-entity collider array
// (spec §3 "Per-entity fixed-capacity array of up to COLLIDERS_PER_ENTITY").
type colliderArrayCodec struct{}

func pushCollider(buf *event.MessageBuffer, c physics.Collider) {
	pushTransform(buf, c.LocalTransform)
	buf.PushF32(c.Material.StaticFriction)
	buf.PushF32(c.Material.DynamicFriction)
	buf.PushF32(c.Material.Restitution)
	buf.PushF32(c.Material.Stiffness)
	buf.PushF32(c.Material.Damping)
	buf.PushF32(c.Material.RestLength)
	buf.PushF32(c.MinParametric)
	buf.PushBool(c.Active)
	buf.PushBool(c.InheritOrientation)
	buf.PushBool(c.InfluenceOrientation)
	buf.PushBool(c.UseBehaviorResponse)
	buf.PushU8(uint8(c.Response))
	buf.PushU8(uint8(c.Kind))
}

func popCollider(buf *event.MessageBuffer) (physics.Collider, error) {
	var c physics.Collider
	var err error
	var kind, response uint8
	if kind, err = buf.PopU8(); err != nil {
		return c, err
	}
	if response, err = buf.PopU8(); err != nil {
		return c, err
	}
	c.Kind = physics.ColliderKind(kind)
	c.Response = physics.ResponseKind(response)
	if c.UseBehaviorResponse, err = buf.PopBool(); err != nil {
		return c, err
	}
	if c.InfluenceOrientation, err = buf.PopBool(); err != nil {
		return c, err
	}
	if c.InheritOrientation, err = buf.PopBool(); err != nil {
		return c, err
	}
	if c.Active, err = buf.PopBool(); err != nil {
		return c, err
	}
	if c.MinParametric, err = buf.PopF32(); err != nil {
		return c, err
	}
	if c.Material.RestLength, err = buf.PopF32(); err != nil {
		return c, err
	}
	if c.Material.Damping, err = buf.PopF32(); err != nil {
		return c, err
	}
	if c.Material.Stiffness, err = buf.PopF32(); err != nil {
		return c, err
	}
	if c.Material.Restitution, err = buf.PopF32(); err != nil {
		return c, err
	}
	if c.Material.DynamicFriction, err = buf.PopF32(); err != nil {
		return c, err
	}
	if c.Material.StaticFriction, err = buf.PopF32(); err != nil {
		return c, err
	}
	if c.LocalTransform, err = popTransform(buf); err != nil {
		return c, err
	}
	return c, nil
}

func (colliderArrayCodec) Push(buf *event.MessageBuffer, value interface{}) {
	arr, ok := value.(*[physics.CollidersPerEntity]physics.Collider)
	if !ok {
		panic(fmt.Sprintf("timeslice: colliderArrayCodec.Push got %T", value))
	}
	for i := len(arr) - 1; i >= 0; i-- {
		pushCollider(buf, arr[i])
	}
}

func (colliderArrayCodec) Pop(buf *event.MessageBuffer) (interface{}, error) {
	var arr [physics.CollidersPerEntity]physics.Collider
	for i := 0; i < len(arr); i++ {
		c, err := popCollider(buf)
		if err != nil {
			return nil, err
		}
		arr[i] = c
	}
	return &arr, nil
}

// behaviorTagCodec serializes only the behavior's tag, never its internal
// state: "Serialization sends only the behavior's tag value; the
// recipient re-resolves the tag through its library" (spec §4.3).
type behaviorTagCodec struct{}

func (behaviorTagCodec) Push(buf *event.MessageBuffer, value interface{}) {
	tag, ok := value.(*string)
	if !ok {
		panic(fmt.Sprintf("timeslice: behaviorTagCodec.Push got %T", value))
	}
	buf.PushString(*tag)
}

func (behaviorTagCodec) Pop(buf *event.MessageBuffer) (interface{}, error) {
	tag, err := buf.PopString()
	if err != nil {
		return nil, err
	}
	return &tag, nil
}
