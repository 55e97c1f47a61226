package bridge

import (
	"reflect"

	"github.com/plus3/scenebridge/ecs"
)

// FrameKind identifies which host callback drove an update.
type FrameKind uint8

const (
	FrameVisual FrameKind = iota + 1
	FramePhysics
)

func (k FrameKind) String() string {
	switch k {
	case FrameVisual:
		return "visual"
	case FramePhysics:
		return "physics"
	default:
		return "unknown"
	}
}

// VisualFrame is present as a singleton only while an update driven by the host's
// per-rendered-frame callback is running.
type VisualFrame struct{}

// PhysicsFrame is present as a singleton only while an update driven by the host's
// fixed-rate physics callback is running.
type PhysicsFrame struct{}

var (
	visualFrameType  = reflect.TypeFor[VisualFrame]()
	physicsFrameType = reflect.TypeFor[PhysicsFrame]()
)

func (k FrameKind) markerType() reflect.Type {
	if k == FramePhysics {
		return physicsFrameType
	}
	return visualFrameType
}

func (k FrameKind) marker() any {
	if k == FramePhysics {
		return PhysicsFrame{}
	}
	return VisualFrame{}
}

// InVisualFrame gates a system to visual-frame updates.
func InVisualFrame() ecs.Condition {
	return ecs.SingletonExists[VisualFrame]()
}

// InPhysicsFrame gates a system to physics-frame updates.
func InPhysicsFrame() ecs.Condition {
	return ecs.SingletonExists[PhysicsFrame]()
}

// CurrentFrame reports which kind of update is running, or zero outside of one.
func CurrentFrame(storage *ecs.Storage) FrameKind {
	switch {
	case storage.HasSingleton(physicsFrameType):
		return FramePhysics
	case storage.HasSingleton(visualFrameType):
		return FrameVisual
	default:
		return 0
	}
}
