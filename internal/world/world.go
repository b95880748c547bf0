// Package world defines the contract every physics world
// implementation satisfies, whether it owns its engine outright or
// adapts an externally-owned one. The capability interfaces below are
// deliberately small so that heterogeneous engines can be driven in
// lockstep through the same calls and compared.
package world

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/collidebench/internal/contact"
	"github.com/san-kum/collidebench/internal/scenario"
	"github.com/san-kum/collidebench/internal/shape"
	"github.com/san-kum/collidebench/internal/state"
)

// ErrNotLoaded is returned by state and contact queries against a
// world that has no scene loaded. An unloaded world is an error, not
// a silently empty result.
var ErrNotLoaded = errors.New("world not loaded")

// BaseWorld is the minimal lifecycle and state surface of a world.
//
// A world starts unloaded; loading establishes the underlying engine
// world and leaves it paused. Update advances it by explicit step
// counts, and Clear returns it to unloaded, destroying all entities.
type BaseWorld interface {
	// GetName returns the world's name, set at load time.
	GetName() string

	// IsLoaded reports whether a scene is currently loaded.
	IsLoaded() bool

	// LoadFromFile loads a scene description from a file. worldname,
	// if non-empty, overrides the name given in the file.
	LoadFromFile(path, worldname string) (OpResult, error)

	// LoadFromString loads a scene description from text.
	LoadFromString(text, worldname string) (OpResult, error)

	// LoadFromScenario loads a scene from an in-memory description.
	LoadFromScenario(w *scenario.World, worldname string) (OpResult, error)

	// Clear removes everything from the world and returns it to the
	// unloaded state.
	Clear()

	// GetWorldState captures a snapshot of the world. No stepping
	// happens mid-capture; the snapshot is internally consistent.
	GetWorldState() (*state.WorldState, error)

	// GetWorldStateDiff returns the difference to other as a diff
	// state: applied onto a world in state other, it reproduces this
	// world's state, including model additions and removals.
	GetWorldStateDiff(other *state.WorldState) (*state.WorldState, error)

	// SetWorldState applies a snapshot. With isDiff false the world
	// is reset exactly to the snapshot; with isDiff true only the
	// entities the snapshot mentions are touched. Valid in any loaded
	// state; never changes the pause state.
	SetWorldState(s *state.WorldState, isDiff bool) (OpResult, error)

	// Update advances the world by the given number of steps and
	// blocks until they are done. If the world is paused and force is
	// false the call is a no-op. Engines that free-run by default are
	// forced into paused mode first so that the explicit step count
	// holds.
	Update(steps int, force bool) error

	// SetPaused freezes or unfreezes the simulation.
	SetPaused(flag bool)

	IsPaused() bool

	// SetDynamicsEnabled toggles the dynamics engine. With dynamics
	// off, models keep their poses but collision states can still be
	// checked.
	SetDynamicsEnabled(flag bool)

	DynamicsEnabled() bool

	// Diagnostics returns the per-instance diagnostic counters.
	Diagnostics() map[string]int
}

// ModelWorld adds model loading and access.
type ModelWorld interface {
	// AddModelFromFile loads a model description from a file and adds
	// it to the world without setting its pose. modelname, if
	// non-empty, overrides the name in the file.
	AddModelFromFile(path, modelname string) ModelLoadResult

	// AddModelFromString behaves as AddModelFromFile for in-line text.
	AddModelFromString(text, modelname string) ModelLoadResult

	// AddModelFromScenario adds a model from an in-memory description.
	AddModelFromScenario(m *scenario.Model, modelname string) ModelLoadResult

	// SupportsShapes reports whether AddModelFromShape works on this
	// world.
	SupportsShapes() bool

	// AddModelFromShape converts the shape into whatever
	// representation the engine needs and adds it as a model. An
	// optional collShape overrides the collision geometry.
	AddModelFromShape(modelname string, s shape.Shape, collShape shape.Shape) ModelLoadResult

	GetAllModelIDs() []ModelID

	// RemoveModel removes a model; false if it was not in the world.
	RemoveModel(id ModelID) bool

	// SetBasicModelState applies a sparse pose/scale update to one
	// model. Applying an all-disabled state is a no-op.
	SetBasicModelState(id ModelID, s state.BasicState) (OpResult, error)

	// GetBasicModelState reads one model's pose/scale.
	GetBasicModelState(id ModelID) (state.BasicState, error)

	// GetAABB returns the model's axis-aligned bounding box in world
	// coordinates.
	GetAABB(id ModelID) (min, max mgl64.Vec3, err error)
}

// ContactWorld adds contact extraction.
type ContactWorld interface {
	// SupportsContacts reports whether the engine computes contact
	// points at all.
	SupportsContacts() bool

	// GetContactInfo returns all contacts present in the world at the
	// time of the call, copied into the canonical representation. A
	// reported pair always carries at least one contact point;
	// detecting a pair without points is an internal consistency
	// violation surfaced as an error.
	GetContactInfo() ([]*contact.ContactInfo, error)

	// GetContactInfoBetween filters GetContactInfo to pairs involving
	// m1 (and m2 if non-empty), on either side of the pair.
	GetContactInfoBetween(m1, m2 ModelID) ([]*contact.ContactInfo, error)
}

// PhysicsWorld is the full contract a comparison run drives: one
// world per engine, all receiving the same command sequence.
type PhysicsWorld interface {
	BaseWorld
	ModelWorld
	ContactWorld
}

// EngineWorld exposes the engine-specific surface behind a
// PhysicsWorld for callers that know the concrete engine.
type EngineWorld interface {
	PhysicsWorld

	// IsAdaptor reports whether this object wraps a world instance it
	// does not own.
	IsAdaptor() bool

	// SetWorld binds a native engine world, clearing anything already
	// loaded. The result declares whether the state was copied or the
	// pointer referenced; callers must not assume referencing
	// semantics without checking.
	SetWorld(native any) (RefResult, error)

	// GetWorld returns the underlying native world, or nil if there
	// is none.
	GetWorld() any

	// GetNativeContacts returns contacts in the engine's own
	// representation. The handles may point into engine memory that
	// is reused or freed on the next step; callers must copy what
	// they need into canonical Contact records before stepping again.
	GetNativeContacts() ([]any, error)

	// GetNativeContactsBetween filters GetNativeContacts to the pair
	// m1/m2 in either order.
	GetNativeContactsBetween(m1, m2 ModelID) ([]any, error)
}
