// Package state holds the canonical, engine-independent snapshot of a
// physics world: per-model pose/scale records, addition and removal
// records, and world-level metadata. Snapshots are immutable values
// once captured; they support differencing, application planning and
// tolerance-based comparison without ever touching the world they
// were read from.
package state

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/collidebench/internal/scenario"
)

// BasicState is a sparse pose/scale record. Only fields whose enable
// flag is set carry meaning: applying a BasicState touches enabled
// fields only, and applying one with all flags off is a no-op.
type BasicState struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3

	PosEnabled   bool
	RotEnabled   bool
	ScaleEnabled bool
}

// FullBasicState returns a BasicState with all fields set and enabled.
func FullBasicState(pos mgl64.Vec3, rot mgl64.Quat, scale mgl64.Vec3) BasicState {
	return BasicState{
		Position: pos, Rotation: rot, Scale: scale,
		PosEnabled: true, RotEnabled: true, ScaleEnabled: true,
	}
}

// PositionState returns a BasicState carrying only a position.
func PositionState(pos mgl64.Vec3) BasicState {
	return BasicState{Position: pos, PosEnabled: true}
}

// Empty reports whether no field is enabled.
func (b BasicState) Empty() bool {
	return !b.PosEnabled && !b.RotEnabled && !b.ScaleEnabled
}

// ApplyTo copies the enabled fields of b onto dst, enabling them
// there. Disabled fields of b leave dst untouched.
func (b BasicState) ApplyTo(dst *BasicState) {
	if b.PosEnabled {
		dst.Position = b.Position
		dst.PosEnabled = true
	}
	if b.RotEnabled {
		dst.Rotation = b.Rotation
		dst.RotEnabled = true
	}
	if b.ScaleEnabled {
		dst.Scale = b.Scale
		dst.ScaleEnabled = true
	}
}

// EqualTol compares the fields enabled on both sides. A field enabled
// on one side only counts as a difference.
func (b BasicState) EqualTol(o BasicState, tol Tolerances) bool {
	if b.PosEnabled != o.PosEnabled || b.RotEnabled != o.RotEnabled ||
		b.ScaleEnabled != o.ScaleEnabled {
		return false
	}
	if b.PosEnabled && b.Position.Sub(o.Position).Len() > tol.Position {
		return false
	}
	if b.RotEnabled && QuatAngle(b.Rotation, o.Rotation) > tol.Rotation {
		return false
	}
	if b.ScaleEnabled && b.Scale.Sub(o.Scale).Len() > tol.Scale {
		return false
	}
	return true
}

// QuatAngle returns the rotation angle in radians between two unit
// quaternions, treating q and -q as the same rotation.
func QuatAngle(a, b mgl64.Quat) float64 {
	d := math.Abs(a.Dot(b))
	if d > 1 {
		d = 1
	}
	return 2 * math.Acos(d)
}

// ModelState is one model's entry in a world snapshot.
type ModelState struct {
	Name  string
	State BasicState
}

// WorldState is a snapshot of an entire world at one instant.
//
// A full snapshot lists every model in Models and carries a matching
// scene description in Insertions so the world can be rebuilt from the
// snapshot alone. A diff snapshot (produced by Diff) lists only what
// changed: pose updates in Models, new models in Insertions, removed
// model names in Deletions.
type WorldState struct {
	Name       string
	SimTime    float64
	Iterations uint64

	// Dynamics records whether the captured world had its dynamics
	// engine enabled; comparisons skip dynamics-derived quantities
	// unless both sides had it on.
	Dynamics bool

	Models     []ModelState
	Insertions []scenario.Model
	Deletions  []string
}

// Sort orders the model records by name so that snapshots captured
// from different engines compare deterministically.
func (s *WorldState) Sort() {
	sort.Slice(s.Models, func(i, j int) bool { return s.Models[i].Name < s.Models[j].Name })
	sort.Slice(s.Insertions, func(i, j int) bool { return s.Insertions[i].Name < s.Insertions[j].Name })
	sort.Strings(s.Deletions)
}

// ModelState returns the named model's record, or nil.
func (s *WorldState) ModelState(name string) *ModelState {
	for i := range s.Models {
		if s.Models[i].Name == name {
			return &s.Models[i]
		}
	}
	return nil
}

// Insertion returns the named model's scene description, or nil.
func (s *WorldState) Insertion(name string) *scenario.Model {
	for i := range s.Insertions {
		if s.Insertions[i].Name == name {
			return &s.Insertions[i]
		}
	}
	return nil
}

// Clone returns a deep copy.
func (s *WorldState) Clone() *WorldState {
	c := *s
	c.Models = append([]ModelState(nil), s.Models...)
	c.Insertions = append([]scenario.Model(nil), s.Insertions...)
	c.Deletions = append([]string(nil), s.Deletions...)
	return &c
}

// EqualTol reports tolerance-equality of two snapshots: the same set
// of models, each model's pose/scale within tolerance, and sim time
// within the dynamics tolerance when both worlds had dynamics on.
func (s *WorldState) EqualTol(o *WorldState, tol Tolerances) bool {
	if len(s.Models) != len(o.Models) {
		return false
	}
	for i := range s.Models {
		ms := &s.Models[i]
		os := o.ModelState(ms.Name)
		if os == nil {
			return false
		}
		if !ms.State.EqualTol(os.State, tol) {
			return false
		}
	}
	if s.Dynamics && o.Dynamics {
		if math.Abs(s.SimTime-o.SimTime) > tol.Dynamics {
			return false
		}
	}
	return true
}
