package state

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/san-kum/collidebench/internal/scenario"
)

// ErrIncompatible marks a state/isDiff combination that cannot be
// applied to the receiving world: a diff removing a model that does
// not exist, adding a model that already exists with conflicting
// geometry, or updating a model known to neither side. Worlds map it
// to the NotSupported operation result.
var ErrIncompatible = errors.New("state not applicable to world")

// Diff returns the minimal state that, applied as a diff onto base,
// yields a state tolerance-equal to s. Additions and removals are
// represented explicitly: models present in s but not in base appear
// as Insertions, models present in base but not in s as Deletions,
// and models in both contribute a sparse update holding only the
// fields that moved beyond tolerance.
func (s *WorldState) Diff(base *WorldState, tol Tolerances) *WorldState {
	d := &WorldState{
		Name:       s.Name,
		SimTime:    s.SimTime,
		Iterations: s.Iterations,
		Dynamics:   s.Dynamics,
	}

	for i := range s.Models {
		ms := &s.Models[i]
		bs := base.ModelState(ms.Name)
		if bs == nil {
			ins := s.Insertion(ms.Name)
			if ins != nil {
				d.Insertions = append(d.Insertions, *ins)
			}
			d.Models = append(d.Models, *ms)
			continue
		}

		var upd BasicState
		if ms.State.PosEnabled &&
			ms.State.Position.Sub(bs.State.Position).Len() > tol.Position {
			upd.Position = ms.State.Position
			upd.PosEnabled = true
		}
		if ms.State.RotEnabled &&
			QuatAngle(ms.State.Rotation, bs.State.Rotation) > tol.Rotation {
			upd.Rotation = ms.State.Rotation
			upd.RotEnabled = true
		}
		if ms.State.ScaleEnabled &&
			ms.State.Scale.Sub(bs.State.Scale).Len() > tol.Scale {
			upd.Scale = ms.State.Scale
			upd.ScaleEnabled = true
		}
		if !upd.Empty() {
			d.Models = append(d.Models, ModelState{Name: ms.Name, State: upd})
		}
	}

	for i := range base.Models {
		if s.ModelState(base.Models[i].Name) == nil {
			d.Deletions = append(d.Deletions, base.Models[i].Name)
		}
	}

	d.Sort()
	return d
}

// Changes is the concrete operation list that applying a state to a
// world implies. It is what an engine executes natively after the
// engine-independent planning step.
type Changes struct {
	Add    []scenario.Model
	Remove []string
	Update []ModelState
}

// PlanApply computes the changes that applying s onto the world
// currently in state base requires.
//
// With isDiff false the world is reset exactly to s: models absent
// from s are removed, missing models are created from s's Insertions,
// and every model state in s is applied. With isDiff true only the
// entities explicitly mentioned in s are touched.
func PlanApply(base *WorldState, s *WorldState, isDiff bool) (*Changes, error) {
	ch := &Changes{}

	if isDiff {
		for _, name := range s.Deletions {
			if base.ModelState(name) == nil {
				return nil, fmt.Errorf("%w: removal of unknown model %q", ErrIncompatible, name)
			}
			ch.Remove = append(ch.Remove, name)
		}
		for i := range s.Insertions {
			ins := &s.Insertions[i]
			if prev := base.Insertion(ins.Name); prev != nil {
				if !reflect.DeepEqual(prev.Geometry, ins.Geometry) {
					return nil, fmt.Errorf("%w: model %q already exists with different geometry",
						ErrIncompatible, ins.Name)
				}
				// Same model, same geometry: nothing to add.
				continue
			}
			ch.Add = append(ch.Add, *ins)
		}
		for i := range s.Models {
			ms := &s.Models[i]
			if base.ModelState(ms.Name) == nil && s.Insertion(ms.Name) == nil {
				return nil, fmt.Errorf("%w: update for unknown model %q", ErrIncompatible, ms.Name)
			}
			ch.Update = append(ch.Update, *ms)
		}
		return ch, nil
	}

	for i := range base.Models {
		if s.ModelState(base.Models[i].Name) == nil {
			ch.Remove = append(ch.Remove, base.Models[i].Name)
		}
	}
	for i := range s.Models {
		ms := &s.Models[i]
		if base.ModelState(ms.Name) == nil {
			ins := s.Insertion(ms.Name)
			if ins == nil {
				return nil, fmt.Errorf("%w: no scene description for new model %q",
					ErrIncompatible, ms.Name)
			}
			ch.Add = append(ch.Add, *ins)
		}
		ch.Update = append(ch.Update, *ms)
	}
	return ch, nil
}
