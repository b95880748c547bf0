// Package manager drives a set of physics worlds through the same
// command sequence and compares what they report. Each world is a
// lane; a lane that fails to load or step is marked failed and
// excluded from further comparison, and the run carries on with the
// rest.
package manager

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/san-kum/collidebench/internal/contact"
	"github.com/san-kum/collidebench/internal/logging"
	"github.com/san-kum/collidebench/internal/scenario"
	"github.com/san-kum/collidebench/internal/state"
	"github.com/san-kum/collidebench/internal/world"
)

// Verdict is one lane's collision call for a tick.
type Verdict int

const (
	// VerdictFree reports no contact between the filtered pair.
	VerdictFree Verdict = iota
	// VerdictTie reports contact shallower than the zero-depth
	// tolerance; a tie agrees with any other verdict.
	VerdictTie
	// VerdictCollide reports contact deeper than the tolerance.
	VerdictCollide
)

func (v Verdict) String() string {
	switch v {
	case VerdictFree:
		return "free"
	case VerdictTie:
		return "tie"
	case VerdictCollide:
		return "collide"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

type Lane struct {
	Name  string
	World world.PhysicsWorld

	Failed     bool
	FailReason string
}

// StateMismatch records one pair of lanes whose world states were not
// tolerance-equal after a tick.
type StateMismatch struct {
	LaneA, LaneB   string
	StateA, StateB *state.WorldState
}

// ContactReport is one lane's contact result for a tick, filtered to
// the pair under comparison.
type ContactReport struct {
	Lane     string
	Verdict  Verdict
	MaxDepth float64
	Contacts []*contact.ContactInfo
}

// TickVerdict aggregates the per-lane contact reports for one tick.
type TickVerdict struct {
	Reports []ContactReport
	Agree   bool
}

// Manager owns the lanes and the lockstep discipline: every active
// lane is advanced by the same step count before anything is
// compared, and comparison never overlaps stepping.
type Manager struct {
	log      *log.Logger
	lanes    []*Lane
	tol      state.Tolerances
	parallel bool
}

func New(tol state.Tolerances) *Manager {
	return &Manager{
		log:   logging.For("manager"),
		lanes: make([]*Lane, 0),
		tol:   tol,
	}
}

// SetParallel switches stepping to one goroutine per lane with a
// barrier before the comparison phase. Each lane exclusively owns its
// world, so no locking is needed beyond the barrier.
func (m *Manager) SetParallel(flag bool) { m.parallel = flag }

func (m *Manager) AddLane(name string, w world.PhysicsWorld) {
	m.lanes = append(m.lanes, &Lane{Name: name, World: w})
}

func (m *Manager) Lanes() []*Lane { return m.lanes }

// Active returns the lanes still participating in the comparison.
func (m *Manager) Active() []*Lane {
	out := make([]*Lane, 0, len(m.lanes))
	for _, l := range m.lanes {
		if !l.Failed {
			out = append(out, l)
		}
	}
	return out
}

func (m *Manager) fail(l *Lane, reason string) {
	l.Failed = true
	l.FailReason = reason
	m.log.Error("lane failed, excluded from comparison", "lane", l.Name, "reason", reason)
}

// LoadScenario broadcasts one scenario to every lane. A lane that
// cannot load it is marked failed; the call errors only if no lane
// loaded.
func (m *Manager) LoadScenario(sc *scenario.World) error {
	loaded := 0
	for _, l := range m.lanes {
		if l.Failed {
			continue
		}
		res, err := l.World.LoadFromScenario(sc, "")
		if res != world.Success {
			m.fail(l, fmt.Sprintf("load %s: %v (%s)", sc.Name, err, res))
			continue
		}
		loaded++
	}
	if loaded == 0 {
		return fmt.Errorf("no lane could load scenario %q", sc.Name)
	}
	return nil
}

// SetModelState broadcasts one model pose update to every active lane.
func (m *Manager) SetModelState(id world.ModelID, s state.BasicState) {
	for _, l := range m.Active() {
		if res, err := l.World.SetBasicModelState(id, s); res != world.Success {
			m.fail(l, fmt.Sprintf("set state of %s: %v (%s)", id, err, res))
		}
	}
}

// Update advances every active lane by the same step count and blocks
// until all are done. force is passed through so paused worlds (the
// normal case) still step.
func (m *Manager) Update(ctx context.Context, steps int, force bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	active := m.Active()
	if len(active) == 0 {
		return fmt.Errorf("no active lanes")
	}

	if !m.parallel {
		for _, l := range active {
			if err := l.World.Update(steps, force); err != nil {
				m.fail(l, fmt.Sprintf("update: %v", err))
			}
		}
		return nil
	}

	errs := make([]error, len(active))
	var wg sync.WaitGroup
	for i, l := range active {
		wg.Add(1)
		go func(idx int, lane *Lane) {
			defer wg.Done()
			errs[idx] = lane.World.Update(steps, force)
		}(i, l)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			m.fail(active[i], fmt.Sprintf("update: %v", err))
		}
	}
	return nil
}

// CompareStates captures every active lane's world state and returns
// the pairs that are not tolerance-equal. Snapshots are value copies;
// the comparison never touches the worlds again.
func (m *Manager) CompareStates() ([]StateMismatch, error) {
	active := m.Active()
	states := make([]*state.WorldState, len(active))
	for i, l := range active {
		s, err := l.World.GetWorldState()
		if err != nil {
			m.fail(l, fmt.Sprintf("capture state: %v", err))
			continue
		}
		states[i] = s
	}

	var mismatches []StateMismatch
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			if states[i] == nil || states[j] == nil {
				continue
			}
			if !states[i].EqualTol(states[j], m.tol) {
				mismatches = append(mismatches, StateMismatch{
					LaneA: active[i].Name, LaneB: active[j].Name,
					StateA: states[i], StateB: states[j],
				})
			}
		}
	}
	return mismatches, nil
}

// CompareContacts collects every active lane's contacts between the
// two models and reduces them to a tick verdict. Contacts shallower
// than zeroDepthTol count as a tie: barely touching is compatible
// with both "colliding" and "free", so only firm verdicts can
// disagree. Lanes without contact support are skipped.
func (m *Manager) CompareContacts(m1, m2 world.ModelID, zeroDepthTol float64) (TickVerdict, error) {
	var tv TickVerdict
	for _, l := range m.Active() {
		if !l.World.SupportsContacts() {
			continue
		}
		infos, err := l.World.GetContactInfoBetween(m1, m2)
		if err != nil {
			m.fail(l, fmt.Sprintf("contacts: %v", err))
			continue
		}
		r := ContactReport{Lane: l.Name, Contacts: infos}
		for _, ci := range infos {
			if d := ci.MaxDepth(); d > r.MaxDepth {
				r.MaxDepth = d
			}
		}
		switch {
		case len(infos) == 0:
			r.Verdict = VerdictFree
		case r.MaxDepth <= zeroDepthTol:
			r.Verdict = VerdictTie
		default:
			r.Verdict = VerdictCollide
		}
		tv.Reports = append(tv.Reports, r)
	}

	tv.Agree = true
	firm := Verdict(-1)
	for _, r := range tv.Reports {
		if r.Verdict == VerdictTie {
			continue
		}
		if firm == Verdict(-1) {
			firm = r.Verdict
			continue
		}
		if r.Verdict != firm {
			tv.Agree = false
			break
		}
	}
	return tv, nil
}
