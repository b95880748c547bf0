package manager

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/collidebench/internal/state"
	"github.com/san-kum/collidebench/internal/world"
)

// SweepConfig describes a scripted motion: model 1 is carried through
// a regular grid spanning model 2's axis-aligned bounding box, the
// worlds are stepped at each placement, and the lanes' collision
// verdicts are compared.
type SweepConfig struct {
	Model1 string `yaml:"model1"`
	Model2 string `yaml:"model2"`

	// CellSizeFactor sets the grid spacing as a fraction of the swept
	// bounding box extent per axis.
	CellSizeFactor float64 `yaml:"cell_size_factor"`

	// ZeroDepthTol is the contact depth below which a collision call
	// counts as a tie rather than a firm verdict.
	ZeroDepthTol float64 `yaml:"zero_depth_tol"`

	// MinAgreement is the agreement ratio below which the sweep is
	// flagged as a discrepancy.
	MinAgreement float64 `yaml:"min_agreement"`

	// StepsPerTick is how many engine steps to run at each placement.
	StepsPerTick int `yaml:"steps_per_tick"`
}

func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		CellSizeFactor: 0.1,
		ZeroDepthTol:   5e-2,
		MinAgreement:   0.999,
		StepsPerTick:   1,
	}
}

func (c *SweepConfig) Validate() error {
	if c.Model1 == "" || c.Model2 == "" {
		return fmt.Errorf("sweep needs two model names")
	}
	if c.CellSizeFactor <= 0 || c.CellSizeFactor > 1 {
		return fmt.Errorf("cell size factor %g out of (0, 1]", c.CellSizeFactor)
	}
	if c.ZeroDepthTol < 0 {
		return fmt.Errorf("negative zero-depth tolerance %g", c.ZeroDepthTol)
	}
	if c.MinAgreement < 0 || c.MinAgreement > 1 {
		return fmt.Errorf("minimum agreement %g out of [0, 1]", c.MinAgreement)
	}
	if c.StepsPerTick < 1 {
		return fmt.Errorf("steps per tick %d < 1", c.StepsPerTick)
	}
	return nil
}

// TickRecord is the result of one sweep placement.
type TickRecord struct {
	Index    int
	Position mgl64.Vec3
	SimTime  float64
	Verdict  TickVerdict
	States   []StateMismatch
}

// Disagreeing returns the lane names that issued firm, conflicting
// verdicts on this tick.
func (t *TickRecord) Disagreeing() []string {
	if t.Verdict.Agree {
		return nil
	}
	var names []string
	for _, r := range t.Verdict.Reports {
		if r.Verdict != VerdictTie {
			names = append(names, r.Lane)
		}
	}
	return names
}

// SweepResult aggregates a whole sweep.
type SweepResult struct {
	Config      SweepConfig
	Ticks       []TickRecord
	Discrepant  []TickRecord
	FailedLanes map[string]string
}

func (r *SweepResult) AgreementRatio() float64 {
	if len(r.Ticks) == 0 {
		return 1
	}
	agreed := 0
	for i := range r.Ticks {
		if r.Ticks[i].Verdict.Agree {
			agreed++
		}
	}
	return float64(agreed) / float64(len(r.Ticks))
}

// StateMismatchTicks counts the placements where the lanes' world
// states drifted outside tolerance of each other.
func (r *SweepResult) StateMismatchTicks() int {
	drifted := 0
	for i := range r.Ticks {
		if len(r.Ticks[i].States) > 0 {
			drifted++
		}
	}
	return drifted
}

// Passed reports whether the sweep met the configured minimum
// agreement fraction with the lanes' world states in step the whole
// way. A failing sweep is a reportable discrepancy, not an error.
func (r *SweepResult) Passed() bool {
	return r.AgreementRatio() >= r.Config.MinAgreement && r.StateMismatchTicks() == 0
}

// Observer sees each tick as it completes; used by live views.
type Observer func(TickRecord)

// RunSweep moves cfg.Model1 through a grid over cfg.Model2's bounding
// box, stepping and comparing at each placement. The grid is computed
// once, from the first active lane that can answer GetAABB, so every
// lane sees the identical placement sequence.
func (m *Manager) RunSweep(ctx context.Context, cfg SweepConfig, obs Observer) (*SweepResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	min, max, err := m.targetAABB(world.ModelID(cfg.Model2))
	if err != nil {
		return nil, err
	}

	res := &SweepResult{Config: cfg}
	size := max.Sub(min)
	// Integer placement counts per axis keep the grid exact and
	// handle flat boxes (zero extent on an axis means one placement).
	n := [3]int{1, 1, 1}
	for i := 0; i < 3; i++ {
		if size[i] > 0 {
			n[i] = int(1/cfg.CellSizeFactor) + 1
		}
	}
	at := func(axis, k int) float64 {
		if n[axis] == 1 {
			return min[axis]
		}
		return min[axis] + size[axis]*float64(k)/float64(n[axis]-1)
	}

	idx := 0
	for ix := 0; ix < n[0]; ix++ {
		for iy := 0; iy < n[1]; iy++ {
			for iz := 0; iz < n[2]; iz++ {
				if err := ctx.Err(); err != nil {
					return res, err
				}
				pos := mgl64.Vec3{at(0, ix), at(1, iy), at(2, iz)}
				m.SetModelState(world.ModelID(cfg.Model1), state.PositionState(pos))
				if err := m.Update(ctx, cfg.StepsPerTick, true); err != nil {
					return res, err
				}

				tick := TickRecord{Index: idx, Position: pos}
				if active := m.Active(); len(active) > 0 {
					if s, err := active[0].World.GetWorldState(); err == nil {
						tick.SimTime = s.SimTime
					}
				}
				tv, err := m.CompareContacts(
					world.ModelID(cfg.Model1), world.ModelID(cfg.Model2), cfg.ZeroDepthTol)
				if err != nil {
					return res, err
				}
				tick.Verdict = tv
				// World states are checked on every placement, not
				// just on verdict disagreements: lanes must stay
				// tolerance-equal throughout the sweep.
				tick.States, err = m.CompareStates()
				if err != nil {
					return res, err
				}
				if !tv.Agree || len(tick.States) > 0 {
					res.Discrepant = append(res.Discrepant, tick)
				}
				res.Ticks = append(res.Ticks, tick)
				if obs != nil {
					obs(tick)
				}
				idx++
			}
		}
	}

	res.FailedLanes = make(map[string]string)
	for _, l := range m.lanes {
		if l.Failed {
			res.FailedLanes[l.Name] = l.FailReason
		}
	}
	if !res.Passed() {
		m.log.Warn("sweep below minimum agreement",
			"ratio", res.AgreementRatio(), "min", cfg.MinAgreement,
			"discrepant", len(res.Discrepant),
			"state_mismatch_ticks", res.StateMismatchTicks())
	}
	return res, nil
}

// ExpectedTicks reports how many placements the sweep will visit,
// for progress display.
func (m *Manager) ExpectedTicks(cfg SweepConfig) (int, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	min, max, err := m.targetAABB(world.ModelID(cfg.Model2))
	if err != nil {
		return 0, err
	}
	total := 1
	size := max.Sub(min)
	for i := 0; i < 3; i++ {
		if size[i] > 0 {
			total *= int(1/cfg.CellSizeFactor) + 1
		}
	}
	return total, nil
}

// targetAABB asks the active lanes for the swept model's bounding box
// and takes the first answer.
func (m *Manager) targetAABB(id world.ModelID) (mgl64.Vec3, mgl64.Vec3, error) {
	for _, l := range m.Active() {
		min, max, err := l.World.GetAABB(id)
		if err == nil {
			return min, max, nil
		}
	}
	return mgl64.Vec3{}, mgl64.Vec3{}, fmt.Errorf("no lane could report the bounding box of %q", id)
}
